package normalization

import (
	"errors"
	"math"
	"testing"

	"signal-backtest-lab/internal/domain"
)

func TestPreparePrices_SortsAndCopies(t *testing.T) {
	in := []*domain.PricePoint{
		{Symbol: "X", TimestampMs: 3000, Price: 3},
		{Symbol: "X", TimestampMs: 1000, Price: 1},
		{Symbol: "X", TimestampMs: 2000, Price: 2},
	}

	out, err := PreparePrices(in)
	if err != nil {
		t.Fatalf("PreparePrices failed: %v", err)
	}

	for i, want := range []int64{1000, 2000, 3000} {
		if out[i].TimestampMs != want {
			t.Errorf("out[%d]: expected timestamp %d, got %d", i, want, out[i].TimestampMs)
		}
	}

	// Input untouched
	if in[0].TimestampMs != 3000 {
		t.Error("PreparePrices reordered its input")
	}
	out[0].Price = 99
	if in[1].Price != 1 {
		t.Error("PreparePrices returned shared pointers")
	}
}

func TestPreparePrices_Rejects(t *testing.T) {
	tests := []struct {
		name string
		in   []*domain.PricePoint
		want error
	}{
		{"duplicate timestamp", []*domain.PricePoint{
			{TimestampMs: 1000, Price: 1}, {TimestampMs: 1000, Price: 2},
		}, ErrDuplicateTimestamp},
		{"zero price", []*domain.PricePoint{{TimestampMs: 1000, Price: 0}}, ErrNonPositivePrice},
		{"negative price", []*domain.PricePoint{{TimestampMs: 1000, Price: -1}}, ErrNonPositivePrice},
		{"infinite price", []*domain.PricePoint{{TimestampMs: 1000, Price: math.Inf(1)}}, ErrNonPositivePrice},
		{"nil point", []*domain.PricePoint{nil}, ErrNonPositivePrice},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := PreparePrices(tt.in); !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestPreparePrices_Empty(t *testing.T) {
	out, err := PreparePrices(nil)
	if err != nil {
		t.Fatalf("PreparePrices failed: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("Expected empty result, got %d", len(out))
	}
}
