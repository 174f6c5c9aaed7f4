package domain

import "testing"

func TestMetricsSnapshotMap(t *testing.T) {
	m := MetricsSnapshot{
		TotalReturnPct: 1.8,
		MaxDrawdownPct: -25,
		TradeCount:     2,
		RoundTrips:     1,
		FinalValue:     1018,
	}

	got := m.Map()
	if len(got) != len(MetricKeys) {
		t.Fatalf("Expected %d keys, got %d", len(MetricKeys), len(got))
	}
	for _, k := range MetricKeys {
		if _, ok := got[k]; !ok {
			t.Errorf("Missing key %q", k)
		}
	}
	if got[MetricTradeCount] != 2 {
		t.Errorf("Expected num_trades 2, got %v", got[MetricTradeCount])
	}
	if got[MetricMaxDrawdown] != -25 {
		t.Errorf("Expected max_drawdown -25, got %v", got[MetricMaxDrawdown])
	}
	if got[MetricFinalValue] != 1018 {
		t.Errorf("Expected final_value 1018, got %v", got[MetricFinalValue])
	}
}

func TestSignalString(t *testing.T) {
	tests := []struct {
		s    Signal
		want string
	}{
		{SignalEnter, "enter"},
		{SignalExit, "exit"},
		{SignalHold, "hold"},
		{Signal(7), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("Signal(%d).String() = %q, want %q", int(tt.s), got, tt.want)
		}
	}
}
