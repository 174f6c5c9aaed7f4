package domain

// Side is the direction of an executed trade.
type Side string

// Trade sides
const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Trade is an executed market order.
// Corresponds to trades table in PostgreSQL.
// Trades are append-only: the simulator never mutates a trade after emitting it.
type Trade struct {
	TimestampMs int64   // execution bar timestamp (ms)
	Side        Side    // buy | sell
	Price       float64 // execution price, equals the bar price
	Quantity    int64   // whole shares
	Fee         float64 // flat fee charged for this trade
}

// Notional returns price * quantity.
func (t Trade) Notional() float64 {
	return t.Price * float64(t.Quantity)
}
