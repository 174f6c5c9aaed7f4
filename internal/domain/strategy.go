package domain

// StrategyConfig represents strategy configuration parameters.
type StrategyConfig struct {
	StrategyType string // "MA_CROSSOVER" | "MA_CROSSOVER_EVENT"
	ShortWindow  int    // fast moving average window (bars)
	LongWindow   int    // slow moving average window (bars)
}

// Strategy type constants
const (
	// StrategyTypeMACrossover emits +1 while the short MA is above the long MA
	// and -1 while it is below.
	StrategyTypeMACrossover = "MA_CROSSOVER"
	// StrategyTypeMACrossoverEvent emits +1/-1 only on the bar where the
	// short MA crosses the long MA.
	StrategyTypeMACrossoverEvent = "MA_CROSSOVER_EVENT"
)
