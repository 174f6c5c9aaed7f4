package strategy

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"signal-backtest-lab/internal/domain"
)

// Factory errors
var (
	ErrUnknownStrategyType = errors.New("unknown strategy type")
	ErrInvalidWindows      = errors.New("moving average windows must satisfy 0 < short < long")
	ErrInvalidInput        = errors.New("invalid strategy input")
)

// FromConfig creates a Generator from domain.StrategyConfig.
// Validates required parameters per strategy type.
func FromConfig(cfg domain.StrategyConfig) (Generator, error) {
	switch cfg.StrategyType {
	case domain.StrategyTypeMACrossover:
		if err := validateWindows(cfg); err != nil {
			return nil, err
		}
		return NewMACrossoverStrategy(cfg.ShortWindow, cfg.LongWindow), nil
	case domain.StrategyTypeMACrossoverEvent:
		if err := validateWindows(cfg); err != nil {
			return nil, err
		}
		return NewMACrossoverEventStrategy(cfg.ShortWindow, cfg.LongWindow), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategyType, cfg.StrategyType)
	}
}

func validateWindows(cfg domain.StrategyConfig) error {
	if cfg.ShortWindow <= 0 || cfg.LongWindow <= 0 || cfg.ShortWindow >= cfg.LongWindow {
		return fmt.Errorf("%w: short=%d long=%d", ErrInvalidWindows, cfg.ShortWindow, cfg.LongWindow)
	}
	return nil
}

// ParseID recovers the config from a generator ID such as "MA_CROSSOVER_EVENT_5_20".
// The result round-trips through FromConfig(cfg).ID().
func ParseID(id string) (domain.StrategyConfig, error) {
	parts := strings.Split(id, "_")
	if len(parts) < 3 {
		return domain.StrategyConfig{}, fmt.Errorf("%w: malformed id %q", ErrUnknownStrategyType, id)
	}

	short, errShort := strconv.Atoi(parts[len(parts)-2])
	long, errLong := strconv.Atoi(parts[len(parts)-1])
	if errShort != nil || errLong != nil {
		return domain.StrategyConfig{}, fmt.Errorf("%w: malformed id %q", ErrUnknownStrategyType, id)
	}

	cfg := domain.StrategyConfig{
		StrategyType: strings.Join(parts[:len(parts)-2], "_"),
		ShortWindow:  short,
		LongWindow:   long,
	}
	if _, err := FromConfig(cfg); err != nil {
		return domain.StrategyConfig{}, err
	}
	return cfg, nil
}
