package strategy

import "fmt"

// Options bundles per-variant configuration for construction by name.
type Options struct {
	EMACross      EMACrossConfig
	Adaptive      AdaptiveConfig
	VolumeFarm    VolumeFarmConfig
	FundingArb    FundingArbConfig
	FundingSource FundingSource
}

// New builds a strategy by its configured name.
func New(name string, opts Options) (Strategy, error) {
	switch name {
	case "", "ema_crossover":
		return NewEMACross(opts.EMACross), nil
	case "adaptive":
		return NewAdaptive(opts.Adaptive), nil
	case "volume_farm":
		return NewVolumeFarm(opts.VolumeFarm), nil
	case "funding_arbitrage":
		return NewFundingArb(opts.FundingArb, opts.FundingSource), nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", name)
	}
}
