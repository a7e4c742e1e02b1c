package scanning

import (
	"github.com/anstrom/kibanahunt/internal/config"
	"github.com/anstrom/kibanahunt/internal/targets"
)

// Plan is a validated scan configuration with its ranges and ports parsed.
type Plan struct {
	Ranges     []targets.Range
	Ports      []uint16
	TotalHosts uint64
	Overlaps   []targets.Overlap
}

// NewPlan validates cfg and resolves everything a scan needs before the
// first address is enumerated. Any error is a configuration error.
func NewPlan(cfg config.ScanConfig) (*Plan, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ranges, err := cfg.RangeList()
	if err != nil {
		return nil, err
	}
	ports, err := cfg.PortList()
	if err != nil {
		return nil, err
	}

	overlaps, err := targets.Overlaps(ranges)
	if err != nil {
		return nil, err
	}

	return &Plan{
		Ranges:     ranges,
		Ports:      ports,
		TotalHosts: targets.TotalHosts(ranges),
		Overlaps:   overlaps,
	}, nil
}

// RangeStrings returns the ranges in CIDR notation.
func (p *Plan) RangeStrings() []string {
	out := make([]string, len(p.Ranges))
	for i, r := range p.Ranges {
		out[i] = r.String()
	}
	return out
}
