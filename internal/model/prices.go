package model

import "fmt"

// PriceProfile is one scenario's tariff: per-interval import, export and
// community trading prices, all of horizon length. Prices are per kWh.
type PriceProfile struct {
	ImportPrice    []float64 `json:"import_price"`
	ExportPrice    []float64 `json:"export_price"`
	CommunityPrice []float64 `json:"community_price"`
}

// Horizon is the number of intervals covered by the profile.
func (p *PriceProfile) Horizon() int { return len(p.ImportPrice) }

func (p *PriceProfile) Validate() error {
	h := len(p.ImportPrice)
	if h == 0 {
		return &ValidationError{Reason: "import price series is empty"}
	}
	if len(p.ExportPrice) != h {
		return &ValidationError{Reason: fmt.Sprintf("export price series has length %d, want %d", len(p.ExportPrice), h)}
	}
	if len(p.CommunityPrice) != h {
		return &ValidationError{Reason: fmt.Sprintf("community price series has length %d, want %d", len(p.CommunityPrice), h)}
	}
	return nil
}

// Topology selects which building pairs may trade.
type Topology string

const (
	// TopologyFull permits every ordered pair of distinct buildings.
	TopologyFull Topology = "full"
	// TopologyLocal permits trades only between ring neighbours in the
	// fixed building ordering.
	TopologyLocal Topology = "local"
	// TopologyHub routes all trades through a virtual hub node that nets
	// to zero each interval.
	TopologyHub Topology = "hub"
)

// TradingConfig controls the P2P trading layer of a scenario.
type TradingConfig struct {
	Enabled bool `json:"enabled"`
	// Efficiency is the fraction of each traded kWh actually delivered,
	// applied at receipt.
	Efficiency float64  `json:"efficiency"`
	Topology   Topology `json:"topology"`
}

func (c TradingConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Efficiency <= 0 || c.Efficiency > 1 {
		return &ValidationError{Reason: "trading efficiency must be in (0, 1]"}
	}
	switch c.Topology {
	case TopologyFull, TopologyLocal, TopologyHub:
		return nil
	default:
		return &ValidationError{Reason: fmt.Sprintf("unknown trading topology %q", c.Topology)}
	}
}

// TopologyCode maps the topology to a stable numeric code used as a
// surrogate feature.
func (c TradingConfig) TopologyCode() float64 {
	switch c.Topology {
	case TopologyLocal:
		return 1
	case TopologyHub:
		return 2
	default:
		return 0
	}
}
