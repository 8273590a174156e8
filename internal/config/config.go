package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"tariff-bench/internal/model"
)

// Config is the on-disk configuration shape (YAML).
type Config struct {
	// Optional: load the community from a JSON file (see internal/data).
	// When empty, a synthetic community is generated from Synthetic.
	CommunityFile string `yaml:"community_file"`

	Synthetic SyntheticConfig `yaml:"synthetic"`
	Solver    SolverConfig    `yaml:"solver"`
	Trading   TradingConfig   `yaml:"trading"`
	Tariffs   TariffConfig    `yaml:"tariffs"`
	Server    ServerConfig    `yaml:"server"`
}

type SyntheticConfig struct {
	Buildings    int     `yaml:"buildings"`
	Horizon      int     `yaml:"horizon"`
	Seed         uint64  `yaml:"seed"`
	BatteryShare float64 `yaml:"battery_share"`
	PVShare      float64 `yaml:"pv_share"`
	FlexShare    float64 `yaml:"flex_share"`
	FlexBand     float64 `yaml:"flex_band"`
}

type SolverConfig struct {
	IntervalHours    float64 `yaml:"interval_hours"`
	Tolerance        float64 `yaml:"tolerance"`
	BalanceTolerance float64 `yaml:"balance_tolerance"`
	TimeoutMS        int     `yaml:"timeout_ms"`
	Workers          int     `yaml:"workers"`
}

type TradingConfig struct {
	Enabled    bool    `yaml:"enabled"`
	Efficiency float64 `yaml:"efficiency"`
	Topology   string  `yaml:"topology"`
}

type TariffConfig struct {
	Seed            uint64    `yaml:"seed"`
	ExportRatio     float64   `yaml:"export_ratio"`
	CommunitySpread float64   `yaml:"community_spread"`
	PriceScales     []float64 `yaml:"price_scales"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the configuration used when no file is provided.
func Default() *Config {
	return &Config{
		Synthetic: SyntheticConfig{
			Buildings:    6,
			Horizon:      24,
			Seed:         7,
			BatteryShare: 0.5,
			PVShare:      0.7,
			FlexShare:    0.3,
			FlexBand:     0.2,
		},
		Solver: SolverConfig{
			IntervalHours:    1,
			Tolerance:        1e-9,
			BalanceTolerance: 1e-6,
			TimeoutMS:        30_000,
			Workers:          4,
		},
		Trading: TradingConfig{
			Enabled:    true,
			Efficiency: 0.95,
			Topology:   string(model.TopologyFull),
		},
		Tariffs: TariffConfig{
			Seed:            42,
			ExportRatio:     0.4,
			CommunitySpread: 0.5,
			PriceScales:     []float64{0.8, 1.0, 1.2},
		},
		Server: ServerConfig{Addr: ":8080"},
	}
}

// Load reads a YAML config over the defaults and validates it.
func Load(path string) (*Config, error) {
	c, err := LoadUnchecked(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadUnchecked loads and merges config, but does not validate it.
// Useful for debugging/printing partial configs.
func LoadUnchecked(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := Default()
	if err := yaml.Unmarshal(raw, c); err != nil {
		return nil, err
	}
	// Prefer interpreting relative community paths as relative to the config
	// file directory, falling back to the path as given.
	if c.CommunityFile != "" && !filepath.IsAbs(c.CommunityFile) {
		cand := filepath.Join(filepath.Dir(path), c.CommunityFile)
		if _, err := os.Stat(cand); err == nil {
			c.CommunityFile = cand
		}
	}
	return c, nil
}

func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.CommunityFile == "" {
		if c.Synthetic.Buildings <= 0 {
			return errors.New("synthetic.buildings must be > 0")
		}
		if c.Synthetic.Horizon <= 0 {
			return errors.New("synthetic.horizon must be > 0")
		}
	}
	if c.Solver.IntervalHours <= 0 {
		return errors.New("solver.interval_hours must be > 0")
	}
	if c.Solver.TimeoutMS < 0 {
		return errors.New("solver.timeout_ms must be >= 0")
	}
	if c.Solver.Workers <= 0 {
		return errors.New("solver.workers must be > 0")
	}
	if err := c.ModelTrading().Validate(); err != nil {
		return fmt.Errorf("trading config invalid: %w", err)
	}
	if c.Tariffs.ExportRatio < 0 || c.Tariffs.ExportRatio > 1 {
		return errors.New("tariffs.export_ratio must be in [0, 1]")
	}
	if c.Tariffs.CommunitySpread < 0 || c.Tariffs.CommunitySpread > 1 {
		return errors.New("tariffs.community_spread must be in [0, 1]")
	}
	for _, s := range c.Tariffs.PriceScales {
		if s <= 0 {
			return errors.New("tariffs.price_scales must all be > 0")
		}
	}
	if c.Server.Addr == "" {
		return errors.New("server.addr is required")
	}
	return nil
}

// ModelTrading converts the config's trading block to the model type.
func (c *Config) ModelTrading() model.TradingConfig {
	return model.TradingConfig{
		Enabled:    c.Trading.Enabled,
		Efficiency: c.Trading.Efficiency,
		Topology:   model.Topology(c.Trading.Topology),
	}
}

// SolveTimeout converts the millisecond setting to a duration.
func (c *Config) SolveTimeout() time.Duration {
	return time.Duration(c.Solver.TimeoutMS) * time.Millisecond
}
