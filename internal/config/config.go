package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/signalnine/acckpi/internal/kpi"
)

type Config struct {
	Params       kpi.Params    `yaml:"params"`
	Requirements []Requirement `yaml:"requirements"`
	Results      Results       `yaml:"results"`
	History      History       `yaml:"history"`
	Simulator    Simulator     `yaml:"simulator"`
	Plot         Plot          `yaml:"plot"`
}

// Requirement bounds one metric. A nil bound is not checked.
type Requirement struct {
	Metric string   `yaml:"metric"`
	Max    *float64 `yaml:"max"`
	Min    *float64 `yaml:"min"`
	Weight float64  `yaml:"weight"`
}

type Results struct {
	Dir string `yaml:"dir"`
}

type History struct {
	Path string `yaml:"path"`
}

type Simulator struct {
	Image          string            `yaml:"image"`
	Binary         string            `yaml:"binary"`
	TimeoutMinutes int               `yaml:"timeout_minutes"`
	CPULimit       float64           `yaml:"cpu_limit"`
	MemoryLimitMB  int64             `yaml:"memory_limit_mb"`
	Env            map[string]string `yaml:"env"`
}

type Plot struct {
	OutDir      string  `yaml:"out_dir"`
	TTCAEB      float64 `yaml:"ttc_aeb_s"`
	TTCMax      float64 `yaml:"ttc_max_s"`
	RelSpeedEps float64 `yaml:"rel_speed_eps_mps"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{Params: kpi.DefaultParams()}
	if err := validate(cfg); err != nil {
		panic(err)
	}
	return cfg
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	// Keys absent from the file keep their default values.
	cfg := Config{Params: kpi.DefaultParams()}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

// LoadOrDefault is Load, except that a missing file yields Default.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

func validate(cfg *Config) error {
	if err := cfg.Params.Validate(); err != nil {
		return err
	}

	if cfg.Requirements == nil {
		cfg.Requirements = DefaultRequirements()
	}
	var zero kpi.Metrics
	for i, r := range cfg.Requirements {
		if r.Metric == "" {
			return fmt.Errorf("requirement %d: metric is required", i)
		}
		if _, ok := zero.Lookup(r.Metric); !ok {
			return fmt.Errorf("requirement %d: unknown metric %q", i, r.Metric)
		}
		if r.Max == nil && r.Min == nil {
			return fmt.Errorf("requirement %q: min or max is required", r.Metric)
		}
		if r.Weight < 0 {
			return fmt.Errorf("requirement %q: weight must not be negative", r.Metric)
		}
	}

	if cfg.Results.Dir == "" {
		cfg.Results.Dir = "results"
	}
	if cfg.Simulator.Image == "" {
		cfg.Simulator.Image = "acc-sim:latest"
	}
	if cfg.Simulator.Binary == "" {
		cfg.Simulator.Binary = "sim_runner"
	}
	if cfg.Simulator.TimeoutMinutes == 0 {
		cfg.Simulator.TimeoutMinutes = 10
	}
	if cfg.Simulator.TimeoutMinutes < 0 {
		return fmt.Errorf("simulator timeout_minutes must be positive")
	}
	if cfg.Plot.OutDir == "" {
		cfg.Plot.OutDir = "docs/plots"
	}
	if cfg.Plot.TTCAEB == 0 {
		cfg.Plot.TTCAEB = 1.5
	}
	if cfg.Plot.TTCMax == 0 {
		cfg.Plot.TTCMax = 30
	}
	if cfg.Plot.RelSpeedEps == 0 {
		cfg.Plot.RelSpeedEps = 0.1
	}
	return nil
}

func bound(v float64) *float64 { return &v }

// DefaultRequirements are the acceptance limits of the regression scenarios.
func DefaultRequirements() []Requirement {
	return []Requirement{
		{Metric: kpi.NameCruiseSSErr, Max: bound(0.5)},
		{Metric: kpi.NameMaxJerkComfort, Max: bound(2.0)},
		{Metric: kpi.NameAEBTime, Max: bound(0)},
		{Metric: kpi.NameFollowSSErr, Max: bound(0.2)},
	}
}
