package cmd

import (
	"bytes"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/vtisweden/matsim-projects-sub003/roundtrip"
)

// ScenarioConfig is the YAML description of a sampling run.
type ScenarioConfig struct {
	Version            string                    `yaml:"version"`
	BinSizeHours       float64                   `yaml:"bin_size_hours"`
	BinCount           int                       `yaml:"bin_count"`
	MaxStayEpisodes    int                       `yaml:"max_stay_episodes"`
	Locations          []string                  `yaml:"locations"`
	DefaultTravelHours *float64                  `yaml:"default_travel_hours,omitempty"`
	TravelTimes        []LegConfig               `yaml:"travel_times"`
	Distances          []LegConfig               `yaml:"distances"`
	Proposal           *roundtrip.ProposalParams `yaml:"proposal,omitempty"`
	Fleet              FleetConfig               `yaml:"fleet"`
	Weights            WeightsConfig             `yaml:"weights"`
}

// LegConfig is a travel time (hours) or distance (km) between two locations.
type LegConfig struct {
	From      string  `yaml:"from"`
	To        string  `yaml:"to"`
	Value     float64 `yaml:"value"`
	Symmetric bool    `yaml:"symmetric"`
}

// FleetConfig describes the sampled population.
type FleetConfig struct {
	Size             int           `yaml:"size"`
	FlipProbability  float64       `yaml:"flip_probability"`
	Home             string        `yaml:"home"`              // empty: drawn per agent
	InitialDeparture *int          `yaml:"initial_departure"` // nil: drawn per agent
	Groups           []GroupConfig `yaml:"groups"`
}

// GroupConfig is a named population share.
type GroupConfig struct {
	Name   string  `yaml:"name"`
	Weight float64 `yaml:"weight"`
}

// WeightsConfig selects the weight components. A nil section disables it.
type WeightsConfig struct {
	Periodic         *PeriodicConfig   `yaml:"periodic,omitempty"`
	MaximumEntropy   *MaxEntropyConfig `yaml:"maximum_entropy,omitempty"`
	SizeDistribution *FactorConfig     `yaml:"size_distribution,omitempty"`
	OD               *ODConfig         `yaml:"od,omitempty"`
}

// FactorConfig holds a component's factor.
type FactorConfig struct {
	Factor float64 `yaml:"factor"`
}

type PeriodicConfig struct {
	MinHomeHours float64 `yaml:"min_home_hours"`
	Factor       float64 `yaml:"factor"`
}

type MaxEntropyConfig struct {
	MeanLength float64 `yaml:"mean_length"`
	Factor     float64 `yaml:"factor"`
}

type ODConfig struct {
	Factor  float64          `yaml:"factor"`
	Targets []ODTargetConfig `yaml:"targets"`
}

type ODTargetConfig struct {
	From  string  `yaml:"from"`
	To    string  `yaml:"to"`
	Count float64 `yaml:"count"`
}

// LoadScenarioConfig reads and parses a YAML scenario file.
// Uses strict parsing: unrecognized keys (typos) are rejected.
func LoadScenarioConfig(path string) (*ScenarioConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario config: %w", err)
	}
	return ParseScenarioConfig(data)
}

// ParseScenarioConfig parses and validates YAML scenario data.
func ParseScenarioConfig(data []byte) (*ScenarioConfig, error) {
	var cfg ScenarioConfig
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing scenario config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario config: %w", err)
	}
	return &cfg, nil
}

// Validate checks that all fields in the config are valid.
func (c *ScenarioConfig) Validate() error {
	if err := validateFinitePositive("bin_size_hours", c.BinSizeHours); err != nil {
		return err
	}
	if c.BinCount <= 0 {
		return fmt.Errorf("bin_count must be positive, got %d", c.BinCount)
	}
	if c.MaxStayEpisodes < 0 {
		return fmt.Errorf("max_stay_episodes must be non-negative, got %d", c.MaxStayEpisodes)
	}
	if len(c.Locations) == 0 {
		return fmt.Errorf("at least one location required")
	}
	known := make(map[string]bool, len(c.Locations))
	for _, name := range c.Locations {
		if known[name] {
			return fmt.Errorf("duplicate location %q", name)
		}
		known[name] = true
	}
	if c.DefaultTravelHours != nil && (*c.DefaultTravelHours < 0 || math.IsNaN(*c.DefaultTravelHours)) {
		return fmt.Errorf("default_travel_hours must be non-negative, got %f", *c.DefaultTravelHours)
	}
	for i, leg := range c.TravelTimes {
		if err := leg.validate(fmt.Sprintf("travel_times[%d]", i), known); err != nil {
			return err
		}
	}
	for i, leg := range c.Distances {
		if err := leg.validate(fmt.Sprintf("distances[%d]", i), known); err != nil {
			return err
		}
	}
	if c.DefaultTravelHours == nil {
		if err := c.validateTravelCoverage(); err != nil {
			return err
		}
	}
	if c.Proposal != nil {
		if err := c.Proposal.Validate(); err != nil {
			return fmt.Errorf("proposal: %w", err)
		}
	}
	if err := c.Fleet.validate(known); err != nil {
		return err
	}
	return c.Weights.validate(known)
}

func (l LegConfig) validate(prefix string, known map[string]bool) error {
	if !known[l.From] || !known[l.To] {
		return fmt.Errorf("%s: unknown location in %q -> %q", prefix, l.From, l.To)
	}
	if l.Value < 0 || math.IsNaN(l.Value) || math.IsInf(l.Value, 0) {
		return fmt.Errorf("%s: value must be finite and non-negative, got %f", prefix, l.Value)
	}
	return nil
}

// validateTravelCoverage requires a travel time for every ordered location
// pair, intrazonal ones included, since proposals can produce any leg.
func (c *ScenarioConfig) validateTravelCoverage() error {
	type leg struct{ from, to string }
	covered := make(map[leg]bool, len(c.TravelTimes)*2)
	for _, l := range c.TravelTimes {
		covered[leg{l.From, l.To}] = true
		if l.Symmetric {
			covered[leg{l.To, l.From}] = true
		}
	}
	for _, from := range c.Locations {
		for _, to := range c.Locations {
			if !covered[leg{from, to}] {
				return fmt.Errorf("travel_times: no travel time for %q -> %q and no default_travel_hours", from, to)
			}
		}
	}
	return nil
}

func (f FleetConfig) validate(known map[string]bool) error {
	if f.Size <= 0 {
		return fmt.Errorf("fleet.size must be positive, got %d", f.Size)
	}
	if f.FlipProbability < 0 || f.FlipProbability > 1 || math.IsNaN(f.FlipProbability) {
		return fmt.Errorf("fleet.flip_probability must be in [0, 1], got %f", f.FlipProbability)
	}
	if f.Home != "" && !known[f.Home] {
		return fmt.Errorf("fleet.home: unknown location %q", f.Home)
	}
	if f.InitialDeparture != nil && *f.InitialDeparture < 0 {
		return fmt.Errorf("fleet.initial_departure must be non-negative, got %d", *f.InitialDeparture)
	}
	for i, g := range f.Groups {
		if g.Name == "" {
			return fmt.Errorf("fleet.groups[%d]: name required", i)
		}
		if err := validateFinitePositive(fmt.Sprintf("fleet.groups[%d].weight", i), g.Weight); err != nil {
			return err
		}
	}
	return nil
}

func (w WeightsConfig) validate(known map[string]bool) error {
	factors := map[string]float64{}
	if w.Periodic != nil {
		factors["weights.periodic"] = w.Periodic.Factor
		if w.Periodic.MinHomeHours < 0 {
			return fmt.Errorf("weights.periodic.min_home_hours must be non-negative, got %f", w.Periodic.MinHomeHours)
		}
	}
	if w.MaximumEntropy != nil {
		factors["weights.maximum_entropy"] = w.MaximumEntropy.Factor
	}
	if w.SizeDistribution != nil {
		factors["weights.size_distribution"] = w.SizeDistribution.Factor
	}
	if w.OD != nil {
		factors["weights.od"] = w.OD.Factor
		if len(w.OD.Targets) == 0 {
			return fmt.Errorf("weights.od: at least one target required")
		}
		for i, t := range w.OD.Targets {
			if !known[t.From] || !known[t.To] {
				return fmt.Errorf("weights.od.targets[%d]: unknown location in %q -> %q", i, t.From, t.To)
			}
		}
	}
	for name, f := range factors {
		if f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%s.factor must be finite and non-negative, got %f", name, f)
		}
	}
	return nil
}

func validateFinitePositive(name string, val float64) error {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return fmt.Errorf("%s must be a finite number, got %f", name, val)
	}
	if val <= 0 {
		return fmt.Errorf("%s must be positive, got %f", name, val)
	}
	return nil
}

// BuildScenario creates the read-only scenario described by the config.
func (c *ScenarioConfig) BuildScenario() (*roundtrip.Scenario, error) {
	s, err := roundtrip.NewScenario(c.BinSizeHours, c.BinCount, c.MaxStayEpisodes)
	if err != nil {
		return nil, err
	}
	for _, name := range c.Locations {
		if _, err := s.AddLocation(name); err != nil {
			return nil, err
		}
	}
	if c.DefaultTravelHours != nil {
		for _, a := range s.Locations() {
			for _, b := range s.Locations() {
				s.SetTime(a, b, *c.DefaultTravelHours)
			}
		}
	}
	for _, leg := range c.TravelTimes {
		from, to := s.Location(leg.From), s.Location(leg.To)
		if leg.Symmetric {
			s.SetSymmetricTime(from, to, leg.Value)
		} else {
			s.SetTime(from, to, leg.Value)
		}
	}
	for _, leg := range c.Distances {
		from, to := s.Location(leg.From), s.Location(leg.To)
		if leg.Symmetric {
			s.SetSymmetricDistance(from, to, leg.Value)
		} else {
			s.SetDistance(from, to, leg.Value)
		}
	}
	return s, nil
}

// ProposalParams returns the configured move weights, or equal weights.
func (c *ScenarioConfig) ProposalParams() roundtrip.ProposalParams {
	if c.Proposal == nil {
		return roundtrip.DefaultProposalParams()
	}
	return *c.Proposal
}
