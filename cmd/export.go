package cmd

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/vtisweden/matsim-projects-sub003/population"
)

// FleetExport is the YAML form of a sampled fleet.
type FleetExport struct {
	Chain int          `yaml:"chain"`
	Seed  int64        `yaml:"seed"`
	Trips []TripExport `yaml:"trips"`
}

// TripExport is one agent's round trip. Departures are bin indices.
type TripExport struct {
	Agent      int      `yaml:"agent"`
	Group      string   `yaml:"group,omitempty"`
	Locations  []string `yaml:"locations"`
	Departures []int    `yaml:"departures"`
}

// newFleetExport converts a fleet. groupOf may be nil.
func newFleetExport(chain int, seed int64, m *population.MultiRoundTrip, groupOf map[int]string) FleetExport {
	out := FleetExport{Chain: chain, Seed: seed, Trips: make([]TripExport, 0, m.Size())}
	for i, rt := range m.Trips() {
		names := make([]string, rt.Size())
		for j, loc := range rt.Locations() {
			names[j] = loc.Name()
		}
		out.Trips = append(out.Trips, TripExport{
			Agent:      i,
			Group:      groupOf[i],
			Locations:  names,
			Departures: rt.Departures(),
		})
	}
	return out
}

// writeFleets writes the fleets as one YAML list.
func writeFleets(w io.Writer, fleets []FleetExport) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(fleets); err != nil {
		return fmt.Errorf("encoding fleets: %w", err)
	}
	return enc.Close()
}
