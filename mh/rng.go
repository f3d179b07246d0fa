package mh

import (
	"fmt"
	"hash/fnv"
	"math/rand"
)

// RunKey identifies a reproducible sampling run. Two runs with the same
// RunKey and identical configuration produce identical chains.
type RunKey int64

// NewRunKey creates a RunKey from a seed value.
func NewRunKey(seed int64) RunKey {
	return RunKey(seed)
}

const (
	// SubsystemInitial is the RNG subsystem for drawing initial states.
	// Uses the master seed directly.
	SubsystemInitial = "initial"

	// SubsystemEnsemble is the RNG subsystem for ensemble candidate seeds.
	SubsystemEnsemble = "ensemble"
)

// SubsystemChain returns the subsystem name for chain N.
func SubsystemChain(id int) string {
	return fmt.Sprintf("chain_%d", id)
}

// PartitionedRNG provides deterministic, isolated RNG instances per subsystem.
//
// Derivation formula:
//   - For SubsystemInitial: uses masterSeed directly
//   - For all other subsystems: masterSeed XOR fnv1a64(subsystemName)
//
// Thread-safety: NOT thread-safe. Hand out the per-chain *rand.Rand values
// before starting chain goroutines.
type PartitionedRNG struct {
	key        RunKey
	subsystems map[string]*rand.Rand
}

// NewPartitionedRNG creates a PartitionedRNG from a RunKey.
func NewPartitionedRNG(key RunKey) *PartitionedRNG {
	return &PartitionedRNG{
		key:        key,
		subsystems: make(map[string]*rand.Rand),
	}
}

// ForSubsystem returns a deterministically-seeded RNG for the named subsystem.
// The same subsystem name always returns the same *rand.Rand instance (cached).
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if rng, ok := p.subsystems[name]; ok {
		return rng
	}
	rng := rand.New(rand.NewSource(p.SeedFor(name)))
	p.subsystems[name] = rng
	return rng
}

// SeedFor returns the derived seed of a subsystem without creating its RNG.
func (p *PartitionedRNG) SeedFor(name string) int64 {
	if name == SubsystemInitial {
		return int64(p.key)
	}
	return int64(p.key) ^ fnv1a64(name)
}

// Key returns the RunKey used to create this PartitionedRNG.
func (p *PartitionedRNG) Key() RunKey {
	return p.key
}

func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
