// Package state holds the analysis store shared by the bias, structure and execution
// engines, and the order book mutated by the broker and the risk supervisor.
package state

import (
	"errors"
	"time"

	"KillZoneSentinel/internal/model"
)

// ErrUnknownOrder is returned for order ids the book has never seen.
var ErrUnknownOrder = errors.New("unknown order")

// Default retention for audit records.
const (
	DefaultMaxBias      = 50
	DefaultMaxStructure = 50
	DefaultMaxSignals   = 200
)

// Analysis is the single point of communication between the engines. Each record type
// has exactly one producer. It is not safe for concurrent use; the agent serializes access.
type Analysis struct {
	maxBias      int
	maxStructure int
	maxSignals   int

	bias       []*model.BiasSnapshot
	structures []*model.StructureZone
	signals    []*model.ExecutionSignal

	lastBiasID      int64
	lastStructureID int64
	lastSignalID    int64

	Orders *Book
}

// New creates an empty store with default retention.
func New() *Analysis {
	return NewWithLimits(DefaultMaxBias, DefaultMaxStructure, DefaultMaxSignals)
}

// NewWithLimits creates an empty store keeping at most the given number of each record.
func NewWithLimits(maxBias, maxStructure, maxSignals int) *Analysis {
	return &Analysis{
		maxBias:      maxBias,
		maxStructure: maxStructure,
		maxSignals:   maxSignals,
		Orders:       NewBook(),
	}
}

// PushBias assigns the next id and stores the snapshot.
func (a *Analysis) PushBias(s *model.BiasSnapshot) *model.BiasSnapshot {
	a.lastBiasID++
	s.ID = a.lastBiasID
	a.bias = trim(append(a.bias, s), a.maxBias)
	return s
}

// LatestBias returns the most recent snapshot, or nil.
func (a *Analysis) LatestBias() *model.BiasSnapshot {
	if len(a.bias) == 0 {
		return nil
	}
	return a.bias[len(a.bias)-1]
}

// BiasHistory returns the retained snapshots, oldest first.
func (a *Analysis) BiasHistory() []*model.BiasSnapshot {
	return append([]*model.BiasSnapshot(nil), a.bias...)
}

// PushStructure assigns the next id and stores the zone.
func (a *Analysis) PushStructure(z *model.StructureZone) *model.StructureZone {
	a.lastStructureID++
	z.ID = a.lastStructureID
	a.structures = trim(append(a.structures, z), a.maxStructure)
	return z
}

// LatestStructure returns the most recent zone regardless of expiry, or nil.
func (a *Analysis) LatestStructure() *model.StructureZone {
	if len(a.structures) == 0 {
		return nil
	}
	return a.structures[len(a.structures)-1]
}

// ActiveStructure returns the latest zone if it is still active at now.
func (a *Analysis) ActiveStructure(now time.Time) *model.StructureZone {
	z := a.LatestStructure()
	if z == nil || !z.ActiveAt(now) {
		return nil
	}
	return z
}

// StructureHistory returns the retained zones, oldest first.
func (a *Analysis) StructureHistory() []*model.StructureZone {
	return append([]*model.StructureZone(nil), a.structures...)
}

// PushSignal assigns the next id and stores the signal.
func (a *Analysis) PushSignal(s *model.ExecutionSignal) *model.ExecutionSignal {
	a.lastSignalID++
	s.ID = a.lastSignalID
	a.signals = trim(append(a.signals, s), a.maxSignals)
	return s
}

// LatestSignal returns the most recent signal, or nil.
func (a *Analysis) LatestSignal() *model.ExecutionSignal {
	if len(a.signals) == 0 {
		return nil
	}
	return a.signals[len(a.signals)-1]
}

func trim[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[len(items)-limit:]
	}
	return items
}
