package model

import "time"

// BiasSnapshot is the higher-timeframe directional view produced by the bias engine.
type BiasSnapshot struct {
	ID           int64
	Symbol       string
	Timeframe    string
	Time         time.Time
	Direction    Direction
	Confidence   float64
	Target       float64
	Invalidation float64
}

// StructureZone is the premium/discount band the execution engine trades from.
type StructureZone struct {
	ID        int64
	Symbol    string
	Timeframe string
	Time      time.Time
	Direction Direction
	Low       float64
	High      float64
	ExpiresAt time.Time
}

// Contains reports whether price lies inside the zone, edges included.
func (z *StructureZone) Contains(price float64) bool {
	return z.Low <= price && price <= z.High
}

// ActiveAt reports whether the zone has not yet expired at t.
func (z *StructureZone) ActiveAt(t time.Time) bool {
	return z.ExpiresAt.After(t)
}

// ExecutionSignal is a confirmed entry ready for sizing.
type ExecutionSignal struct {
	ID          int64
	Symbol      string
	Timeframe   string
	Time        time.Time
	Direction   Direction
	Entry       float64
	Stop        float64
	Target      float64
	RR          float64
	BiasID      int64
	StructureID int64
	Reason      string
}

// HaltEvent records the supervisor suspending new trades.
type HaltEvent struct {
	Time   time.Time
	Reason string
}
