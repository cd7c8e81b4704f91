package domain

import (
	"iter"
	"time"
)

// PriceSnapshot is one observation of one instrument. A nil Value means the
// upstream had no usable quote for that cycle; it is not the same as zero.
type PriceSnapshot struct {
	InstrumentID InstrumentID
	Value        *float64
	RecordedAt   time.Time
}

func (s PriceSnapshot) HasValue() bool { return s.Value != nil }

// Price returns a pointer to a copy of v.
func Price(v float64) *float64 { return &v }

// Series is a retained run of snapshots ordered by RecordedAt ascending.
type Series []PriceSnapshot

// All yields the snapshots in order. It can be ranged over any number of times.
func (s Series) All() iter.Seq[PriceSnapshot] {
	return func(yield func(PriceSnapshot) bool) {
		for _, snap := range s {
			if !yield(snap) {
				return
			}
		}
	}
}

func (s Series) Len() int { return len(s) }

// PollResult is the batch produced by one poll cycle.
type PollResult struct {
	RecordedAt time.Time
	Snapshots  []PriceSnapshot
}
