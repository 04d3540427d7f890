package detector

import (
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
)

// ErrNoSymbolsProcessed marks a cycle in which no symbol produced a record
var ErrNoSymbolsProcessed = errors.New("no symbols processed")

// SkipReason explains why a symbol produced no record
type SkipReason string

const (
	SkipZeroVolume          SkipReason = "zero_volume"
	SkipBaselineUnavailable SkipReason = "baseline_unavailable"
	SkipPersistFailed       SkipReason = "persist_failed"
	SkipPanic               SkipReason = "panic"
)

// Skip is one skipped symbol
type Skip struct {
	Symbol string     `json:"symbol"`
	Reason SkipReason `json:"reason"`
	Error  string     `json:"error,omitempty"`
}

// CycleSummary reports the outcome of one detection cycle
type CycleSummary struct {
	CycleID        uuid.UUID          `json:"cycle_id"`
	AsOf           time.Time          `json:"as_of"`
	EventDate      time.Time          `json:"event_date"`
	SymbolsSeen    int                `json:"symbols_seen"`
	Processed      int                `json:"processed"`
	Skipped        int                `json:"skipped"`
	SkipReasons    map[SkipReason]int `json:"skip_reasons"`
	Skips          []Skip             `json:"skips,omitempty"`
	HighConviction int                `json:"high_conviction"`
	Elevated       int                `json:"elevated"`
	Warnings       int                `json:"warnings"`
	Failed         bool               `json:"failed"`
	DryRun         bool               `json:"dry_run"`
	Duration       time.Duration      `json:"duration"`
}

func (s *CycleSummary) skip(sk Skip) {
	s.Skipped++
	s.SkipReasons[sk.Reason]++
	s.Skips = append(s.Skips, sk)
	if sk.Reason != SkipZeroVolume {
		s.Warnings++
	}
}

func (s *CycleSummary) sortSkips() {
	sort.Slice(s.Skips, func(i, j int) bool {
		return s.Skips[i].Symbol < s.Skips[j].Symbol
	})
}
