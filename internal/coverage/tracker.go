// Package coverage records per-table extraction outcomes so gap analysis can
// distinguish "was not attempted" from "failed to extract".
package coverage

import (
	"math"
	"sort"
	"sync"
	"time"
)

// Status classifies the outcome of a single table read.
type Status string

// Table read outcomes.
const (
	StatusExtracted Status = "extracted"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
	StatusPartial   Status = "partial"
)

// Detail carries outcome-specific context for a coverage record.
type Detail struct {
	RowCount int    `json:"row_count,omitempty"`
	Error    string `json:"error,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// Record is one tracked (extractor, table) outcome. The latest write wins.
type Record struct {
	ExtractorID string    `json:"extractor_id"`
	Table       string    `json:"table"`
	Status      Status    `json:"status"`
	Detail      Detail    `json:"detail"`
	Timestamp   time.Time `json:"timestamp"`
}

// Report aggregates coverage for one extractor.
type Report struct {
	Extracted   int               `json:"extracted"`
	Failed      int               `json:"failed"`
	Skipped     int               `json:"skipped"`
	Partial     int               `json:"partial"`
	Total       int               `json:"total"`
	CoveragePct int               `json:"coverage_pct"`
	Tables      map[string]Record `json:"tables"`
}

// SystemReport aggregates coverage across all extractors.
type SystemReport struct {
	Report

	ExtractorCount int `json:"extractor_count"`
}

type recordKey struct {
	extractorID string
	table       string
}

// Tracker is the process-wide coverage store. Writes from concurrent
// extractors are serialised; reads return consistent snapshots.
type Tracker struct {
	mu      sync.RWMutex
	records map[recordKey]Record
	clock   func() time.Time
}

// NewTracker creates an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{
		records: make(map[recordKey]Record),
		clock:   time.Now,
	}
}

// Track records the outcome of one table read. Idempotent: calling again for
// the same (extractor, table) pair replaces the previous record.
func (t *Tracker) Track(extractorID, table string, status Status, detail Detail) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.records[recordKey{extractorID: extractorID, table: table}] = Record{
		ExtractorID: extractorID,
		Table:       table,
		Status:      status,
		Detail:      detail,
		Timestamp:   t.clock(),
	}
}

// Report returns the aggregated coverage for one extractor.
func (t *Tracker) Report(extractorID string) Report {
	t.mu.RLock()
	defer t.mu.RUnlock()

	report := newReport()

	for key, record := range t.records {
		if key.extractorID != extractorID {
			continue
		}

		report.add(record)
	}

	report.finalize()

	return report
}

// SystemReport returns the aggregated coverage across all extractors.
func (t *Tracker) SystemReport() SystemReport {
	t.mu.RLock()
	defer t.mu.RUnlock()

	report := newReport()
	extractors := make(map[string]struct{})

	for key, record := range t.records {
		extractors[key.extractorID] = struct{}{}

		report.addKeyed(key.extractorID+":"+key.table, record)
	}

	report.finalize()

	return SystemReport{
		Report:         report,
		ExtractorCount: len(extractors),
	}
}

// Gaps returns all records whose status is not extracted, sorted by
// (extractor_id, table) for deterministic output.
func (t *Tracker) Gaps() []Record {
	t.mu.RLock()
	defer t.mu.RUnlock()

	gaps := make([]Record, 0)

	for _, record := range t.records {
		if record.Status != StatusExtracted {
			gaps = append(gaps, record)
		}
	}

	sort.Slice(gaps, func(i, j int) bool {
		if gaps[i].ExtractorID != gaps[j].ExtractorID {
			return gaps[i].ExtractorID < gaps[j].ExtractorID
		}

		return gaps[i].Table < gaps[j].Table
	})

	return gaps
}

// Records returns a snapshot of all records, sorted by (extractor_id, table).
func (t *Tracker) Records() []Record {
	t.mu.RLock()
	defer t.mu.RUnlock()

	all := make([]Record, 0, len(t.records))
	for _, record := range t.records {
		all = append(all, record)
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].ExtractorID != all[j].ExtractorID {
			return all[i].ExtractorID < all[j].ExtractorID
		}

		return all[i].Table < all[j].Table
	})

	return all
}

func newReport() Report {
	return Report{Tables: make(map[string]Record)}
}

func (r *Report) add(record Record) {
	r.addKeyed(record.Table, record)
}

// addKeyed counts the record and stores it under the given table key.
// The system report qualifies keys with the extractor ID so two extractors
// reading the same table do not shadow each other.
func (r *Report) addKeyed(key string, record Record) {
	switch record.Status {
	case StatusExtracted:
		r.Extracted++
	case StatusFailed:
		r.Failed++
	case StatusSkipped:
		r.Skipped++
	case StatusPartial:
		r.Partial++
	}

	r.Total++
	r.Tables[key] = record
}

const percentScale = 100

func (r *Report) finalize() {
	if r.Total == 0 {
		r.CoveragePct = 0

		return
	}

	ratio := float64(r.Extracted+r.Partial) / float64(r.Total)
	r.CoveragePct = int(math.Round(ratio * percentScale))
}
