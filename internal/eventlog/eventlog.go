// Package eventlog models process-mining event logs: cases, traces, events,
// with activity and resource indices, and builds them from tabular ERP
// evidence via per-process mapping configurations.
package eventlog

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// ErrValidation wraps malformed event-log input.
var ErrValidation = errors.New("validation error")

// Event is one observed process step.
type Event struct {
	Activity   string         `json:"activity"`
	Timestamp  time.Time      `json:"timestamp"`
	Resource   string         `json:"resource,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// HasTimestamp reports whether the event carries a usable timestamp.
// Events without one are excluded from time-sensitive analyses but
// retained for structural ones.
func (e Event) HasTimestamp() bool {
	return !e.Timestamp.IsZero()
}

// EpochMillis returns the timestamp as epoch milliseconds for ordering.
func (e Event) EpochMillis() int64 {
	if !e.HasTimestamp() {
		return 0
	}

	return e.Timestamp.UnixMilli()
}

// Trace is the ordered event sequence of one case. Events are kept sorted
// by timestamp ascending with stable ordering on ties.
type Trace struct {
	CaseID string  `json:"case_id"`
	Events []Event `json:"events"`
}

// Activities returns the activity sequence of the trace.
func (t *Trace) Activities() []string {
	activities := make([]string, len(t.Events))
	for i, event := range t.Events {
		activities[i] = event.Activity
	}

	return activities
}

// EventLog is the canonical container of traces grouped by case id.
// Construction goes through NewLog/AddEvent; case-id uniqueness is total.
type EventLog struct {
	Name string

	traces     map[string]*Trace
	activities map[string]struct{}
	resources  map[string]struct{}
}

// NewLog creates an empty event log.
func NewLog(name string) *EventLog {
	return &EventLog{
		Name:       name,
		traces:     make(map[string]*Trace),
		activities: make(map[string]struct{}),
		resources:  make(map[string]struct{}),
	}
}

// AddEvent appends an event to the case's trace, creating the trace on
// first use. Events missing a case id or activity are rejected.
func (l *EventLog) AddEvent(caseID string, event Event) error {
	if caseID == "" {
		return fmt.Errorf("%w: event missing case id", ErrValidation)
	}

	if event.Activity == "" {
		return fmt.Errorf("%w: event missing activity (case %s)", ErrValidation, caseID)
	}

	trace, ok := l.traces[caseID]
	if !ok {
		trace = &Trace{CaseID: caseID}
		l.traces[caseID] = trace
	}

	trace.Events = append(trace.Events, event)
	l.activities[event.Activity] = struct{}{}

	if event.Resource != "" {
		l.resources[event.Resource] = struct{}{}
	}

	return nil
}

// Sort orders every trace by timestamp ascending, stable on ties.
// Events without timestamps keep their insertion position relative to each
// other and sort before timestamped events.
func (l *EventLog) Sort() {
	for _, trace := range l.traces {
		sort.SliceStable(trace.Events, func(i, j int) bool {
			return trace.Events[i].EpochMillis() < trace.Events[j].EpochMillis()
		})
	}
}

// Trace returns the trace for a case id, or nil.
func (l *EventLog) Trace(caseID string) *Trace {
	return l.traces[caseID]
}

// Traces returns all traces sorted by case id.
func (l *EventLog) Traces() []*Trace {
	ids := make([]string, 0, len(l.traces))
	for id := range l.traces {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	traces := make([]*Trace, len(ids))
	for i, id := range ids {
		traces[i] = l.traces[id]
	}

	return traces
}

// CaseCount returns the number of traces.
func (l *EventLog) CaseCount() int {
	return len(l.traces)
}

// EventCount returns the total number of events across all traces.
func (l *EventLog) EventCount() int {
	var count int

	for _, trace := range l.traces {
		count += len(trace.Events)
	}

	return count
}

// Activities returns the activity index in sorted order.
func (l *EventLog) Activities() []string {
	return sortedSet(l.activities)
}

// Resources returns the resource index in sorted order.
func (l *EventLog) Resources() []string {
	return sortedSet(l.resources)
}

// HasActivity reports whether the activity appears anywhere in the log.
func (l *EventLog) HasActivity(activity string) bool {
	_, ok := l.activities[activity]

	return ok
}

func sortedSet(set map[string]struct{}) []string {
	items := make([]string, 0, len(set))
	for item := range set {
		items = append(items, item)
	}

	sort.Strings(items)

	return items
}
