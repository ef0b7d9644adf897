package eventlog

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
)

// Row is a single tabular evidence record.
type Row = map[string]any

// BuildStats summarises one builder run.
type BuildStats struct {
	RowsSeen              int `json:"rows_seen"`
	EventsEmitted         int `json:"events_emitted"`
	UnresolvedCases       int `json:"unresolved_cases"`
	UnmappedCodes         int `json:"unmapped_codes"`
	UnparseableTimestamps int `json:"unparseable_timestamps"`
}

// Builder folds tabular change records into an event log using a
// per-process mapping configuration.
type Builder struct {
	mapping  *ProcessMapping
	location *time.Location
	logger   *slog.Logger
}

// NewBuilder creates a builder for the given process mapping.
// Timestamps assembled from split date/time fields carry no zone in the
// source; loc declares the system time zone (nil means UTC).
func NewBuilder(mapping *ProcessMapping, loc *time.Location, logger *slog.Logger) *Builder {
	if loc == nil {
		loc = time.UTC
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Builder{mapping: mapping, location: loc, logger: logger}
}

// Build constructs the event log from evidence tables. Rows of tables with
// no mapping, detail-class tables, and master-class tables emit no events.
func (b *Builder) Build(tables map[string][]Row) (*EventLog, BuildStats, error) {
	log := NewLog(b.mapping.ProcessID)
	stats := BuildStats{}

	caseIndex := b.buildCaseIndex(tables)

	tableNames := make([]string, 0, len(b.mapping.Tables))
	for name := range b.mapping.Tables {
		tableNames = append(tableNames, name)
	}

	sort.Strings(tableNames)

	for _, tableName := range tableNames {
		tableMapping := b.mapping.Tables[tableName]
		if tableMapping.Class == ClassDetail || tableMapping.Class == ClassMaster {
			continue
		}

		for _, row := range tables[tableName] {
			stats.RowsSeen++

			caseID := b.resolveCaseID(tableName, tableMapping, row, caseIndex)
			if caseID == "" {
				stats.UnresolvedCases++

				continue
			}

			events := b.emit(tableName, tableMapping, row, &stats)

			for _, event := range events {
				err := log.AddEvent(caseID, event)
				if err != nil {
					return nil, stats, fmt.Errorf("table %s: %w", tableName, err)
				}

				stats.EventsEmitted++
			}
		}
	}

	log.Sort()

	b.logger.Debug("event log built",
		"process", b.mapping.ProcessID,
		"cases", log.CaseCount(),
		"events", stats.EventsEmitted,
		"unresolved_cases", stats.UnresolvedCases,
		"unparseable_timestamps", stats.UnparseableTimestamps)

	return log, stats, nil
}

// buildCaseIndex prepares one-hop correlation lookups: for each declared
// join, primary-table field value → case id.
func (b *Builder) buildCaseIndex(tables map[string][]Row) map[string]map[string]string {
	index := make(map[string]map[string]string)

	primaryRows := tables[b.mapping.CaseID.PrimaryTable]

	for _, join := range b.mapping.CaseID.Joins {
		lookup := make(map[string]string)

		for _, row := range primaryRows {
			key := fieldString(row, join.PrimaryField)
			if key == "" {
				continue
			}

			lookup[key] = fieldString(row, b.mapping.CaseID.Field)
		}

		index[join.Table] = lookup
	}

	return index
}

func (b *Builder) resolveCaseID(tableName string, tm TableMapping, row Row, caseIndex map[string]map[string]string) string {
	if tableName == b.mapping.CaseID.PrimaryTable {
		return fieldString(row, b.mapping.CaseID.Field)
	}

	if tm.CaseField != "" {
		return fieldString(row, tm.CaseField)
	}

	for _, join := range b.mapping.CaseID.Joins {
		if join.Table != tableName {
			continue
		}

		local := fieldString(row, join.LocalField)

		return caseIndex[tableName][local]
	}

	return ""
}

// emit produces zero or more events for one row per the table's class.
// For non-record classes the first activity mapping acts as the field
// template (timestamp, time, resource, condition); its activity name is
// only used as a fallback.
func (b *Builder) emit(tableName string, tm TableMapping, row Row, stats *BuildStats) []Event {
	template := ActivityMapping{}
	if len(tm.Activities) > 0 {
		template = tm.Activities[0]
	}

	switch tm.Class {
	case ClassRecord:
		return b.emitRecord(tableName, tm, row, stats)
	case ClassTransaction:
		return b.emitCoded(tableName, template, row, tm.TCodeField, tm.TCodeActivities, stats)
	case ClassFlow:
		return b.emitCoded(tableName, template, row, tm.DocTypeField, tm.DocTypeActivities, stats)
	case ClassStatus:
		return b.emitCoded(tableName, template, row, tm.StatusField, tm.StatusActivities, stats)
	case ClassChange:
		return b.emitChange(tableName, tm, template, row, stats)
	case ClassDetail, ClassMaster:
		return nil
	}

	return nil
}

func (b *Builder) emitRecord(tableName string, tm TableMapping, row Row, stats *BuildStats) []Event {
	events := make([]Event, 0, len(tm.Activities))

	for _, am := range tm.Activities {
		if !conditionHolds(am.Condition, row) {
			continue
		}

		events = append(events, b.newEvent(tableName, am.Activity, am, row, stats, nil))
	}

	return events
}

func (b *Builder) emitCoded(tableName string, template ActivityMapping, row Row, codeField string, codeActivities map[string]string, stats *BuildStats) []Event {
	if !conditionHolds(template.Condition, row) {
		return nil
	}

	code := fieldString(row, codeField)

	activity, ok := codeActivities[code]
	if !ok {
		activity = template.Activity
	}

	if activity == "" {
		stats.UnmappedCodes++

		return nil
	}

	return []Event{b.newEvent(tableName, activity, template, row, stats, map[string]any{"code": code})}
}

func (b *Builder) emitChange(tableName string, tm TableMapping, template ActivityMapping, row Row, stats *BuildStats) []Event {
	if !conditionHolds(template.Condition, row) {
		return nil
	}

	fieldName := fieldString(row, tm.FieldNameField)

	activity := template.Activity
	if activity == "" {
		activity = "Change " + fieldName
	}

	attrs := map[string]any{
		"field":     fieldName,
		"old_value": fieldString(row, tm.OldValueField),
		"new_value": fieldString(row, tm.NewValueField),
	}

	return []Event{b.newEvent(tableName, activity, template, row, stats, attrs)}
}

func (b *Builder) newEvent(tableName, activity string, am ActivityMapping, row Row, stats *BuildStats, attrs map[string]any) Event {
	timestamp, ok := b.parseTimestamp(row, am.TimestampField, am.TimeField)
	if !ok {
		stats.UnparseableTimestamps++
	}

	if attrs == nil {
		attrs = make(map[string]any)
	}

	attrs["table"] = tableName

	return Event{
		Activity:   activity,
		Timestamp:  timestamp,
		Resource:   fieldString(row, am.ResourceField),
		Attributes: attrs,
	}
}

// Accepted timestamp layouts, tried in order after date/time combination.
var timestampLayouts = []string{
	"20060102150405",
	"20060102",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02",
}

// parseTimestamp assembles the event timestamp, optionally combining
// separate date and time fields (the CDHDR UDATE/UTIME convention).
func (b *Builder) parseTimestamp(row Row, dateField, timeField string) (time.Time, bool) {
	raw := strings.TrimSpace(fieldString(row, dateField))
	if raw == "" {
		return time.Time{}, false
	}

	if timeField != "" {
		timePart := strings.TrimSpace(fieldString(row, timeField))
		if timePart != "" {
			raw = normalizeDate(raw) + normalizeTime(timePart)
		}
	}

	for _, layout := range timestampLayouts {
		parsed, err := time.ParseInLocation(layout, raw, b.location)
		if err == nil {
			return parsed, true
		}
	}

	return time.Time{}, false
}

func normalizeDate(s string) string {
	return strings.NewReplacer("-", "", "/", "").Replace(s)
}

func normalizeTime(s string) string {
	return strings.ReplaceAll(s, ":", "")
}

func conditionHolds(c *Condition, row Row) bool {
	if c == nil {
		return true
	}

	return fieldString(row, c.Field) == c.Equals
}

func fieldString(row Row, field string) string {
	if field == "" {
		return ""
	}

	value, ok := row[field]
	if !ok || value == nil {
		return ""
	}

	s, ok := value.(string)
	if ok {
		return s
	}

	return fmt.Sprintf("%v", value)
}
