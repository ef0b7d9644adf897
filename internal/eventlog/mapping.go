package eventlog

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// TableClass determines how rows of a table turn into events.
type TableClass string

// Table classes.
const (
	ClassRecord      TableClass = "record"      // one event on creation
	ClassTransaction TableClass = "transaction" // activity derived from a transaction code
	ClassFlow        TableClass = "flow"        // document-type transition yields activity
	ClassChange      TableClass = "change"      // old/new-value pair records a modification
	ClassStatus      TableClass = "status"      // status-code transition
	ClassDetail      TableClass = "detail"      // enrichment only; no event
	ClassMaster      TableClass = "master"      // enrichment only; no event
)

// Condition guards event emission: the row field must equal the value.
type Condition struct {
	Field  string `json:"field"`
	Equals string `json:"equals"`
}

// ActivityMapping declares one event a table row can emit.
type ActivityMapping struct {
	Activity       string     `json:"activity"`
	TimestampField string     `json:"timestamp_field"`
	TimeField      string     `json:"time_field,omitempty"`
	ResourceField  string     `json:"resource_field,omitempty"`
	Condition      *Condition `json:"condition,omitempty"`
}

// TableMapping configures event emission for one evidence table.
type TableMapping struct {
	Class      TableClass        `json:"class"`
	CaseField  string            `json:"case_field,omitempty"`
	Activities []ActivityMapping `json:"activities,omitempty"`

	// Transaction class: code field plus code → activity map.
	TCodeField      string            `json:"tcode_field,omitempty"`
	TCodeActivities map[string]string `json:"tcode_activities,omitempty"`

	// Flow class: document-type field plus type → activity map.
	DocTypeField      string            `json:"doctype_field,omitempty"`
	DocTypeActivities map[string]string `json:"doctype_activities,omitempty"`

	// Status class: status field plus status → activity map.
	StatusField      string            `json:"status_field,omitempty"`
	StatusActivities map[string]string `json:"status_activities,omitempty"`

	// Change class: field-name and value columns for observed modifications.
	FieldNameField string `json:"fieldname_field,omitempty"`
	OldValueField  string `json:"old_value_field,omitempty"`
	NewValueField  string `json:"new_value_field,omitempty"`
}

// CorrelationJoin resolves case ids for a non-primary table by a one-hop
// join against the primary table.
type CorrelationJoin struct {
	Table        string `json:"table"`
	LocalField   string `json:"local_field"`
	PrimaryField string `json:"primary_field"`
}

// CaseResolution declares how case ids are derived.
type CaseResolution struct {
	PrimaryTable string            `json:"primary_table"`
	Field        string            `json:"field"`
	Joins        []CorrelationJoin `json:"joins,omitempty"`
}

// KPIDef is one process-specific KPI from the mapping's catalogue:
// the per-case occurrence count of an activity.
type KPIDef struct {
	Name     string `json:"name"`
	Unit     string `json:"unit"`
	Activity string `json:"activity"`
}

// ProcessMapping is the full event-log construction configuration for one
// business process.
type ProcessMapping struct {
	ProcessID string                  `json:"process_id"`
	Name      string                  `json:"name"`
	CaseID    CaseResolution          `json:"case_id"`
	Tables    map[string]TableMapping `json:"tables"`
	KPIs      []KPIDef                `json:"kpis,omitempty"`
}

// mappingSchema validates user-supplied custom mapping configurations.
const mappingSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["process_id", "case_id", "tables"],
  "properties": {
    "process_id": {"type": "string", "minLength": 1},
    "name": {"type": "string"},
    "case_id": {
      "type": "object",
      "required": ["primary_table", "field"],
      "properties": {
        "primary_table": {"type": "string", "minLength": 1},
        "field": {"type": "string", "minLength": 1},
        "joins": {
          "type": "array",
          "items": {
            "type": "object",
            "required": ["table", "local_field", "primary_field"]
          }
        }
      }
    },
    "tables": {
      "type": "object",
      "minProperties": 1,
      "additionalProperties": {
        "type": "object",
        "required": ["class"],
        "properties": {
          "class": {
            "enum": ["record", "transaction", "flow", "change", "status", "detail", "master"]
          }
        }
      }
    },
    "kpis": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name", "activity"]
      }
    }
  }
}`

// ParseMapping validates and decodes a custom process-mapping configuration.
// Schema violations are reported as ErrValidation with every failure listed.
func ParseMapping(data []byte) (*ProcessMapping, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(mappingSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	if !result.Valid() {
		descriptions := make([]string, 0, len(result.Errors()))
		for _, violation := range result.Errors() {
			descriptions = append(descriptions, violation.String())
		}

		return nil, fmt.Errorf("%w: %s", ErrValidation, strings.Join(descriptions, "; "))
	}

	var mapping ProcessMapping

	err = json.Unmarshal(data, &mapping)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	return &mapping, nil
}
