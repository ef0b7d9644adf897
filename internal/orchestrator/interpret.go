package orchestrator

import (
	"sort"

	"github.com/ib823/sapforensics/internal/extract"
)

// Finding is one configuration-interpretation conclusion.
type Finding struct {
	Module      string `json:"module"`
	Rule        string `json:"rule"`
	Description string `json:"description"`
}

// InterpretationRule turns raw extraction results into a module-level
// conclusion. Apply returns the finding description and whether the rule
// matched the evidence.
type InterpretationRule struct {
	Name   string
	Module string
	Apply  func(results map[string]extract.Result) (string, bool)
}

// DefaultInterpretationRules are the built-in configuration readings. Rules
// are deliberately shallow: they state what the configuration evidence
// shows, not what it implies for the business.
var DefaultInterpretationRules = []InterpretationRule{
	{
		Name:   "document-types-configured",
		Module: "FI",
		Apply: func(results map[string]extract.Result) (string, bool) {
			rows := results["configuration"].Rows("document_types")
			if len(rows) == 0 {
				return "", false
			}

			return "document type catalogue present; posting semantics reconstructable", true
		},
	},
	{
		Name:   "number-ranges-configured",
		Module: "FI",
		Apply: func(results map[string]extract.Result) (string, bool) {
			rows := results["configuration"].Rows("number_ranges")
			if len(rows) == 0 {
				return "", false
			}

			return "number range intervals present; document numbering reconstructable", true
		},
	},
	{
		Name:   "custom-code-inventory",
		Module: "BC",
		Apply: func(results map[string]extract.Result) (string, bool) {
			rows := results["custom_code"].Rows("custom_objects")
			if len(rows) == 0 {
				return "", false
			}

			return "custom object inventory present; modification surface known", true
		},
	},
	{
		Name:   "batch-schedule",
		Module: "BC",
		Apply: func(results map[string]extract.Result) (string, bool) {
			rows := results[extract.ResultBatchJobs].Rows("jobs")
			if len(rows) == 0 {
				return "", false
			}

			return "background job schedule present; periodic processing reconstructable", true
		},
	},
	{
		Name:   "plant-structure",
		Module: "LO",
		Apply: func(results map[string]extract.Result) (string, bool) {
			rows := results["master_data"].Rows("plants")
			if len(rows) == 0 {
				return "", false
			}

			return "plant and storage structure present; logistics org model reconstructable", true
		},
	},
}

// interpret applies the rules to the results and returns the findings plus
// the modules that at least one rule covered.
func interpret(rules []InterpretationRule, results map[string]extract.Result) ([]Finding, []string) {
	var findings []Finding

	modules := make(map[string]struct{})

	for _, rule := range rules {
		description, matched := rule.Apply(results)
		if !matched {
			continue
		}

		findings = append(findings, Finding{
			Module:      rule.Module,
			Rule:        rule.Name,
			Description: description,
		})
		modules[rule.Module] = struct{}{}
	}

	names := make([]string, 0, len(modules))
	for module := range modules {
		names = append(names, module)
	}

	sort.Strings(names)

	return findings, names
}
