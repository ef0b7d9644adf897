package extractors

import (
	"context"
	"strings"

	"github.com/ib823/sapforensics/internal/extract"
)

// Customer namespace prefixes for repository objects.
var customPrefixes = []string{"Z", "Y"}

// CustomCode inventories customer-namespace repository objects: programs,
// function groups, enhancements.
type CustomCode struct{}

// NewCustomCode creates the custom-code extractor.
func NewCustomCode() extract.Extractor {
	return &CustomCode{}
}

// Descriptor implements extract.Extractor.
func (e *CustomCode) Descriptor() extract.Descriptor {
	return extract.Descriptor{
		ID:       "custom_code",
		Name:     "Custom Code Inventory",
		Module:   ModuleBasis,
		Category: CategoryCode,
	}
}

// ExpectedTables implements extract.Extractor.
func (e *CustomCode) ExpectedTables() []extract.TableExpectation {
	return []extract.TableExpectation{
		{Name: "TADIR", Description: "Repository object directory", Critical: true},
		{Name: "TRDIR", Description: "Program attributes"},
		{Name: "MODSA", Description: "Enhancement implementations"},
	}
}

// Extract implements extract.Extractor.
func (e *CustomCode) Extract(ctx context.Context, sess *extract.Session) (map[string]any, error) {
	payload := make(map[string]any)

	objects, err := sess.ReadTable(ctx, "TADIR", extract.ReadOptions{
		Fields:  []string{"PGMID", "OBJECT", "OBJ_NAME", "DEVCLASS", "AUTHOR"},
		MaxRows: defaultMaxRows,
	})
	if err == nil {
		custom := make([]extract.Row, 0)
		byType := make(map[string]int)

		for _, row := range objects {
			name := stringField(row, "OBJ_NAME")
			if !hasCustomPrefix(name) {
				continue
			}

			custom = append(custom, row)
			byType[stringField(row, "OBJECT")]++
		}

		payload["custom_objects"] = custom
		payload["custom_objects_by_type"] = byType
	}

	readInto(ctx, sess, payload, "programs", "TRDIR", extract.ReadOptions{
		Fields:  []string{"NAME", "SUBC", "CNAM", "UDAT"},
		MaxRows: defaultMaxRows,
	})
	readInto(ctx, sess, payload, "enhancements", "MODSA", extract.ReadOptions{})

	return payload, nil
}

func hasCustomPrefix(name string) bool {
	for _, prefix := range customPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}

	return false
}
