package extractors

import (
	"context"
	"fmt"

	"github.com/ib823/sapforensics/internal/extract"
)

// ChangeDocuments reads the change-document headers and items. This is the
// foundational evidence for process mining: every create/update of a
// business object leaves a CDHDR/CDPOS pair.
type ChangeDocuments struct{}

// NewChangeDocuments creates the change-document extractor.
func NewChangeDocuments() extract.Extractor {
	return &ChangeDocuments{}
}

// Descriptor implements extract.Extractor.
func (e *ChangeDocuments) Descriptor() extract.Descriptor {
	return extract.Descriptor{
		ID:       extract.ResultChangeDocuments,
		Name:     "Change Documents",
		Module:   ModuleBasis,
		Category: CategoryProcess,
	}
}

// ExpectedTables implements extract.Extractor.
func (e *ChangeDocuments) ExpectedTables() []extract.TableExpectation {
	return []extract.TableExpectation{
		{Name: "CDHDR", Description: "Change document headers", Critical: true},
		{Name: "CDPOS", Description: "Change document items", Critical: true},
	}
}

// Extract implements extract.Extractor.
func (e *ChangeDocuments) Extract(ctx context.Context, sess *extract.Session) (map[string]any, error) {
	payload := make(map[string]any)

	headers, err := sess.ReadTable(ctx, "CDHDR", extract.ReadOptions{
		Fields:  []string{"OBJECTCLAS", "OBJECTID", "CHANGENR", "USERNAME", "UDATE", "UTIME", "TCODE", "CHANGE_IND"},
		MaxRows: defaultMaxRows,
	})
	if err != nil {
		// Without headers there is nothing to correlate items against.
		return nil, fmt.Errorf("change document headers unavailable: %w", err)
	}

	payload["headers"] = headers

	items := make([]extract.Row, 0)

	it, streamErr := sess.StreamTable(ctx, "CDPOS", extract.StreamOptions{
		ReadOptions: extract.ReadOptions{
			Fields: []string{"OBJECTCLAS", "OBJECTID", "CHANGENR", "TABNAME", "FNAME", "VALUE_OLD", "VALUE_NEW", "CHNGIND"},
		},
	})
	if streamErr == nil {
		defer it.Close()

		for {
			chunk, ok := it.Next()
			if !ok {
				break
			}

			items = append(items, chunk.Rows...)
		}
	}

	payload["items"] = items

	return payload, nil
}
