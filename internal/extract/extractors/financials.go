package extractors

import (
	"context"

	"github.com/ib823/sapforensics/internal/extract"
)

// Financials reads the FI evidence base: document headers, G/L master,
// company codes, and posting configuration.
type Financials struct{}

// NewFinancials creates the FI extractor.
func NewFinancials() extract.Extractor {
	return &Financials{}
}

// Descriptor implements extract.Extractor.
func (e *Financials) Descriptor() extract.Descriptor {
	return extract.Descriptor{
		ID:       "financials",
		Name:     "Financial Documents",
		Module:   ModuleFinancial,
		Category: CategoryTransaction,
	}
}

// ExpectedTables implements extract.Extractor.
func (e *Financials) ExpectedTables() []extract.TableExpectation {
	return []extract.TableExpectation{
		{Name: "BKPF", Description: "Accounting document headers", Critical: true},
		{Name: "BSEG", Description: "Accounting document segments", Critical: true},
		{Name: "SKA1", Description: "G/L account master"},
		{Name: "T001", Description: "Company codes", Critical: true},
		{Name: "T030", Description: "Account determination"},
	}
}

// Extract implements extract.Extractor.
func (e *Financials) Extract(ctx context.Context, sess *extract.Session) (map[string]any, error) {
	payload := make(map[string]any)

	readInto(ctx, sess, payload, "document_headers", "BKPF", extract.ReadOptions{
		Fields:  []string{"BUKRS", "BELNR", "GJAHR", "BLART", "BUDAT", "CPUDT", "CPUTM", "USNAM", "TCODE"},
		MaxRows: defaultMaxRows,
	})
	readInto(ctx, sess, payload, "gl_accounts", "SKA1", extract.ReadOptions{
		Fields: []string{"KTOPL", "SAKNR", "XBILK"},
	})
	readInto(ctx, sess, payload, "company_codes", "T001", extract.ReadOptions{})
	readInto(ctx, sess, payload, "account_determination", "T030", extract.ReadOptions{})

	e.readSegments(ctx, sess, payload)

	return payload, nil
}

// readSegments streams BSEG; on a production system it is routinely the
// largest table in the database.
func (e *Financials) readSegments(ctx context.Context, sess *extract.Session, payload map[string]any) {
	it, err := sess.StreamTable(ctx, "BSEG", extract.StreamOptions{
		ReadOptions: extract.ReadOptions{
			Fields: []string{"BUKRS", "BELNR", "GJAHR", "BUZEI", "KOART", "SHKZG", "DMBTR"},
		},
	})
	if err != nil {
		return
	}
	defer it.Close()

	var lineCount int

	byAccountType := make(map[string]int)

	for {
		chunk, ok := it.Next()
		if !ok {
			break
		}

		lineCount += len(chunk.Rows)

		for _, row := range chunk.Rows {
			byAccountType[stringField(row, "KOART")]++
		}
	}

	payload["line_item_count"] = lineCount
	payload["line_items_by_account_type"] = byAccountType
}
