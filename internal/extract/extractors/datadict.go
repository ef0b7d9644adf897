package extractors

import (
	"context"
	"fmt"

	"github.com/ib823/sapforensics/internal/extract"
)

// DataDictionary reads the ABAP dictionary catalog and installs the parsed
// dictionary on the extraction context. It runs alone in phase 2 so every
// later extractor sees a populated dictionary.
type DataDictionary struct{}

// NewDataDictionary creates the phase-2 dictionary extractor.
func NewDataDictionary() extract.Extractor {
	return &DataDictionary{}
}

// Descriptor implements extract.Extractor.
func (e *DataDictionary) Descriptor() extract.Descriptor {
	return extract.Descriptor{
		ID:       IDDataDictionary,
		Name:     "Data Dictionary",
		Module:   ModuleBasis,
		Category: CategorySystem,
	}
}

// ExpectedTables implements extract.Extractor.
func (e *DataDictionary) ExpectedTables() []extract.TableExpectation {
	return []extract.TableExpectation{
		{Name: "DD02L", Description: "Table catalog", Critical: true},
		{Name: "DD03L", Description: "Field catalog", Critical: true},
		{Name: "DD04L", Description: "Data elements"},
		{Name: "DD01L", Description: "Domains"},
		{Name: "DD12L", Description: "Secondary indexes"},
		{Name: "DD25L", Description: "Views"},
	}
}

// Extract implements extract.Extractor.
func (e *DataDictionary) Extract(ctx context.Context, sess *extract.Session) (map[string]any, error) {
	dict := &extract.DataDictionary{
		Tables:       make(map[string]extract.TableInfo),
		DataElements: make(map[string]string),
		Domains:      make(map[string]string),
		Stats:        make(map[string]int),
	}

	tables, err := sess.ReadTable(ctx, "DD02L", extract.ReadOptions{
		Fields: []string{"TABNAME", "TABCLASS", "DDTEXT"},
		Where:  "TABCLASS = 'TRANSP'",
	})
	if err == nil {
		for _, row := range tables {
			name := stringField(row, "TABNAME")
			if name == "" {
				continue
			}

			dict.Tables[name] = extract.TableInfo{
				Description: stringField(row, "DDTEXT"),
			}
		}
	}

	err = e.readFields(ctx, sess, dict)
	if err != nil {
		return nil, err
	}

	e.readSecondary(ctx, sess, dict)

	dict.Stats["tables"] = len(dict.Tables)
	dict.Stats["data_elements"] = len(dict.DataElements)
	dict.Stats["domains"] = len(dict.Domains)

	sess.SetDataDictionary(dict)

	return map[string]any{
		"table_count":        len(dict.Tables),
		"data_element_count": len(dict.DataElements),
		"domain_count":       len(dict.Domains),
		"view_count":         len(dict.Views),
	}, nil
}

// readFields streams the field catalog; DD03L is by far the largest
// dictionary table, so a bulk read would hold millions of rows at once.
func (e *DataDictionary) readFields(ctx context.Context, sess *extract.Session, dict *extract.DataDictionary) error {
	it, err := sess.StreamTable(ctx, "DD03L", extract.StreamOptions{
		ReadOptions: extract.ReadOptions{Fields: []string{"TABNAME", "FIELDNAME", "DATATYPE", "LENG", "KEYFLAG"}},
	})
	if err != nil {
		// Field detail is enrichment; the table catalog alone is enough
		// for gap analysis to proceed.
		return nil //nolint:nilerr // degraded dictionary is valid output.
	}
	defer it.Close()

	for {
		chunk, ok := it.Next()
		if !ok {
			break
		}

		for _, row := range chunk.Rows {
			tableName := stringField(row, "TABNAME")

			info, exists := dict.Tables[tableName]
			if !exists {
				continue
			}

			info.Fields = append(info.Fields, extract.FieldInfo{
				Name:     stringField(row, "FIELDNAME"),
				Type:     stringField(row, "DATATYPE"),
				Length:   intField(row, "LENG"),
				KeyField: stringField(row, "KEYFLAG") == "X",
			})
			dict.Tables[tableName] = info
		}
	}

	if it.Err() != nil {
		return fmt.Errorf("stream DD03L: %w", it.Err())
	}

	return nil
}

func (e *DataDictionary) readSecondary(ctx context.Context, sess *extract.Session, dict *extract.DataDictionary) {
	elements, err := sess.ReadTable(ctx, "DD04L", extract.ReadOptions{Fields: []string{"ROLLNAME", "DOMNAME"}})
	if err == nil {
		for _, row := range elements {
			dict.DataElements[stringField(row, "ROLLNAME")] = stringField(row, "DOMNAME")
		}
	}

	domains, err := sess.ReadTable(ctx, "DD01L", extract.ReadOptions{Fields: []string{"DOMNAME", "DATATYPE"}})
	if err == nil {
		for _, row := range domains {
			dict.Domains[stringField(row, "DOMNAME")] = stringField(row, "DATATYPE")
		}
	}

	indexes, err := sess.ReadTable(ctx, "DD12L", extract.ReadOptions{Fields: []string{"SQLTAB", "INDEXNAME"}})
	if err == nil {
		for _, row := range indexes {
			tableName := stringField(row, "SQLTAB")

			info, exists := dict.Tables[tableName]
			if !exists {
				continue
			}

			info.Indexes = append(info.Indexes, stringField(row, "INDEXNAME"))
			dict.Tables[tableName] = info
		}
	}

	views, err := sess.ReadTable(ctx, "DD25L", extract.ReadOptions{Fields: []string{"VIEWNAME"}})
	if err == nil {
		for _, row := range views {
			dict.Views = append(dict.Views, stringField(row, "VIEWNAME"))
		}
	}
}
