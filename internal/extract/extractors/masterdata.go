package extractors

import (
	"context"
	"errors"

	"github.com/ib823/sapforensics/internal/extract"
)

// MasterData reads the core master-data objects: customers, vendors,
// materials, and plants. On S/4 systems the business-partner OData service
// supplements the classic tables.
type MasterData struct{}

// NewMasterData creates the master-data extractor.
func NewMasterData() extract.Extractor {
	return &MasterData{}
}

// Descriptor implements extract.Extractor.
func (e *MasterData) Descriptor() extract.Descriptor {
	return extract.Descriptor{
		ID:       "master_data",
		Name:     "Master Data",
		Module:   ModuleLogistics,
		Category: CategoryMasterData,
	}
}

// ExpectedTables implements extract.Extractor.
func (e *MasterData) ExpectedTables() []extract.TableExpectation {
	return []extract.TableExpectation{
		{Name: "KNA1", Description: "Customer master", Critical: true},
		{Name: "LFA1", Description: "Vendor master", Critical: true},
		{Name: "MARA", Description: "Material master", Critical: true},
		{Name: "MARC", Description: "Material plant data"},
		{Name: "T001W", Description: "Plants"},
	}
}

// Extract implements extract.Extractor.
func (e *MasterData) Extract(ctx context.Context, sess *extract.Session) (map[string]any, error) {
	payload := make(map[string]any)

	readInto(ctx, sess, payload, "customers", "KNA1", extract.ReadOptions{
		Fields:  []string{"KUNNR", "NAME1", "LAND1", "ERDAT", "ERNAM"},
		MaxRows: defaultMaxRows,
	})
	readInto(ctx, sess, payload, "vendors", "LFA1", extract.ReadOptions{
		Fields:  []string{"LIFNR", "NAME1", "LAND1", "ERDAT", "ERNAM"},
		MaxRows: defaultMaxRows,
	})
	readInto(ctx, sess, payload, "materials", "MARA", extract.ReadOptions{
		Fields:  []string{"MATNR", "MTART", "MATKL", "ERSDA"},
		MaxRows: defaultMaxRows,
	})
	readInto(ctx, sess, payload, "material_plant_data", "MARC", extract.ReadOptions{MaxRows: defaultMaxRows})
	readInto(ctx, sess, payload, "plants", "T001W", extract.ReadOptions{})

	partners, err := sess.ReadOData(ctx, "API_BUSINESS_PARTNER", "A_BusinessPartner")
	if err == nil {
		payload["business_partners"] = partners
	} else if !errors.Is(err, extract.ErrNoFixture) && !errors.Is(err, extract.ErrTransport) {
		return nil, err
	}

	return payload, nil
}
