// Package extractors contains the individual domain extractors and the
// central bootstrap that registers them. Each extractor declares its
// identity, its expected tables, and reads exclusively through the session
// helpers so every outcome is coverage-tracked.
package extractors

import (
	"context"
	"errors"

	"github.com/ib823/sapforensics/internal/extract"
)

// Well-known extractor IDs referenced by the orchestrator phases.
const (
	IDSystemInfo     = "system_info"
	IDDataDictionary = "data_dictionary"
)

// Extractor categories aligned with the confidence-scorer weights.
const (
	CategorySystem      = "system"
	CategoryConfig      = "config"
	CategoryMasterData  = "masterdata"
	CategoryTransaction = "transaction"
	CategoryCode        = "code"
	CategorySecurity    = "security"
	CategoryInterface   = "interface"
	CategoryProcess     = "process"
)

// SAP modules used for extractor filtering.
const (
	ModuleBasis     = "BC"
	ModuleFinancial = "FI"
	ModuleLogistics = "LO"
)

const defaultMaxRows = 100000

// SystemInfo identifies the source system: release, database, installed
// components. It runs alone in phase 1.
type SystemInfo struct{}

// NewSystemInfo creates the phase-1 system identification extractor.
func NewSystemInfo() extract.Extractor {
	return &SystemInfo{}
}

// Descriptor implements extract.Extractor.
func (e *SystemInfo) Descriptor() extract.Descriptor {
	return extract.Descriptor{
		ID:       IDSystemInfo,
		Name:     "System Information",
		Module:   ModuleBasis,
		Category: CategorySystem,
	}
}

// ExpectedTables implements extract.Extractor.
func (e *SystemInfo) ExpectedTables() []extract.TableExpectation {
	return []extract.TableExpectation{
		{Name: "CVERS", Description: "Installed software components", Critical: true},
		{Name: "T000", Description: "Clients"},
	}
}

// Extract implements extract.Extractor.
func (e *SystemInfo) Extract(ctx context.Context, sess *extract.Session) (map[string]any, error) {
	payload := make(map[string]any)

	info, err := sess.CallFunction(ctx, "RFC_SYSTEM_INFO", nil)
	if err == nil {
		payload["release"] = info["RFCSAPRL"]
		payload["database"] = info["RFCDBSYS"]
		payload["host"] = info["RFCHOST"]
	} else if !errors.Is(err, extract.ErrNoFixture) && !errors.Is(err, extract.ErrTransport) {
		return nil, err
	}

	components, err := sess.ReadTable(ctx, "CVERS", extract.ReadOptions{
		Fields: []string{"COMPONENT", "RELEASE", "EXTRELEASE"},
	})
	if err == nil {
		payload["components"] = components
	}

	clients, err := sess.ReadTable(ctx, "T000", extract.ReadOptions{})
	if err == nil {
		payload["clients"] = clients
	}

	return payload, nil
}
