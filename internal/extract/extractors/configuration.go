package extractors

import (
	"context"

	"github.com/ib823/sapforensics/internal/extract"
)

// Configuration reads customizing tables that shape process behaviour:
// document types, number ranges, tolerance groups, release strategies.
type Configuration struct{}

// NewConfiguration creates the configuration extractor.
func NewConfiguration() extract.Extractor {
	return &Configuration{}
}

// Descriptor implements extract.Extractor.
func (e *Configuration) Descriptor() extract.Descriptor {
	return extract.Descriptor{
		ID:       "configuration",
		Name:     "Customizing",
		Module:   ModuleBasis,
		Category: CategoryConfig,
	}
}

// ExpectedTables implements extract.Extractor.
func (e *Configuration) ExpectedTables() []extract.TableExpectation {
	return []extract.TableExpectation{
		{Name: "T003", Description: "Document types", Critical: true},
		{Name: "NRIV", Description: "Number range intervals", Critical: true},
		{Name: "T043T", Description: "Tolerance groups"},
		{Name: "T16FS", Description: "Release strategies"},
		{Name: "TVARVC", Description: "Variant variables"},
	}
}

// Extract implements extract.Extractor.
func (e *Configuration) Extract(ctx context.Context, sess *extract.Session) (map[string]any, error) {
	payload := make(map[string]any)

	readInto(ctx, sess, payload, "document_types", "T003", extract.ReadOptions{})
	readInto(ctx, sess, payload, "number_ranges", "NRIV", extract.ReadOptions{})
	readInto(ctx, sess, payload, "tolerance_groups", "T043T", extract.ReadOptions{})
	readInto(ctx, sess, payload, "release_strategies", "T16FS", extract.ReadOptions{})
	readInto(ctx, sess, payload, "variant_variables", "TVARVC", extract.ReadOptions{})

	return payload, nil
}

// KernelParameters reads live kernel and profile parameters. There is no
// tabular source for these, only the RFC-exposed kernel API, so the
// extractor cannot run offline.
type KernelParameters struct{}

// NewKernelParameters creates the kernel-parameter extractor.
func NewKernelParameters() extract.Extractor {
	return &KernelParameters{}
}

// RFCOnly implements extract.RFCOnly.
func (e *KernelParameters) RFCOnly() bool {
	return true
}

// Descriptor implements extract.Extractor.
func (e *KernelParameters) Descriptor() extract.Descriptor {
	return extract.Descriptor{
		ID:       "kernel_parameters",
		Name:     "Kernel Parameters",
		Module:   ModuleBasis,
		Category: CategorySystem,
	}
}

// ExpectedTables implements extract.Extractor.
func (e *KernelParameters) ExpectedTables() []extract.TableExpectation {
	return []extract.TableExpectation{
		{Name: "FM:TH_SERVER_LIST", Description: "Application servers"},
		{Name: "FM:SXPG_PROFILE_PARAMETER", Description: "Profile parameters"},
	}
}

// Extract implements extract.Extractor.
func (e *KernelParameters) Extract(ctx context.Context, sess *extract.Session) (map[string]any, error) {
	payload := make(map[string]any)

	servers, err := sess.CallFunction(ctx, "TH_SERVER_LIST", nil)
	if err == nil {
		payload["servers"] = servers
	}

	params, err := sess.CallFunction(ctx, "SXPG_PROFILE_PARAMETER", nil)
	if err == nil {
		payload["profile_parameters"] = params
	}

	return payload, nil
}
