package extractors

import "github.com/ib823/sapforensics/internal/extract"

// NewDefaultRegistry builds the registry of every built-in extractor.
// Called once from the bootstrap before orchestration begins; the phase-1
// and phase-2 extractors are registered first so listings read naturally,
// but ordering among module extractors carries no scheduling meaning.
func NewDefaultRegistry() *extract.Registry {
	registry := extract.NewRegistry()

	registry.MustRegister(NewSystemInfo)
	registry.MustRegister(NewDataDictionary)
	registry.MustRegister(NewFinancials)
	registry.MustRegister(NewMasterData)
	registry.MustRegister(NewSecurity)
	registry.MustRegister(NewInterfaces)
	registry.MustRegister(NewChangeDocuments)
	registry.MustRegister(NewUsageStatistics)
	registry.MustRegister(NewBatchJobs)
	registry.MustRegister(NewWorkflows)
	registry.MustRegister(NewCustomCode)
	registry.MustRegister(NewConfiguration)
	registry.MustRegister(NewKernelParameters)

	return registry
}
