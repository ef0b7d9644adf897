package extract

// Well-known result keys consumed by downstream phases.
const (
	ResultSystemInfo      = "system_info"
	ResultDataDictionary  = "data_dictionary"
	ResultChangeDocuments = "change_documents"
	ResultUsageStatistics = "usage_statistics"
	ResultBatchJobs       = "batch_jobs"
	ResultWorkflows       = "workflows"
)

// Result is the erased extractor output: either an error message or a
// payload keyed by the extractor's own schema. The per-extractor schema is
// declared alongside the extractor (see extractors package).
type Result struct {
	ExtractorID string         `json:"extractor_id"`
	Err         string         `json:"error,omitempty"`
	Payload     map[string]any `json:"payload,omitempty"`
}

// Failed reports whether the extractor finished with an error.
func (r Result) Failed() bool {
	return r.Err != ""
}

// Rows returns the row slice stored under key, or nil when absent or of a
// different shape.
func (r Result) Rows(key string) []Row {
	value, ok := r.Payload[key]
	if !ok {
		return nil
	}

	rows, ok := value.([]Row)
	if !ok {
		return nil
	}

	return rows
}

// ErrorResult builds a Result carrying only an error message.
func ErrorResult(extractorID string, err error) Result {
	return Result{ExtractorID: extractorID, Err: err.Error()}
}
