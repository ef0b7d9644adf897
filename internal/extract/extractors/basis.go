package extractors

import (
	"context"
	"errors"

	"github.com/ib823/sapforensics/internal/extract"
)

// UsageStatistics reads transaction workload statistics. The collector is
// exposed through a function module, so offline runs need a function
// fixture; the table fallback covers older releases.
type UsageStatistics struct{}

// NewUsageStatistics creates the usage-statistics extractor.
func NewUsageStatistics() extract.Extractor {
	return &UsageStatistics{}
}

// Descriptor implements extract.Extractor.
func (e *UsageStatistics) Descriptor() extract.Descriptor {
	return extract.Descriptor{
		ID:       extract.ResultUsageStatistics,
		Name:     "Usage Statistics",
		Module:   ModuleBasis,
		Category: CategoryTransaction,
	}
}

// ExpectedTables implements extract.Extractor.
func (e *UsageStatistics) ExpectedTables() []extract.TableExpectation {
	return []extract.TableExpectation{
		{Name: "SWNCMONI", Description: "Workload statistics"},
		{Name: "TSTC", Description: "Transaction codes"},
	}
}

// Extract implements extract.Extractor.
func (e *UsageStatistics) Extract(ctx context.Context, sess *extract.Session) (map[string]any, error) {
	payload := make(map[string]any)

	workload, err := sess.CallFunction(ctx, "SWNC_GET_WORKLOAD_SNAPSHOT", nil)
	if err == nil {
		payload["workload"] = workload
	} else if !errors.Is(err, extract.ErrNoFixture) && !errors.Is(err, extract.ErrTransport) {
		return nil, err
	}

	readInto(ctx, sess, payload, "workload_records", "SWNCMONI", extract.ReadOptions{MaxRows: defaultMaxRows})
	readInto(ctx, sess, payload, "transaction_codes", "TSTC", extract.ReadOptions{
		Fields: []string{"TCODE", "PGMNA"},
	})

	return payload, nil
}

// BatchJobs reads the background-job schedule and history.
type BatchJobs struct{}

// NewBatchJobs creates the batch-job extractor.
func NewBatchJobs() extract.Extractor {
	return &BatchJobs{}
}

// Descriptor implements extract.Extractor.
func (e *BatchJobs) Descriptor() extract.Descriptor {
	return extract.Descriptor{
		ID:       extract.ResultBatchJobs,
		Name:     "Batch Jobs",
		Module:   ModuleBasis,
		Category: CategoryTransaction,
	}
}

// ExpectedTables implements extract.Extractor.
func (e *BatchJobs) ExpectedTables() []extract.TableExpectation {
	return []extract.TableExpectation{
		{Name: "TBTCO", Description: "Job status overview", Critical: true},
		{Name: "TBTCP", Description: "Job step definitions"},
	}
}

// Extract implements extract.Extractor.
func (e *BatchJobs) Extract(ctx context.Context, sess *extract.Session) (map[string]any, error) {
	payload := make(map[string]any)

	readInto(ctx, sess, payload, "jobs", "TBTCO", extract.ReadOptions{
		Fields:  []string{"JOBNAME", "JOBCOUNT", "SDLUNAME", "STATUS", "STRTDATE", "STRTTIME", "ENDDATE", "ENDTIME"},
		MaxRows: defaultMaxRows,
	})
	readInto(ctx, sess, payload, "job_steps", "TBTCP", extract.ReadOptions{
		Fields: []string{"JOBNAME", "JOBCOUNT", "STEPCOUNT", "PROGNAME", "AUTHCKNAM"},
	})

	return payload, nil
}

// Workflows reads workflow work items, the runtime trace of SAP Business
// Workflow executions.
type Workflows struct{}

// NewWorkflows creates the workflow extractor.
func NewWorkflows() extract.Extractor {
	return &Workflows{}
}

// Descriptor implements extract.Extractor.
func (e *Workflows) Descriptor() extract.Descriptor {
	return extract.Descriptor{
		ID:       extract.ResultWorkflows,
		Name:     "Workflows",
		Module:   ModuleBasis,
		Category: CategoryProcess,
	}
}

// ExpectedTables implements extract.Extractor.
func (e *Workflows) ExpectedTables() []extract.TableExpectation {
	return []extract.TableExpectation{
		{Name: "SWWWIHEAD", Description: "Work item headers", Critical: true},
		{Name: "SWWLOGHIST", Description: "Work item history"},
	}
}

// Extract implements extract.Extractor.
func (e *Workflows) Extract(ctx context.Context, sess *extract.Session) (map[string]any, error) {
	payload := make(map[string]any)

	readInto(ctx, sess, payload, "work_items", "SWWWIHEAD", extract.ReadOptions{
		Fields:  []string{"WI_ID", "WI_TYPE", "WI_STAT", "WI_CD", "WI_CT", "WI_AAGENT", "WI_RH_TASK"},
		MaxRows: defaultMaxRows,
	})
	readInto(ctx, sess, payload, "work_item_history", "SWWLOGHIST", extract.ReadOptions{MaxRows: defaultMaxRows})

	return payload, nil
}
