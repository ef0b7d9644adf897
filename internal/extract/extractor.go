package extract

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoFixture is returned by offline reads with no matching fixture.
// The read is coverage-tracked as skipped, not failed.
var ErrNoFixture = errors.New("no offline fixture")

// Descriptor contains stable extractor identity metadata.
type Descriptor struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Module   string `json:"module"`
	Category string `json:"category"`
}

// TableExpectation declares one table an extractor intends to read.
// The gap analyzer uses the declared list to distinguish "was not attempted"
// from "failed to extract".
type TableExpectation struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Critical    bool   `json:"critical,omitempty"`
}

// Extractor is a leaf component that reads a bounded set of tables from the
// source system through a Session and returns a typed payload.
type Extractor interface {
	Descriptor() Descriptor
	ExpectedTables() []TableExpectation
	Extract(ctx context.Context, sess *Session) (map[string]any, error)
}

// RFCOnly marks extractors that require a live RFC connection and cannot run
// against offline fixtures. The orchestrator skips them in offline mode and
// the gap analyzer raises a NO_RFC flag.
type RFCOnly interface {
	RFCOnly() bool
}

// Run is the single extraction entry point. It builds a Session bound to the
// extractor's identity, invokes Extract, and converts panics and errors into
// an error Result so one extractor cannot abort the pipeline.
func Run(ctx context.Context, ec *Context, ex Extractor) (result Result) {
	desc := ex.Descriptor()

	defer func() {
		if r := recover(); r != nil {
			result = ErrorResult(desc.ID, fmt.Errorf("extractor panic: %v", r))
		}
	}()

	sess := &Session{ec: ec, extractorID: desc.ID}

	payload, err := ex.Extract(ctx, sess)
	if err != nil {
		return ErrorResult(desc.ID, err)
	}

	return Result{ExtractorID: desc.ID, Payload: payload}
}
