package extract

import (
	"context"
	"fmt"

	"github.com/ib823/sapforensics/internal/coverage"
)

// Coverage detail reasons written by the session helpers.
const (
	reasonNoFixture  = "no offline fixture"
	reasonRowLimit   = "row limit reached"
	fmKeyPrefix      = "FM:"
	odataKeyPrefix   = "OD:"
	defaultChunkSize = 1000
)

// Session wraps every read an extractor performs so that each outcome is
// coverage-tracked: success as extracted {row_count}, transport failure as
// failed {error}, deliberate skip as skipped {reason}. It also fans out
// between the live transport and offline fixtures per the context mode.
type Session struct {
	ec          *Context
	extractorID string
}

// Mode returns the extraction mode of the underlying context.
func (s *Session) Mode() Mode {
	return s.ec.Mode
}

// DataDictionary returns the dictionary populated in phase 2, or nil.
func (s *Session) DataDictionary() *DataDictionary {
	return s.ec.DataDictionary()
}

// SetDataDictionary installs the dictionary. Only the data-dictionary
// extractor writes here; all later phases read only.
func (s *Session) SetDataDictionary(dict *DataDictionary) {
	s.ec.SetDataDictionary(dict)
}

// ReadTable reads the named table, live or from fixtures per mode.
// A read truncated at opts.MaxRows is tracked as partial.
func (s *Session) ReadTable(ctx context.Context, name string, opts ReadOptions) ([]Row, error) {
	if s.ec.Mode == ModeOffline {
		return s.readFixtureTable(name, opts.MaxRows)
	}

	rows, err := s.ec.Transport.ReadTable(ctx, name, opts)
	if err != nil {
		s.trackFailed(name, err)

		return nil, fmt.Errorf("%w: read table %s: %w", ErrTransport, name, err)
	}

	s.trackRead(name, len(rows), opts.MaxRows)

	return rows, nil
}

// StreamTable reads the named table chunk by chunk. Coverage is tracked when
// the iterator terminates: extracted on exhaustion, failed on error, partial
// when the consumer closes early.
func (s *Session) StreamTable(ctx context.Context, name string, opts StreamOptions) (ChunkIterator, error) {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = defaultChunkSize
	}

	if s.ec.Mode == ModeOffline {
		rows, err := s.readFixtureStream(name)
		if err != nil {
			return nil, err
		}

		return newSliceIterator(rows, opts.ChunkSize, func(count int, early bool) {
			s.trackStream(name, count, early)
		}), nil
	}

	inner, err := s.ec.Transport.StreamTable(ctx, name, opts)
	if err != nil {
		s.trackFailed(name, err)

		return nil, fmt.Errorf("%w: stream table %s: %w", ErrTransport, name, err)
	}

	return &trackedIterator{
		inner: inner,
		done: func(count int, streamErr error, early bool) {
			if streamErr != nil {
				s.trackFailed(name, streamErr)

				return
			}

			s.trackStream(name, count, early)
		},
	}, nil
}

// CallFunction invokes a remote function module. Offline mode resolves the
// call from the fixture set; a missing fixture is a tracked skip.
func (s *Session) CallFunction(ctx context.Context, name string, params map[string]any) (map[string]any, error) {
	key := fmKeyPrefix + name

	if s.ec.Mode == ModeOffline {
		result, ok := s.ec.Fixtures.Function(name)
		if !ok {
			s.trackSkipped(key, reasonNoFixture)

			return nil, fmt.Errorf("%w: function %s", ErrNoFixture, name)
		}

		s.track(key, coverage.StatusExtracted, coverage.Detail{RowCount: 1})

		return result, nil
	}

	result, err := s.ec.Transport.CallFunction(ctx, name, params)
	if err != nil {
		s.trackFailed(key, err)

		return nil, fmt.Errorf("%w: call %s: %w", ErrTransport, name, err)
	}

	s.track(key, coverage.StatusExtracted, coverage.Detail{RowCount: 1})

	return result, nil
}

// ReadOData reads an OData entity set. Offline mode resolves it from the
// fixture set; a missing fixture is a tracked skip.
func (s *Session) ReadOData(ctx context.Context, service, entity string) ([]Row, error) {
	key := odataKeyPrefix + service + "/" + entity

	if s.ec.Mode == ModeOffline {
		rows, ok := s.ec.Fixtures.OData(service, entity)
		if !ok {
			s.trackSkipped(key, reasonNoFixture)

			return nil, fmt.Errorf("%w: odata %s/%s", ErrNoFixture, service, entity)
		}

		s.track(key, coverage.StatusExtracted, coverage.Detail{RowCount: len(rows)})

		return rows, nil
	}

	rows, err := s.ec.Transport.ReadOData(ctx, service, entity)
	if err != nil {
		s.trackFailed(key, err)

		return nil, fmt.Errorf("%w: odata %s/%s: %w", ErrTransport, service, entity, err)
	}

	s.track(key, coverage.StatusExtracted, coverage.Detail{RowCount: len(rows)})

	return rows, nil
}

// Skip records a deliberate skip of a table.
func (s *Session) Skip(table, reason string) {
	s.trackSkipped(table, reason)
}

// readFixtureTable serves an offline read with the same row-limit semantics
// as the live path: a read capped at maxRows is tracked as partial.
func (s *Session) readFixtureTable(name string, maxRows int) ([]Row, error) {
	rows, ok := s.ec.Fixtures.Table(name)
	if !ok {
		s.trackSkipped(name, reasonNoFixture)

		return nil, fmt.Errorf("%w: table %s", ErrNoFixture, name)
	}

	if maxRows > 0 && len(rows) > maxRows {
		rows = rows[:maxRows]
	}

	s.trackRead(name, len(rows), maxRows)

	return rows, nil
}

func (s *Session) readFixtureStream(name string) ([]Row, error) {
	rows, ok := s.ec.Fixtures.Table(name)
	if !ok {
		s.trackSkipped(name, reasonNoFixture)

		return nil, fmt.Errorf("%w: table %s", ErrNoFixture, name)
	}

	return rows, nil
}

func (s *Session) trackRead(table string, rowCount, maxRows int) {
	if maxRows > 0 && rowCount >= maxRows {
		s.track(table, coverage.StatusPartial, coverage.Detail{RowCount: rowCount, Reason: reasonRowLimit})

		return
	}

	s.track(table, coverage.StatusExtracted, coverage.Detail{RowCount: rowCount})
}

func (s *Session) trackStream(table string, rowCount int, early bool) {
	if early {
		s.track(table, coverage.StatusPartial, coverage.Detail{RowCount: rowCount, Reason: "stream closed early"})

		return
	}

	s.track(table, coverage.StatusExtracted, coverage.Detail{RowCount: rowCount})
}

func (s *Session) trackFailed(table string, err error) {
	s.track(table, coverage.StatusFailed, coverage.Detail{Error: err.Error()})
}

func (s *Session) trackSkipped(table, reason string) {
	s.track(table, coverage.StatusSkipped, coverage.Detail{Reason: reason})
}

func (s *Session) track(table string, status coverage.Status, detail coverage.Detail) {
	s.ec.Coverage.Track(s.extractorID, table, status, detail)
}
