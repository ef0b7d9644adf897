// Package extract provides the extraction layer: the transport contract,
// the shared extraction context, the extractor base helpers, and the
// process-wide extractor registry.
package extract

import (
	"context"
	"errors"
)

// ErrTransport wraps any transport-layer failure (network, auth, timeout).
var ErrTransport = errors.New("transport error")

// Row is a single record read from the source system.
type Row = map[string]any

// ReadOptions narrows a table read.
type ReadOptions struct {
	Fields  []string
	Where   string
	MaxRows int
}

// StreamOptions narrows a streaming table read.
type StreamOptions struct {
	ReadOptions

	ChunkSize int
}

// Chunk is one batch of rows from a streaming read.
type Chunk struct {
	Rows []Row
}

// ChunkIterator is a finite, non-restartable lazy sequence of chunks.
// Callers that stop early MUST call Close to release transport resources.
type ChunkIterator interface {
	// Next returns the next chunk. ok is false when the sequence is exhausted
	// or an error occurred; check Err after iteration ends.
	Next() (chunk Chunk, ok bool)
	// Err returns the first error encountered during iteration, if any.
	Err() error
	// Close releases transport resources. Safe to call multiple times.
	Close() error
}

// Transport reads rows from the remote system. Implementations live outside
// the core (RFC pool, OData client, JDBC, CSV fixtures); the core only
// depends on this contract. All reads are strictly read-only.
type Transport interface {
	ReadTable(ctx context.Context, name string, opts ReadOptions) ([]Row, error)
	StreamTable(ctx context.Context, name string, opts StreamOptions) (ChunkIterator, error)
	CallFunction(ctx context.Context, name string, params map[string]any) (map[string]any, error)
	ReadOData(ctx context.Context, service, entity string) ([]Row, error)
}
