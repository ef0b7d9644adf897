package extract

// sliceIterator chunks a fixed row slice, for offline streaming reads.
type sliceIterator struct {
	rows      []Row
	chunkSize int
	offset    int
	closed    bool
	done      func(count int, early bool)
}

func newSliceIterator(rows []Row, chunkSize int, done func(count int, early bool)) *sliceIterator {
	return &sliceIterator{rows: rows, chunkSize: chunkSize, done: done}
}

// Next implements ChunkIterator.Next.
func (it *sliceIterator) Next() (Chunk, bool) {
	if it.closed || it.offset >= len(it.rows) {
		it.finish(false)

		return Chunk{}, false
	}

	end := min(it.offset+it.chunkSize, len(it.rows))
	chunk := Chunk{Rows: it.rows[it.offset:end]}
	it.offset = end

	return chunk, true
}

// Err implements ChunkIterator.Err. Slice iteration cannot fail.
func (it *sliceIterator) Err() error {
	return nil
}

// Close implements ChunkIterator.Close.
func (it *sliceIterator) Close() error {
	it.finish(it.offset < len(it.rows))

	return nil
}

func (it *sliceIterator) finish(early bool) {
	if it.closed {
		return
	}

	it.closed = true

	if it.done != nil {
		it.done(it.offset, early)
	}
}

// trackedIterator wraps a transport iterator and reports the terminal
// outcome (row count, error, early close) exactly once.
type trackedIterator struct {
	inner    ChunkIterator
	count    int
	finished bool
	done     func(count int, err error, early bool)
}

// Next implements ChunkIterator.Next.
func (it *trackedIterator) Next() (Chunk, bool) {
	chunk, ok := it.inner.Next()
	if !ok {
		it.finish(it.inner.Err(), false)

		return Chunk{}, false
	}

	it.count += len(chunk.Rows)

	return chunk, true
}

// Err implements ChunkIterator.Err.
func (it *trackedIterator) Err() error {
	return it.inner.Err()
}

// Close implements ChunkIterator.Close.
func (it *trackedIterator) Close() error {
	it.finish(it.inner.Err(), true)

	return it.inner.Close()
}

func (it *trackedIterator) finish(err error, early bool) {
	if it.finished {
		return
	}

	it.finished = true

	if it.done != nil {
		it.done(it.count, err, early)
	}
}
