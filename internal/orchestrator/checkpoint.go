package orchestrator

import (
	"encoding/gob"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/ib823/sapforensics/internal/extract"
	"github.com/ib823/sapforensics/pkg/persist"
)

// SlotResult is the checkpoint slot holding an extractor's full result.
const SlotResult = "result"

// progressBasename is the metadata file tracking per-extractor completion.
const progressBasename = "progress"

// Completion is the per-extractor resume flag.
type Completion struct {
	Complete bool `json:"complete"`
}

// CheckpointStore caches extractor results between runs so a resumed run
// re-executes only incomplete extractors.
type CheckpointStore interface {
	// Progress returns the per-extractor completion flags.
	Progress() map[string]Completion
	// Load returns the cached value for a slot, with ok reporting presence.
	Load(extractorID, slot string) (extract.Result, bool)
	// Save caches a slot value and marks the extractor complete when the
	// slot is the result slot.
	Save(extractorID, slot string, result extract.Result) error
}

func init() {
	// Result payloads are erased maps; gob needs the concrete shapes.
	gob.Register(map[string]any{})
	gob.Register([]any{})
	gob.Register([]extract.Row{})
	gob.Register(extract.Row{})
}

// FileStore is a CheckpointStore over a directory: completion flags in a
// JSON metadata file, cached results as lz4-compressed gob.
type FileStore struct {
	mu    sync.Mutex
	dir   string
	meta  *persist.JSONCodec
	cache *persist.LZ4GobCodec

	progress map[string]Completion
}

// NewFileStore opens or creates a checkpoint directory.
func NewFileStore(dir string) (*FileStore, error) {
	err := os.MkdirAll(dir, 0o755)
	if err != nil {
		return nil, fmt.Errorf("create checkpoint dir: %w", err)
	}

	store := &FileStore{
		dir:      dir,
		meta:     persist.NewJSONCodec(),
		cache:    persist.NewLZ4GobCodec(),
		progress: make(map[string]Completion),
	}

	if persist.StateExists(dir, progressBasename, store.meta) {
		err = persist.LoadState(dir, progressBasename, store.meta, &store.progress)
		if err != nil {
			return nil, fmt.Errorf("load checkpoint progress: %w", err)
		}
	}

	return store, nil
}

// Progress implements CheckpointStore.
func (fs *FileStore) Progress() map[string]Completion {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	snapshot := make(map[string]Completion, len(fs.progress))
	for id, completion := range fs.progress {
		snapshot[id] = completion
	}

	return snapshot
}

// Load implements CheckpointStore.
func (fs *FileStore) Load(extractorID, slot string) (extract.Result, bool) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	basename := slotBasename(extractorID, slot)
	if !persist.StateExists(fs.dir, basename, fs.cache) {
		return extract.Result{}, false
	}

	var result extract.Result

	err := persist.LoadState(fs.dir, basename, fs.cache, &result)
	if err != nil {
		// A corrupt cache entry degrades to a re-run, not a failure.
		return extract.Result{}, false
	}

	return result, true
}

// Save implements CheckpointStore.
func (fs *FileStore) Save(extractorID, slot string, result extract.Result) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	err := persist.SaveState(fs.dir, slotBasename(extractorID, slot), fs.cache, result)
	if err != nil {
		return fmt.Errorf("save checkpoint %s/%s: %w", extractorID, slot, err)
	}

	if slot == SlotResult {
		fs.progress[extractorID] = Completion{Complete: true}

		err = persist.SaveState(fs.dir, progressBasename, fs.meta, fs.progress)
		if err != nil {
			return fmt.Errorf("save checkpoint progress: %w", err)
		}
	}

	return nil
}

// Reset clears all completion flags so the next run re-executes every
// extractor. Cached slot files stay on disk and are overwritten as the run
// progresses.
func (fs *FileStore) Reset() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	fs.progress = make(map[string]Completion)

	err := persist.SaveState(fs.dir, progressBasename, fs.meta, fs.progress)
	if err != nil {
		return fmt.Errorf("reset checkpoint progress: %w", err)
	}

	return nil
}

// MemoryStore is an in-memory CheckpointStore for tests and single-shot runs.
type MemoryStore struct {
	mu      sync.Mutex
	results map[string]extract.Result
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{results: make(map[string]extract.Result)}
}

// Progress implements CheckpointStore.
func (ms *MemoryStore) Progress() map[string]Completion {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	progress := make(map[string]Completion, len(ms.results))
	for key := range ms.results {
		id, slot := splitSlotKey(key)
		if slot == SlotResult {
			progress[id] = Completion{Complete: true}
		}
	}

	return progress
}

// Load implements CheckpointStore.
func (ms *MemoryStore) Load(extractorID, slot string) (extract.Result, bool) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	result, ok := ms.results[slotKey(extractorID, slot)]

	return result, ok
}

// Save implements CheckpointStore.
func (ms *MemoryStore) Save(extractorID, slot string, result extract.Result) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.results[slotKey(extractorID, slot)] = result

	return nil
}

const slotSeparator = "\x1f"

func slotBasename(extractorID, slot string) string {
	return extractorID + "__" + slot
}

func slotKey(extractorID, slot string) string {
	return extractorID + slotSeparator + slot
}

func splitSlotKey(key string) (extractorID, slot string) {
	extractorID, slot, _ = strings.Cut(key, slotSeparator)

	return extractorID, slot
}
