package extract

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/ib823/sapforensics/internal/coverage"
)

// Mode selects where extractors read their data from.
type Mode string

// Extraction modes.
const (
	ModeLive    Mode = "live"
	ModeOffline Mode = "offline"
)

// FieldInfo describes one field of a dictionary table.
type FieldInfo struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Length   int    `json:"length,omitempty"`
	KeyField bool   `json:"key_field,omitempty"`
}

// TableInfo is the dictionary entry for one table.
type TableInfo struct {
	Fields      []FieldInfo `json:"fields"`
	ForeignKeys []string    `json:"foreign_keys,omitempty"`
	Indexes     []string    `json:"indexes,omitempty"`
	Description string      `json:"description,omitempty"`
}

// DataDictionary is the populated dictionary of the source system.
// It is written once during phase 2 and read-only thereafter.
type DataDictionary struct {
	Tables        map[string]TableInfo `json:"tables"`
	DataElements  map[string]string    `json:"data_elements,omitempty"`
	Domains       map[string]string    `json:"domains,omitempty"`
	Views         []string             `json:"views,omitempty"`
	Relationships []string             `json:"relationships,omitempty"`
	Stats         map[string]int       `json:"stats,omitempty"`
}

// KnownTables returns the dictionary table names in sorted order.
func (d *DataDictionary) KnownTables() []string {
	names := make([]string, 0, len(d.Tables))
	for name := range d.Tables {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Context is the process-wide container for a single extraction run.
// It MUST NOT be shared between concurrent runs.
type Context struct {
	Mode      Mode
	Transport Transport
	Fixtures  *FixtureSet
	Coverage  *coverage.Tracker
	Logger    *slog.Logger

	mu   sync.RWMutex
	dict *DataDictionary
}

// NewContext creates a run context with a fresh coverage tracker.
func NewContext(mode Mode, transport Transport, fixtures *FixtureSet, logger *slog.Logger) *Context {
	if logger == nil {
		logger = slog.Default()
	}

	return &Context{
		Mode:      mode,
		Transport: transport,
		Fixtures:  fixtures,
		Coverage:  coverage.NewTracker(),
		Logger:    logger,
	}
}

// SetDataDictionary installs the dictionary produced by phase 2.
func (c *Context) SetDataDictionary(dict *DataDictionary) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.dict = dict
}

// DataDictionary returns the installed dictionary, or nil before phase 2.
func (c *Context) DataDictionary() *DataDictionary {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.dict
}
