package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// FixtureSet holds the offline evidence an extractor reads instead of the
// live system: table rows, function-module results, and OData entity sets.
type FixtureSet struct {
	tables    map[string][]Row
	functions map[string]map[string]any
	odata     map[string][]Row
}

// fixtureFile is the YAML shape of one fixture file.
type fixtureFile struct {
	Tables    map[string][]map[string]any `yaml:"tables"`
	Functions map[string]map[string]any   `yaml:"functions"`
	OData     map[string][]map[string]any `yaml:"odata"`
}

// NewFixtureSet creates an empty fixture set.
func NewFixtureSet() *FixtureSet {
	return &FixtureSet{
		tables:    make(map[string][]Row),
		functions: make(map[string]map[string]any),
		odata:     make(map[string][]Row),
	}
}

// AddTable installs fixture rows for a table.
func (f *FixtureSet) AddTable(name string, rows []Row) *FixtureSet {
	f.tables[name] = rows

	return f
}

// AddFunction installs a fixture result for a function module.
func (f *FixtureSet) AddFunction(name string, result map[string]any) *FixtureSet {
	f.functions[name] = result

	return f
}

// AddOData installs fixture rows for an OData service/entity pair.
func (f *FixtureSet) AddOData(service, entity string, rows []Row) *FixtureSet {
	f.odata[odataKey(service, entity)] = rows

	return f
}

// Table returns the fixture rows for a table.
func (f *FixtureSet) Table(name string) ([]Row, bool) {
	rows, ok := f.tables[name]

	return rows, ok
}

// Function returns the fixture result for a function module.
func (f *FixtureSet) Function(name string) (map[string]any, bool) {
	result, ok := f.functions[name]

	return result, ok
}

// OData returns the fixture rows for an OData service/entity pair.
func (f *FixtureSet) OData(service, entity string) ([]Row, bool) {
	rows, ok := f.odata[odataKey(service, entity)]

	return rows, ok
}

func odataKey(service, entity string) string {
	return service + "/" + entity
}

// Fixture file extensions accepted by LoadFixtureDir.
const (
	yamlExtension = ".yaml"
	ymlExtension  = ".yml"
)

// LoadFixtureDir reads every YAML fixture file in dir into one merged set.
// Later files win on table-name collisions; files are visited in sorted
// order so merges are deterministic.
func LoadFixtureDir(dir string) (*FixtureSet, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read fixture dir: %w", err)
	}

	set := NewFixtureSet()

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != yamlExtension && ext != ymlExtension {
			continue
		}

		loadErr := set.loadFile(filepath.Join(dir, entry.Name()))
		if loadErr != nil {
			return nil, loadErr
		}
	}

	return set, nil
}

func (f *FixtureSet) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read fixture file: %w", err)
	}

	var file fixtureFile

	err = yaml.Unmarshal(data, &file)
	if err != nil {
		return fmt.Errorf("parse fixture file %s: %w", filepath.Base(path), err)
	}

	for name, rows := range file.Tables {
		f.tables[name] = toRows(rows)
	}

	for name, result := range file.Functions {
		f.functions[name] = result
	}

	for key, rows := range file.OData {
		f.odata[key] = toRows(rows)
	}

	return nil
}

func toRows(in []map[string]any) []Row {
	rows := make([]Row, len(in))
	for i, m := range in {
		rows[i] = Row(m)
	}

	return rows
}
