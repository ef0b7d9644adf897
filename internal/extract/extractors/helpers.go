package extractors

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ib823/sapforensics/internal/extract"
)

// readInto reads one table and stores the rows in the payload under key.
// Failures and skips are already coverage-tracked by the session; a missing
// non-critical table simply leaves the key absent.
func readInto(ctx context.Context, sess *extract.Session, payload map[string]any, key, table string, opts extract.ReadOptions) {
	rows, err := sess.ReadTable(ctx, table, opts)
	if err != nil {
		return
	}

	payload[key] = rows
}

// stringField extracts a string value from a row, tolerating absent keys.
func stringField(row extract.Row, key string) string {
	value, ok := row[key]
	if !ok || value == nil {
		return ""
	}

	s, ok := value.(string)
	if ok {
		return s
	}

	return fmt.Sprintf("%v", value)
}

// intField extracts an integer value from a row, tolerating absent keys and
// string-encoded numbers (common in fixture YAML and RFC payloads).
func intField(row extract.Row, key string) int {
	switch v := row[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}

	return 0
}
