// Package recordstore talks to schemaless key/value table services.
//
// The remote service exposes five verbs over HTTP (CREATE, DROP, STORE,
// SELECT, ALL). MemoryStore and SQLiteStore implement the same contract
// locally so the rest of the application can run offline and in tests.
package recordstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrNoData is returned when a select or scan matches no rows.
	ErrNoData = errors.New("no matching records")

	// ErrNoTable is returned by local backends when a table was never created.
	ErrNoTable = errors.New("table does not exist")
)

// Error is a non-success status reported by the record-store service.
type Error struct {
	Status  string
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("recordstore [%s]: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("recordstore [%s]", e.Status)
}

// Is matches errors carrying the same status.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Status == t.Status
}

// Store is the contract every record-store backend satisfies.
type Store interface {
	// Create makes a table whose columns follow example. A column named
	// "<name> PK" marks name as the primary key. Creating an existing
	// table leaves it untouched.
	Create(ctx context.Context, table string, example Record) error
	Drop(ctx context.Context, table string) error
	// Put stores records; rows sharing a primary key replace older rows.
	Put(ctx context.Context, table string, records ...Record) error
	Select(ctx context.Context, table string, where Predicate) ([]Record, error)
	All(ctx context.Context, table string) ([]Record, error)
}

// Record is one row of a table.
type Record map[string]any

// Clone returns a shallow copy of r.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// String returns the value under key formatted as text.
func (r Record) String(key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Float returns the numeric value under key.
func (r Record) Float(key string) (float64, bool) {
	return toFloat(r[key])
}

// Int returns the value under key truncated to an integer.
func (r Record) Int(key string) (int, bool) {
	f, ok := toFloat(r[key])
	if !ok {
		return 0, false
	}
	return int(f), true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// schema describes a table created from an example row.
type schema struct {
	columns []string
	key     string
}

func parseSchema(example Record) schema {
	var s schema
	for col := range example {
		name := col
		if trimmed, ok := strings.CutSuffix(col, " PK"); ok {
			name = strings.TrimSpace(trimmed)
			s.key = name
		}
		s.columns = append(s.columns, name)
	}
	return s
}

func (s schema) keyOf(r Record) (string, bool) {
	if s.key == "" {
		return "", false
	}
	v, ok := r[s.key]
	if !ok {
		return "", false
	}
	return fmt.Sprint(v), true
}
