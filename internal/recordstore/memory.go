package recordstore

import (
	"context"
	"fmt"
	"sync"
)

// memoryTable holds the rows of one table in insertion order.
type memoryTable struct {
	schema schema
	rows   []Record
}

// MemoryStore is a concurrency-safe in-memory implementation of Store.
type MemoryStore struct {
	mu sync.RWMutex

	// key: table name
	tables map[string]*memoryTable
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tables: make(map[string]*memoryTable),
	}
}

func (s *MemoryStore) Create(_ context.Context, table string, example Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tables[table]; ok {
		return nil
	}
	s.tables[table] = &memoryTable{schema: parseSchema(example)}
	return nil
}

func (s *MemoryStore) Drop(_ context.Context, table string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.tables, table)
	return nil
}

// Put appends records, replacing rows that share a primary key.
func (s *MemoryStore) Put(_ context.Context, table string, records ...Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tables[table]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoTable, table)
	}

	for _, rec := range records {
		rec = rec.Clone()
		key, keyed := t.schema.keyOf(rec)
		replaced := false
		if keyed {
			for i, existing := range t.rows {
				if k, _ := t.schema.keyOf(existing); k == key {
					t.rows[i] = rec
					replaced = true
					break
				}
			}
		}
		if !replaced {
			t.rows = append(t.rows, rec)
		}
	}
	return nil
}

func (s *MemoryStore) Select(_ context.Context, table string, where Predicate) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tables[table]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoTable, table)
	}

	var result []Record
	for _, rec := range t.rows {
		if where == nil || where.Match(rec) {
			result = append(result, rec.Clone())
		}
	}
	if len(result) == 0 {
		return nil, ErrNoData
	}
	return result, nil
}

func (s *MemoryStore) All(ctx context.Context, table string) ([]Record, error) {
	return s.Select(ctx, table, nil)
}
