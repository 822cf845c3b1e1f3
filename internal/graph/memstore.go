package graph

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnknownRead is returned by SetCorrection for a read never added.
var ErrUnknownRead = errors.New("graph: unknown read")

// Compile-time assertion: *MemStore satisfies Store.
var _ Store = (*MemStore)(nil)

// MemStore implements Store using Go maps. Thread-safe via sync.RWMutex.
type MemStore struct {
	mu       sync.RWMutex
	reads    map[int64]ReadNode
	overlaps map[int64][]Overlap // key: target id
	edges    int
}

// NewMemStore returns an initialized MemStore ready for use.
func NewMemStore() *MemStore {
	return &MemStore{
		reads:    make(map[int64]ReadNode),
		overlaps: make(map[int64][]Overlap),
	}
}

// InitSchema is a no-op for the in-memory store.
func (m *MemStore) InitSchema(_ context.Context) error {
	return nil
}

// AddRead stores a read keyed by id, keeping any correction already set.
func (m *MemStore) AddRead(_ context.Context, node ReadNode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.reads[node.ID]; ok && node.Correction == nil {
		node.Correction = old.Correction
	}
	m.reads[node.ID] = node
	return nil
}

// AddOverlap appends an edge, creating bare endpoints as needed.
func (m *MemStore) AddOverlap(_ context.Context, ov Overlap) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range [2]int64{ov.Query, ov.Target} {
		if _, ok := m.reads[id]; !ok {
			m.reads[id] = ReadNode{ID: id}
		}
	}
	m.overlaps[ov.Target] = append(m.overlaps[ov.Target], ov)
	m.edges++
	return nil
}

// SetCorrection records c on read id.
func (m *MemStore) SetCorrection(_ context.Context, id int64, c Correction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reads[id]
	if !ok {
		return fmt.Errorf("graph: set correction on %d: %w", id, ErrUnknownRead)
	}
	r.Correction = &c
	m.reads[id] = r
	return nil
}

// Read returns the read with the given id, or nil if not found.
func (m *MemStore) Read(_ context.Context, id int64) (*ReadNode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.reads[id]
	if !ok {
		return nil, nil
	}
	if r.Correction != nil {
		c := *r.Correction
		r.Correction = &c
	}
	return &r, nil
}

// Overlaps returns the edges into target ordered by target start, then query.
func (m *MemStore) Overlaps(_ context.Context, target int64) ([]Overlap, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := append([]Overlap(nil), m.overlaps[target]...)
	sortOverlaps(out)
	return out, nil
}

// Stats returns node and edge counts.
func (m *MemStore) Stats(_ context.Context) (*Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st := &Stats{Reads: len(m.reads), Overlaps: m.edges}
	for _, r := range m.reads {
		if r.Correction != nil {
			st.Corrected++
		}
	}
	return st, nil
}

// Close is a no-op for the in-memory store.
func (m *MemStore) Close() error {
	return nil
}

func sortOverlaps(ovs []Overlap) {
	sort.Slice(ovs, func(i, j int) bool {
		if ovs[i].TargetStart != ovs[j].TargetStart {
			return ovs[i].TargetStart < ovs[j].TargetStart
		}
		return ovs[i].Query < ovs[j].Query
	})
}
