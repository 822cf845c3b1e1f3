// Package alnpool holds the normalized pairwise alignments anchored to one
// target read and hands out, window by window, each alignment's view of the
// target. Alignments are consumed left to right through a cursor, so a full
// scan of the target costs time linear in the combined alignment length.
package alnpool

import (
	"errors"
	"fmt"
)

// DefaultCapacity is the number of alignments a pool holds per target.
const DefaultCapacity = 100

var (
	// ErrPoolFull is returned by Add when the pool already holds Cap alignments.
	ErrPoolFull = errors.New("alnpool: pool is full")

	// ErrLengthMismatch is returned by Add when the aligned strings differ in length.
	ErrLengthMismatch = errors.New("alnpool: aligned strings differ in length")

	// ErrTooLong is returned by Add when an alignment exceeds the pool's bound.
	ErrTooLong = errors.New("alnpool: alignment exceeds maximum length")

	// ErrInvalidRange is returned by Add when end precedes start.
	ErrInvalidRange = errors.New("alnpool: invalid target range")
)

// MappingRange is the half-open target interval covered by one alignment.
type MappingRange struct {
	Start, End int
}

// Pool is a bounded, reusable set of alignments against a single target.
// It is not safe for concurrent use; each worker owns its own pool.
type Pool struct {
	alns   []*Alignment
	n      int
	maxLen int
}

// New returns a pool holding at most capacity alignments of at most maxLen
// columns each. Non-positive values fall back to DefaultCapacity and no
// length bound respectively.
func New(capacity, maxLen int) *Pool {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Pool{
		alns:   make([]*Alignment, capacity),
		maxLen: maxLen,
	}
}

// Add appends an alignment covering target [start, end). query and target
// are copied into buffers the pool keeps across Clear calls.
func (p *Pool) Add(start, end int, query, target []byte) error {
	if len(query) != len(target) {
		return fmt.Errorf("alnpool: add [%d,%d): %d vs %d columns: %w", start, end, len(query), len(target), ErrLengthMismatch)
	}
	if end < start || start < 0 {
		return fmt.Errorf("alnpool: add [%d,%d): %w", start, end, ErrInvalidRange)
	}
	if p.maxLen > 0 && len(query) > p.maxLen {
		return fmt.Errorf("alnpool: add [%d,%d): %d columns > %d: %w", start, end, len(query), p.maxLen, ErrTooLong)
	}
	if p.n == len(p.alns) {
		return ErrPoolFull
	}

	a := p.alns[p.n]
	if a == nil {
		a = &Alignment{}
		p.alns[p.n] = a
	}
	a.reset(start, end, query, target)
	p.n++
	return nil
}

// Clear empties the pool. Buffers are kept for the next target.
func (p *Pool) Clear() { p.n = 0 }

// Len returns the number of alignments currently held.
func (p *Pool) Len() int { return p.n }

// Cap returns the maximum number of alignments.
func (p *Pool) Cap() int { return len(p.alns) }

// Alignment returns the i-th alignment, 0 <= i < Len.
func (p *Pool) Alignment(i int) *Alignment {
	if i < 0 || i >= p.n {
		panic(fmt.Sprintf("alnpool: index %d out of range [0,%d)", i, p.n))
	}
	return p.alns[i]
}

// MappingRanges appends the target interval of every alignment to dst[:0].
func (p *Pool) MappingRanges(dst []MappingRange) []MappingRange {
	dst = dst[:0]
	for _, a := range p.alns[:p.n] {
		dst = append(dst, MappingRange{Start: a.start, End: a.end})
	}
	return dst
}
