// Package sink receives one Result per corrected target. Sinks are shared by
// every worker and must be safe for concurrent use.
package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/dusk-indust/readcns/internal/consensus"
	"github.com/dusk-indust/readcns/internal/graph"
)

// Result is what a worker reports for one target read.
type Result struct {
	TargetID      int64            `json:"targetId"`
	TargetName    string           `json:"targetName,omitempty"`
	Length        int              `json:"length"`
	Added         int              `json:"added"`
	Rejected      int              `json:"rejected"`
	Failed        int              `json:"failed"`
	Dropped       int              `json:"dropped"`
	WindowsHit    int              `json:"windowsHit"`
	WindowsMissed int              `json:"windowsMissed"`
	CoveredBases  int              `json:"coveredBases"`
	MeanDepth     float64          `json:"meanDepth"`
	Regions       []consensus.Span `json:"regions"`
	Overlaps      []graph.Overlap  `json:"overlaps,omitempty"`
}

// Sink accepts results.
type Sink interface {
	Write(ctx context.Context, r Result) error
}

// JSONLines writes one JSON object per line. The mutex is held for a single
// append, so concurrent writers never interleave within a line.
type JSONLines struct {
	mu sync.Mutex
	w  io.Writer
	n  int
}

var _ Sink = (*JSONLines)(nil)

// NewJSONLines returns a sink writing to w.
func NewJSONLines(w io.Writer) *JSONLines {
	return &JSONLines{w: w}
}

// Write implements Sink.
func (s *JSONLines) Write(ctx context.Context, r Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.Regions == nil {
		r.Regions = []consensus.Span{}
	}
	b, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("sink: marshal target %d: %w", r.TargetID, err)
	}
	b = append(b, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.w.Write(b); err != nil {
		return fmt.Errorf("sink: write target %d: %w", r.TargetID, err)
	}
	s.n++
	return nil
}

// Count returns the number of results written.
func (s *JSONLines) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.n
}

// Recording stores every result in an overlap graph before passing it on.
type Recording struct {
	next  Sink
	store graph.Store
}

var _ Sink = (*Recording)(nil)

// NewRecording wraps next so results are also recorded in store.
func NewRecording(next Sink, store graph.Store) *Recording {
	return &Recording{next: next, store: store}
}

// Write implements Sink.
func (s *Recording) Write(ctx context.Context, r Result) error {
	if err := s.store.AddRead(ctx, graph.ReadNode{ID: r.TargetID, Name: r.TargetName, Length: r.Length}); err != nil {
		return fmt.Errorf("sink: record target %d: %w", r.TargetID, err)
	}
	for _, ov := range r.Overlaps {
		ov.Target = r.TargetID
		if err := s.store.AddOverlap(ctx, ov); err != nil {
			return fmt.Errorf("sink: record overlap %d->%d: %w", ov.Query, r.TargetID, err)
		}
	}
	c := graph.Correction{
		Alignments:   r.Added,
		CoveredBases: r.CoveredBases,
		MeanDepth:    r.MeanDepth,
		Regions:      len(r.Regions),
	}
	if err := s.store.SetCorrection(ctx, r.TargetID, c); err != nil {
		return fmt.Errorf("sink: record correction %d: %w", r.TargetID, err)
	}
	return s.next.Write(ctx, r)
}
