package alnpool

import "github.com/dusk-indust/readcns/internal/alignment"

// Outcome reports what Retrieve found for a window.
type Outcome int

const (
	// Hit means the window holds usable columns.
	Hit Outcome = iota
	// MissOutOfRange means the window does not intersect the alignment.
	MissOutOfRange
	// MissConsumed means the alignment is exhausted or the window ends at or
	// before the cursor.
	MissConsumed
	// MissMasked means the span contains a masked query column.
	MissMasked
)

func (o Outcome) String() string {
	switch o {
	case Hit:
		return "hit"
	case MissOutOfRange:
		return "out-of-range"
	case MissConsumed:
		return "consumed"
	case MissMasked:
		return "masked"
	default:
		return "unknown"
	}
}

// Cursor records how far an alignment has been consumed: Pos is the target
// position of the next unconsumed base and Col the next unconsumed column.
// Both only move forward.
type Cursor struct {
	Pos int
	Col int
}

// Window is one alignment's view of a target span. Start and End are the
// target positions actually covered, half open. Query and Target are reused
// between calls when the same Window is passed back in.
type Window struct {
	Start, End int
	Query      []byte
	Target     []byte
}

// Alignment is a normalized alignment anchored at target [start, end).
type Alignment struct {
	start, end int
	query      []byte
	target     []byte
	cur        Cursor
}

func (a *Alignment) reset(start, end int, query, target []byte) {
	a.start, a.end = start, end
	a.query = append(a.query[:0], query...)
	a.target = append(a.target[:0], target...)
	a.cur = Cursor{Pos: start}
}

// Start returns the first target position covered.
func (a *Alignment) Start() int { return a.start }

// End returns one past the last target position covered.
func (a *Alignment) End() int { return a.end }

// Len returns the number of alignment columns.
func (a *Alignment) Len() int { return len(a.query) }

// Query returns the query side. The slice is owned by the pool.
func (a *Alignment) Query() []byte { return a.query }

// Target returns the target side. The slice is owned by the pool.
func (a *Alignment) Target() []byte { return a.target }

// Cursor returns the current consumption state.
func (a *Alignment) Cursor() Cursor { return a.cur }

// Exhausted reports whether every column has been consumed.
func (a *Alignment) Exhausted() bool { return a.cur.Col >= len(a.query) }

// Retrieve extracts the columns whose target position lies in
// [max(ws, Start), we) into w and moves the cursor past them. Insertion
// columns travel with the target base they follow; insertions ahead of the
// first base belong to the first window.
//
// Columns behind the cursor are never returned again, so a window that
// overlaps an earlier one yields only its unconsumed part. On MissMasked the
// cursor still moves past the span.
func (a *Alignment) Retrieve(ws, we int, w *Window) Outcome {
	if we <= a.start || ws >= a.end {
		return MissOutOfRange
	}
	if a.Exhausted() || we <= a.cur.Pos {
		return MissConsumed
	}
	if ws < a.start {
		ws = a.start
	}
	if we > a.end {
		we = a.end
	}

	n := len(a.query)
	for a.cur.Col < n && a.skippable(ws) {
		if a.target[a.cur.Col] != alignment.Gap {
			a.cur.Pos++
		}
		a.cur.Col++
	}

	w.Start = a.cur.Pos
	w.Query = w.Query[:0]
	w.Target = w.Target[:0]
	masked := false
	for a.cur.Col < n {
		c := a.cur.Col
		if a.target[c] != alignment.Gap {
			if a.cur.Pos >= we {
				break
			}
			a.cur.Pos++
		}
		if a.query[c] == alignment.Sentinel {
			masked = true
		}
		w.Query = append(w.Query, a.query[c])
		w.Target = append(w.Target, a.target[c])
		a.cur.Col++
	}
	w.End = a.cur.Pos

	switch {
	case masked:
		return MissMasked
	case len(w.Query) == 0:
		return MissConsumed
	default:
		return Hit
	}
}

// skippable reports whether the next column lies before ws: either a base
// left of ws, or an insertion trailing base ws-1.
func (a *Alignment) skippable(ws int) bool {
	if a.cur.Pos < ws {
		return true
	}
	return a.cur.Pos == ws && a.cur.Pos > a.start && a.target[a.cur.Col] == alignment.Gap
}
