package consensus

import (
	"github.com/dusk-indust/readcns/internal/alignment"
	"github.com/dusk-indust/readcns/internal/alnpool"
)

// DefaultWindow is the target span pulled from every alignment per step.
const DefaultWindow = 500

// Span is a half-open interval of target positions.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Summary describes the tally built for one target.
type Summary struct {
	WindowsHit    int
	WindowsMissed int
	CoveredBases  int
	MeanDepth     float64
	Regions       []Span
}

// Builder scans a target from left to right in fixed windows, pulls each
// overlapping alignment's view of the window from the pool, and records the
// columns in a Table. One Builder per worker; it keeps scratch buffers.
type Builder struct {
	window      int
	minCoverage int

	// OnWindow, when set, observes the outcome of every retrieval.
	OnWindow func(alnpool.Outcome)

	ranges []alnpool.MappingRange
	w      alnpool.Window
}

// NewBuilder returns a Builder stepping window bases at a time and reporting
// regions whose depth reaches minCoverage.
func NewBuilder(window, minCoverage int) *Builder {
	if window <= 0 {
		window = DefaultWindow
	}
	if minCoverage < 1 {
		minCoverage = 1
	}
	return &Builder{window: window, minCoverage: minCoverage}
}

// Build tallies every alignment in pool into table, which must already be
// Reset to the target length, and summarizes the result. The pool's cursors
// are consumed.
func (b *Builder) Build(pool *alnpool.Pool, table *Table) Summary {
	var sum Summary
	b.ranges = pool.MappingRanges(b.ranges)
	n := table.Len()

	for ws := 0; ws < n; ws += b.window {
		we := min(ws+b.window, n)
		for i, r := range b.ranges {
			if r.End <= ws || r.Start >= we {
				continue
			}
			out := pool.Alignment(i).Retrieve(ws, we, &b.w)
			switch out {
			case alnpool.Hit:
				sum.WindowsHit++
				b.tally(table, &b.w)
			case alnpool.MissMasked:
				sum.WindowsMissed++
				for p := b.w.Start; p < b.w.End; p++ {
					table.AddSkip(p)
				}
			default:
				sum.WindowsMissed++
			}
			if b.OnWindow != nil {
				b.OnWindow(out)
			}
		}
	}

	b.summarize(table, &sum)
	return sum
}

// tally walks the window columns. Insertions are charged to the base they
// follow, or to the first base when they open the window.
func (b *Builder) tally(table *Table, w *alnpool.Window) {
	pos := w.Start
	for c := range w.Query {
		q, t := w.Query[c], w.Target[c]
		if t == alignment.Gap {
			at := max(pos-1, w.Start)
			if at < table.Len() {
				table.AddInsertion(at)
			}
			continue
		}
		switch q {
		case t:
			table.AddMatch(pos)
		case alignment.Gap:
			table.AddDeletion(pos)
		default:
			table.AddSubstitution(pos)
		}
		pos++
	}
}

func (b *Builder) summarize(table *Table, sum *Summary) {
	depth := 0
	open := -1
	for i, e := range table.Entries() {
		d := e.Depth()
		if d > 0 {
			sum.CoveredBases++
			depth += d
		}
		switch {
		case d >= b.minCoverage && open < 0:
			open = i
		case d < b.minCoverage && open >= 0:
			sum.Regions = append(sum.Regions, Span{Start: open, End: i})
			open = -1
		}
	}
	if open >= 0 {
		sum.Regions = append(sum.Regions, Span{Start: open, End: table.Len()})
	}
	if sum.CoveredBases > 0 {
		sum.MeanDepth = float64(depth) / float64(sum.CoveredBases)
	}
}
