package engine

import (
	"fmt"
	"math"
	"sync"
)

const gap = '-'

const (
	fromDiag byte = iota
	fromUp
	fromLeft
)

// scratch is the per-call DP memory, pooled so a shared Banded does not
// allocate on every candidate.
type scratch struct {
	prev, cur []int32
	trace     []byte
	q, t      []byte
}

// Banded is a global unit-cost aligner restricted to a diagonal band around
// the seed diagonal, over the overlap the seed implies.
type Banded struct {
	params [2]Params
	pool   sync.Pool
}

var _ Aligner = (*Banded)(nil)

// NewBanded returns an aligner using small and large for the two profiles.
func NewBanded(small, large Params) *Banded {
	b := &Banded{params: [2]Params{small, large}}
	b.pool.New = func() any { return new(scratch) }
	return b
}

// Params returns the parameters used for p.
func (b *Banded) Params(p Profile) Params {
	if p == Large {
		return b.params[1]
	}
	return b.params[0]
}

// Align implements Aligner. The returned slices are freshly allocated.
func (b *Banded) Align(query, target []byte, seed Seed, p Profile) (Raw, error) {
	if seed.QueryPos < 0 || seed.QueryPos >= len(query) || seed.TargetPos < 0 || seed.TargetPos >= len(target) {
		return Raw{}, fmt.Errorf("engine: seed (%d,%d) outside reads (%d,%d): %w",
			seed.QueryPos, seed.TargetPos, len(query), len(target), ErrNoAlignment)
	}
	params := b.Params(p)
	band := max(params.Band, 1)

	qs, qe, ts, te := Overlap(len(query), len(target), seed)
	if qe <= qs {
		return Raw{}, ErrNoAlignment
	}

	s := b.pool.Get().(*scratch)
	defer b.pool.Put(s)

	qa, ta := s.align(query[qs:qe], target[ts:te], band)
	if len(qa) == 0 {
		return Raw{}, ErrNoAlignment
	}

	// Trim columns at both ends until each side opens and closes on a
	// matched base.
	lo, hi := 0, len(qa)
	for lo < hi && qa[lo] != ta[lo] {
		if qa[lo] != gap {
			qs++
		}
		if ta[lo] != gap {
			ts++
		}
		lo++
	}
	for hi > lo && qa[hi-1] != ta[hi-1] {
		if qa[hi-1] != gap {
			qe--
		}
		if ta[hi-1] != gap {
			te--
		}
		hi--
	}
	if hi == lo {
		return Raw{}, ErrNoAlignment
	}

	raw := Raw{
		QueryStart:  qs,
		QueryEnd:    qe,
		TargetStart: ts,
		TargetEnd:   te,
		Query:       append([]byte(nil), qa[lo:hi]...),
		Target:      append([]byte(nil), ta[lo:hi]...),
	}
	if 1-raw.Identity() > params.MaxDiffRate {
		return Raw{}, fmt.Errorf("engine: identity %.3f below profile %s limit: %w", raw.Identity(), p, ErrNoAlignment)
	}
	return raw, nil
}

// align fills a banded edit-distance table for q against t and traces it
// back. Cell (i, j) lives at column j-i+band of row i. It returns nil
// slices when the end cell falls outside the band.
func (s *scratch) align(q, t []byte, band int) ([]byte, []byte) {
	n, m := len(q), len(t)
	if n-m > band || m-n > band {
		return nil, nil
	}
	width := 2*band + 1
	const inf int32 = math.MaxInt32 / 2

	s.prev = grow32(s.prev, width)
	s.cur = grow32(s.cur, width)
	s.trace = growBytes(s.trace, (n+1)*width)

	for k := range s.prev {
		j := k - band
		if j >= 0 && j <= m {
			s.prev[k] = int32(j)
			s.trace[k] = fromLeft
		} else {
			s.prev[k] = inf
		}
	}

	for i := 1; i <= n; i++ {
		row := s.trace[i*width : (i+1)*width]
		for k := range s.cur {
			j := i - band + k
			if j < 0 || j > m {
				s.cur[k] = inf
				continue
			}
			if j == 0 {
				s.cur[k] = int32(i)
				row[k] = fromUp
				continue
			}
			best, dir := inf, fromDiag
			if d := s.prev[k]; d < inf {
				if q[i-1] != t[j-1] {
					d++
				}
				best = d
			}
			if k+1 < width {
				if u := s.prev[k+1] + 1; u < best {
					best, dir = u, fromUp
				}
			}
			if k > 0 {
				if l := s.cur[k-1] + 1; l < best {
					best, dir = l, fromLeft
				}
			}
			s.cur[k] = best
			row[k] = dir
		}
		s.prev, s.cur = s.cur, s.prev
	}

	s.q, s.t = s.q[:0], s.t[:0]
	i, j := n, m
	for i > 0 || j > 0 {
		switch s.trace[i*width+j-i+band] {
		case fromDiag:
			i--
			j--
			s.q = append(s.q, q[i])
			s.t = append(s.t, t[j])
		case fromUp:
			i--
			s.q = append(s.q, q[i])
			s.t = append(s.t, gap)
		default:
			j--
			s.q = append(s.q, gap)
			s.t = append(s.t, t[j])
		}
	}
	reverse(s.q)
	reverse(s.t)
	return s.q, s.t
}

func grow32(s []int32, n int) []int32 {
	if cap(s) < n {
		return make([]int32, n)
	}
	return s[:n]
}

func growBytes(s []byte, n int) []byte {
	if cap(s) < n {
		return make([]byte, n)
	}
	return s[:n]
}

func reverse(s []byte) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
