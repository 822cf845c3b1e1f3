// Package alignment rewrites raw pairwise alignments into the indel-only form
// consumed by the consensus pool and masks columns whose local identity is too
// low to be trusted.
//
// Both sides of an alignment are byte slices of equal length over the base
// alphabet plus Gap. Nothing in this package retains its inputs.
package alignment

import (
	"errors"
	"fmt"
)

const (
	// Gap marks an insertion/deletion column.
	Gap byte = '-'

	// Sentinel replaces a query base that sits inside a low-identity window.
	Sentinel byte = 'N'
)

var (
	// ErrLengthMismatch is returned when the two sides of an alignment differ
	// in length.
	ErrLengthMismatch = errors.New("alignment: aligned sequences differ in length")

	// ErrInvalidWindow is returned for a non-positive identity window.
	ErrInvalidWindow = errors.New("alignment: window width must be positive")

	// ErrInvalidThreshold is returned for an identity threshold outside (0,1].
	ErrInvalidThreshold = errors.New("alignment: identity threshold must be in (0,1]")
)

// NormalizeGaps rewrites every mismatch column of q/t into an insertion
// followed by a deletion, so the result contains only matches and indels.
// When push is set, gaps are then nudged right onto the nearest matching base
// without ever crossing the end of the alignment.
//
// The returned slices are freshly allocated, have equal length, and keep the
// non-gap content of each side unchanged.
func NormalizeGaps(q, t []byte, push bool) (qn, tn []byte, err error) {
	return AppendNormalized(nil, nil, q, t, push)
}

// AppendNormalized is NormalizeGaps writing into caller-owned buffers. The
// normalized columns replace the contents of qdst and tdst.
func AppendNormalized(qdst, tdst, q, t []byte, push bool) (qn, tn []byte, err error) {
	if len(q) != len(t) {
		return nil, nil, fmt.Errorf("normalize gaps: %d vs %d columns: %w", len(q), len(t), ErrLengthMismatch)
	}

	qn, tn = qdst[:0], tdst[:0]
	for i := range q {
		qc, tc := q[i], t[i]
		if qc != tc && qc != Gap && tc != Gap {
			qn = append(qn, Gap, qc)
			tn = append(tn, tc, Gap)
			continue
		}
		qn = append(qn, qc)
		tn = append(tn, tc)
	}

	if push {
		pushGaps(qn, tn)
	}
	return qn, tn, nil
}

// pushGaps moves a gap at column i to the end of its run when the first base
// after the run matches the base facing the gap.
func pushGaps(qn, tn []byte) {
	n := len(qn)
	for i := 0; i < n-1; i++ {
		if tn[i] == Gap {
			if j := nextBase(tn, i+1); j < n && tn[j] == qn[i] {
				tn[i], tn[j] = tn[j], Gap
			}
		}
		if qn[i] == Gap {
			if j := nextBase(qn, i+1); j < n && qn[j] == tn[i] {
				qn[i], qn[j] = qn[j], Gap
			}
		}
	}
}

// nextBase returns the index of the first non-gap byte in s at or after from,
// or len(s).
func nextBase(s []byte, from int) int {
	j := from
	for j < len(s) && s[j] == Gap {
		j++
	}
	return j
}
