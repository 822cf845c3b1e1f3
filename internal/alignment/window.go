package alignment

import "fmt"

// MaskLowIdentity returns a copy of a in which every position whose local
// window identity against b falls below threshold is replaced by Sentinel.
//
// The window at position i is [i, i+k). Once fewer than k columns remain the
// window shrinks with the sequence end, so the last position is judged on a
// single column. A window wider than the alignment is clamped to its length.
//
// When a and b differ in length the unmasked copy of a is returned together
// with ErrLengthMismatch; callers that only want the old silent no-op may
// ignore the error.
func MaskLowIdentity(a, b []byte, k int, threshold float64) ([]byte, error) {
	return AppendMasked(nil, a, b, k, threshold)
}

// AppendMasked is MaskLowIdentity writing into dst, which is overwritten.
func AppendMasked(dst, a, b []byte, k int, threshold float64) ([]byte, error) {
	out := append(dst[:0], a...)
	if err := checkWindow(a, b, k); err != nil {
		return out, err
	}
	if !(threshold > 0 && threshold <= 1) {
		return out, fmt.Errorf("mask low identity: threshold %v: %w", threshold, ErrInvalidThreshold)
	}
	slideIdentity(a, b, k, func(i int, identity float64) {
		if identity < threshold {
			out[i] = Sentinel
		}
	})
	return out, nil
}

// IdentityCurve returns the rolling identity value MaskLowIdentity compares
// against its threshold, one value per column.
func IdentityCurve(a, b []byte, k int) ([]float64, error) {
	return AppendIdentityCurve(nil, a, b, k)
}

// AppendIdentityCurve is IdentityCurve writing into dst, which is overwritten.
func AppendIdentityCurve(dst []float64, a, b []byte, k int) ([]float64, error) {
	if err := checkWindow(a, b, k); err != nil {
		return dst[:0], err
	}
	curve := dst[:0]
	slideIdentity(a, b, k, func(_ int, identity float64) {
		curve = append(curve, identity)
	})
	return curve, nil
}

func checkWindow(a, b []byte, k int) error {
	if len(a) != len(b) {
		return fmt.Errorf("identity window: %d vs %d columns: %w", len(a), len(b), ErrLengthMismatch)
	}
	if k <= 0 {
		return fmt.Errorf("identity window: width %d: %w", k, ErrInvalidWindow)
	}
	return nil
}

// slideIdentity keeps a running match count over the window and reports the
// identity for every column. The tail windows shrink one column at a time and
// divide by their own width.
func slideIdentity(a, b []byte, k int, fn func(i int, identity float64)) {
	n := len(a)
	if n == 0 {
		return
	}
	if k > n {
		k = n
	}

	same := 0
	for i := 0; i < k; i++ {
		if a[i] == b[i] {
			same++
		}
	}
	fn(0, float64(same)/float64(k))

	for i := 1; i <= n-k; i++ {
		if a[i-1] == b[i-1] {
			same--
		}
		if a[i+k-1] == b[i+k-1] {
			same++
		}
		fn(i, float64(same)/float64(k))
	}

	size := k
	for i := n - k + 1; i < n; i++ {
		if a[i-1] == b[i-1] {
			same--
		}
		size--
		fn(i, float64(same)/float64(size))
	}
}
