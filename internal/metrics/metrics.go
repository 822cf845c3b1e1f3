// Package metrics counts what the correction workers do with each candidate,
// window and target.
package metrics

// Candidate outcomes.
const (
	CandidateAdded    = "added"
	CandidateRejected = "rejected" // pool full
	CandidateFailed   = "failed"   // engine found no alignment
	CandidateDropped  = "dropped"  // too short or too divergent
	CandidateInvalid  = "invalid"  // precondition violated
)

// Collector receives worker events. Implementations must be safe for
// concurrent use.
type Collector interface {
	CandidateOutcome(outcome string)
	WindowOutcome(outcome string)
	TargetDone(seconds float64)
}

// Nop implements a no-op collector.
type Nop struct{}

// Compile-time assertion that Nop implements Collector.
var _ Collector = Nop{}

// NewNop creates a new no-op collector.
func NewNop() Nop { return Nop{} }

// CandidateOutcome discards the candidate outcome.
func (Nop) CandidateOutcome(string) {}

// WindowOutcome discards the window outcome.
func (Nop) WindowOutcome(string) {}

// TargetDone discards the target timing.
func (Nop) TargetDone(float64) {}
