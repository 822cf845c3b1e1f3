package runner

import "fmt"

// ProgressReporter emits progress events through a buffered channel.
type ProgressReporter struct {
	ch chan ProgressEvent
}

// EventsPerJob is the number of events Run emits for every job.
const EventsPerJob = 3

// NewProgressReporter creates a ProgressReporter whose channel holds every
// event Run emits for jobs jobs, and never fewer than 64.
func NewProgressReporter(jobs int) *ProgressReporter {
	return &ProgressReporter{
		ch: make(chan ProgressEvent, max(64, jobs*EventsPerJob)),
	}
}

// Emit sends a progress event without blocking. A slow subscriber loses
// events once the buffer is full, so anything that must not be lost is
// handled in Run's callback rather than by the subscriber.
func (pr *ProgressReporter) Emit(event ProgressEvent) {
	select {
	case pr.ch <- event:
	default:
	}
}

// Subscribe returns a read-only channel for consuming progress events.
func (pr *ProgressReporter) Subscribe() <-chan ProgressEvent {
	return pr.ch
}

// Close closes the progress event channel.
func (pr *ProgressReporter) Close() {
	close(pr.ch)
}

// FormatProgress formats a ProgressEvent as a human-readable status line.
func FormatProgress(event ProgressEvent) string {
	switch event.Status {
	case ProgressPending:
		return fmt.Sprintf("  ○ worker %d (pending)", event.Worker)
	case ProgressWorking:
		return fmt.Sprintf("  ● worker %d...", event.Worker)
	case ProgressComplete:
		return fmt.Sprintf("  ✓ worker %d complete", event.Worker)
	case ProgressFailed:
		return fmt.Sprintf("  ✗ worker %d failed: %s", event.Worker, event.Message)
	default:
		return fmt.Sprintf("  ? worker %d (unknown status)", event.Worker)
	}
}
