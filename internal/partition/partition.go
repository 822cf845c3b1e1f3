// Package partition splits a candidate list into contiguous target-id ranges,
// one per worker.
package partition

import (
	"errors"
	"fmt"
	"slices"

	"github.com/dusk-indust/readcns/internal/candidate"
)

var (
	// ErrInvalidWorkers is returned for a worker count below one.
	ErrInvalidWorkers = errors.New("partition: workers must be >= 1")
	// ErrInvalidRange is returned when minID > maxID or a candidate lies
	// outside [minID, maxID].
	ErrInvalidRange = errors.New("partition: target id out of range")
)

// Group is one worker's share of the candidates. All candidates for a given
// target id land in the same group.
type Group struct {
	Candidates []candidate.Extension
	MinID      int64
	MaxID      int64
}

// Targets returns the number of distinct target ids in the group.
func (g Group) Targets() int {
	n := 0
	for i, c := range g.Candidates {
		if i == 0 || c.TargetID != g.Candidates[i-1].TargetID {
			n++
		}
	}
	return n
}

// Split stable-sorts cands by target id in place and cuts the sorted list
// into at most workers groups. Each cut advances a boundary in steps of
// ceil((maxID-minID+1)/workers) until it passes the next unassigned target,
// so a target never straddles two groups. The last group takes whatever is
// left. Empty groups are never produced.
func Split(cands []candidate.Extension, minID, maxID int64, workers int) ([]Group, error) {
	if workers < 1 {
		return nil, ErrInvalidWorkers
	}
	if minID > maxID {
		return nil, fmt.Errorf("partition: min %d > max %d: %w", minID, maxID, ErrInvalidRange)
	}
	for _, c := range cands {
		if c.TargetID < minID || c.TargetID > maxID {
			return nil, fmt.Errorf("partition: target %d not in [%d, %d]: %w", c.TargetID, minID, maxID, ErrInvalidRange)
		}
	}
	if len(cands) == 0 {
		return nil, nil
	}

	slices.SortStableFunc(cands, func(a, b candidate.Extension) int {
		switch {
		case a.TargetID < b.TargetID:
			return -1
		case a.TargetID > b.TargetID:
			return 1
		}
		return 0
	})

	total := maxID - minID + 1
	span := (total + int64(workers) - 1) / int64(workers)

	groups := make([]Group, 0, workers)
	boundary := minID
	i := 0
	for i < len(cands) {
		j := len(cands)
		if len(groups) < workers-1 {
			for boundary <= cands[i].TargetID {
				boundary += span
			}
			j = i + 1
			for j < len(cands) && cands[j].TargetID < boundary {
				j++
			}
		}
		groups = append(groups, Group{
			Candidates: cands[i:j:j],
			MinID:      cands[i].TargetID,
			MaxID:      cands[j-1].TargetID,
		})
		i = j
	}
	return groups, nil
}
