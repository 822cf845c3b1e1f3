// Package export renders the overlap graph for humans.
package export

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dusk-indust/readcns/internal/graph"
)

// ErrNotFound is returned when the target read is not in the store.
var ErrNotFound = errors.New("export: read not found")

// GenerateMermaid produces a Mermaid graph LR diagram of one target read and
// the queries that were aligned to it. Reverse-strand queries are drawn with
// dotted arrows; every arrow is labeled with the target span and identity.
func GenerateMermaid(ctx context.Context, store graph.Store, target int64) (string, error) {
	node, err := store.Read(ctx, target)
	if err != nil {
		return "", fmt.Errorf("export: read %d: %w", target, err)
	}
	if node == nil {
		return "", fmt.Errorf("export: read %d: %w", target, ErrNotFound)
	}
	ovs, err := store.Overlaps(ctx, target)
	if err != nil {
		return "", fmt.Errorf("export: overlaps %d: %w", target, err)
	}

	var sb strings.Builder
	sb.WriteString("graph LR\n")
	fmt.Fprintf(&sb, "  %s[\"%s\"]\n", nodeID(target), label(node))
	if c := node.Correction; c != nil {
		fmt.Fprintf(&sb, "  %s_cns([\"%d bases covered, depth %.1f, %d regions\"])\n",
			nodeID(target), c.CoveredBases, c.MeanDepth, c.Regions)
		fmt.Fprintf(&sb, "  %s --- %s_cns\n", nodeID(target), nodeID(target))
	}

	for _, ov := range ovs {
		q, err := store.Read(ctx, ov.Query)
		if err != nil {
			return "", fmt.Errorf("export: read %d: %w", ov.Query, err)
		}
		if q == nil {
			q = &graph.ReadNode{ID: ov.Query}
		}
		arrow := "-->"
		if ov.Reverse {
			arrow = "-.->"
		}
		fmt.Fprintf(&sb, "  %s[\"%s\"] %s|\"%d-%d %.0f%%\"| %s\n",
			nodeID(ov.Query), label(q), arrow, ov.TargetStart, ov.TargetEnd, 100*ov.Identity, nodeID(target))
	}
	return sb.String(), nil
}

func nodeID(id int64) string { return fmt.Sprintf("R%d", id) }

// label returns the read name (or id) and length, truncated for readability.
func label(r *graph.ReadNode) string {
	name := r.Name
	if name == "" {
		name = fmt.Sprintf("read %d", r.ID)
	}
	if len(name) > 40 {
		name = name[:37] + "..."
	}
	name = strings.ReplaceAll(name, `"`, "'")
	if r.Length > 0 {
		return fmt.Sprintf("%s (%d bp)", name, r.Length)
	}
	return name
}
