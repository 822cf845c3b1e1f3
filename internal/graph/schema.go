package graph

// ReadNode is one read in the graph.
type ReadNode struct {
	ID         int64       `json:"id"`
	Name       string      `json:"name"`
	Length     int         `json:"length"`
	Correction *Correction `json:"correction,omitempty"`
}

// Correction summarizes what the consensus tally found for a target read.
type Correction struct {
	Alignments   int     `json:"alignments"`
	CoveredBases int     `json:"coveredBases"`
	MeanDepth    float64 `json:"meanDepth"`
	Regions      int     `json:"regions"`
}

// Overlap is an edge from a query read to the target read it was aligned to.
type Overlap struct {
	Query       int64   `json:"query"`
	Target      int64   `json:"target"`
	TargetStart int     `json:"targetStart"`
	TargetEnd   int     `json:"targetEnd"`
	Identity    float64 `json:"identity"`
	Reverse     bool    `json:"reverse"`
}

// Stats summarizes the graph.
type Stats struct {
	Reads     int `json:"reads"`
	Corrected int `json:"corrected"`
	Overlaps  int `json:"overlaps"`
}
