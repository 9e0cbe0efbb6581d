package analyzer

import (
	"github.com/depscope/depscope/pkg/classifier"
	"github.com/depscope/depscope/pkg/graph"
	"github.com/depscope/depscope/pkg/peers"
	"github.com/depscope/depscope/pkg/registry"
)

// IssueKind enumerates everything the analysis can complain about.
type IssueKind string

const (
	KindUnused       IssueKind = "unused"
	KindMissing      IssueKind = "missing"
	KindPhantom      IssueKind = "phantom"
	KindDevMismatch  IssueKind = "dev-only-mismatch"
	KindCircular     IssueKind = "circular-import"
	KindPeerConflict IssueKind = "peer-conflict"
	KindPeerMissing  IssueKind = "peer-missing"
)

// Evidence is one file+line usage, or one hop of a cycle path.
type Evidence struct {
	File   string `json:"file"`
	Line   int    `json:"line,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// Issue is a single reported problem. Pure output; never mutated after
// creation.
type Issue struct {
	Kind       IssueKind  `json:"kind"`
	Severity   string     `json:"severity"`
	Confidence string     `json:"confidence,omitempty"`
	Name       string     `json:"name,omitempty"` // package name when applicable
	Message    string     `json:"message"`
	Suggestion string     `json:"suggestion,omitempty"`
	Evidence   []Evidence `json:"evidence,omitempty"`
}

// Summary holds per-kind issue counts.
type Summary struct {
	Unused        int `json:"unused"`
	Missing       int `json:"missing"`
	Phantom       int `json:"phantom"`
	DevMismatch   int `json:"devOnlyMismatch"`
	Circular      int `json:"circularImport"`
	PeerConflicts int `json:"peerConflicts"`
	PeerMissing   int `json:"peerMissing"`
	Files         int `json:"files"`
	Degraded      int `json:"degradedExtractions"`
}

// GraphReport is the resolved import graph in serializable form.
type GraphReport struct {
	Nodes []string    `json:"nodes"`
	Edges [][2]string `json:"edges"`
}

// Report is the sole contract toward downstream renderers. Renderers read
// it; nothing feeds back into the core.
type Report struct {
	ProjectRoot string  `json:"projectRoot"`
	Summary     Summary `json:"summary"`
	Issues      []Issue `json:"issues"`

	Classifications []classifier.Classification `json:"classifications"`

	Graph  GraphReport   `json:"graph"`
	Cycles []graph.Cycle `json:"cycles"`

	Peers *peers.Analysis `json:"peers,omitempty"`

	// Latest holds optional registry lookups, keyed by package name.
	// Absent entries mean the lookup was unavailable, not an error.
	Latest map[string]registry.VersionInfo `json:"latest,omitempty"`

	Warnings []string `json:"warnings,omitempty"`
}

// IssuesOfKind filters the issue list.
func (r *Report) IssuesOfKind(kind IssueKind) []Issue {
	var out []Issue
	for _, issue := range r.Issues {
		if issue.Kind == kind {
			out = append(out, issue)
		}
	}
	return out
}
