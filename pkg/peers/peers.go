package peers

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"

	"github.com/Masterminds/semver/v3"
	"github.com/depscope/depscope/pkg/installed"
	"github.com/depscope/depscope/pkg/logger"
)

// Requirement is one peer declaration from an installed package.
type Requirement struct {
	Requirer        string `json:"requirer"` // name@version
	RequirerName    string `json:"requirerName"`
	RequirerVersion string `json:"requirerVersion"`
	Peer            string `json:"peer"`
	Range           string `json:"range"`
	Optional        bool   `json:"optional"`
}

// ConflictType distinguishes the two conflict shapes.
type ConflictType string

const (
	// Unsatisfied: an installed peer version fails one package's range.
	Unsatisfied ConflictType = "unsatisfied"
	// CrossPackage: multiple packages require ranges no single version
	// of the peer can satisfy at once.
	CrossPackage ConflictType = "cross-package"
)

// Conflict is one detected peer-version conflict.
type Conflict struct {
	Type              ConflictType  `json:"type"`
	Peer              string        `json:"peer"`
	Requirements      []Requirement `json:"requirements"`
	InstalledVersions []string      `json:"installedVersions,omitempty"`
	Confidence        string        `json:"confidence"` // high, low (coarse fallback)
	Suggestion        string        `json:"suggestion,omitempty"`
}

// MissingPeer is a non-optional peer with no installed package at all.
type MissingPeer struct {
	Peer        string      `json:"peer"`
	Requirement Requirement `json:"requirement"`
}

// Analysis is the full peer-dependency result.
type Analysis struct {
	Requirements []Requirement `json:"requirements"`
	Conflicts    []Conflict    `json:"conflicts"`
	Missing      []MissingPeer `json:"missing"`
	Warnings     []string      `json:"warnings,omitempty"`
}

// Resolve enumerates every peer requirement in the installed tree, checks
// each against what is actually installed, and then runs the cross-package
// intersection pass.
func Resolve(inst *installed.Registry) *Analysis {
	a := &Analysis{}
	if inst == nil || !inst.Present {
		return a
	}

	for _, pkg := range inst.Packages {
		for _, peerName := range sortedKeys(pkg.PeerDependencies) {
			rng := pkg.PeerDependencies[peerName]
			req := Requirement{
				Requirer:        pkg.Name + "@" + pkg.Version,
				RequirerName:    pkg.Name,
				RequirerVersion: pkg.Version,
				Peer:            peerName,
				Range:           rng,
				Optional:        pkg.PeerMeta[peerName].Optional,
			}
			a.Requirements = append(a.Requirements, req)
			a.checkRequirement(req, inst)
		}
	}

	a.crossPackagePass(inst)

	sort.Slice(a.Conflicts, func(i, j int) bool {
		if a.Conflicts[i].Peer != a.Conflicts[j].Peer {
			return a.Conflicts[i].Peer < a.Conflicts[j].Peer
		}
		return a.Conflicts[i].Type < a.Conflicts[j].Type
	})
	sort.Slice(a.Missing, func(i, j int) bool {
		if a.Missing[i].Peer != a.Missing[j].Peer {
			return a.Missing[i].Peer < a.Missing[j].Peer
		}
		return a.Missing[i].Requirement.Requirer < a.Missing[j].Requirement.Requirer
	})

	return a
}

// checkRequirement validates one requirement against the installed tree.
func (a *Analysis) checkRequirement(req Requirement, inst *installed.Registry) {
	versions := inst.Versions(req.Peer)
	if len(versions) == 0 {
		if !req.Optional {
			a.Missing = append(a.Missing, MissingPeer{Peer: req.Peer, Requirement: req})
		}
		return
	}

	constraint, err := semver.NewConstraint(req.Range)
	if err != nil {
		// Unparseable range: fall back to a coarse major-only check
		// rather than silently skipping the judgement.
		logger.Debugf("peers: unparseable range %q for %s", req.Range, req.Peer)
		if !coarseMajorCompatible(req.Range, versions) {
			a.Conflicts = append(a.Conflicts, Conflict{
				Type:              Unsatisfied,
				Peer:              req.Peer,
				Requirements:      []Requirement{req},
				InstalledVersions: versions,
				Confidence:        "low",
			})
		}
		return
	}

	for _, v := range versions {
		if ver, err := semver.NewVersion(v); err == nil && constraint.Check(ver) {
			return
		}
	}

	a.Conflicts = append(a.Conflicts, Conflict{
		Type:              Unsatisfied,
		Peer:              req.Peer,
		Requirements:      []Requirement{req},
		InstalledVersions: versions,
		Confidence:        "high",
	})
}

// crossPackagePass groups all requirements by peer name and checks the
// whole group by range intersection: a conflict exists when no single
// version could satisfy every requirer at once.
func (a *Analysis) crossPackagePass(inst *installed.Registry) {
	groups := make(map[string][]Requirement)
	for _, req := range a.Requirements {
		groups[req.Peer] = append(groups[req.Peer], req)
	}

	for _, peer := range sortedGroupKeys(groups) {
		reqs := groups[peer]
		if len(distinctRequirers(reqs)) < 2 {
			continue
		}

		conflict, ok := checkGroup(peer, reqs, inst.Versions(peer))
		if ok {
			a.Conflicts = append(a.Conflicts, conflict)
		}
	}
}

// checkGroup decides whether a requirement group conflicts. The second
// return value is false when the group is compatible.
func checkGroup(peer string, reqs []Requirement, versions []string) (Conflict, bool) {
	var constraints []*semver.Constraints
	var unparseable []string
	for _, req := range reqs {
		c, err := semver.NewConstraint(req.Range)
		if err != nil {
			unparseable = append(unparseable, req.Range)
			continue
		}
		constraints = append(constraints, c)
	}

	if len(unparseable) > 0 {
		// Coarse path: every range (parseable or not) must agree on the
		// major digit, otherwise flag a low-confidence conflict.
		majors := map[int]bool{}
		for _, req := range reqs {
			if m, ok := leadingMajor(req.Range); ok {
				majors[m] = true
			}
		}
		if len(majors) <= 1 {
			return Conflict{}, false
		}
		return Conflict{
			Type:              CrossPackage,
			Peer:              peer,
			Requirements:      reqs,
			InstalledVersions: versions,
			Confidence:        "low",
		}, true
	}

	// Deterministic candidate testing in place of symbolic intersection:
	// every version literal mentioned by any range, plus every installed
	// version, is tried against all constraints.
	candidates := candidateVersions(reqs, versions)

	var intersecting *semver.Version
	for _, cand := range candidates {
		if satisfiesAll(cand, constraints) {
			intersecting = cand
			break
		}
	}

	installedSatisfier := false
	for _, v := range versions {
		if ver, err := semver.NewVersion(v); err == nil && satisfiesAll(ver, constraints) {
			installedSatisfier = true
			break
		}
	}

	if intersecting != nil && (installedSatisfier || len(versions) == 0) {
		// Ranges intersect and nothing installed contradicts them.
		return Conflict{}, false
	}

	c := Conflict{
		Type:              CrossPackage,
		Peer:              peer,
		Requirements:      reqs,
		InstalledVersions: versions,
		Confidence:        "high",
	}
	if intersecting != nil {
		// The requirement strings differ but a compatible version does
		// exist; point at its major line.
		c.Suggestion = fmt.Sprintf("^%d", intersecting.Major())
	}
	return c, true
}

func satisfiesAll(v *semver.Version, constraints []*semver.Constraints) bool {
	for _, c := range constraints {
		if !c.Check(v) {
			return false
		}
	}
	return true
}

var versionLiteralRe = regexp.MustCompile(`\d+(?:\.\d+){0,2}(?:-[0-9A-Za-z.-]+)?`)

// candidateVersions collects every version literal from the group's
// ranges plus the installed versions, parsed and sorted for determinism.
func candidateVersions(reqs []Requirement, versions []string) []*semver.Version {
	seen := map[string]bool{}
	var out []*semver.Version

	add := func(raw string) {
		if seen[raw] {
			return
		}
		seen[raw] = true
		if v, err := semver.NewVersion(raw); err == nil {
			out = append(out, v)
		}
	}

	for _, req := range reqs {
		for _, lit := range versionLiteralRe.FindAllString(req.Range, -1) {
			add(lit)
		}
	}
	for _, v := range versions {
		add(v)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].LessThan(out[j]) })
	return out
}

// coarseMajorCompatible compares only the leading major digit of the
// range against each installed version.
func coarseMajorCompatible(rng string, versions []string) bool {
	want, ok := leadingMajor(rng)
	if !ok {
		// Nothing numeric to compare; do not raise noise.
		return true
	}
	for _, v := range versions {
		if got, ok := leadingMajor(v); ok && got == want {
			return true
		}
	}
	return false
}

var leadingNumberRe = regexp.MustCompile(`\d+`)

func leadingMajor(s string) (int, bool) {
	m := leadingNumberRe.FindString(s)
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return n, true
}

func distinctRequirers(reqs []Requirement) []string {
	seen := map[string]bool{}
	var out []string
	for _, r := range reqs {
		if !seen[r.RequirerName] {
			seen[r.RequirerName] = true
			out = append(out, r.RequirerName)
		}
	}
	sort.Strings(out)
	return out
}

func sortedKeys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedGroupKeys(m map[string][]Requirement) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
