package dependency

import (
	"path"
	"path/filepath"
	"strings"
)

// MatchCandidates finds every known execute directory that matches pattern
// relative to fromXdir, following the same four-tier fallback order as the
// original resolver: (1) basename(fromXdir)/pattern, (2)
// basename(fromXdir)/*/pattern, (3) pattern, (4) *pattern. The first tier
// that matches at least one candidate wins; matching stops there.
func MatchCandidates(fromXdir, pattern string, known []string) []string {
	base := path.Dir(fromXdir)
	if base == "." {
		base = ""
	} else if base != "" {
		base += "/"
	}

	tiers := [4][]string{}

	p1 := path.Clean(base + pattern)
	p2 := base + "*/" + pattern
	p3 := pattern
	p4 := "*" + pattern

	for _, xdir := range known {
		if ok, _ := filepath.Match(p1, xdir); ok {
			tiers[0] = append(tiers[0], xdir)
		}
		if ok, _ := filepath.Match(p2, xdir); ok {
			tiers[1] = append(tiers[1], xdir)
		}
		if ok, _ := filepath.Match(p3, xdir); ok {
			tiers[2] = append(tiers[2], xdir)
		}
		if ok, _ := filepath.Match(p4, xdir); ok {
			tiers[3] = append(tiers[3], xdir)
		}
	}

	for _, tier := range tiers {
		if len(tier) > 0 {
			return dedupeSorted(tier)
		}
	}
	return nil
}

func dedupeSorted(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// ExpandCount resolves expect (a "+", "*", "?", or decimal literal count)
// against the number of candidates actually matched, returning whether the
// match count satisfies it.
func ExpandCount(expect string, n int) bool {
	switch expect {
	case "", "*":
		return n >= 0
	case "+":
		return n >= 1
	case "?":
		return n == 0 || n == 1
	default:
		count := 0
		for _, r := range expect {
			if r < '0' || r > '9' {
				return n == 0
			}
			count = count*10 + int(r-'0')
		}
		return n == count
	}
}

// ResolvedEdge is one concrete dependency edge produced by Resolve: from
// depends on To, under the original pattern's result predicate.
type ResolvedEdge struct {
	From       NodeID
	To         NodeID
	ResultExpr string
}

// PatternDependency is the unresolved form attached to a node before
// resolution: a glob pattern plus its result predicate, as declared on a
// TestSpec.
type PatternDependency struct {
	Pattern    string
	ResultExpr string
}

// Resolve turns every node's declared PatternDependency list into concrete
// ResolvedEdge values by matching against the full set of known execute
// directories (the node IDs already registered in the graph), following the
// four-tier glob resolution in MatchCandidates. Nodes without a matching
// counterpart produce no edge for that pattern (the dependency is simply
// absent, not an error) -- the caller decides whether an unmatched
// non-optional pattern should block the test.
func Resolve(g *Graph, patterns map[NodeID][]PatternDependency) []ResolvedEdge {
	known := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		known = append(known, string(id))
	}

	var edges []ResolvedEdge
	for from, deps := range patterns {
		for _, dep := range deps {
			if strings.TrimSpace(dep.Pattern) == "" {
				continue
			}
			matches := MatchCandidates(string(from), dep.Pattern, known)
			for _, m := range matches {
				if NodeID(m) == from {
					continue
				}
				edges = append(edges, ResolvedEdge{From: from, To: NodeID(m), ResultExpr: dep.ResultExpr})
			}
		}
	}
	return edges
}

// AnalyzeEdges builds the implicit edges from an analyze test to every
// non-analyze sibling sharing its execute directory group, the way
// connect_analyze_dependencies wires the analyze phase of a staged test
// group to each of its stage executables.
func AnalyzeEdges(analyze NodeID, siblings []NodeID, isAnalyze map[NodeID]bool) []ResolvedEdge {
	var edges []ResolvedEdge
	for _, s := range siblings {
		if isAnalyze[s] {
			continue
		}
		edges = append(edges, ResolvedEdge{From: analyze, To: s})
	}
	return edges
}
