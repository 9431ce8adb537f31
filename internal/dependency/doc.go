// Package dependency resolves the textual dependency patterns a TestSpec
// declares into concrete edges between TestCases.
//
// # Core Concepts
//
// Graph: the set of known execute-directory IDs a run's dependency patterns
// are matched against. It holds no edges itself -- Resolve computes those.
//
// PatternDependency: one unresolved glob + result-predicate pair, as
// declared on a TestSpec, before resolution.
//
// ResolvedEdge: a concrete From-depends-on-To edge produced by matching a
// PatternDependency's glob against every known node ID.
//
// # Resolution order
//
// MatchCandidates tries four glob tiers in order and stops at the first
// tier that matches anything:
//
//  1. sibling of fromXdir: basename(fromXdir)/pattern
//  2. sibling-of-sibling: basename(fromXdir)/*/pattern
//  3. the pattern as-is
//  4. the pattern as a suffix: *pattern
//
// # Cycle detection
//
// DetectCycles runs a three-color DFS over the resolved edge set and
// reports the first cycle found. Dependency patterns are data-driven from
// test files, so a cycle is a reachable user error, not something a static
// graph can rule out by construction.
//
// # Thread safety
//
// Graph is not thread-safe; the engine builds one per run, single-threaded,
// before concurrent scheduling starts.
package dependency
