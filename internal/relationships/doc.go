// Package relationships replays parent, sub-issue and dependency links between migrated issues.
//
// Every relationship is reduced to a directed Edge of kind sub-issue or
// blocked-by; a "blocking" link is the blocked-by edge with its roles
// swapped. A ProcessedEdgeSet owned by the caller keeps an edge from being
// submitted twice within one run.
package relationships
