package relationships

import "strings"

// EdgeKind names a relationship kind.
type EdgeKind string

// Supported relationship kinds.
const (
	EdgeKindSubIssue  EdgeKind = EdgeKind("sub_issue")
	EdgeKindBlockedBy EdgeKind = EdgeKind("blocked_by")
)

// Edge is a directed relationship. For sub-issue edges Source is the parent and Target the child;
// for blocked-by edges Source is the blocked issue and Target the blocker.
type Edge struct {
	Source string
	Target string
	Kind   EdgeKind
}

// ProcessedEdgeSet remembers edges already applied during a run.
type ProcessedEdgeSet struct {
	edges map[Edge]struct{}
}

// NewProcessedEdgeSet constructs an empty set.
func NewProcessedEdgeSet() *ProcessedEdgeSet {
	return &ProcessedEdgeSet{edges: make(map[Edge]struct{})}
}

// Contains reports whether the edge was already applied.
func (set *ProcessedEdgeSet) Contains(edge Edge) bool {
	_, exists := set.edges[edge]
	return exists
}

// Add records an applied edge.
func (set *ProcessedEdgeSet) Add(edge Edge) {
	set.edges[edge] = struct{}{}
}

// Len returns the number of applied edges.
func (set *ProcessedEdgeSet) Len() int {
	return len(set.edges)
}

type relationOrigin string

const (
	relationOriginParent    relationOrigin = relationOrigin("parent relationship")
	relationOriginSubIssue  relationOrigin = relationOrigin("sub-issue")
	relationOriginBlockedBy relationOrigin = relationOrigin("blocked-by")
	relationOriginBlocking  relationOrigin = relationOrigin("blocking")
)

type plannedEdge struct {
	edge      Edge
	origin    relationOrigin
	relatedID string
}

// BuildEdges converts one row's relationship lists into directed edges in processing order.
func BuildEdges(issueID string, parentID string, subIssueIDs []string, blockedByIDs []string, blockingIDs []string) []Edge {
	planned := planEdges(issueID, parentID, subIssueIDs, blockedByIDs, blockingIDs)
	edges := make([]Edge, 0, len(planned))
	for _, plannedRelation := range planned {
		edges = append(edges, plannedRelation.edge)
	}
	return edges
}

func planEdges(issueID string, parentID string, subIssueIDs []string, blockedByIDs []string, blockingIDs []string) []plannedEdge {
	issueID = strings.TrimSpace(issueID)
	var planned []plannedEdge

	if trimmedParentID := strings.TrimSpace(parentID); len(trimmedParentID) > 0 {
		planned = append(planned, plannedEdge{
			edge:      Edge{Source: trimmedParentID, Target: issueID, Kind: EdgeKindSubIssue},
			origin:    relationOriginParent,
			relatedID: trimmedParentID,
		})
	}
	for _, childID := range trimmedIdentifiers(subIssueIDs) {
		planned = append(planned, plannedEdge{
			edge:      Edge{Source: issueID, Target: childID, Kind: EdgeKindSubIssue},
			origin:    relationOriginSubIssue,
			relatedID: childID,
		})
	}
	for _, blockerID := range trimmedIdentifiers(blockedByIDs) {
		planned = append(planned, plannedEdge{
			edge:      Edge{Source: issueID, Target: blockerID, Kind: EdgeKindBlockedBy},
			origin:    relationOriginBlockedBy,
			relatedID: blockerID,
		})
	}
	for _, blockedID := range trimmedIdentifiers(blockingIDs) {
		planned = append(planned, plannedEdge{
			edge:      Edge{Source: blockedID, Target: issueID, Kind: EdgeKindBlockedBy},
			origin:    relationOriginBlocking,
			relatedID: blockedID,
		})
	}
	return planned
}

func trimmedIdentifiers(rawIdentifiers []string) []string {
	identifiers := make([]string, 0, len(rawIdentifiers))
	for _, rawIdentifier := range rawIdentifiers {
		if identifier := strings.TrimSpace(rawIdentifier); len(identifier) > 0 {
			identifiers = append(identifiers, identifier)
		}
	}
	return identifiers
}
