package relationships

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/temirov/ghmigrate/internal/githubapi"
)

const (
	issueContextQueryConstant = `query ($id: ID!) {
  node(id: $id) {
    ... on Issue {
      number
      databaseId
      repository { name owner { login } }
    }
  }
}`
	addSubIssueMutationConstant = `mutation ($parent: ID!, $child: ID!) {
  addSubIssue(input: { issueId: $parent, subIssueId: $child }) {
    issue { id }
    subIssue { id }
  }
}`

	subIssuesFeatureConstant           = "sub_issues"
	blockedByEndpointTemplateConstant  = "/repos/%s/%s/issues/%d/dependencies/blocked_by"
	relationFailureTemplateConstant    = "Failed to add %s: %s: %s"
	issueNotFoundTemplateConstant      = "issue not found: %s"
	incompleteContextTemplateConstant  = "issue context incomplete for %s"
	unknownEdgeKindTemplateConstant    = "unknown relationship kind %q"
	executorMissingMessageConstant     = "relationship executor not configured"
	edgeSetMissingMessageConstant      = "processed edge set not configured"
	issueIDRequiredMessageConstant     = "issue id required"
	edgeAlreadyAppliedMessageConstant  = "Relationship already processed"
	dryRunEdgeMessageConstant          = "[DRY RUN] Would add relationship"
	edgeAppliedMessageConstant         = "Added relationship"
	edgeFailedMessageConstant          = "Failed to add relationship"
	stoppingAfterFailureMessage        = "Stopping relationship processing after failure"
	logFieldSourceConstant             = "source"
	logFieldTargetConstant             = "target"
	logFieldKindConstant               = "kind"
	logFieldIssueIDConstant            = "issue_id"
	logFieldRemainingConstant          = "remaining"
	blockerIssueIDPayloadKeyConstant   = "issue_id"
	subIssueParentVariableConstant     = "parent"
	subIssueChildVariableConstant      = "child"
	issueContextIdentifierVariableName = "id"
)

// APIExecutor is the subset of githubapi.Client used to apply relationships.
type APIExecutor interface {
	ExecuteGraphQL(executionContext context.Context, query string, variables map[string]any, features []string, timeout time.Duration) (map[string]any, error)
	Post(executionContext context.Context, path string, payload any) (json.RawMessage, error)
}

// Dependencies describes collaborators required by Builder.
type Dependencies struct {
	Executor APIExecutor
	Logger   *zap.Logger
}

// Options configures run-wide behavior.
type Options struct {
	DryRun          bool
	ContinueOnError bool
}

// Result summarizes ProcessRelationships for one issue.
type Result struct {
	RelationshipsAdded int
	Errors             []string
	Success            bool
}

// IssueContext locates an issue for REST endpoints.
type IssueContext struct {
	Owner      string
	Repository string
	Number     int64
	DatabaseID int64
}

var (
	errExecutorMissing = errors.New(executorMissingMessageConstant)
	errEdgeSetMissing  = errors.New(edgeSetMissingMessageConstant)
	errIssueIDRequired = errors.New(issueIDRequiredMessageConstant)
)

// Builder applies relationship edges, skipping edges already present in the processed set.
type Builder struct {
	executor       APIExecutor
	logger         *zap.Logger
	options        Options
	processedEdges *ProcessedEdgeSet
}

// NewBuilder constructs a Builder that records applied edges in processedEdges.
func NewBuilder(dependencies Dependencies, options Options, processedEdges *ProcessedEdgeSet) (*Builder, error) {
	if dependencies.Executor == nil {
		return nil, errExecutorMissing
	}
	if processedEdges == nil {
		return nil, errEdgeSetMissing
	}
	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{executor: dependencies.Executor, logger: logger, options: options, processedEdges: processedEdges}, nil
}

// ProcessRelationships applies the parent, sub-issue, blocked-by and blocking relations of one issue.
//
// An edge counts toward RelationshipsAdded only the first time it is applied. Without continue-on-error the
// first failure marks the result unsuccessful and the remaining edges are skipped.
func (builder *Builder) ProcessRelationships(executionContext context.Context, issueID string, parentID string, subIssueIDs []string, blockedByIDs []string, blockingIDs []string) Result {
	result := Result{Success: true}
	if len(strings.TrimSpace(issueID)) == 0 {
		result.Success = false
		result.Errors = append(result.Errors, errIssueIDRequired.Error())
		return result
	}

	planned := planEdges(issueID, parentID, subIssueIDs, blockedByIDs, blockingIDs)
	for plannedIndex, plannedRelation := range planned {
		applied, applyError := builder.ApplyEdge(executionContext, plannedRelation.edge)
		if applyError != nil {
			result.Errors = append(result.Errors, fmt.Sprintf(relationFailureTemplateConstant, plannedRelation.origin, plannedRelation.relatedID, applyError))
			if !builder.options.ContinueOnError {
				result.Success = false
				builder.logger.Warn(
					stoppingAfterFailureMessage,
					zap.String(logFieldIssueIDConstant, issueID),
					zap.Int(logFieldRemainingConstant, len(planned)-plannedIndex-1),
				)
				return result
			}
			continue
		}
		if applied {
			result.RelationshipsAdded++
		}
	}
	return result
}

// ApplyEdge submits one edge unless it was already applied in this run. It reports whether the edge was newly applied.
func (builder *Builder) ApplyEdge(executionContext context.Context, edge Edge) (bool, error) {
	edgeFields := []zap.Field{
		zap.String(logFieldSourceConstant, edge.Source),
		zap.String(logFieldTargetConstant, edge.Target),
		zap.String(logFieldKindConstant, string(edge.Kind)),
	}

	if builder.processedEdges.Contains(edge) {
		builder.logger.Debug(edgeAlreadyAppliedMessageConstant, edgeFields...)
		return false, nil
	}

	if builder.options.DryRun {
		builder.logger.Info(dryRunEdgeMessageConstant, edgeFields...)
		builder.processedEdges.Add(edge)
		return true, nil
	}

	var applyError error
	switch edge.Kind {
	case EdgeKindSubIssue:
		applyError = builder.addSubIssue(executionContext, edge.Source, edge.Target)
	case EdgeKindBlockedBy:
		applyError = builder.addBlockedBy(executionContext, edge.Source, edge.Target)
	default:
		applyError = fmt.Errorf(unknownEdgeKindTemplateConstant, edge.Kind)
	}
	if applyError != nil {
		builder.logger.Warn(edgeFailedMessageConstant, append(edgeFields, zap.Error(applyError))...)
		return false, applyError
	}

	builder.processedEdges.Add(edge)
	builder.logger.Info(edgeAppliedMessageConstant, edgeFields...)
	return true, nil
}

// IssueContext resolves owner, repository, number and database identifier of an issue node.
func (builder *Builder) IssueContext(executionContext context.Context, issueNodeID string) (IssueContext, error) {
	data, queryError := builder.executor.ExecuteGraphQL(executionContext, issueContextQueryConstant, map[string]any{issueContextIdentifierVariableName: issueNodeID}, nil, 0)
	if queryError != nil {
		return IssueContext{}, queryError
	}

	node, found := githubapi.LookupPath(data, "node")
	if !found {
		return IssueContext{}, fmt.Errorf(issueNotFoundTemplateConstant, issueNodeID)
	}

	issueContext := IssueContext{
		Owner:      githubapi.LookupString(node, "repository", "owner", "login"),
		Repository: githubapi.LookupString(node, "repository", "name"),
	}
	number, numberFound := githubapi.LookupInt(node, "number")
	databaseID, databaseIDFound := githubapi.LookupInt(node, "databaseId")
	if !numberFound || !databaseIDFound || len(issueContext.Owner) == 0 || len(issueContext.Repository) == 0 {
		return IssueContext{}, fmt.Errorf(incompleteContextTemplateConstant, issueNodeID)
	}
	issueContext.Number = number
	issueContext.DatabaseID = databaseID
	return issueContext, nil
}

func (builder *Builder) addSubIssue(executionContext context.Context, parentID string, childID string) error {
	_, mutationError := builder.executor.ExecuteGraphQL(executionContext, addSubIssueMutationConstant, map[string]any{
		subIssueParentVariableConstant: parentID,
		subIssueChildVariableConstant:  childID,
	}, []string{subIssuesFeatureConstant}, 0)
	return mutationError
}

func (builder *Builder) addBlockedBy(executionContext context.Context, blockedID string, blockerID string) error {
	blockedContext, blockedError := builder.IssueContext(executionContext, blockedID)
	if blockedError != nil {
		return blockedError
	}
	blockerContext, blockerError := builder.IssueContext(executionContext, blockerID)
	if blockerError != nil {
		return blockerError
	}

	endpoint := fmt.Sprintf(blockedByEndpointTemplateConstant, blockedContext.Owner, blockedContext.Repository, blockedContext.Number)
	_, postError := builder.executor.Post(executionContext, endpoint, map[string]any{blockerIssueIDPayloadKeyConstant: blockerContext.DatabaseID})
	return postError
}
