package migrate

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/ghmigrate/internal/githubapi"
	"github.com/temirov/ghmigrate/internal/tabular"
)

const (
	projectItemsQueryConstant = `query($projectId: ID!, $first: Int!, $after: String) {
  node(id: $projectId) {
    ... on ProjectV2 {
      items(first: $first, after: $after) {
        nodes {
          id
          content {
            __typename
            ... on Issue {
              id
              number
              title
              url
              body
              repository { id nameWithOwner }
              issueType { id name }
              milestone { id title }
              assignees(first: 100) { nodes { id login name } }
              labels(first: 100) { nodes { id name } }
              comments(first: 100) {
                nodes {
                  id
                  body
                  createdAt
                  author { login ... on User { name } }
                }
              }
            }
          }
        }
        pageInfo { hasNextPage endCursor }
      }
    }
  }
}`
	issueTypeNameConstant              = "Issue"
	issuesSheetNameConstant            = "Issues"
	projectIDVariableConstant          = "projectId"
	pageSizeVariableConstant           = "first"
	sourceProjectMissingConstant       = "source project id required for extraction"
	extractionStartedMessageConstant   = "Extracting issues from project"
	extractionCompletedMessageConstant = "Extracted issues"
	logFieldProjectConstant            = "project"
	logFieldOutputConstant             = "output"
	logFieldCountConstant              = "count"
	columnIssueTitleConstant           = "issueTitle"
	columnIssueBodyConstant            = "issueBody"
	columnAssigneeIDsConstant          = "assigneeIds"
	columnLabelIDsConstant             = "labelIds"
	columnCommentsConstant             = "comments"
	columnCommentAuthorsConstant       = "commentAuthors"
	columnIssueTypeIDConstant          = "issueTypeId"
	columnMilestoneIDConstant          = "milestoneId"
	columnRepoIDConstant               = "repoId"
	columnProjectIDConstant            = "projectId"
	nodeTypeNameKeyConstant            = "__typename"
	nodeContentKeyConstant             = "content"
	nodeNameKeyConstant                = "name"
	nodeLoginKeyConstant               = "login"
	nodeTitleKeyConstant               = "title"
	nodeBodyKeyConstant                = "body"
	nodeIDKeyConstant                  = "id"
	nodeListKeyConstant                = "nodes"
	nodeAuthorKeyConstant              = "author"
	nodeRepositoryKeyConstant          = "repository"
	nodeIssueTypeKeyConstant           = "issueType"
	nodeMilestoneKeyConstant           = "milestone"
	nodeAssigneesKeyConstant           = "assignees"
	nodeLabelsKeyConstant              = "labels"
	nodeCommentsKeyConstant            = "comments"
	projectNodeKeyConstant             = "node"
	projectItemsKeyConstant            = "items"
	projectPageInfoKeyConstant         = "pageInfo"
)

var (
	errSourceProjectMissing = errors.New(sourceProjectMissingConstant)

	extractedIssueColumns = []string{
		columnIssueTitleConstant,
		columnIssueBodyConstant,
		columnAssigneeIDsConstant,
		columnLabelIDsConstant,
		columnCommentsConstant,
		columnCommentAuthorsConstant,
		columnIssueTypeIDConstant,
		columnMilestoneIDConstant,
		columnRepoIDConstant,
	}
)

// ExtractSummary reports the outcome of ExtractIssues.
type ExtractSummary struct {
	Extracted int
	Output    string
}

// ExtractIssues pages through a project's issues and writes them as an Issues sheet.
//
// An empty projectID falls back to the configured source project. A positive limit bounds both the number of rows
// and the number of pages requested.
func (migrator *Migrator) ExtractIssues(executionContext context.Context, projectID string, outputPath string, limit int) (ExtractSummary, error) {
	if clientError := migrator.requireClient(); clientError != nil {
		return ExtractSummary{}, clientError
	}
	projectID = strings.TrimSpace(projectID)
	if len(projectID) == 0 {
		projectID = migrator.configuration.Project.SourceProjectID
	}
	if len(projectID) == 0 {
		return ExtractSummary{}, errSourceProjectMissing
	}

	pageSize := migrator.configuration.Processing.BatchSize
	maxPages := 0
	if limit > 0 {
		maxPages = limit/pageSize + 1
	}

	migrator.logger.Info(extractionStartedMessageConstant, zap.String(logFieldProjectConstant, projectID))

	projectItems, pagingError := migrator.client.ExecutePagedGraphQL(
		executionContext,
		projectItemsQueryConstant,
		map[string]any{projectIDVariableConstant: projectID, pageSizeVariableConstant: pageSize},
		[]string{projectNodeKeyConstant, projectItemsKeyConstant, projectPageInfoKeyConstant},
		[]string{projectNodeKeyConstant, projectItemsKeyConstant, nodeListKeyConstant},
		maxPages,
	)
	if pagingError != nil {
		return ExtractSummary{}, pagingError
	}

	sheet := tabular.NewSheet(issuesSheetNameConstant, extractedIssueColumns...)
	for _, projectItem := range projectItems {
		if limit > 0 && len(sheet.Rows) >= limit {
			break
		}
		content, _ := githubapi.LookupPath(projectItem, nodeContentKeyConstant)
		if githubapi.LookupString(content, nodeTypeNameKeyConstant) != issueTypeNameConstant {
			continue
		}
		sheet.AppendRow(migrator.extractedIssueRow(content))
	}

	if writeError := writeSheets(outputPath, sheet); writeError != nil {
		return ExtractSummary{}, writeError
	}

	migrator.logger.Info(extractionCompletedMessageConstant, zap.Int(logFieldCountConstant, len(sheet.Rows)), zap.String(logFieldOutputConstant, outputPath))
	return ExtractSummary{Extracted: len(sheet.Rows), Output: outputPath}, nil
}

func (migrator *Migrator) extractedIssueRow(issue any) tabular.Row {
	var assignees []string
	for _, assignee := range nodeList(issue, nodeAssigneesKeyConstant) {
		assignees = append(assignees, displayName(assignee))
	}

	var labelNames []string
	for _, label := range nodeList(issue, nodeLabelsKeyConstant) {
		labelNames = append(labelNames, githubapi.LookupString(label, nodeNameKeyConstant))
	}

	var commentBodies, commentAuthors []string
	for _, comment := range nodeList(issue, nodeCommentsKeyConstant) {
		commentBodies = append(commentBodies, tabular.Sanitize(githubapi.LookupString(comment, nodeBodyKeyConstant)))
		author, _ := githubapi.LookupPath(comment, nodeAuthorKeyConstant)
		commentAuthors = append(commentAuthors, displayName(author))
	}

	return tabular.Row{
		columnIssueTitleConstant:     tabular.Sanitize(githubapi.LookupString(issue, nodeTitleKeyConstant)),
		columnIssueBodyConstant:      tabular.Sanitize(githubapi.LookupString(issue, nodeBodyKeyConstant)),
		columnAssigneeIDsConstant:    migrator.joinMultiValue(assignees),
		columnLabelIDsConstant:       migrator.joinMultiValue(labelNames),
		columnCommentsConstant:       migrator.joinMultiValue(commentBodies),
		columnCommentAuthorsConstant: migrator.joinMultiValue(commentAuthors),
		columnIssueTypeIDConstant:    githubapi.LookupString(issue, nodeIssueTypeKeyConstant, nodeNameKeyConstant),
		columnMilestoneIDConstant:    githubapi.LookupString(issue, nodeMilestoneKeyConstant, nodeTitleKeyConstant),
		columnRepoIDConstant:         githubapi.LookupString(issue, nodeRepositoryKeyConstant, nodeIDKeyConstant),
	}
}

func nodeList(parent any, connectionKey string) []any {
	nodes, _ := githubapi.LookupPath(parent, connectionKey, nodeListKeyConstant)
	nodeSlice, _ := nodes.([]any)
	return nodeSlice
}

// displayName prefers the profile name over the login.
func displayName(actor any) string {
	if name := strings.TrimSpace(githubapi.LookupString(actor, nodeNameKeyConstant)); len(name) > 0 {
		return name
	}
	return githubapi.LookupString(actor, nodeLoginKeyConstant)
}
