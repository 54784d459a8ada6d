package issues

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/temirov/ghmigrate/internal/githubapi"
)

const (
	// DryRunIssueID is returned for issues that were not created because of a dry run.
	DryRunIssueID = "DRY_RUN_ID"
	// DryRunProjectItemID is returned for project items that were not created because of a dry run.
	DryRunProjectItemID = "DRY_RUN_ITEM_ID"

	createIssueMutationConstant = `mutation ($repoId: ID!, $title: String!, $body: String!) {
  createIssue(input: { repositoryId: $repoId, title: $title, body: $body }) {
    issue { id number url }
  }
}`
	addToProjectMutationConstant = `mutation ($projectId: ID!, $issueId: ID!) {
  addProjectV2ItemById(input: { projectId: $projectId, contentId: $issueId }) {
    item { id }
  }
}`
	updateIssueMutationConstant = `mutation ($input: UpdateIssueInput!) {
  updateIssue(input: $input) {
    issue { id number url }
  }
}`
	addAssigneesMutationConstant = `mutation ($issueId: ID!, $assigneeIds: [ID!]!) {
  addAssigneesToAssignable(input: { assignableId: $issueId, assigneeIds: $assigneeIds }) {
    assignable { ... on Issue { id } }
  }
}`
	updateProjectFieldMutationConstant = `mutation ($projectId: ID!, $itemId: ID!, $fieldId: ID!, $value: ProjectV2FieldValue!) {
  updateProjectV2ItemFieldValue(input: { projectId: $projectId, itemId: $itemId, fieldId: $fieldId, value: $value }) {
    projectV2Item { id }
  }
}`
	addCommentMutationConstant = `mutation ($issueId: ID!, $body: String!) {
  addComment(input: { subjectId: $issueId, body: $body }) {
    commentEdge { node { id url } }
  }
}`
	addLabelsMutationConstant = `mutation ($issueId: ID!, $labelIds: [ID!]!) {
  addLabelsToLabelable(input: { labelableId: $issueId, labelIds: $labelIds }) {
    labelable { ... on Issue { id } }
  }
}`
	deleteIssueMutationConstant = `mutation ($issueId: ID!) {
  deleteIssue(input: { issueId: $issueId }) {
    clientMutationId
  }
}`

	issueTypesFeatureConstant               = "issue_types"
	repositoryIDFieldNameConstant           = "repository_id"
	projectIDFieldNameConstant              = "project_id"
	issueIDFieldNameConstant                = "issue_id"
	itemIDFieldNameConstant                 = "item_id"
	fieldIDFieldNameConstant                = "field_id"
	titleFieldNameConstant                  = "title"
	commentBodyFieldNameConstant            = "comment_body"
	assigneeIDsFieldNameConstant            = "assignee_ids"
	labelIDsFieldNameConstant               = "label_ids"
	issueFieldsFieldNameConstant            = "issue_fields"
	requiredValueMessageConstant            = "value required"
	milestoneOrTypeRequiredMessageConstant  = "milestone or issue type required"
	missingResponseFieldTemplateConstant    = "response missing %s"
	executorMissingMessageConstant          = "GraphQL executor not configured"
	invalidInputErrorTemplateConstant       = "%s: %s"
	operationErrorTemplateConstant          = "%s failed: %s"
	dryRunCreateIssueMessageConstant        = "[DRY RUN] Would create issue"
	dryRunAddToProjectMessageConstant       = "[DRY RUN] Would add issue to project"
	dryRunUpdateIssueMessageConstant        = "[DRY RUN] Would update issue fields"
	dryRunAddAssigneesMessageConstant       = "[DRY RUN] Would add assignees"
	dryRunUpdateProjectFieldMessageConstant = "[DRY RUN] Would update project field"
	dryRunAddCommentMessageConstant         = "[DRY RUN] Would add comment"
	dryRunAddLabelsMessageConstant          = "[DRY RUN] Would add labels"
	dryRunDeleteIssueMessageConstant        = "[DRY RUN] Would delete issue"
	issueCreatedMessageConstant             = "Created issue"
	issueDeletedMessageConstant             = "Deleted issue"
	logFieldTitleConstant                   = "title"
	logFieldIssueIDConstant                 = "issue_id"
	logFieldIssueNumberConstant             = "issue_number"
	logFieldProjectIDConstant               = "project_id"
	logFieldFieldIDConstant                 = "field_id"
	logFieldCountConstant                   = "count"
	createIssueOperationNameConstant        = OperationName("CreateIssue")
	addToProjectOperationNameConstant       = OperationName("AddToProject")
	updateIssueFieldsOperationNameConstant  = OperationName("UpdateIssueFields")
	addAssigneesOperationNameConstant       = OperationName("AddAssignees")
	updateProjectFieldOperationNameConstant = OperationName("UpdateProjectField")
	addCommentOperationNameConstant         = OperationName("AddComment")
	addLabelsOperationNameConstant          = OperationName("AddLabels")
	deleteIssueOperationNameConstant        = OperationName("DeleteIssue")
	createIssueResponseFieldConstant        = "createIssue.issue.id"
	addToProjectResponseFieldConstant       = "addProjectV2ItemById.item.id"
)

// OperationName identifies an issue mutation.
type OperationName string

// GraphQLExecutor issues GraphQL requests.
type GraphQLExecutor interface {
	ExecuteGraphQL(executionContext context.Context, query string, variables map[string]any, features []string, timeout time.Duration) (map[string]any, error)
}

// InvalidInputError describes arguments rejected before any request is sent.
type InvalidInputError struct {
	FieldName string
	Message   string
}

// Error describes the invalid input.
func (inputError InvalidInputError) Error() string {
	return fmt.Sprintf(invalidInputErrorTemplateConstant, inputError.FieldName, inputError.Message)
}

// OperationError wraps a failed mutation.
type OperationError struct {
	Operation OperationName
	Cause     error
}

// Error describes the failed mutation.
func (operationError OperationError) Error() string {
	return fmt.Sprintf(operationErrorTemplateConstant, operationError.Operation, operationError.Cause)
}

// Unwrap exposes the underlying cause.
func (operationError OperationError) Unwrap() error {
	return operationError.Cause
}

var errExecutorMissing = errors.New(executorMissingMessageConstant)

// ManagerDependencies describes collaborators required by Manager.
type ManagerDependencies struct {
	Executor GraphQLExecutor
	Logger   *zap.Logger
}

// ManagerOptions configures run-wide behavior.
type ManagerOptions struct {
	DryRun          bool
	ContinueOnError bool
}

// CreatedIssue describes an issue returned by createIssue.
type CreatedIssue struct {
	ID     string
	Number int
	URL    string
}

// Manager issues issue-level and project-level mutations.
type Manager struct {
	executor GraphQLExecutor
	logger   *zap.Logger
	options  ManagerOptions
}

// NewManager validates dependencies and constructs a Manager.
func NewManager(dependencies ManagerDependencies, options ManagerOptions) (*Manager, error) {
	if dependencies.Executor == nil {
		return nil, errExecutorMissing
	}
	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{executor: dependencies.Executor, logger: logger, options: options}, nil
}

// CreateIssue creates an issue with a title and body.
func (manager *Manager) CreateIssue(executionContext context.Context, repositoryID string, title string, body string) (CreatedIssue, error) {
	if len(strings.TrimSpace(repositoryID)) == 0 {
		return CreatedIssue{}, InvalidInputError{FieldName: repositoryIDFieldNameConstant, Message: requiredValueMessageConstant}
	}
	if len(strings.TrimSpace(title)) == 0 {
		return CreatedIssue{}, InvalidInputError{FieldName: titleFieldNameConstant, Message: requiredValueMessageConstant}
	}

	if manager.options.DryRun {
		manager.logger.Info(dryRunCreateIssueMessageConstant, zap.String(logFieldTitleConstant, title))
		return CreatedIssue{ID: DryRunIssueID}, nil
	}

	data, executionError := manager.executor.ExecuteGraphQL(executionContext, createIssueMutationConstant, map[string]any{
		"repoId": repositoryID,
		"title":  title,
		"body":   body,
	}, nil, 0)
	if executionError != nil {
		return CreatedIssue{}, OperationError{Operation: createIssueOperationNameConstant, Cause: executionError}
	}

	createdIssue := CreatedIssue{
		ID:  githubapi.LookupString(data, "createIssue", "issue", "id"),
		URL: githubapi.LookupString(data, "createIssue", "issue", "url"),
	}
	if issueNumber, found := githubapi.LookupInt(data, "createIssue", "issue", "number"); found {
		createdIssue.Number = int(issueNumber)
	}
	if len(createdIssue.ID) == 0 {
		return CreatedIssue{}, OperationError{Operation: createIssueOperationNameConstant, Cause: fmt.Errorf(missingResponseFieldTemplateConstant, createIssueResponseFieldConstant)}
	}

	manager.logger.Info(
		issueCreatedMessageConstant,
		zap.String(logFieldTitleConstant, title),
		zap.String(logFieldIssueIDConstant, createdIssue.ID),
		zap.Int(logFieldIssueNumberConstant, createdIssue.Number),
	)
	return createdIssue, nil
}

// AddToProject attaches an issue to a project and returns the project item identifier.
func (manager *Manager) AddToProject(executionContext context.Context, projectID string, issueID string) (string, error) {
	if len(strings.TrimSpace(projectID)) == 0 {
		return "", InvalidInputError{FieldName: projectIDFieldNameConstant, Message: requiredValueMessageConstant}
	}
	if len(strings.TrimSpace(issueID)) == 0 {
		return "", InvalidInputError{FieldName: issueIDFieldNameConstant, Message: requiredValueMessageConstant}
	}

	if manager.options.DryRun {
		manager.logger.Info(dryRunAddToProjectMessageConstant, zap.String(logFieldIssueIDConstant, issueID), zap.String(logFieldProjectIDConstant, projectID))
		return DryRunProjectItemID, nil
	}

	data, executionError := manager.executor.ExecuteGraphQL(executionContext, addToProjectMutationConstant, map[string]any{
		"projectId": projectID,
		"issueId":   issueID,
	}, nil, 0)
	if executionError != nil {
		return "", OperationError{Operation: addToProjectOperationNameConstant, Cause: executionError}
	}

	itemID := githubapi.LookupString(data, "addProjectV2ItemById", "item", "id")
	if len(itemID) == 0 {
		return "", OperationError{Operation: addToProjectOperationNameConstant, Cause: fmt.Errorf(missingResponseFieldTemplateConstant, addToProjectResponseFieldConstant)}
	}
	return itemID, nil
}

// UpdateIssueFields sets the milestone and issue type in a single mutation.
func (manager *Manager) UpdateIssueFields(executionContext context.Context, issueID string, milestoneID string, issueTypeID string) error {
	if len(strings.TrimSpace(issueID)) == 0 {
		return InvalidInputError{FieldName: issueIDFieldNameConstant, Message: requiredValueMessageConstant}
	}
	if len(milestoneID) == 0 && len(issueTypeID) == 0 {
		return InvalidInputError{FieldName: issueFieldsFieldNameConstant, Message: milestoneOrTypeRequiredMessageConstant}
	}

	if manager.options.DryRun {
		manager.logger.Info(dryRunUpdateIssueMessageConstant, zap.String(logFieldIssueIDConstant, issueID))
		return nil
	}

	input := map[string]any{"id": issueID}
	var features []string
	if len(milestoneID) > 0 {
		input["milestoneId"] = milestoneID
	}
	if len(issueTypeID) > 0 {
		input["issueTypeId"] = issueTypeID
		features = []string{issueTypesFeatureConstant}
	}

	if _, executionError := manager.executor.ExecuteGraphQL(executionContext, updateIssueMutationConstant, map[string]any{"input": input}, features, 0); executionError != nil {
		return OperationError{Operation: updateIssueFieldsOperationNameConstant, Cause: executionError}
	}
	return nil
}

// AddAssignees assigns users to an issue.
func (manager *Manager) AddAssignees(executionContext context.Context, issueID string, assigneeIDs []string) error {
	if len(strings.TrimSpace(issueID)) == 0 {
		return InvalidInputError{FieldName: issueIDFieldNameConstant, Message: requiredValueMessageConstant}
	}
	if len(assigneeIDs) == 0 {
		return InvalidInputError{FieldName: assigneeIDsFieldNameConstant, Message: requiredValueMessageConstant}
	}

	if manager.options.DryRun {
		manager.logger.Info(dryRunAddAssigneesMessageConstant, zap.String(logFieldIssueIDConstant, issueID), zap.Int(logFieldCountConstant, len(assigneeIDs)))
		return nil
	}

	if _, executionError := manager.executor.ExecuteGraphQL(executionContext, addAssigneesMutationConstant, map[string]any{
		"issueId":     issueID,
		"assigneeIds": assigneeIDs,
	}, nil, 0); executionError != nil {
		return OperationError{Operation: addAssigneesOperationNameConstant, Cause: executionError}
	}
	return nil
}

// UpdateProjectField sets one project field value on a project item.
func (manager *Manager) UpdateProjectField(executionContext context.Context, projectID string, itemID string, update ProjectFieldUpdate) error {
	if len(strings.TrimSpace(projectID)) == 0 {
		return InvalidInputError{FieldName: projectIDFieldNameConstant, Message: requiredValueMessageConstant}
	}
	if len(strings.TrimSpace(itemID)) == 0 {
		return InvalidInputError{FieldName: itemIDFieldNameConstant, Message: requiredValueMessageConstant}
	}
	if len(strings.TrimSpace(update.FieldID)) == 0 {
		return InvalidInputError{FieldName: fieldIDFieldNameConstant, Message: requiredValueMessageConstant}
	}

	valuePayload, payloadError := buildFieldValuePayload(update.Value)
	if payloadError != nil {
		return InvalidInputError{FieldName: update.FieldID, Message: payloadError.Error()}
	}

	if manager.options.DryRun {
		manager.logger.Info(dryRunUpdateProjectFieldMessageConstant, zap.String(logFieldFieldIDConstant, update.FieldID))
		return nil
	}

	if _, executionError := manager.executor.ExecuteGraphQL(executionContext, updateProjectFieldMutationConstant, map[string]any{
		"projectId": projectID,
		"itemId":    itemID,
		"fieldId":   update.FieldID,
		"value":     valuePayload,
	}, nil, 0); executionError != nil {
		return OperationError{Operation: updateProjectFieldOperationNameConstant, Cause: executionError}
	}
	return nil
}

// AddComment appends a comment to an issue.
func (manager *Manager) AddComment(executionContext context.Context, issueID string, body string) error {
	if len(strings.TrimSpace(issueID)) == 0 {
		return InvalidInputError{FieldName: issueIDFieldNameConstant, Message: requiredValueMessageConstant}
	}
	if len(strings.TrimSpace(body)) == 0 {
		return InvalidInputError{FieldName: commentBodyFieldNameConstant, Message: requiredValueMessageConstant}
	}

	if manager.options.DryRun {
		manager.logger.Info(dryRunAddCommentMessageConstant, zap.String(logFieldIssueIDConstant, issueID))
		return nil
	}

	if _, executionError := manager.executor.ExecuteGraphQL(executionContext, addCommentMutationConstant, map[string]any{
		"issueId": issueID,
		"body":    body,
	}, nil, 0); executionError != nil {
		return OperationError{Operation: addCommentOperationNameConstant, Cause: executionError}
	}
	return nil
}

// AddLabels attaches labels to an issue in one mutation.
func (manager *Manager) AddLabels(executionContext context.Context, issueID string, labelIDs []string) error {
	if len(strings.TrimSpace(issueID)) == 0 {
		return InvalidInputError{FieldName: issueIDFieldNameConstant, Message: requiredValueMessageConstant}
	}
	if len(labelIDs) == 0 {
		return InvalidInputError{FieldName: labelIDsFieldNameConstant, Message: requiredValueMessageConstant}
	}

	if manager.options.DryRun {
		manager.logger.Info(dryRunAddLabelsMessageConstant, zap.String(logFieldIssueIDConstant, issueID), zap.Int(logFieldCountConstant, len(labelIDs)))
		return nil
	}

	if _, executionError := manager.executor.ExecuteGraphQL(executionContext, addLabelsMutationConstant, map[string]any{
		"issueId":  issueID,
		"labelIds": labelIDs,
	}, nil, 0); executionError != nil {
		return OperationError{Operation: addLabelsOperationNameConstant, Cause: executionError}
	}
	return nil
}

// DeleteIssue permanently deletes an issue.
func (manager *Manager) DeleteIssue(executionContext context.Context, issueID string) error {
	if len(strings.TrimSpace(issueID)) == 0 {
		return InvalidInputError{FieldName: issueIDFieldNameConstant, Message: requiredValueMessageConstant}
	}

	if manager.options.DryRun {
		manager.logger.Info(dryRunDeleteIssueMessageConstant, zap.String(logFieldIssueIDConstant, issueID))
		return nil
	}

	if _, executionError := manager.executor.ExecuteGraphQL(executionContext, deleteIssueMutationConstant, map[string]any{"issueId": issueID}, nil, 0); executionError != nil {
		return OperationError{Operation: deleteIssueOperationNameConstant, Cause: executionError}
	}
	manager.logger.Info(issueDeletedMessageConstant, zap.String(logFieldIssueIDConstant, issueID))
	return nil
}
