package issues

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const (
	stepCreateIssueNameConstant         = "create issue"
	stepAddToProjectNameConstant        = "add to project"
	stepUpdateIssueFieldsNameConstant   = "update issue fields"
	stepAddAssigneesNameConstant        = "add assignees"
	stepUpdateProjectFieldsNameConstant = "update project fields"
	stepAddLabelsNameConstant           = "add labels"
	stepAddCommentsNameConstant         = "add comments"
	stepFailureTemplateConstant         = "%s: %s"
	projectFieldFailureTemplateConstant = "update project field %s: %s"
	commentFailureTemplateConstant      = "add comment %d: %s"
	sequenceAbortedMessageConstant      = "Issue creation stopped after failed step"
	sequenceStepFailedMessageConstant   = "Issue creation step failed"
	projectFieldsSkippedMessageConstant = "Skipping project fields without a project item"
	logFieldStepConstant                = "step"
	logFieldErrorCountConstant          = "errors"
	logFieldErrorConstant               = "error"
)

// IssueRequest describes one issue and the metadata applied to it after creation.
type IssueRequest struct {
	RepositoryID  string
	ProjectID     string
	Title         string
	Body          string
	MilestoneID   string
	IssueTypeID   string
	AssigneeIDs   []string
	ProjectFields []ProjectFieldUpdate
	Comments      []string
	LabelIDs      []string
}

// IssueResult reports the outcome of CreateCompleteIssue.
//
// With continue-on-error enabled Success can be true while Errors is not empty.
type IssueResult struct {
	Success       bool
	IssueID       string
	IssueNumber   int
	IssueURL      string
	ProjectItemID string
	Errors        []string
}

type stepDisposition int

const (
	continueSequence stepDisposition = iota
	stopSequence
)

// sequenceStep is one fallible stage of issue creation.
type sequenceStep struct {
	name    string
	execute func(executionContext context.Context, state *sequenceState) stepDisposition
}

// sequenceState carries identifiers between steps and records step failures.
type sequenceState struct {
	request       IssueRequest
	result        IssueResult
	projectLinked bool
	logger        *zap.Logger
}

func (state *sequenceState) recordFailure(stepName string, message string) {
	state.result.Errors = append(state.result.Errors, message)
	state.logger.Warn(sequenceStepFailedMessageConstant, zap.String(logFieldStepConstant, stepName), zap.String(logFieldTitleConstant, state.request.Title), zap.String(logFieldErrorConstant, message))
}

// CreateCompleteIssue creates an issue and applies project membership, fields, labels and comments in a fixed order.
func (manager *Manager) CreateCompleteIssue(executionContext context.Context, request IssueRequest) IssueResult {
	state := &sequenceState{request: request, logger: manager.logger}

	for _, step := range manager.sequenceSteps() {
		if step.execute(executionContext, state) == stopSequence {
			manager.logger.Warn(sequenceAbortedMessageConstant, zap.String(logFieldStepConstant, step.name), zap.String(logFieldTitleConstant, request.Title))
			state.result.Success = false
			return state.result
		}
	}

	state.result.Success = len(state.result.Errors) == 0 || manager.options.ContinueOnError
	if len(state.result.Errors) > 0 {
		manager.logger.Debug(sequenceStepFailedMessageConstant, zap.String(logFieldTitleConstant, request.Title), zap.Int(logFieldErrorCountConstant, len(state.result.Errors)))
	}
	return state.result
}

func (manager *Manager) sequenceSteps() []sequenceStep {
	return []sequenceStep{
		{name: stepCreateIssueNameConstant, execute: manager.createIssueStep},
		{name: stepAddToProjectNameConstant, execute: manager.addToProjectStep},
		{name: stepUpdateIssueFieldsNameConstant, execute: manager.updateIssueFieldsStep},
		{name: stepAddAssigneesNameConstant, execute: manager.addAssigneesStep},
		{name: stepUpdateProjectFieldsNameConstant, execute: manager.updateProjectFieldsStep},
		{name: stepAddLabelsNameConstant, execute: manager.addLabelsStep},
		{name: stepAddCommentsNameConstant, execute: manager.addCommentsStep},
	}
}

func (manager *Manager) createIssueStep(executionContext context.Context, state *sequenceState) stepDisposition {
	createdIssue, createError := manager.CreateIssue(executionContext, state.request.RepositoryID, state.request.Title, state.request.Body)
	if createError != nil {
		state.recordFailure(stepCreateIssueNameConstant, fmt.Sprintf(stepFailureTemplateConstant, stepCreateIssueNameConstant, createError))
		return stopSequence
	}
	state.result.IssueID = createdIssue.ID
	state.result.IssueNumber = createdIssue.Number
	state.result.IssueURL = createdIssue.URL
	return continueSequence
}

func (manager *Manager) addToProjectStep(executionContext context.Context, state *sequenceState) stepDisposition {
	if len(strings.TrimSpace(state.request.ProjectID)) == 0 {
		return continueSequence
	}
	itemID, addError := manager.AddToProject(executionContext, state.request.ProjectID, state.result.IssueID)
	if addError != nil {
		state.recordFailure(stepAddToProjectNameConstant, fmt.Sprintf(stepFailureTemplateConstant, stepAddToProjectNameConstant, addError))
		if !manager.options.ContinueOnError {
			return stopSequence
		}
		return continueSequence
	}
	state.result.ProjectItemID = itemID
	state.projectLinked = true
	return continueSequence
}

func (manager *Manager) updateIssueFieldsStep(executionContext context.Context, state *sequenceState) stepDisposition {
	if len(state.request.MilestoneID) == 0 && len(state.request.IssueTypeID) == 0 {
		return continueSequence
	}
	if updateError := manager.UpdateIssueFields(executionContext, state.result.IssueID, state.request.MilestoneID, state.request.IssueTypeID); updateError != nil {
		state.recordFailure(stepUpdateIssueFieldsNameConstant, fmt.Sprintf(stepFailureTemplateConstant, stepUpdateIssueFieldsNameConstant, updateError))
	}
	return continueSequence
}

func (manager *Manager) addAssigneesStep(executionContext context.Context, state *sequenceState) stepDisposition {
	if len(state.request.AssigneeIDs) == 0 {
		return continueSequence
	}
	if assignError := manager.AddAssignees(executionContext, state.result.IssueID, state.request.AssigneeIDs); assignError != nil {
		state.recordFailure(stepAddAssigneesNameConstant, fmt.Sprintf(stepFailureTemplateConstant, stepAddAssigneesNameConstant, assignError))
	}
	return continueSequence
}

func (manager *Manager) updateProjectFieldsStep(executionContext context.Context, state *sequenceState) stepDisposition {
	if len(state.request.ProjectFields) == 0 {
		return continueSequence
	}
	if !state.projectLinked {
		manager.logger.Debug(projectFieldsSkippedMessageConstant, zap.String(logFieldTitleConstant, state.request.Title))
		return continueSequence
	}
	for _, fieldUpdate := range state.request.ProjectFields {
		if updateError := manager.UpdateProjectField(executionContext, state.request.ProjectID, state.result.ProjectItemID, fieldUpdate); updateError != nil {
			state.recordFailure(stepUpdateProjectFieldsNameConstant, fmt.Sprintf(projectFieldFailureTemplateConstant, fieldUpdate.FieldID, updateError))
		}
	}
	return continueSequence
}

func (manager *Manager) addLabelsStep(executionContext context.Context, state *sequenceState) stepDisposition {
	if len(state.request.LabelIDs) == 0 {
		return continueSequence
	}
	if labelError := manager.AddLabels(executionContext, state.result.IssueID, state.request.LabelIDs); labelError != nil {
		state.recordFailure(stepAddLabelsNameConstant, fmt.Sprintf(stepFailureTemplateConstant, stepAddLabelsNameConstant, labelError))
	}
	return continueSequence
}

func (manager *Manager) addCommentsStep(executionContext context.Context, state *sequenceState) stepDisposition {
	for commentIndex, comment := range state.request.Comments {
		if commentError := manager.AddComment(executionContext, state.result.IssueID, comment); commentError != nil {
			state.recordFailure(stepAddCommentsNameConstant, fmt.Sprintf(commentFailureTemplateConstant, commentIndex+1, commentError))
		}
	}
	return continueSequence
}
