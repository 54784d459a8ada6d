package issues_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/temirov/ghmigrate/internal/issues"
)

const (
	testRepositoryIDConstant  = "R_repo"
	testProjectIDConstant     = "PVT_project"
	testTitleConstant         = "Fix crash"
	testBodyConstant          = "Steps to reproduce"
	testMilestoneIDConstant   = "MI_milestone"
	testIssueTypeIDConstant   = "IT_bug"
	testStatusFieldConstant   = "PVTSSF_status"
	testSprintFieldConstant   = "PVTIF_sprint"
	testStartFieldConstant    = "PVTF_start"
	testAbortLogMessage       = "Issue creation stopped after failed step"
	testCreatedIssueConstant  = "I_created"
	testCreatedItemConstant   = "PVTI_item"
	testCreatedIssueURL       = "https://github.com/owner/repo/issues/17"
	testCreatedIssueNumber    = 17
	testFirstCommentConstant  = "first"
	testSecondCommentConstant = "second"
	testThirdCommentConstant  = "third"
)

func fullIssueRequest() issues.IssueRequest {
	return issues.IssueRequest{
		RepositoryID: testRepositoryIDConstant,
		ProjectID:    testProjectIDConstant,
		Title:        testTitleConstant,
		Body:         testBodyConstant,
		MilestoneID:  testMilestoneIDConstant,
		IssueTypeID:  testIssueTypeIDConstant,
		AssigneeIDs:  []string{"U_1", "U_2"},
		ProjectFields: []issues.ProjectFieldUpdate{
			{FieldID: testStatusFieldConstant, Value: issues.SingleSelectValue{OptionID: "f75ad846"}},
			{FieldID: testSprintFieldConstant, Value: issues.IterationValue{IterationID: "iter-3"}},
			{FieldID: testStartFieldConstant, Value: issues.DateValue{Date: "2024-03-03"}},
		},
		Comments: []string{testFirstCommentConstant, testSecondCommentConstant, testThirdCommentConstant},
		LabelIDs: []string{"LA_bug", "LA_ui"},
	}
}

func newTestManager(testInstance *testing.T, executor issues.GraphQLExecutor, options issues.ManagerOptions, logger *zap.Logger) *issues.Manager {
	testInstance.Helper()
	manager, creationError := issues.NewManager(issues.ManagerDependencies{Executor: executor, Logger: logger}, options)
	require.NoError(testInstance, creationError)
	return manager
}

func TestCreateCompleteIssueRunsStepsInOrder(testInstance *testing.T) {
	executor := newStubGraphQLExecutor()
	manager := newTestManager(testInstance, executor, issues.ManagerOptions{}, nil)

	result := manager.CreateCompleteIssue(context.Background(), fullIssueRequest())

	require.True(testInstance, result.Success)
	require.Empty(testInstance, result.Errors)
	require.Equal(testInstance, testCreatedIssueConstant, result.IssueID)
	require.Equal(testInstance, testCreatedIssueNumber, result.IssueNumber)
	require.Equal(testInstance, testCreatedIssueURL, result.IssueURL)
	require.Equal(testInstance, testCreatedItemConstant, result.ProjectItemID)
	require.Equal(testInstance, []string{
		"createIssue",
		"addProjectV2ItemById",
		"updateIssue",
		"addAssigneesToAssignable",
		"updateProjectV2ItemFieldValue",
		"updateProjectV2ItemFieldValue",
		"updateProjectV2ItemFieldValue",
		"addLabelsToLabelable",
		"addComment",
		"addComment",
		"addComment",
	}, executor.callNames())

	require.Equal(testInstance, map[string]any{"singleSelectOptionId": "f75ad846"}, executor.calls[4].variables["value"])
	require.Equal(testInstance, map[string]any{"iterationId": "iter-3"}, executor.calls[5].variables["value"])
	require.Equal(testInstance, map[string]any{"date": "2024-03-03"}, executor.calls[6].variables["value"])
	require.Equal(testInstance, testFirstCommentConstant, executor.calls[8].variables["body"])
	require.Equal(testInstance, testThirdCommentConstant, executor.calls[10].variables["body"])
	require.Equal(testInstance, []string{"issue_types"}, executor.calls[2].features)
}

func TestCreateCompleteIssueFailureSemantics(testInstance *testing.T) {
	testCases := []struct {
		name              string
		continueOnError   bool
		configure         func(executor *stubGraphQLExecutor)
		request           func() issues.IssueRequest
		expectedSuccess   bool
		expectedErrors    int
		expectedCallNames []string
		expectAbortLog    bool
	}{
		{
			name:            "create_failure_is_fatal",
			continueOnError: true,
			configure: func(executor *stubGraphQLExecutor) {
				executor.failures["createIssue"] = errStubMutationFailed
			},
			request:           fullIssueRequest,
			expectedSuccess:   false,
			expectedErrors:    1,
			expectedCallNames: []string{"createIssue"},
			expectAbortLog:    true,
		},
		{
			name:            "project_field_failure_continue",
			continueOnError: true,
			configure: func(executor *stubGraphQLExecutor) {
				executor.failOnCallIDs["updateProjectV2ItemFieldValue"] = map[int]error{2: errStubMutationFailed}
			},
			request:         fullIssueRequest,
			expectedSuccess: true,
			expectedErrors:  1,
			expectedCallNames: []string{
				"createIssue", "addProjectV2ItemById", "updateIssue", "addAssigneesToAssignable",
				"updateProjectV2ItemFieldValue", "updateProjectV2ItemFieldValue", "updateProjectV2ItemFieldValue",
				"addLabelsToLabelable", "addComment", "addComment", "addComment",
			},
		},
		{
			name:            "project_field_failure_stop",
			continueOnError: false,
			configure: func(executor *stubGraphQLExecutor) {
				executor.failOnCallIDs["updateProjectV2ItemFieldValue"] = map[int]error{1: errStubMutationFailed}
			},
			request:         fullIssueRequest,
			expectedSuccess: false,
			expectedErrors:  1,
			expectedCallNames: []string{
				"createIssue", "addProjectV2ItemById", "updateIssue", "addAssigneesToAssignable",
				"updateProjectV2ItemFieldValue", "updateProjectV2ItemFieldValue", "updateProjectV2ItemFieldValue",
				"addLabelsToLabelable", "addComment", "addComment", "addComment",
			},
		},
		{
			name:            "add_to_project_failure_stop",
			continueOnError: false,
			configure: func(executor *stubGraphQLExecutor) {
				executor.failures["addProjectV2ItemById"] = errStubMutationFailed
			},
			request:           fullIssueRequest,
			expectedSuccess:   false,
			expectedErrors:    1,
			expectedCallNames: []string{"createIssue", "addProjectV2ItemById"},
			expectAbortLog:    true,
		},
		{
			name:            "add_to_project_failure_continue_skips_fields",
			continueOnError: true,
			configure: func(executor *stubGraphQLExecutor) {
				executor.failures["addProjectV2ItemById"] = errStubMutationFailed
			},
			request:         fullIssueRequest,
			expectedSuccess: true,
			expectedErrors:  1,
			expectedCallNames: []string{
				"createIssue", "addProjectV2ItemById", "updateIssue", "addAssigneesToAssignable",
				"addLabelsToLabelable", "addComment", "addComment", "addComment",
			},
		},
		{
			name:            "issue_field_and_assignee_failures_are_independent",
			continueOnError: false,
			configure: func(executor *stubGraphQLExecutor) {
				executor.failures["updateIssue"] = errStubMutationFailed
				executor.failures["addAssigneesToAssignable"] = errStubMutationFailed
			},
			request:         fullIssueRequest,
			expectedSuccess: false,
			expectedErrors:  2,
			expectedCallNames: []string{
				"createIssue", "addProjectV2ItemById", "updateIssue", "addAssigneesToAssignable",
				"updateProjectV2ItemFieldValue", "updateProjectV2ItemFieldValue", "updateProjectV2ItemFieldValue",
				"addLabelsToLabelable", "addComment", "addComment", "addComment",
			},
		},
		{
			name:            "comment_failures_recorded_individually",
			continueOnError: true,
			configure: func(executor *stubGraphQLExecutor) {
				executor.failOnCallIDs["addComment"] = map[int]error{1: errStubMutationFailed, 3: errStubMutationFailed}
			},
			request:         fullIssueRequest,
			expectedSuccess: true,
			expectedErrors:  2,
			expectedCallNames: []string{
				"createIssue", "addProjectV2ItemById", "updateIssue", "addAssigneesToAssignable",
				"updateProjectV2ItemFieldValue", "updateProjectV2ItemFieldValue", "updateProjectV2ItemFieldValue",
				"addLabelsToLabelable", "addComment", "addComment", "addComment",
			},
		},
		{
			name:            "unknown_field_value_is_local_failure",
			continueOnError: true,
			request: func() issues.IssueRequest {
				request := issues.IssueRequest{RepositoryID: testRepositoryIDConstant, ProjectID: testProjectIDConstant, Title: testTitleConstant}
				request.ProjectFields = []issues.ProjectFieldUpdate{
					{FieldID: testStatusFieldConstant},
					{FieldID: testStartFieldConstant, Value: issues.DateValue{Date: "2024-03-03"}},
				}
				return request
			},
			expectedSuccess:   true,
			expectedErrors:    1,
			expectedCallNames: []string{"createIssue", "addProjectV2ItemById", "updateProjectV2ItemFieldValue"},
		},
		{
			name:            "minimal_request_only_creates",
			continueOnError: false,
			request: func() issues.IssueRequest {
				return issues.IssueRequest{RepositoryID: testRepositoryIDConstant, Title: testTitleConstant}
			},
			expectedSuccess:   true,
			expectedErrors:    0,
			expectedCallNames: []string{"createIssue"},
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(testInstance *testing.T) {
			executor := newStubGraphQLExecutor()
			if testCase.configure != nil {
				testCase.configure(executor)
			}
			observerCore, observedLogs := observer.New(zapcore.DebugLevel)
			manager := newTestManager(testInstance, executor, issues.ManagerOptions{ContinueOnError: testCase.continueOnError}, zap.New(observerCore))

			result := manager.CreateCompleteIssue(context.Background(), testCase.request())

			require.Equal(testInstance, testCase.expectedSuccess, result.Success)
			require.Len(testInstance, result.Errors, testCase.expectedErrors)
			require.Equal(testInstance, testCase.expectedCallNames, executor.callNames())
			if testCase.expectAbortLog {
				require.Equal(testInstance, 1, observedLogs.FilterMessage(testAbortLogMessage).Len())
			}
		})
	}
}

func TestCreateCompleteIssueDryRun(testInstance *testing.T) {
	executor := newStubGraphQLExecutor()
	manager := newTestManager(testInstance, executor, issues.ManagerOptions{DryRun: true}, nil)

	result := manager.CreateCompleteIssue(context.Background(), fullIssueRequest())

	require.True(testInstance, result.Success)
	require.Empty(testInstance, result.Errors)
	require.Equal(testInstance, issues.DryRunIssueID, result.IssueID)
	require.Equal(testInstance, issues.DryRunProjectItemID, result.ProjectItemID)
	require.Empty(testInstance, executor.calls)
}
