package relationships_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/temirov/ghmigrate/internal/relationships"
)

const (
	testIssueIDConstant       = "I_current"
	testParentIDConstant      = "I_parent"
	testBlockerIDConstant     = "I_blocker"
	testBlockedIDConstant     = "I_blocked"
	testOwnerConstant         = "octo-org"
	testRepositoryConstant    = "tracker"
	testBlockedByPathTemplate = "/repos/octo-org/tracker/issues/%d/dependencies/blocked_by"
)

var errStubRequestFailed = errors.New("request failed")

type recordedPost struct {
	path    string
	payload any
}

type stubAPIExecutor struct {
	issueNumbers      map[string]int
	subIssueFailures  map[string]error
	postFailure       error
	subIssueCalls     [][2]string
	subIssueFeatures  [][]string
	contextQueryCalls []string
	posts             []recordedPost
}

func newStubAPIExecutor() *stubAPIExecutor {
	return &stubAPIExecutor{
		issueNumbers: map[string]int{
			testIssueIDConstant:   10,
			testParentIDConstant:  11,
			testBlockerIDConstant: 12,
			testBlockedIDConstant: 13,
		},
		subIssueFailures: map[string]error{},
	}
}

func (executor *stubAPIExecutor) ExecuteGraphQL(executionContext context.Context, query string, variables map[string]any, features []string, timeout time.Duration) (map[string]any, error) {
	if strings.Contains(query, "addSubIssue(") {
		parentID, _ := variables["parent"].(string)
		childID, _ := variables["child"].(string)
		executor.subIssueCalls = append(executor.subIssueCalls, [2]string{parentID, childID})
		executor.subIssueFeatures = append(executor.subIssueFeatures, features)
		if failure, exists := executor.subIssueFailures[childID]; exists {
			return nil, failure
		}
		return map[string]any{"addSubIssue": map[string]any{}}, nil
	}

	issueID, _ := variables["id"].(string)
	executor.contextQueryCalls = append(executor.contextQueryCalls, issueID)
	number, exists := executor.issueNumbers[issueID]
	if !exists {
		return map[string]any{"node": nil}, nil
	}
	return map[string]any{"node": map[string]any{
		"number":     json.Number(fmt.Sprint(number)),
		"databaseId": json.Number(fmt.Sprint(number * 1000)),
		"repository": map[string]any{"name": testRepositoryConstant, "owner": map[string]any{"login": testOwnerConstant}},
	}}, nil
}

func (executor *stubAPIExecutor) Post(executionContext context.Context, path string, payload any) (json.RawMessage, error) {
	executor.posts = append(executor.posts, recordedPost{path: path, payload: payload})
	if executor.postFailure != nil {
		return nil, executor.postFailure
	}
	return json.RawMessage(`{}`), nil
}

func newTestBuilder(testInstance *testing.T, executor relationships.APIExecutor, options relationships.Options, edges *relationships.ProcessedEdgeSet) *relationships.Builder {
	testInstance.Helper()
	builder, creationError := relationships.NewBuilder(relationships.Dependencies{Executor: executor}, options, edges)
	require.NoError(testInstance, creationError)
	return builder
}

func TestNewBuilderValidation(testInstance *testing.T) {
	_, missingExecutorError := relationships.NewBuilder(relationships.Dependencies{}, relationships.Options{}, relationships.NewProcessedEdgeSet())
	require.Error(testInstance, missingExecutorError)

	_, missingSetError := relationships.NewBuilder(relationships.Dependencies{Executor: newStubAPIExecutor()}, relationships.Options{}, nil)
	require.Error(testInstance, missingSetError)
}

func TestBuildEdgesSwapsBlockingRoles(testInstance *testing.T) {
	edges := relationships.BuildEdges(testIssueIDConstant, testParentIDConstant, []string{"I_child", " "}, []string{testBlockerIDConstant}, []string{testBlockedIDConstant})
	require.Equal(testInstance, []relationships.Edge{
		{Source: testParentIDConstant, Target: testIssueIDConstant, Kind: relationships.EdgeKindSubIssue},
		{Source: testIssueIDConstant, Target: "I_child", Kind: relationships.EdgeKindSubIssue},
		{Source: testIssueIDConstant, Target: testBlockerIDConstant, Kind: relationships.EdgeKindBlockedBy},
		{Source: testBlockedIDConstant, Target: testIssueIDConstant, Kind: relationships.EdgeKindBlockedBy},
	}, edges)
}

func TestProcessRelationshipsDeduplicatesSubIssues(testInstance *testing.T) {
	executor := newStubAPIExecutor()
	edgeSet := relationships.NewProcessedEdgeSet()
	builder := newTestBuilder(testInstance, executor, relationships.Options{ContinueOnError: true}, edgeSet)

	result := builder.ProcessRelationships(context.Background(), testIssueIDConstant, "", []string{"I_1", "I_1", "I_2"}, nil, nil)

	require.True(testInstance, result.Success)
	require.Empty(testInstance, result.Errors)
	require.Equal(testInstance, 2, result.RelationshipsAdded)
	require.Equal(testInstance, [][2]string{{testIssueIDConstant, "I_1"}, {testIssueIDConstant, "I_2"}}, executor.subIssueCalls)
	require.Equal(testInstance, []string{"sub_issues"}, executor.subIssueFeatures[0])
	require.Equal(testInstance, 2, edgeSet.Len())
}

func TestProcessRelationshipsSharesSetAcrossRows(testInstance *testing.T) {
	executor := newStubAPIExecutor()
	edgeSet := relationships.NewProcessedEdgeSet()
	builder := newTestBuilder(testInstance, executor, relationships.Options{ContinueOnError: true}, edgeSet)
	executionContext := context.Background()

	parentRow := builder.ProcessRelationships(executionContext, testParentIDConstant, "", []string{testIssueIDConstant}, nil, nil)
	childRow := builder.ProcessRelationships(executionContext, testIssueIDConstant, testParentIDConstant, nil, nil, nil)

	require.Equal(testInstance, 1, parentRow.RelationshipsAdded)
	require.Equal(testInstance, 0, childRow.RelationshipsAdded)
	require.True(testInstance, childRow.Success)
	require.Len(testInstance, executor.subIssueCalls, 1)
}

func TestProcessRelationshipsBlockedByUsesRESTDependencyEndpoint(testInstance *testing.T) {
	executor := newStubAPIExecutor()
	builder := newTestBuilder(testInstance, executor, relationships.Options{ContinueOnError: true}, relationships.NewProcessedEdgeSet())

	result := builder.ProcessRelationships(context.Background(), testIssueIDConstant, "", nil, []string{testBlockerIDConstant}, []string{testBlockedIDConstant})

	require.True(testInstance, result.Success)
	require.Equal(testInstance, 2, result.RelationshipsAdded)
	require.Equal(testInstance, []string{testIssueIDConstant, testBlockerIDConstant, testBlockedIDConstant, testIssueIDConstant}, executor.contextQueryCalls)
	require.Len(testInstance, executor.posts, 2)
	require.Equal(testInstance, fmt.Sprintf(testBlockedByPathTemplate, 10), executor.posts[0].path)
	require.Equal(testInstance, map[string]any{"issue_id": int64(12000)}, executor.posts[0].payload)
	require.Equal(testInstance, fmt.Sprintf(testBlockedByPathTemplate, 13), executor.posts[1].path)
	require.Equal(testInstance, map[string]any{"issue_id": int64(10000)}, executor.posts[1].payload)
}

func TestProcessRelationshipsOverlappingListsCountOnce(testInstance *testing.T) {
	executor := newStubAPIExecutor()
	builder := newTestBuilder(testInstance, executor, relationships.Options{}, relationships.NewProcessedEdgeSet())

	blockerRow := builder.ProcessRelationships(context.Background(), testBlockerIDConstant, "", nil, nil, []string{testIssueIDConstant})
	blockedRow := builder.ProcessRelationships(context.Background(), testIssueIDConstant, "", nil, []string{testBlockerIDConstant}, nil)

	require.Equal(testInstance, 1, blockerRow.RelationshipsAdded)
	require.Equal(testInstance, 0, blockedRow.RelationshipsAdded)
	require.Len(testInstance, executor.posts, 1)
}

func TestProcessRelationshipsFailurePolicy(testInstance *testing.T) {
	testCases := []struct {
		name              string
		continueOnError   bool
		expectedSuccess   bool
		expectedAdded     int
		expectedErrors    int
		expectedCallCount int
	}{
		{name: "continue_attempts_remaining", continueOnError: true, expectedSuccess: true, expectedAdded: 2, expectedErrors: 1, expectedCallCount: 3},
		{name: "stop_skips_remaining", continueOnError: false, expectedSuccess: false, expectedAdded: 1, expectedErrors: 1, expectedCallCount: 2},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(testInstance *testing.T) {
			executor := newStubAPIExecutor()
			executor.subIssueFailures["I_bad"] = errStubRequestFailed
			edgeSet := relationships.NewProcessedEdgeSet()
			builder := newTestBuilder(testInstance, executor, relationships.Options{ContinueOnError: testCase.continueOnError}, edgeSet)

			result := builder.ProcessRelationships(context.Background(), testIssueIDConstant, "", []string{"I_good", "I_bad", "I_other"}, nil, nil)

			require.Equal(testInstance, testCase.expectedSuccess, result.Success)
			require.Equal(testInstance, testCase.expectedAdded, result.RelationshipsAdded)
			require.Len(testInstance, result.Errors, testCase.expectedErrors)
			require.Contains(testInstance, result.Errors[0], "I_bad")
			require.Len(testInstance, executor.subIssueCalls, testCase.expectedCallCount)
			require.False(testInstance, edgeSet.Contains(relationships.Edge{Source: testIssueIDConstant, Target: "I_bad", Kind: relationships.EdgeKindSubIssue}))
		})
	}
}

func TestProcessRelationshipsMissingIssueContext(testInstance *testing.T) {
	executor := newStubAPIExecutor()
	builder := newTestBuilder(testInstance, executor, relationships.Options{ContinueOnError: true}, relationships.NewProcessedEdgeSet())

	result := builder.ProcessRelationships(context.Background(), testIssueIDConstant, "", nil, []string{"I_unknown"}, nil)

	require.Equal(testInstance, 0, result.RelationshipsAdded)
	require.Len(testInstance, result.Errors, 1)
	require.Contains(testInstance, result.Errors[0], "issue not found: I_unknown")
	require.Empty(testInstance, executor.posts)
}

func TestProcessRelationshipsDryRun(testInstance *testing.T) {
	executor := newStubAPIExecutor()
	edgeSet := relationships.NewProcessedEdgeSet()
	builder := newTestBuilder(testInstance, executor, relationships.Options{DryRun: true}, edgeSet)

	result := builder.ProcessRelationships(context.Background(), testIssueIDConstant, testParentIDConstant, []string{"I_1", "I_1"}, []string{testBlockerIDConstant}, []string{testBlockedIDConstant})

	require.True(testInstance, result.Success)
	require.Equal(testInstance, 4, result.RelationshipsAdded)
	require.Equal(testInstance, 4, edgeSet.Len())
	require.Empty(testInstance, executor.subIssueCalls)
	require.Empty(testInstance, executor.contextQueryCalls)
	require.Empty(testInstance, executor.posts)
}

func TestProcessRelationshipsRequiresIssueID(testInstance *testing.T) {
	builder := newTestBuilder(testInstance, newStubAPIExecutor(), relationships.Options{}, relationships.NewProcessedEdgeSet())
	result := builder.ProcessRelationships(context.Background(), " ", testParentIDConstant, nil, nil, nil)
	require.False(testInstance, result.Success)
	require.Len(testInstance, result.Errors, 1)
}
