package issues_test

import (
	"context"
	"errors"
	"strings"
	"time"
)

type recordedGraphQLCall struct {
	query     string
	variables map[string]any
	features  []string
}

// stubGraphQLExecutor answers mutations by matching the mutation name inside the query text.
type stubGraphQLExecutor struct {
	responses     map[string]map[string]any
	failures      map[string]error
	failOnCallIDs map[string]map[int]error
	calls         []recordedGraphQLCall
	callsByName   map[string]int
}

func newStubGraphQLExecutor() *stubGraphQLExecutor {
	return &stubGraphQLExecutor{
		responses: map[string]map[string]any{
			"createIssue": {
				"createIssue": map[string]any{"issue": map[string]any{"id": "I_created", "number": float64(17), "url": "https://github.com/owner/repo/issues/17"}},
			},
			"addProjectV2ItemById": {
				"addProjectV2ItemById": map[string]any{"item": map[string]any{"id": "PVTI_item"}},
			},
		},
		failures:      map[string]error{},
		failOnCallIDs: map[string]map[int]error{},
		callsByName:   map[string]int{},
	}
}

var errStubMutationFailed = errors.New("mutation failed")

var stubMutationNames = []string{
	"createIssue",
	"addProjectV2ItemById",
	"updateIssue",
	"addAssigneesToAssignable",
	"updateProjectV2ItemFieldValue",
	"addComment",
	"addLabelsToLabelable",
	"deleteIssue",
}

func mutationName(query string) string {
	for _, candidate := range stubMutationNames {
		if strings.Contains(query, candidate+"(") {
			return candidate
		}
	}
	return ""
}

func (executor *stubGraphQLExecutor) ExecuteGraphQL(executionContext context.Context, query string, variables map[string]any, features []string, timeout time.Duration) (map[string]any, error) {
	name := mutationName(query)
	executor.calls = append(executor.calls, recordedGraphQLCall{query: query, variables: variables, features: features})
	executor.callsByName[name]++
	if perCall, exists := executor.failOnCallIDs[name]; exists {
		if failure, shouldFail := perCall[executor.callsByName[name]]; shouldFail {
			return nil, failure
		}
	}
	if failure, exists := executor.failures[name]; exists {
		return nil, failure
	}
	if response, exists := executor.responses[name]; exists {
		return response, nil
	}
	return map[string]any{}, nil
}

func (executor *stubGraphQLExecutor) callNames() []string {
	names := make([]string, 0, len(executor.calls))
	for _, call := range executor.calls {
		names = append(names, mutationName(call.query))
	}
	return names
}
