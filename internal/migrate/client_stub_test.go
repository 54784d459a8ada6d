package migrate_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"
)

type recordedGraphQLCall struct {
	name      string
	variables map[string]any
}

type recordedPagedCall struct {
	variables map[string]any
	maxPages  int
}

type recordedRESTCall struct {
	method  string
	path    string
	payload any
}

// stubAPIClient answers GraphQL by operation name and serves repository labels over REST.
type stubAPIClient struct {
	graphQLCalls   []recordedGraphQLCall
	pagedCalls     []recordedPagedCall
	restCalls      []recordedRESTCall
	projectItems   []any
	existingLabels []map[string]any
	failures       map[string]error
	createdIssues  int
}

var stubOperationNames = []string{
	"createIssue",
	"addProjectV2ItemById",
	"updateIssue",
	"addAssigneesToAssignable",
	"updateProjectV2ItemFieldValue",
	"addComment",
	"addLabelsToLabelable",
	"addSubIssue",
}

func newStubAPIClient() *stubAPIClient {
	return &stubAPIClient{failures: map[string]error{}}
}

func stubOperationName(query string) string {
	for _, candidate := range stubOperationNames {
		if strings.Contains(query, candidate+"(") {
			return candidate
		}
	}
	if strings.Contains(query, "databaseId") {
		return "issueContext"
	}
	return ""
}

func (client *stubAPIClient) ExecuteGraphQL(executionContext context.Context, query string, variables map[string]any, features []string, timeout time.Duration) (map[string]any, error) {
	name := stubOperationName(query)
	client.graphQLCalls = append(client.graphQLCalls, recordedGraphQLCall{name: name, variables: variables})
	if failure, exists := client.failures[name]; exists {
		return nil, failure
	}

	switch name {
	case "createIssue":
		client.createdIssues++
		return map[string]any{"createIssue": map[string]any{"issue": map[string]any{
			"id":     fmt.Sprintf("I_%d", client.createdIssues),
			"number": float64(client.createdIssues),
			"url":    fmt.Sprintf("https://github.com/octo-org/tracker/issues/%d", client.createdIssues),
		}}}, nil
	case "addProjectV2ItemById":
		return map[string]any{"addProjectV2ItemById": map[string]any{"item": map[string]any{"id": fmt.Sprintf("PVTI_%d", client.createdIssues)}}}, nil
	case "issueContext":
		return map[string]any{"node": map[string]any{
			"number":     float64(7),
			"databaseId": float64(700),
			"repository": map[string]any{"name": "tracker", "owner": map[string]any{"login": "octo-org"}},
		}}, nil
	default:
		return map[string]any{}, nil
	}
}

func (client *stubAPIClient) ExecutePagedGraphQL(executionContext context.Context, query string, variables map[string]any, pageInfoPath []string, nodesPath []string, maxPages int) ([]any, error) {
	client.pagedCalls = append(client.pagedCalls, recordedPagedCall{variables: variables, maxPages: maxPages})
	if failure, exists := client.failures["paged"]; exists {
		return nil, failure
	}
	return client.projectItems, nil
}

func (client *stubAPIClient) Get(executionContext context.Context, path string, query url.Values) (json.RawMessage, error) {
	client.restCalls = append(client.restCalls, recordedRESTCall{method: "GET", path: path})
	pageLabels := client.existingLabels
	if query.Get("page") != "1" || pageLabels == nil {
		pageLabels = []map[string]any{}
	}
	return json.Marshal(pageLabels)
}

func (client *stubAPIClient) Post(executionContext context.Context, path string, payload any) (json.RawMessage, error) {
	client.restCalls = append(client.restCalls, recordedRESTCall{method: "POST", path: path, payload: payload})
	return echoPayload(payload, "name")
}

func (client *stubAPIClient) Patch(executionContext context.Context, path string, payload any) (json.RawMessage, error) {
	client.restCalls = append(client.restCalls, recordedRESTCall{method: "PATCH", path: path, payload: payload})
	return echoPayload(payload, "new_name")
}

func (client *stubAPIClient) callsNamed(name string) []recordedGraphQLCall {
	var matching []recordedGraphQLCall
	for _, call := range client.graphQLCalls {
		if call.name == name {
			matching = append(matching, call)
		}
	}
	return matching
}

func (client *stubAPIClient) restMethods() []string {
	methods := make([]string, 0, len(client.restCalls))
	for _, call := range client.restCalls {
		methods = append(methods, call.method)
	}
	return methods
}

func echoPayload(payload any, nameKey string) (json.RawMessage, error) {
	payloadMap, isMap := payload.(map[string]string)
	if !isMap {
		return json.RawMessage(`{}`), nil
	}
	return json.Marshal(map[string]any{
		"name":        payloadMap[nameKey],
		"color":       payloadMap["color"],
		"description": payloadMap["description"],
		"node_id":     "LA_created",
	})
}
