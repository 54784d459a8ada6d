package githubapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

const (
	executeGraphQLOperationNameConstant = OperationName("ExecuteGraphQL")
	pagedGraphQLOperationNameConstant   = OperationName("ExecutePagedGraphQL")
	queryFieldNameConstant              = "query"
	pageInfoPathFieldNameConstant       = "page_info_path"
	nodesPathFieldNameConstant          = "nodes_path"
	cursorVariableNameConstant          = "after"
	hasNextPageKeyConstant              = "hasNextPage"
	endCursorKeyConstant                = "endCursor"
	unknownRemoteErrorMessageConstant   = "unknown error"
)

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLResponse struct {
	Data   map[string]any `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// ExecuteGraphQL posts a query and returns its data member.
//
// Optional features are sent in the GraphQL-Features header. A zero timeout uses the configured default.
func (client *Client) ExecuteGraphQL(executionContext context.Context, query string, variables map[string]any, features []string, timeout time.Duration) (map[string]any, error) {
	if len(strings.TrimSpace(query)) == 0 {
		return nil, InvalidInputError{FieldName: queryFieldNameConstant, Message: requiredValueMessageConstant}
	}

	var headers map[string]string
	if len(features) > 0 {
		headers = map[string]string{graphQLFeaturesHeaderConstant: strings.Join(features, graphQLFeaturesSeparatorConstant)}
	}

	responseBody, executionError := client.execute(executionContext, requestDetails{
		operation: executeGraphQLOperationNameConstant,
		method:    http.MethodPost,
		url:       client.configuration.GraphQLURL,
		payload:   graphQLRequest{Query: query, Variables: variables},
		headers:   headers,
		timeout:   timeout,
	})
	if executionError != nil {
		return nil, executionError
	}

	var response graphQLResponse
	decoder := json.NewDecoder(bytes.NewReader(responseBody))
	decoder.UseNumber()
	if decodingError := decoder.Decode(&response); decodingError != nil {
		return nil, ResponseDecodingError{Operation: executeGraphQLOperationNameConstant, Cause: decodingError}
	}

	if len(response.Errors) > 0 {
		messages := make([]string, 0, len(response.Errors))
		for _, remoteError := range response.Errors {
			message := strings.TrimSpace(remoteError.Message)
			if len(message) == 0 {
				message = unknownRemoteErrorMessageConstant
			}
			messages = append(messages, message)
		}
		return nil, OperationError{Operation: executeGraphQLOperationNameConstant, Cause: RemoteRejectionError{Messages: messages}}
	}

	if response.Data == nil {
		return nil, OperationError{Operation: executeGraphQLOperationNameConstant, Cause: ErrMissingResponseData}
	}

	return response.Data, nil
}

// ExecutePagedGraphQL follows cursor pagination and returns the accumulated nodes.
//
// pageInfoPath locates the object holding hasNextPage and endCursor; nodesPath locates the node list.
// The cursor is passed through the "after" variable. A positive maxPages bounds the number of requests.
func (client *Client) ExecutePagedGraphQL(executionContext context.Context, query string, variables map[string]any, pageInfoPath []string, nodesPath []string, maxPages int) ([]any, error) {
	if len(pageInfoPath) == 0 {
		return nil, InvalidInputError{FieldName: pageInfoPathFieldNameConstant, Message: requiredValueMessageConstant}
	}
	if len(nodesPath) == 0 {
		return nil, InvalidInputError{FieldName: nodesPathFieldNameConstant, Message: requiredValueMessageConstant}
	}

	pageVariables := make(map[string]any, len(variables)+1)
	for variableName, variableValue := range variables {
		pageVariables[variableName] = variableValue
	}

	var accumulatedNodes []any
	pageCount := 0
	for {
		data, executionError := client.ExecuteGraphQL(executionContext, query, pageVariables, nil, 0)
		if executionError != nil {
			return accumulatedNodes, OperationError{Operation: pagedGraphQLOperationNameConstant, Cause: executionError}
		}
		pageCount++

		if pageNodes, found := LookupPath(data, nodesPath...); found {
			if nodeList, isList := pageNodes.([]any); isList {
				accumulatedNodes = append(accumulatedNodes, nodeList...)
			}
		}

		pageInfo, _ := LookupPath(data, pageInfoPath...)
		pageInfoObject, _ := pageInfo.(map[string]any)
		hasNextPage, _ := pageInfoObject[hasNextPageKeyConstant].(bool)
		endCursor, _ := pageInfoObject[endCursorKeyConstant].(string)

		if !hasNextPage || len(endCursor) == 0 {
			break
		}
		if maxPages > 0 && pageCount >= maxPages {
			break
		}
		pageVariables[cursorVariableNameConstant] = endCursor
	}

	return accumulatedNodes, nil
}

// LookupPath walks nested JSON objects along the provided keys.
func LookupPath(root any, keys ...string) (any, bool) {
	current := root
	for _, key := range keys {
		currentObject, isObject := current.(map[string]any)
		if !isObject {
			return nil, false
		}
		next, exists := currentObject[key]
		if !exists || next == nil {
			return nil, false
		}
		current = next
	}
	return current, true
}

// LookupString returns the string found at the path or an empty string.
func LookupString(root any, keys ...string) string {
	value, found := LookupPath(root, keys...)
	if !found {
		return ""
	}
	switch typedValue := value.(type) {
	case string:
		return typedValue
	case json.Number:
		return typedValue.String()
	default:
		return ""
	}
}

// LookupInt returns the integer found at the path.
func LookupInt(root any, keys ...string) (int64, bool) {
	value, found := LookupPath(root, keys...)
	if !found {
		return 0, false
	}
	switch typedValue := value.(type) {
	case json.Number:
		parsedValue, parseError := typedValue.Int64()
		if parseError != nil {
			return 0, false
		}
		return parsedValue, true
	case float64:
		return int64(typedValue), true
	case int:
		return int64(typedValue), true
	case int64:
		return typedValue, true
	default:
		return 0, false
	}
}
