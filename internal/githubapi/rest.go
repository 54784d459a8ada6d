package githubapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
)

const (
	restGetOperationNameConstant    = OperationName("RESTGet")
	restPostOperationNameConstant   = OperationName("RESTPost")
	restPatchOperationNameConstant  = OperationName("RESTPatch")
	restDeleteOperationNameConstant = OperationName("RESTDelete")
	querySeparatorConstant          = "?"
)

// Get issues a REST GET against a path relative to the REST endpoint.
func (client *Client) Get(executionContext context.Context, path string, query url.Values) (json.RawMessage, error) {
	requestURL := client.restURL(path)
	if len(query) > 0 {
		requestURL += querySeparatorConstant + query.Encode()
	}
	return client.executeREST(executionContext, restGetOperationNameConstant, http.MethodGet, requestURL, nil)
}

// Post issues a REST POST with a JSON payload.
func (client *Client) Post(executionContext context.Context, path string, payload any) (json.RawMessage, error) {
	return client.executeREST(executionContext, restPostOperationNameConstant, http.MethodPost, client.restURL(path), payload)
}

// Patch issues a REST PATCH with a JSON payload.
func (client *Client) Patch(executionContext context.Context, path string, payload any) (json.RawMessage, error) {
	return client.executeREST(executionContext, restPatchOperationNameConstant, http.MethodPatch, client.restURL(path), payload)
}

// Delete issues a REST DELETE.
func (client *Client) Delete(executionContext context.Context, path string) error {
	_, deleteError := client.executeREST(executionContext, restDeleteOperationNameConstant, http.MethodDelete, client.restURL(path), nil)
	return deleteError
}

func (client *Client) executeREST(executionContext context.Context, operation OperationName, method string, requestURL string, payload any) (json.RawMessage, error) {
	responseBody, executionError := client.execute(executionContext, requestDetails{
		operation: operation,
		method:    method,
		url:       requestURL,
		payload:   payload,
	})
	if executionError != nil {
		return nil, executionError
	}
	if len(responseBody) == 0 {
		return nil, nil
	}
	if !json.Valid(responseBody) {
		return nil, ResponseDecodingError{Operation: operation, Cause: errInvalidJSONBody}
	}
	return json.RawMessage(responseBody), nil
}
