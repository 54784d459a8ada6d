package githubapi

import (
	"errors"
	"fmt"
	"strings"
)

const (
	operationErrorMessageTemplateConstant   = "%s operation failed"
	operationErrorWithCauseTemplateConstant = "%s operation failed: %s"
	responseDecodingErrorTemplateConstant   = "%s response decoding failed: %s"
	payloadEncodingErrorTemplateConstant    = "%s payload encoding failed: %s"
	invalidInputErrorTemplateConstant       = "%s: %s"
	httpStatusErrorTemplateConstant         = "%s %s returned status %d: %s"
	remoteRejectionErrorTemplateConstant    = "GraphQL errors: %s"
	remoteRejectionMessageSeparatorConstant = "; "
	missingDataMessageConstant              = "response did not contain data"
	tokenMissingMessageConstant             = "github token not configured"
	requiredValueMessageConstant            = "value required"
	invalidJSONBodyMessageConstant          = "response body is not valid JSON"
	httpStatusBodyExcerptLimitConstant      = 512
)

// OperationName describes a named API call issued by the client.
type OperationName string

var (
	// ErrTokenNotConfigured indicates the client was constructed without a token.
	ErrTokenNotConfigured = errors.New(tokenMissingMessageConstant)
	// ErrMissingResponseData indicates a GraphQL response without a data member.
	ErrMissingResponseData = errors.New(missingDataMessageConstant)

	errInvalidJSONBody = errors.New(invalidJSONBodyMessageConstant)
)

// InvalidInputError surfaces validation issues for request inputs.
type InvalidInputError struct {
	FieldName string
	Message   string
}

// Error describes the invalid input.
func (inputError InvalidInputError) Error() string {
	return fmt.Sprintf(invalidInputErrorTemplateConstant, inputError.FieldName, inputError.Message)
}

// OperationError wraps failures of a named API call after retries were exhausted.
type OperationError struct {
	Operation OperationName
	Cause     error
}

// Error describes the operation failure.
func (operationError OperationError) Error() string {
	if operationError.Cause == nil {
		return fmt.Sprintf(operationErrorMessageTemplateConstant, operationError.Operation)
	}
	return fmt.Sprintf(operationErrorWithCauseTemplateConstant, operationError.Operation, operationError.Cause)
}

// Unwrap exposes the underlying cause.
func (operationError OperationError) Unwrap() error {
	return operationError.Cause
}

// HTTPStatusError reports a non-2xx response.
type HTTPStatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

// Error describes the unexpected status.
func (statusError HTTPStatusError) Error() string {
	bodyExcerpt := strings.TrimSpace(statusError.Body)
	if len(bodyExcerpt) > httpStatusBodyExcerptLimitConstant {
		bodyExcerpt = bodyExcerpt[:httpStatusBodyExcerptLimitConstant]
	}
	return fmt.Sprintf(httpStatusErrorTemplateConstant, statusError.Method, statusError.URL, statusError.StatusCode, bodyExcerpt)
}

// Retryable reports whether the status belongs to the transient set.
func (statusError HTTPStatusError) Retryable() bool {
	return isRetryableStatus(statusError.StatusCode)
}

// RemoteRejectionError reports a GraphQL response that carried an errors array.
type RemoteRejectionError struct {
	Messages []string
}

// Error joins the remote messages.
func (rejectionError RemoteRejectionError) Error() string {
	return fmt.Sprintf(remoteRejectionErrorTemplateConstant, strings.Join(rejectionError.Messages, remoteRejectionMessageSeparatorConstant))
}

// ResponseDecodingError indicates JSON decoding failures.
type ResponseDecodingError struct {
	Operation OperationName
	Cause     error
}

// Error describes the decoding failure.
func (decodingError ResponseDecodingError) Error() string {
	return fmt.Sprintf(responseDecodingErrorTemplateConstant, decodingError.Operation, decodingError.Cause)
}

// Unwrap exposes the underlying JSON error.
func (decodingError ResponseDecodingError) Unwrap() error {
	return decodingError.Cause
}

// PayloadEncodingError indicates JSON encoding issues.
type PayloadEncodingError struct {
	Operation OperationName
	Cause     error
}

// Error describes the encoding failure.
func (encodingError PayloadEncodingError) Error() string {
	return fmt.Sprintf(payloadEncodingErrorTemplateConstant, encodingError.Operation, encodingError.Cause)
}

// Unwrap exposes the underlying error.
func (encodingError PayloadEncodingError) Unwrap() error {
	return encodingError.Cause
}
