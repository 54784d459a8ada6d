package githubapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	// DefaultGraphQLURL is the public GitHub GraphQL endpoint.
	DefaultGraphQLURL = "https://api.github.com/graphql"
	// DefaultRESTURL is the public GitHub REST endpoint.
	DefaultRESTURL = "https://api.github.com"
	// DefaultAPIVersion is the REST API version header value.
	DefaultAPIVersion = "2022-11-28"
	// DefaultTimeout bounds each individual HTTP attempt.
	DefaultTimeout = 60 * time.Second
	// DefaultMaxRetries is the retry budget for transient failures.
	DefaultMaxRetries = 5
	// DefaultRetryDelay seeds the exponential backoff.
	DefaultRetryDelay = time.Second

	tracerScopeNameConstant            = "github.com/temirov/ghmigrate/internal/githubapi"
	spanNameTemplatePrefixConstant     = "githubapi."
	authorizationHeaderConstant        = "Authorization"
	bearerPrefixConstant               = "Bearer "
	contentTypeHeaderConstant          = "Content-Type"
	contentTypeJSONConstant            = "application/json"
	acceptHeaderConstant               = "Accept"
	acceptHeaderValueConstant          = "application/vnd.github+json"
	apiVersionHeaderConstant           = "X-GitHub-Api-Version"
	graphQLFeaturesHeaderConstant      = "GraphQL-Features"
	graphQLFeaturesSeparatorConstant   = ", "
	maximumResponseSizeBytesConstant   = 50 * 1024 * 1024
	backoffMultiplierConstant          = 2.0
	backoffMaximumIntervalConstant     = time.Minute
	retryScheduledMessageConstant      = "Retrying GitHub request"
	requestFailedMessageConstant       = "GitHub request failed"
	logFieldOperationConstant          = "operation"
	logFieldMethodConstant             = "method"
	logFieldURLConstant                = "url"
	logFieldDelayConstant              = "delay"
	logFieldAttemptConstant            = "attempt"
	spanAttributeOperationConstant     = "ghmigrate.operation"
	spanAttributeMethodConstant        = "http.request.method"
	spanAttributeURLConstant           = "url.full"
	spanAttributeAttemptsConstant      = "ghmigrate.attempts"
	spanAttributeStatusCodeConstant    = "http.response.status_code"
	maxRetriesFieldNameConstant        = "max_retries"
	negativeValueMessageConstant       = "must not be negative"
	trailingSlashConstant              = "/"
	leadingSlashConstant               = "/"
	httpStatusSuccessLowerBoundInclude = 200
	httpStatusSuccessUpperBoundExclude = 300
)

// Configuration describes how the client reaches GitHub.
type Configuration struct {
	Token      string
	GraphQLURL string
	RESTURL    string
	APIVersion string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

// Client issues GraphQL and REST calls with a shared retry policy.
type Client struct {
	configuration Configuration
	httpClient    *http.Client
	logger        *zap.Logger
	tracer        trace.Tracer
}

// NewClient validates the configuration and constructs a Client.
func NewClient(configuration Configuration, logger *zap.Logger) (*Client, error) {
	if len(strings.TrimSpace(configuration.Token)) == 0 {
		return nil, ErrTokenNotConfigured
	}
	if configuration.MaxRetries < 0 {
		return nil, InvalidInputError{FieldName: maxRetriesFieldNameConstant, Message: negativeValueMessageConstant}
	}

	if len(strings.TrimSpace(configuration.GraphQLURL)) == 0 {
		configuration.GraphQLURL = DefaultGraphQLURL
	}
	if len(strings.TrimSpace(configuration.RESTURL)) == 0 {
		configuration.RESTURL = DefaultRESTURL
	}
	configuration.RESTURL = strings.TrimSuffix(configuration.RESTURL, trailingSlashConstant)
	if len(strings.TrimSpace(configuration.APIVersion)) == 0 {
		configuration.APIVersion = DefaultAPIVersion
	}
	if configuration.Timeout <= 0 {
		configuration.Timeout = DefaultTimeout
	}
	if configuration.RetryDelay < 0 {
		configuration.RetryDelay = DefaultRetryDelay
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		configuration: configuration,
		httpClient:    &http.Client{},
		logger:        logger,
		tracer:        otel.Tracer(tracerScopeNameConstant),
	}, nil
}

// WithHTTPClient returns a copy of the client using the provided HTTP client.
func (client *Client) WithHTTPClient(httpClient *http.Client) *Client {
	if httpClient == nil {
		return client
	}
	clone := *client
	clone.httpClient = httpClient
	return &clone
}

// Configuration returns the effective configuration after defaults were applied.
func (client *Client) Configuration() Configuration {
	return client.configuration
}

type requestDetails struct {
	operation OperationName
	method    string
	url       string
	payload   any
	headers   map[string]string
	timeout   time.Duration
}

// execute runs one logical request, retrying transient failures, and returns the raw response body.
func (client *Client) execute(executionContext context.Context, details requestDetails) ([]byte, error) {
	var payloadBytes []byte
	if details.payload != nil {
		encodedPayload, encodingError := json.Marshal(details.payload)
		if encodingError != nil {
			return nil, PayloadEncodingError{Operation: details.operation, Cause: encodingError}
		}
		payloadBytes = encodedPayload
	}

	attemptTimeout := details.timeout
	if attemptTimeout <= 0 {
		attemptTimeout = client.configuration.Timeout
	}

	spanContext, span := client.tracer.Start(executionContext, spanNameTemplatePrefixConstant+string(details.operation),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String(spanAttributeOperationConstant, string(details.operation)),
			attribute.String(spanAttributeMethodConstant, details.method),
			attribute.String(spanAttributeURLConstant, details.url),
		),
	)
	defer span.End()

	attemptCount := 0
	lastStatusCode := 0
	var responseBody []byte

	attemptOperation := func() error {
		attemptCount++
		var requestBody io.Reader
		if payloadBytes != nil {
			requestBody = bytes.NewReader(payloadBytes)
		}

		attemptContext, cancelAttempt := context.WithTimeout(spanContext, attemptTimeout)
		defer cancelAttempt()

		httpRequest, requestError := http.NewRequestWithContext(attemptContext, details.method, details.url, requestBody)
		if requestError != nil {
			return backoff.Permanent(requestError)
		}
		client.decorateRequest(httpRequest, details.headers, payloadBytes != nil)

		httpResponse, transportError := client.httpClient.Do(httpRequest)
		if transportError != nil {
			if executionContext.Err() != nil {
				return backoff.Permanent(executionContext.Err())
			}
			return transportError
		}
		defer httpResponse.Body.Close()

		bodyBytes, readError := io.ReadAll(io.LimitReader(httpResponse.Body, maximumResponseSizeBytesConstant))
		if readError != nil {
			return readError
		}

		lastStatusCode = httpResponse.StatusCode
		if httpResponse.StatusCode < httpStatusSuccessLowerBoundInclude || httpResponse.StatusCode >= httpStatusSuccessUpperBoundExclude {
			statusError := HTTPStatusError{
				Method:     details.method,
				URL:        details.url,
				StatusCode: httpResponse.StatusCode,
				Body:       string(bodyBytes),
			}
			if statusError.Retryable() {
				return statusError
			}
			return backoff.Permanent(statusError)
		}

		responseBody = bodyBytes
		return nil
	}

	retryNotification := func(retryError error, delay time.Duration) {
		client.logger.Warn(
			retryScheduledMessageConstant,
			zap.String(logFieldOperationConstant, string(details.operation)),
			zap.String(logFieldMethodConstant, details.method),
			zap.String(logFieldURLConstant, details.url),
			zap.Int(logFieldAttemptConstant, attemptCount),
			zap.Duration(logFieldDelayConstant, delay),
			zap.Error(retryError),
		)
	}

	retryError := backoff.RetryNotify(attemptOperation, client.newBackOff(spanContext), retryNotification)

	span.SetAttributes(attribute.Int(spanAttributeAttemptsConstant, attemptCount))
	if lastStatusCode != 0 {
		span.SetAttributes(attribute.Int(spanAttributeStatusCodeConstant, lastStatusCode))
	}

	if retryError != nil {
		span.RecordError(retryError)
		span.SetStatus(codes.Error, retryError.Error())
		client.logger.Debug(
			requestFailedMessageConstant,
			zap.String(logFieldOperationConstant, string(details.operation)),
			zap.String(logFieldMethodConstant, details.method),
			zap.String(logFieldURLConstant, details.url),
			zap.Error(retryError),
		)
		return nil, OperationError{Operation: details.operation, Cause: retryError}
	}

	return responseBody, nil
}

func (client *Client) decorateRequest(httpRequest *http.Request, headers map[string]string, hasBody bool) {
	httpRequest.Header.Set(authorizationHeaderConstant, bearerPrefixConstant+client.configuration.Token)
	httpRequest.Header.Set(acceptHeaderConstant, acceptHeaderValueConstant)
	httpRequest.Header.Set(apiVersionHeaderConstant, client.configuration.APIVersion)
	if hasBody {
		httpRequest.Header.Set(contentTypeHeaderConstant, contentTypeJSONConstant)
	}
	for headerName, headerValue := range headers {
		httpRequest.Header.Set(headerName, headerValue)
	}
}

// newBackOff builds a fresh exponential policy bounded by the retry budget.
func (client *Client) newBackOff(executionContext context.Context) backoff.BackOff {
	exponentialBackOff := backoff.NewExponentialBackOff()
	exponentialBackOff.InitialInterval = client.configuration.RetryDelay
	exponentialBackOff.Multiplier = backoffMultiplierConstant
	exponentialBackOff.RandomizationFactor = 0
	exponentialBackOff.MaxInterval = backoffMaximumIntervalConstant
	exponentialBackOff.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(exponentialBackOff, uint64(client.configuration.MaxRetries)), executionContext)
}

func isRetryableStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

func (client *Client) restURL(path string) string {
	if !strings.HasPrefix(path, leadingSlashConstant) {
		path = leadingSlashConstant + path
	}
	return client.configuration.RESTURL + path
}
