package labels

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

const (
	labelsEndpointTemplateConstant    = "/repos/%s/%s/labels"
	labelEndpointTemplateConstant     = "/repos/%s/%s/labels/%s"
	labelsPageSizeConstant            = 100
	perPageParameterConstant          = "per_page"
	pageParameterConstant             = "page"
	colorMarkerConstant               = "#"
	ownerFieldNameConstant            = "owner"
	repositoryFieldNameConstant       = "repository"
	labelNameFieldNameConstant        = "name"
	requiredValueMessageConstant      = "value required"
	invalidInputErrorTemplateConstant = "%s: %s"
	fetchLabelsErrorTemplateConstant  = "unable to list labels for %s/%s: %w"
	decodeLabelsErrorTemplateConstant = "unable to decode labels for %s/%s: %w"
	createLabelErrorTemplateConstant  = "unable to create label %s: %w"
	updateLabelErrorTemplateConstant  = "unable to update label %s: %w"
	decodeLabelErrorTemplateConstant  = "unable to decode label %s: %w"
	upsertFailureTemplateConstant     = "%s: %s"
	executorMissingMessageConstant    = "label REST executor not configured"
	cacheMissingMessageConstant       = "label cache not configured"
	dryRunUpsertMessageConstant       = "[DRY RUN] Would upsert label"
	labelCreatedMessageConstant       = "Created label"
	labelUpdatedMessageConstant       = "Updated label"
	labelsLoadedMessageConstant       = "Loaded existing labels"
	labelUpsertFailedMessageConstant  = "Failed to upsert label"
	logFieldLabelConstant             = "label"
	logFieldRepositoryConstant        = "repository"
	logFieldCountConstant             = "count"
	createPayloadNameKeyConstant      = "name"
	updatePayloadNewNameKeyConstant   = "new_name"
	payloadColorKeyConstant           = "color"
	payloadDescriptionKeyConstant     = "description"
	repositoryLogTemplateConstant     = "%s/%s"
)

// Label describes a repository label.
type Label struct {
	Name        string `json:"name" yaml:"name"`
	Color       string `json:"color" yaml:"color"`
	Description string `json:"description" yaml:"description"`
	NodeID      string `json:"node_id,omitempty" yaml:"node_id,omitempty"`
}

// RESTExecutor is the subset of githubapi.Client used for labels.
type RESTExecutor interface {
	Get(executionContext context.Context, path string, query url.Values) (json.RawMessage, error)
	Post(executionContext context.Context, path string, payload any) (json.RawMessage, error)
	Patch(executionContext context.Context, path string, payload any) (json.RawMessage, error)
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

// Dependencies describes collaborators required by Upserter.
type Dependencies struct {
	Executor RESTExecutor
	Logger   *zap.Logger
}

// Options configures run-wide behavior.
type Options struct {
	DryRun bool
}

// Summary reports the outcome of UpsertLabels.
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
	Errors    []string
	Results   map[string]*Label
}

var (
	errExecutorMissing = errors.New(executorMissingMessageConstant)
	errCacheMissing    = errors.New(cacheMissingMessageConstant)
)

// Upserter creates or updates labels using a caller-owned Cache.
type Upserter struct {
	executor RESTExecutor
	logger   *zap.Logger
	options  Options
	cache    *Cache
}

// NewUpserter constructs an Upserter.
func NewUpserter(dependencies Dependencies, options Options, cache *Cache) (*Upserter, error) {
	if dependencies.Executor == nil {
		return nil, errExecutorMissing
	}
	if cache == nil {
		return nil, errCacheMissing
	}
	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Upserter{executor: dependencies.Executor, logger: logger, options: options, cache: cache}, nil
}

// NormalizeColor strips a leading marker and lowercases the hex color.
func NormalizeColor(rawColor string) string {
	return strings.ToLower(strings.TrimLeft(strings.TrimSpace(rawColor), colorMarkerConstant))
}

// ExistingLabels returns the repository labels, fetching every page on first access.
func (upserter *Upserter) ExistingLabels(executionContext context.Context, owner string, repository string) (map[string]Label, error) {
	if cachedLabels, loaded := upserter.cache.Labels(owner, repository); loaded {
		return cachedLabels, nil
	}

	endpoint := fmt.Sprintf(labelsEndpointTemplateConstant, owner, repository)
	var existingLabels []Label
	for page := 1; ; page++ {
		query := url.Values{}
		query.Set(perPageParameterConstant, strconv.Itoa(labelsPageSizeConstant))
		query.Set(pageParameterConstant, strconv.Itoa(page))

		responseBody, fetchError := upserter.executor.Get(executionContext, endpoint, query)
		if fetchError != nil {
			return nil, fmt.Errorf(fetchLabelsErrorTemplateConstant, owner, repository, fetchError)
		}

		var pageLabels []Label
		if len(responseBody) > 0 {
			if decodingError := json.Unmarshal(responseBody, &pageLabels); decodingError != nil {
				return nil, fmt.Errorf(decodeLabelsErrorTemplateConstant, owner, repository, decodingError)
			}
		}
		existingLabels = append(existingLabels, pageLabels...)
		if len(pageLabels) < labelsPageSizeConstant {
			break
		}
	}

	upserter.cache.Store(owner, repository, existingLabels)
	upserter.logger.Debug(labelsLoadedMessageConstant, zap.String(logFieldRepositoryConstant, fmt.Sprintf(repositoryLogTemplateConstant, owner, repository)), zap.Int(logFieldCountConstant, len(existingLabels)))

	cachedLabels, _ := upserter.cache.Labels(owner, repository)
	return cachedLabels, nil
}

// UpsertLabel updates the existing label with the same case-insensitive name or creates a new one.
//
// The cache entry for the label is refreshed after a successful write so a later upsert of the same name updates instead of creating a duplicate.
func (upserter *Upserter) UpsertLabel(executionContext context.Context, owner string, repository string, label Label) (*Label, error) {
	if validationError := validateTarget(owner, repository, label.Name); validationError != nil {
		return nil, validationError
	}

	normalizedColor := NormalizeColor(label.Color)

	if upserter.options.DryRun {
		upserter.logger.Info(dryRunUpsertMessageConstant, zap.String(logFieldLabelConstant, label.Name))
		return &Label{Name: label.Name, Color: normalizedColor, Description: label.Description}, nil
	}

	existingLabels, existingError := upserter.ExistingLabels(executionContext, owner, repository)
	if existingError != nil {
		return nil, existingError
	}

	var (
		responseBody json.RawMessage
		writeError   error
		logMessage   string
	)
	if existingLabel, exists := existingLabels[labelKey(label.Name)]; exists {
		endpoint := fmt.Sprintf(labelEndpointTemplateConstant, owner, repository, url.PathEscape(existingLabel.Name))
		responseBody, writeError = upserter.executor.Patch(executionContext, endpoint, map[string]string{
			updatePayloadNewNameKeyConstant: label.Name,
			payloadColorKeyConstant:         normalizedColor,
			payloadDescriptionKeyConstant:   label.Description,
		})
		if writeError != nil {
			return nil, fmt.Errorf(updateLabelErrorTemplateConstant, label.Name, writeError)
		}
		logMessage = labelUpdatedMessageConstant
	} else {
		endpoint := fmt.Sprintf(labelsEndpointTemplateConstant, owner, repository)
		responseBody, writeError = upserter.executor.Post(executionContext, endpoint, map[string]string{
			createPayloadNameKeyConstant:  label.Name,
			payloadColorKeyConstant:       normalizedColor,
			payloadDescriptionKeyConstant: label.Description,
		})
		if writeError != nil {
			return nil, fmt.Errorf(createLabelErrorTemplateConstant, label.Name, writeError)
		}
		logMessage = labelCreatedMessageConstant
	}

	writtenLabel := Label{Name: label.Name, Color: normalizedColor, Description: label.Description}
	if len(responseBody) > 0 {
		if decodingError := json.Unmarshal(responseBody, &writtenLabel); decodingError != nil {
			return nil, fmt.Errorf(decodeLabelErrorTemplateConstant, label.Name, decodingError)
		}
	}

	upserter.cache.Refresh(owner, repository, writtenLabel)
	upserter.logger.Info(logMessage, zap.String(logFieldLabelConstant, label.Name), zap.String(logFieldRepositoryConstant, fmt.Sprintf(repositoryLogTemplateConstant, owner, repository)))
	return &writtenLabel, nil
}

// UpsertLabels upserts every label and keeps going after individual failures.
func (upserter *Upserter) UpsertLabels(executionContext context.Context, owner string, repository string, desiredLabels []Label) Summary {
	summary := Summary{Total: len(desiredLabels), Results: make(map[string]*Label, len(desiredLabels))}
	for _, desiredLabel := range desiredLabels {
		upsertedLabel, upsertError := upserter.UpsertLabel(executionContext, owner, repository, desiredLabel)
		summary.Results[desiredLabel.Name] = upsertedLabel
		if upsertError != nil {
			summary.Failed++
			summary.Errors = append(summary.Errors, fmt.Sprintf(upsertFailureTemplateConstant, desiredLabel.Name, upsertError))
			upserter.logger.Warn(labelUpsertFailedMessageConstant, zap.String(logFieldLabelConstant, desiredLabel.Name), zap.Error(upsertError))
			continue
		}
		summary.Succeeded++
	}
	return summary
}

// LabelNodeID returns the GraphQL node identifier of an existing label.
func (upserter *Upserter) LabelNodeID(executionContext context.Context, owner string, repository string, name string) (string, bool, error) {
	if validationError := validateTarget(owner, repository, name); validationError != nil {
		return "", false, validationError
	}
	existingLabels, existingError := upserter.ExistingLabels(executionContext, owner, repository)
	if existingError != nil {
		return "", false, existingError
	}
	existingLabel, exists := existingLabels[labelKey(name)]
	if !exists || len(existingLabel.NodeID) == 0 {
		return "", false, nil
	}
	return existingLabel.NodeID, true, nil
}

func validateTarget(owner string, repository string, name string) error {
	if len(strings.TrimSpace(owner)) == 0 {
		return InvalidInputError{FieldName: ownerFieldNameConstant, Message: requiredValueMessageConstant}
	}
	if len(strings.TrimSpace(repository)) == 0 {
		return InvalidInputError{FieldName: repositoryFieldNameConstant, Message: requiredValueMessageConstant}
	}
	if len(strings.TrimSpace(name)) == 0 {
		return InvalidInputError{FieldName: labelNameFieldNameConstant, Message: requiredValueMessageConstant}
	}
	return nil
}
