package migrate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/temirov/ghmigrate/internal/fieldmap"
	"github.com/temirov/ghmigrate/internal/issues"
	"github.com/temirov/ghmigrate/internal/labels"
	"github.com/temirov/ghmigrate/internal/relationships"
	"github.com/temirov/ghmigrate/internal/tabular"
)

const (
	clientMissingMessageConstant          = "GitHub client not configured"
	fieldBindingErrorTemplateConstant     = "project field %s: %w"
	fieldBindingMissingIDTemplateConstant = "project field %s: field_id required"
	componentErrorTemplateConstant        = "unable to construct %s: %w"
	readInputErrorTemplateConstant        = "unable to read %s: %w"
	writeOutputErrorTemplateConstant      = "unable to write %s: %w"
	missingSheetErrorTemplateConstant     = "%s has no sheets"
	rowErrorTemplateConstant              = "Row %d: %s"
	issueManagerComponentConstant         = "issue manager"
	relationshipComponentConstant         = "relationship builder"
	labelComponentConstant                = "label upserter"
)

// ErrClientNotConfigured indicates an operation that needs GitHub was invoked without a client.
var ErrClientNotConfigured = errors.New(clientMissingMessageConstant)

// APIClient is the subset of githubapi.Client used by a migration run.
type APIClient interface {
	ExecuteGraphQL(executionContext context.Context, query string, variables map[string]any, features []string, timeout time.Duration) (map[string]any, error)
	ExecutePagedGraphQL(executionContext context.Context, query string, variables map[string]any, pageInfoPath []string, nodesPath []string, maxPages int) ([]any, error)
	Get(executionContext context.Context, path string, query url.Values) (json.RawMessage, error)
	Post(executionContext context.Context, path string, payload any) (json.RawMessage, error)
	Patch(executionContext context.Context, path string, payload any) (json.RawMessage, error)
}

// Sleeper pauses between rows and returns early when the context ends.
type Sleeper func(executionContext context.Context, duration time.Duration) error

// Dependencies describes collaborators required by Migrator.
type Dependencies struct {
	Client  APIClient
	Logger  *zap.Logger
	Sleeper Sleeper
}

type projectFieldBinding struct {
	column  string
	fieldID string
	kind    issues.FieldKind
}

// Migrator runs the migration operations and owns the state shared across rows.
type Migrator struct {
	configuration       Configuration
	client              APIClient
	logger              *zap.Logger
	sleeper             Sleeper
	mapper              *fieldmap.Mapper
	fieldBindings       []projectFieldBinding
	processedEdges      *relationships.ProcessedEdgeSet
	labelCache          *labels.Cache
	issueManager        *issues.Manager
	relationshipBuilder *relationships.Builder
	labelUpserter       *labels.Upserter
}

// NewMigrator constructs a Migrator. A nil client leaves only MapFields usable.
func NewMigrator(dependencies Dependencies, configuration Configuration) (*Migrator, error) {
	sanitizedConfiguration := configuration.Sanitize()

	fieldBindings, bindingError := parseFieldBindings(sanitizedConfiguration.ProjectFields)
	if bindingError != nil {
		return nil, bindingError
	}

	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	sleeper := dependencies.Sleeper
	if sleeper == nil {
		sleeper = sleepWithContext
	}

	migrator := &Migrator{
		configuration:  sanitizedConfiguration,
		client:         dependencies.Client,
		logger:         logger,
		sleeper:        sleeper,
		mapper:         fieldmap.NewMapper(sanitizedConfiguration.Mappings, sanitizedConfiguration.Processing.Separator),
		fieldBindings:  fieldBindings,
		processedEdges: relationships.NewProcessedEdgeSet(),
		labelCache:     labels.NewCache(),
	}

	if dependencies.Client == nil {
		return migrator, nil
	}

	processing := sanitizedConfiguration.Processing

	issueManager, managerError := issues.NewManager(
		issues.ManagerDependencies{Executor: dependencies.Client, Logger: logger},
		issues.ManagerOptions{DryRun: processing.DryRun, ContinueOnError: processing.ContinueOnError},
	)
	if managerError != nil {
		return nil, fmt.Errorf(componentErrorTemplateConstant, issueManagerComponentConstant, managerError)
	}

	relationshipBuilder, builderError := relationships.NewBuilder(
		relationships.Dependencies{Executor: dependencies.Client, Logger: logger},
		relationships.Options{DryRun: processing.DryRun, ContinueOnError: processing.ContinueOnError},
		migrator.processedEdges,
	)
	if builderError != nil {
		return nil, fmt.Errorf(componentErrorTemplateConstant, relationshipComponentConstant, builderError)
	}

	labelUpserter, upserterError := labels.NewUpserter(
		labels.Dependencies{Executor: dependencies.Client, Logger: logger},
		labels.Options{DryRun: processing.DryRun},
		migrator.labelCache,
	)
	if upserterError != nil {
		return nil, fmt.Errorf(componentErrorTemplateConstant, labelComponentConstant, upserterError)
	}

	migrator.issueManager = issueManager
	migrator.relationshipBuilder = relationshipBuilder
	migrator.labelUpserter = labelUpserter
	return migrator, nil
}

// Configuration returns the sanitized configuration in use.
func (migrator *Migrator) Configuration() Configuration {
	return migrator.configuration
}

func parseFieldBindings(configuredFields map[string]FieldBinding) ([]projectFieldBinding, error) {
	columns := make([]string, 0, len(configuredFields))
	for column := range configuredFields {
		columns = append(columns, column)
	}
	sort.Strings(columns)

	bindings := make([]projectFieldBinding, 0, len(columns))
	for _, column := range columns {
		configuredField := configuredFields[column]
		fieldID := strings.TrimSpace(configuredField.FieldID)
		if len(fieldID) == 0 {
			return nil, fmt.Errorf(fieldBindingMissingIDTemplateConstant, column)
		}
		kind, kindError := issues.ParseFieldKind(configuredField.Type)
		if kindError != nil {
			return nil, fmt.Errorf(fieldBindingErrorTemplateConstant, column, kindError)
		}
		bindings = append(bindings, projectFieldBinding{column: strings.TrimSpace(column), fieldID: fieldID, kind: kind})
	}
	return bindings, nil
}

func (migrator *Migrator) requireClient() error {
	if migrator.client == nil {
		return ErrClientNotConfigured
	}
	return nil
}

func (migrator *Migrator) splitMultiValue(rawValue string) []string {
	return fieldmap.SplitMultiValue(rawValue, migrator.configuration.Processing.Separator)
}

func (migrator *Migrator) joinMultiValue(values []string) string {
	return strings.Join(values, migrator.configuration.Processing.Separator)
}

func (migrator *Migrator) pause(executionContext context.Context) error {
	if migrator.configuration.Processing.SleepBetweenRequests <= 0 {
		return nil
	}
	return migrator.sleeper(executionContext, migrator.configuration.Processing.SleepBetweenRequests)
}

func readSheet(inputPath string, preferredSheetName string) (*tabular.Sheet, error) {
	workbook, readError := tabular.Read(inputPath)
	if readError != nil {
		return nil, fmt.Errorf(readInputErrorTemplateConstant, inputPath, readError)
	}
	sheet, found := workbook.SheetOrFirst(preferredSheetName)
	if !found {
		return nil, fmt.Errorf(missingSheetErrorTemplateConstant, inputPath)
	}
	return sheet, nil
}

func writeSheets(outputPath string, sheets ...*tabular.Sheet) error {
	if writeError := tabular.Write(tabular.NewWorkbook(sheets...), outputPath); writeError != nil {
		return fmt.Errorf(writeOutputErrorTemplateConstant, outputPath, writeError)
	}
	return nil
}

// cellValue reads a column case-insensitively since configuration keys arrive lowercased.
func cellValue(row tabular.Row, column string) string {
	if value, exists := row[column]; exists {
		return strings.TrimSpace(value)
	}
	for existingColumn, value := range row {
		if strings.EqualFold(existingColumn, column) {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

func sleepWithContext(executionContext context.Context, duration time.Duration) error {
	timer := time.NewTimer(duration)
	defer timer.Stop()
	select {
	case <-executionContext.Done():
		return executionContext.Err()
	case <-timer.C:
		return nil
	}
}
