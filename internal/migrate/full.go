package migrate

import (
	"context"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/temirov/ghmigrate/internal/labels"
)

const (
	extractedIssuesFileNameConstant     = "extracted_issues.xlsx"
	mappedIssuesFileNameConstant        = "mapped_issues.xlsx"
	migrationResultsFileNameConstant    = "migration_results.xlsx"
	relationshipResultsFileNameConstant = "relationships_results.xlsx"
	outputDirectoryPermissionsConstant  = 0o755
	fullRunStepMessageConstant          = "Full migration step"
	fullRunCompletedMessageConstant     = "Full migration complete"
	logFieldStepConstant                = "step"
	stepLabelsConstant                  = "labels"
	stepExtractConstant                 = "extract"
	stepMapConstant                     = "map"
	stepMigrateConstant                 = "migrate"
	stepRelationshipsConstant           = "relationships"
)

// FullRunRequest describes the inputs of RunFull. Empty inputs skip or replace their step.
type FullRunRequest struct {
	OutputDirectory    string
	MigrateInput       string
	RelationshipsInput string
	LabelsInput        string
	Limit              int
}

// FullRunSummary aggregates the step summaries of RunFull.
type FullRunSummary struct {
	Labels        *labels.Summary
	Extract       *ExtractSummary
	Mapping       MapSummary
	Issues        IssueSummary
	Relationships *RelationshipSummary
}

// RunFull migrates labels, issues and relationships into the target project in one pass.
//
// Without a migrate input the source project is extracted first. Labels run before issues so label names in the
// issue sheet resolve against the target repository.
func (migrator *Migrator) RunFull(executionContext context.Context, request FullRunRequest) (FullRunSummary, error) {
	if clientError := migrator.requireClient(); clientError != nil {
		return FullRunSummary{}, clientError
	}

	outputDirectory := request.OutputDirectory
	if len(outputDirectory) == 0 {
		outputDirectory = migrator.configuration.Processing.OutputDirectory
	}
	if directoryError := os.MkdirAll(outputDirectory, outputDirectoryPermissionsConstant); directoryError != nil {
		return FullRunSummary{}, directoryError
	}

	var summary FullRunSummary

	if len(request.LabelsInput) > 0 {
		migrator.logStep(stepLabelsConstant)
		labelSummary, labelsError := migrator.MigrateLabels(executionContext, request.LabelsInput, LabelTarget{})
		if labelsError != nil {
			return summary, labelsError
		}
		summary.Labels = &labelSummary
	}

	migrateInput := request.MigrateInput
	if len(migrateInput) == 0 {
		migrator.logStep(stepExtractConstant)
		migrateInput = filepath.Join(outputDirectory, extractedIssuesFileNameConstant)
		extractSummary, extractError := migrator.ExtractIssues(executionContext, "", migrateInput, request.Limit)
		if extractError != nil {
			return summary, extractError
		}
		summary.Extract = &extractSummary
	}

	migrator.logStep(stepMapConstant)
	mappedPath := filepath.Join(outputDirectory, mappedIssuesFileNameConstant)
	mapSummary, mapError := migrator.MapFields(migrateInput, mappedPath)
	if mapError != nil {
		return summary, mapError
	}
	summary.Mapping = mapSummary

	migrator.logStep(stepMigrateConstant)
	issueSummary, issuesError := migrator.MigrateIssues(executionContext, mappedPath, filepath.Join(outputDirectory, migrationResultsFileNameConstant))
	summary.Issues = issueSummary
	if issuesError != nil {
		return summary, issuesError
	}

	if len(request.RelationshipsInput) > 0 {
		migrator.logStep(stepRelationshipsConstant)
		relationshipSummary, relationshipsError := migrator.MigrateRelationships(executionContext, request.RelationshipsInput, filepath.Join(outputDirectory, relationshipResultsFileNameConstant))
		summary.Relationships = &relationshipSummary
		if relationshipsError != nil {
			return summary, relationshipsError
		}
	}

	migrator.logger.Info(fullRunCompletedMessageConstant,
		zap.Int(logFieldSucceededConstant, summary.Issues.Succeeded),
		zap.Int(logFieldTotalConstant, summary.Issues.Total),
	)
	return summary, nil
}

func (migrator *Migrator) logStep(step string) {
	migrator.logger.Info(fullRunStepMessageConstant, zap.String(logFieldStepConstant, step))
}
