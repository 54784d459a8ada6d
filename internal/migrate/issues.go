package migrate

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/ghmigrate/internal/fieldmap"
	"github.com/temirov/ghmigrate/internal/issues"
	"github.com/temirov/ghmigrate/internal/tabular"
)

const (
	resultsSheetNameConstant           = "Results"
	columnRowConstant                  = "row"
	columnTitleConstant                = "title"
	columnSuccessConstant              = "success"
	columnIssueIDConstant              = "issueId"
	columnIssueNumberConstant          = "issueNumber"
	columnIssueURLConstant             = "issueUrl"
	columnProjectItemIDConstant        = "projectItemId"
	columnErrorsConstant               = "errors"
	resultErrorsSeparatorConstant      = "; "
	commentAuthorTemplateConstant      = "[Author: %s] %s"
	labelNodePrefixConstant            = "LA_"
	labelNotFoundTemplateConstant      = "label %q not found in %s/%s"
	labelLookupErrorTemplateConstant   = "label %q lookup failed: %v"
	fieldValueErrorTemplateConstant    = "project field %s: %v"
	migrationStartedMessageConstant    = "Migrating issues"
	migrationRowSkippedMessageConstant = "Skipping row without title"
	migrationRowFailedMessageConstant  = "Issue migration failed"
	migrationCompletedMessageConstant  = "Issue migration complete"
	migrationCancelledMessageConstant  = "Issue migration cancelled"
	logFieldRowConstant                = "row"
	logFieldSucceededConstant          = "succeeded"
	logFieldFailedConstant             = "failed"
	logFieldSkippedConstant            = "skipped"
	logFieldTotalConstant              = "total"
	logFieldErrorConstant              = "error"
	logFieldTitleConstant              = "title"
)

var issueResultColumns = []string{
	columnRowConstant,
	columnTitleConstant,
	columnSuccessConstant,
	columnIssueIDConstant,
	columnIssueNumberConstant,
	columnIssueURLConstant,
	columnProjectItemIDConstant,
	columnErrorsConstant,
}

// IssueSummary reports the outcome of MigrateIssues.
type IssueSummary struct {
	Total     int
	Succeeded int
	Failed    int
	Skipped   int
	Errors    []string
}

// MigrateIssues creates one issue per row of the Issues sheet and writes a Results sheet when resultsPath is set.
func (migrator *Migrator) MigrateIssues(executionContext context.Context, inputPath string, resultsPath string) (IssueSummary, error) {
	if clientError := migrator.requireClient(); clientError != nil {
		return IssueSummary{}, clientError
	}

	sheet, readError := readSheet(inputPath, issuesSheetNameConstant)
	if readError != nil {
		return IssueSummary{}, readError
	}

	migrator.logger.Info(migrationStartedMessageConstant, zap.String(logFieldInputConstant, inputPath), zap.Int(logFieldTotalConstant, len(sheet.Rows)))

	summary := IssueSummary{Total: len(sheet.Rows)}
	resultsSheet := tabular.NewSheet(resultsSheetNameConstant, issueResultColumns...)

	for rowIndex, row := range sheet.Rows {
		rowNumber := sheet.RowNumber(rowIndex)
		if contextError := executionContext.Err(); contextError != nil {
			migrator.logger.Warn(migrationCancelledMessageConstant, zap.Int(logFieldRowConstant, rowNumber))
			return summary, contextError
		}

		title := cellValue(row, columnIssueTitleConstant)
		if len(title) == 0 {
			migrator.logger.Warn(migrationRowSkippedMessageConstant, zap.Int(logFieldRowConstant, rowNumber))
			summary.Skipped++
			continue
		}

		request, preparationErrors := migrator.issueRequest(executionContext, row, title)
		var result issues.IssueResult
		if len(preparationErrors) > 0 && !migrator.configuration.Processing.ContinueOnError {
			result = issues.IssueResult{Errors: preparationErrors}
		} else {
			result = migrator.issueManager.CreateCompleteIssue(executionContext, request)
			result.Errors = append(preparationErrors, result.Errors...)
		}

		if result.Success {
			summary.Succeeded++
		} else {
			summary.Failed++
			migrator.logger.Warn(migrationRowFailedMessageConstant, zap.Int(logFieldRowConstant, rowNumber), zap.String(logFieldTitleConstant, title))
		}
		for _, message := range result.Errors {
			summary.Errors = append(summary.Errors, fmt.Sprintf(rowErrorTemplateConstant, rowNumber, message))
		}

		resultsSheet.AppendRow(issueResultRow(rowNumber, title, result))

		if pauseError := migrator.pause(executionContext); pauseError != nil {
			return summary, pauseError
		}
	}

	if len(resultsPath) > 0 {
		if writeError := writeSheets(resultsPath, resultsSheet); writeError != nil {
			return summary, writeError
		}
	}

	migrator.logger.Info(migrationCompletedMessageConstant,
		zap.Int(logFieldTotalConstant, summary.Total),
		zap.Int(logFieldSucceededConstant, summary.Succeeded),
		zap.Int(logFieldFailedConstant, summary.Failed),
		zap.Int(logFieldSkippedConstant, summary.Skipped),
	)
	return summary, nil
}

func (migrator *Migrator) issueRequest(executionContext context.Context, row tabular.Row, title string) (issues.IssueRequest, []string) {
	project := migrator.configuration.Project

	repositoryID := cellValue(row, columnRepoIDConstant)
	if len(repositoryID) == 0 {
		repositoryID = project.TargetRepositoryID
	}
	projectID := cellValue(row, columnProjectIDConstant)
	if len(projectID) == 0 {
		projectID = project.TargetProjectID
	}

	projectFields, fieldErrors := migrator.projectFieldUpdates(row)
	labelIDs, labelErrors := migrator.resolveLabelIDs(executionContext, migrator.splitMultiValue(cellValue(row, columnLabelIDsConstant)))

	request := issues.IssueRequest{
		RepositoryID:  repositoryID,
		ProjectID:     projectID,
		Title:         title,
		Body:          cellValue(row, columnIssueBodyConstant),
		MilestoneID:   cellValue(row, columnMilestoneIDConstant),
		IssueTypeID:   cellValue(row, columnIssueTypeIDConstant),
		AssigneeIDs:   migrator.splitMultiValue(cellValue(row, columnAssigneeIDsConstant)),
		ProjectFields: projectFields,
		Comments:      migrator.attributedComments(row),
		LabelIDs:      labelIDs,
	}
	return request, append(fieldErrors, labelErrors...)
}

func (migrator *Migrator) projectFieldUpdates(row tabular.Row) ([]issues.ProjectFieldUpdate, []string) {
	var updates []issues.ProjectFieldUpdate
	var fieldErrors []string
	for _, binding := range migrator.fieldBindings {
		resolvedValue := cellValue(row, binding.column)
		if len(resolvedValue) == 0 {
			continue
		}
		fieldValue, valueError := issues.NewProjectFieldValue(binding.kind, resolvedValue)
		if valueError != nil {
			fieldErrors = append(fieldErrors, fmt.Sprintf(fieldValueErrorTemplateConstant, binding.column, valueError))
			continue
		}
		updates = append(updates, issues.ProjectFieldUpdate{FieldID: binding.fieldID, Value: fieldValue})
	}
	return updates, fieldErrors
}

// attributedComments prefixes each comment with the author at the same position.
func (migrator *Migrator) attributedComments(row tabular.Row) []string {
	separator := migrator.configuration.Processing.Separator
	commentBodies := fieldmap.SplitPositional(cellValue(row, columnCommentsConstant), separator)
	commentAuthors := fieldmap.SplitPositional(cellValue(row, columnCommentAuthorsConstant), separator)

	var comments []string
	for commentIndex, commentBody := range commentBodies {
		if len(commentBody) == 0 {
			continue
		}
		if commentIndex < len(commentAuthors) && len(commentAuthors[commentIndex]) > 0 {
			comments = append(comments, fmt.Sprintf(commentAuthorTemplateConstant, commentAuthors[commentIndex], commentBody))
			continue
		}
		comments = append(comments, commentBody)
	}
	return comments
}

// resolveLabelIDs turns label names into node identifiers of the target repository.
//
// Node identifiers pass through unchanged, as does everything when no target repository is configured or in dry run.
func (migrator *Migrator) resolveLabelIDs(executionContext context.Context, labelTokens []string) ([]string, []string) {
	owner := migrator.configuration.Project.TargetOwner
	repository := migrator.configuration.Project.TargetRepository
	if migrator.configuration.Processing.DryRun || len(owner) == 0 || len(repository) == 0 {
		return labelTokens, nil
	}

	var labelIDs []string
	var labelErrors []string
	for _, labelToken := range labelTokens {
		if strings.HasPrefix(labelToken, labelNodePrefixConstant) {
			labelIDs = append(labelIDs, labelToken)
			continue
		}
		nodeID, found, lookupError := migrator.labelUpserter.LabelNodeID(executionContext, owner, repository, labelToken)
		switch {
		case lookupError != nil:
			labelErrors = append(labelErrors, fmt.Sprintf(labelLookupErrorTemplateConstant, labelToken, lookupError))
		case !found:
			labelErrors = append(labelErrors, fmt.Sprintf(labelNotFoundTemplateConstant, labelToken, owner, repository))
		default:
			labelIDs = append(labelIDs, nodeID)
		}
	}
	return labelIDs, labelErrors
}

func issueResultRow(rowNumber int, title string, result issues.IssueResult) tabular.Row {
	issueNumber := ""
	if result.IssueNumber > 0 {
		issueNumber = strconv.Itoa(result.IssueNumber)
	}
	return tabular.Row{
		columnRowConstant:           strconv.Itoa(rowNumber),
		columnTitleConstant:         title,
		columnSuccessConstant:       strconv.FormatBool(result.Success),
		columnIssueIDConstant:       result.IssueID,
		columnIssueNumberConstant:   issueNumber,
		columnIssueURLConstant:      result.IssueURL,
		columnProjectItemIDConstant: result.ProjectItemID,
		columnErrorsConstant:        strings.Join(result.Errors, resultErrorsSeparatorConstant),
	}
}
