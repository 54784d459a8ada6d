package migrate

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/ghmigrate/internal/tabular"
)

const (
	relationshipsSheetNameConstant        = "Relationships"
	columnParentIssueConstant             = "parentIssue"
	columnSubIssuesConstant               = "subIssues"
	columnBlockedByConstant               = "blockedBy"
	columnBlockingConstant                = "blocking"
	columnRelationshipsAddedConstant      = "relationshipsAdded"
	relationshipsStartedMessageConstant   = "Migrating relationships"
	relationshipsRowFailedMessageConstant = "Relationship migration failed"
	relationshipsCompletedMessageConstant = "Relationship migration complete"
	relationshipsCancelledMessageConstant = "Relationship migration cancelled"
	logFieldRelationshipsAddedConstant    = "relationships_added"
	logFieldIssueIDConstant               = "issue_id"
)

var relationshipResultColumns = []string{
	columnRowConstant,
	columnIssueIDConstant,
	columnRelationshipsAddedConstant,
	columnErrorsConstant,
}

// RelationshipSummary reports the outcome of MigrateRelationships.
type RelationshipSummary struct {
	Total              int
	RelationshipsAdded int
	Failed             int
	Skipped            int
	Errors             []string
}

// MigrateRelationships links existing issues as sub-issues and blockers.
//
// The issueTitle column carries the node identifier of the issue the row describes.
func (migrator *Migrator) MigrateRelationships(executionContext context.Context, inputPath string, resultsPath string) (RelationshipSummary, error) {
	if clientError := migrator.requireClient(); clientError != nil {
		return RelationshipSummary{}, clientError
	}

	sheet, readError := readSheet(inputPath, relationshipsSheetNameConstant)
	if readError != nil {
		return RelationshipSummary{}, readError
	}

	migrator.logger.Info(relationshipsStartedMessageConstant, zap.String(logFieldInputConstant, inputPath), zap.Int(logFieldTotalConstant, len(sheet.Rows)))

	summary := RelationshipSummary{Total: len(sheet.Rows)}
	resultsSheet := tabular.NewSheet(resultsSheetNameConstant, relationshipResultColumns...)

	for rowIndex, row := range sheet.Rows {
		rowNumber := sheet.RowNumber(rowIndex)
		if contextError := executionContext.Err(); contextError != nil {
			migrator.logger.Warn(relationshipsCancelledMessageConstant, zap.Int(logFieldRowConstant, rowNumber))
			return summary, contextError
		}

		issueID := cellValue(row, columnIssueTitleConstant)
		if len(issueID) == 0 {
			summary.Skipped++
			continue
		}

		result := migrator.relationshipBuilder.ProcessRelationships(
			executionContext,
			issueID,
			cellValue(row, columnParentIssueConstant),
			migrator.splitMultiValue(cellValue(row, columnSubIssuesConstant)),
			migrator.splitMultiValue(cellValue(row, columnBlockedByConstant)),
			migrator.splitMultiValue(cellValue(row, columnBlockingConstant)),
		)

		summary.RelationshipsAdded += result.RelationshipsAdded
		if !result.Success {
			summary.Failed++
			migrator.logger.Warn(relationshipsRowFailedMessageConstant, zap.Int(logFieldRowConstant, rowNumber), zap.String(logFieldIssueIDConstant, issueID))
		}
		for _, message := range result.Errors {
			summary.Errors = append(summary.Errors, fmt.Sprintf(rowErrorTemplateConstant, rowNumber, message))
		}

		resultsSheet.AppendRow(tabular.Row{
			columnRowConstant:                strconv.Itoa(rowNumber),
			columnIssueIDConstant:            issueID,
			columnRelationshipsAddedConstant: strconv.Itoa(result.RelationshipsAdded),
			columnErrorsConstant:             strings.Join(result.Errors, resultErrorsSeparatorConstant),
		})

		if pauseError := migrator.pause(executionContext); pauseError != nil {
			return summary, pauseError
		}
	}

	if len(resultsPath) > 0 {
		if writeError := writeSheets(resultsPath, resultsSheet); writeError != nil {
			return summary, writeError
		}
	}

	migrator.logger.Info(relationshipsCompletedMessageConstant,
		zap.Int(logFieldTotalConstant, summary.Total),
		zap.Int(logFieldRelationshipsAddedConstant, summary.RelationshipsAdded),
		zap.Int(logFieldFailedConstant, summary.Failed),
	)
	return summary, nil
}
