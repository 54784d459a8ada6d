package migrate

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/ghmigrate/internal/tabular"
)

const (
	columnIterationIDConstant        = "iterationId"
	columnQuarterIterationIDConstant = "quarterIterationId"
	columnStatusOptionIDConstant     = "statusOptionId"
	columnTeamOptionIDConstant       = "teamOptionId"
	columnPriorityOptionIDConstant   = "priorityOptionId"
	columnReadinessOptionIDConstant  = "readinessOptionId"
	columnEffortOptionIDConstant     = "estimatedEffortOptionId"
	columnStartDateConstant          = "startDate"
	columnEndDateConstant            = "endDate"
	mappingStartedMessageConstant    = "Mapping fields"
	mappingCompletedMessageConstant  = "Mapped fields written"
	logFieldInputConstant            = "input"
	logFieldSheetsConstant           = "sheets"
	logFieldRowsConstant             = "rows"
	floatBitSizeConstant             = 64
)

// MapSummary reports the outcome of MapFields.
type MapSummary struct {
	Sheets int
	Rows   int
	Output string
}

type columnMapping struct {
	column string
	apply  func(rawValue string) string
}

// MapFields resolves human-readable values in every sheet of the input to platform identifiers.
//
// Columns absent from a sheet are left alone; repoId and projectId are always stamped from the target project.
func (migrator *Migrator) MapFields(inputPath string, outputPath string) (MapSummary, error) {
	migrator.logger.Info(mappingStartedMessageConstant, zap.String(logFieldInputConstant, inputPath))

	workbook, readError := tabular.Read(inputPath)
	if readError != nil {
		return MapSummary{}, fmt.Errorf(readInputErrorTemplateConstant, inputPath, readError)
	}

	summary := MapSummary{Sheets: len(workbook.Sheets), Output: outputPath}
	for _, sheet := range workbook.Sheets {
		migrator.mapSheet(sheet)
		summary.Rows += len(sheet.Rows)
	}

	if writeError := writeSheets(outputPath, workbook.Sheets...); writeError != nil {
		return MapSummary{}, writeError
	}

	migrator.logger.Info(mappingCompletedMessageConstant,
		zap.Int(logFieldSheetsConstant, summary.Sheets),
		zap.Int(logFieldRowsConstant, summary.Rows),
		zap.String(logFieldOutputConstant, outputPath),
	)
	return summary, nil
}

func (migrator *Migrator) mapSheet(sheet *tabular.Sheet) {
	mapper := migrator.mapper
	mappings := []columnMapping{
		{column: columnIterationIDConstant, apply: func(rawValue string) string { return mapper.MapIteration(numericOrText(rawValue)) }},
		{column: columnQuarterIterationIDConstant, apply: func(rawValue string) string { return mapper.MapQuarter(numericOrText(rawValue)) }},
		{column: columnStatusOptionIDConstant, apply: mapper.MapStatus},
		{column: columnTeamOptionIDConstant, apply: mapper.MapTeam},
		{column: columnPriorityOptionIDConstant, apply: mapper.MapPriority},
		{column: columnReadinessOptionIDConstant, apply: mapper.MapReadiness},
		{column: columnEffortOptionIDConstant, apply: mapper.MapEffort},
		{column: columnMilestoneIDConstant, apply: mapper.MapMilestone},
		{column: columnAssigneeIDsConstant, apply: mapper.MapUsers},
		{column: columnCommentAuthorsConstant, apply: mapper.MapCommentAuthors},
		{column: columnStartDateConstant, apply: func(rawValue string) string { return mapper.FormatDate(rawValue) }},
		{column: columnEndDateConstant, apply: func(rawValue string) string { return mapper.FormatDate(rawValue) }},
	}

	mapsIssueType := sheet.HasColumn(columnIssueTypeIDConstant) && sheet.HasColumn(columnLabelIDsConstant)
	mapsLabels := sheet.HasColumn(columnLabelIDsConstant)

	sheet.EnsureColumn(columnRepoIDConstant)
	sheet.EnsureColumn(columnProjectIDConstant)

	for _, row := range sheet.Rows {
		rawLabels := row[columnLabelIDsConstant]

		for _, mapping := range mappings {
			if !sheet.HasColumn(mapping.column) {
				continue
			}
			row[mapping.column] = mapping.apply(row[mapping.column])
		}
		if mapsLabels {
			row[columnLabelIDsConstant] = mapper.MapLabels(rawLabels)
		}
		if mapsIssueType {
			row[columnIssueTypeIDConstant] = mapper.MapIssueType(row[columnIssueTypeIDConstant], rawLabels)
		}

		row[columnRepoIDConstant] = migrator.configuration.Project.TargetRepositoryID
		row[columnProjectIDConstant] = migrator.configuration.Project.TargetProjectID
	}
}

// numericOrText hands numeric cells to the iteration mappers as numbers.
func numericOrText(rawValue string) any {
	trimmedValue := strings.TrimSpace(rawValue)
	if numericValue, parseError := strconv.ParseFloat(trimmedValue, floatBitSizeConstant); parseError == nil {
		return numericValue
	}
	return trimmedValue
}
