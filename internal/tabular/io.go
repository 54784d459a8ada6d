package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	spreadsheetExtensionConstant         = ".xlsx"
	commaSeparatedExtensionConstant      = ".csv"
	defaultExcelizeSheetNameConstant     = "Sheet1"
	directoryPermissionsConstant         = 0o755
	firstColumnIndexConstant             = 1
	headerRowIndexConstant               = 1
	byteOrderMarkConstant                = "\ufeff"
	unsupportedExtensionTemplateConstant = "unsupported tabular file extension %q"
	openWorkbookErrorTemplateConstant    = "unable to open workbook %s: %w"
	readSheetErrorTemplateConstant       = "unable to read sheet %s: %w"
	writeWorkbookErrorTemplateConstant   = "unable to write workbook %s: %w"
	cellNameErrorTemplateConstant        = "unable to address cell %d,%d: %w"
	csvSheetCountErrorTemplateConstant   = "csv output %s holds exactly one sheet, got %d"
	emptyWorkbookMessageConstant         = "workbook has no sheets"
)

var errEmptyWorkbook = errors.New(emptyWorkbookMessageConstant)

// Read loads a workbook from an .xlsx or .csv file.
func Read(filePath string) (*Workbook, error) {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case spreadsheetExtensionConstant:
		return readSpreadsheet(filePath)
	case commaSeparatedExtensionConstant:
		return readCommaSeparated(filePath)
	default:
		return nil, fmt.Errorf(unsupportedExtensionTemplateConstant, filepath.Ext(filePath))
	}
}

// Write stores a workbook as .xlsx or .csv, creating parent directories as needed.
func Write(workbook *Workbook, filePath string) error {
	if workbook == nil || len(workbook.Sheets) == 0 {
		return errEmptyWorkbook
	}
	if directory := filepath.Dir(filePath); len(directory) > 0 {
		if directoryError := os.MkdirAll(directory, directoryPermissionsConstant); directoryError != nil {
			return fmt.Errorf(writeWorkbookErrorTemplateConstant, filePath, directoryError)
		}
	}

	switch strings.ToLower(filepath.Ext(filePath)) {
	case spreadsheetExtensionConstant:
		return writeSpreadsheet(workbook, filePath)
	case commaSeparatedExtensionConstant:
		return writeCommaSeparated(workbook, filePath)
	default:
		return fmt.Errorf(unsupportedExtensionTemplateConstant, filepath.Ext(filePath))
	}
}

func readSpreadsheet(filePath string) (*Workbook, error) {
	spreadsheet, openError := excelize.OpenFile(filePath)
	if openError != nil {
		return nil, fmt.Errorf(openWorkbookErrorTemplateConstant, filePath, openError)
	}
	defer spreadsheet.Close()

	workbook := NewWorkbook()
	for _, sheetName := range spreadsheet.GetSheetList() {
		records, rowsError := spreadsheet.GetRows(sheetName, excelize.Options{RawCellValue: true})
		if rowsError != nil {
			return nil, fmt.Errorf(readSheetErrorTemplateConstant, sheetName, rowsError)
		}
		workbook.Sheets = append(workbook.Sheets, sheetFromRecords(sheetName, records, nil))
	}
	return workbook, nil
}

func readCommaSeparated(filePath string) (*Workbook, error) {
	file, openError := os.Open(filePath)
	if openError != nil {
		return nil, fmt.Errorf(openWorkbookErrorTemplateConstant, filePath, openError)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	var records [][]string
	var recordLines []int
	for {
		record, readError := reader.Read()
		if errors.Is(readError, io.EOF) {
			break
		}
		if readError != nil {
			return nil, fmt.Errorf(openWorkbookErrorTemplateConstant, filePath, readError)
		}
		recordLine, _ := reader.FieldPos(0)
		records = append(records, record)
		recordLines = append(recordLines, recordLine)
	}

	sheetName := strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))
	return NewWorkbook(sheetFromRecords(sheetName, records, recordLines)), nil
}

// sheetFromRecords builds a sheet from a header record and data records. recordNumbers holds the
// 1-based source row of each record; nil means records occupy consecutive rows from the first.
func sheetFromRecords(sheetName string, records [][]string, recordNumbers []int) *Sheet {
	if len(records) == 0 {
		return NewSheet(sheetName)
	}

	columns := make([]string, len(records[0]))
	for columnIndex, columnName := range records[0] {
		columns[columnIndex] = strings.TrimSpace(strings.TrimPrefix(columnName, byteOrderMarkConstant))
	}
	sheet := NewSheet(sheetName, columns...)

	for recordIndex, record := range records {
		if recordIndex == 0 || isBlankRecord(record) {
			continue
		}
		row := make(Row, len(columns))
		for columnIndex, columnName := range columns {
			if len(columnName) == 0 {
				continue
			}
			if columnIndex < len(record) {
				row[columnName] = record[columnIndex]
			} else {
				row[columnName] = ""
			}
		}
		sourceRowNumber := recordIndex + 1
		if recordIndex < len(recordNumbers) {
			sourceRowNumber = recordNumbers[recordIndex]
		}
		sheet.appendSourceRow(row, sourceRowNumber)
	}
	return sheet
}

func isBlankRecord(record []string) bool {
	for _, cell := range record {
		if len(strings.TrimSpace(cell)) > 0 {
			return false
		}
	}
	return true
}

func writeSpreadsheet(workbook *Workbook, filePath string) error {
	spreadsheet := excelize.NewFile()
	defer spreadsheet.Close()

	for sheetIndex, sheet := range workbook.Sheets {
		if sheetIndex == 0 {
			if renameError := spreadsheet.SetSheetName(defaultExcelizeSheetNameConstant, sheet.Name); renameError != nil {
				return fmt.Errorf(writeWorkbookErrorTemplateConstant, filePath, renameError)
			}
		} else if _, createError := spreadsheet.NewSheet(sheet.Name); createError != nil {
			return fmt.Errorf(writeWorkbookErrorTemplateConstant, filePath, createError)
		}

		for recordIndex, record := range sheetRecords(sheet) {
			cellName, cellError := excelize.CoordinatesToCellName(firstColumnIndexConstant, headerRowIndexConstant+recordIndex)
			if cellError != nil {
				return fmt.Errorf(cellNameErrorTemplateConstant, firstColumnIndexConstant, headerRowIndexConstant+recordIndex, cellError)
			}
			cells := make([]interface{}, len(record))
			for cellIndex, cell := range record {
				cells[cellIndex] = cell
			}
			if rowError := spreadsheet.SetSheetRow(sheet.Name, cellName, &cells); rowError != nil {
				return fmt.Errorf(writeWorkbookErrorTemplateConstant, filePath, rowError)
			}
		}
	}

	if saveError := spreadsheet.SaveAs(filePath); saveError != nil {
		return fmt.Errorf(writeWorkbookErrorTemplateConstant, filePath, saveError)
	}
	return nil
}

func writeCommaSeparated(workbook *Workbook, filePath string) error {
	if len(workbook.Sheets) != 1 {
		return fmt.Errorf(csvSheetCountErrorTemplateConstant, filePath, len(workbook.Sheets))
	}

	file, createError := os.Create(filePath)
	if createError != nil {
		return fmt.Errorf(writeWorkbookErrorTemplateConstant, filePath, createError)
	}

	writer := csv.NewWriter(file)
	writeError := writer.WriteAll(sheetRecords(workbook.Sheets[0]))
	closeError := file.Close()
	if joinedError := errors.Join(writeError, closeError); joinedError != nil {
		return fmt.Errorf(writeWorkbookErrorTemplateConstant, filePath, joinedError)
	}
	return nil
}

func sheetRecords(sheet *Sheet) [][]string {
	records := make([][]string, 0, len(sheet.Rows)+1)
	records = append(records, append([]string(nil), sheet.Columns...))
	for _, row := range sheet.Rows {
		record := make([]string, len(sheet.Columns))
		for columnIndex, columnName := range sheet.Columns {
			record[columnIndex] = Sanitize(row[columnName])
		}
		records = append(records, record)
	}
	return records
}
