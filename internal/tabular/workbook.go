package tabular

import (
	"strings"
	"unicode"
)

const firstDataRowNumberConstant = 2

// Row maps column names to cell text.
type Row map[string]string

// Value returns the trimmed cell text of a column.
func (row Row) Value(columnName string) string {
	return strings.TrimSpace(row[columnName])
}

// Sheet is a named table with ordered columns.
type Sheet struct {
	Name    string
	Columns []string
	Rows    []Row

	sourceRowNumbers []int
}

// NewSheet constructs an empty sheet with the given columns.
func NewSheet(name string, columns ...string) *Sheet {
	return &Sheet{Name: name, Columns: append([]string(nil), columns...)}
}

// AppendRow adds a row to the sheet. Cells outside Columns are not written.
func (sheet *Sheet) AppendRow(row Row) {
	sheet.Rows = append(sheet.Rows, row)
}

// RowNumber returns the 1-based row the row at rowIndex occupied in the file it was read from.
// Rows that were not read from a file are numbered as if they followed the header directly.
func (sheet *Sheet) RowNumber(rowIndex int) int {
	if rowIndex >= 0 && rowIndex < len(sheet.sourceRowNumbers) {
		return sheet.sourceRowNumbers[rowIndex]
	}
	return rowIndex + firstDataRowNumberConstant
}

func (sheet *Sheet) appendSourceRow(row Row, sourceRowNumber int) {
	for len(sheet.sourceRowNumbers) < len(sheet.Rows) {
		sheet.sourceRowNumbers = append(sheet.sourceRowNumbers, len(sheet.sourceRowNumbers)+firstDataRowNumberConstant)
	}
	sheet.Rows = append(sheet.Rows, row)
	sheet.sourceRowNumbers = append(sheet.sourceRowNumbers, sourceRowNumber)
}

// HasColumn reports whether the header contains the column.
func (sheet *Sheet) HasColumn(columnName string) bool {
	for _, existingColumn := range sheet.Columns {
		if existingColumn == columnName {
			return true
		}
	}
	return false
}

// EnsureColumn appends the column to the header when it is missing.
func (sheet *Sheet) EnsureColumn(columnName string) {
	if !sheet.HasColumn(columnName) {
		sheet.Columns = append(sheet.Columns, columnName)
	}
}

// Workbook is an ordered collection of sheets.
type Workbook struct {
	Sheets []*Sheet
}

// NewWorkbook constructs a workbook from sheets in order.
func NewWorkbook(sheets ...*Sheet) *Workbook {
	return &Workbook{Sheets: sheets}
}

// Sheet finds a sheet by exact name, then by a case, space and underscore insensitive match.
func (workbook *Workbook) Sheet(name string) (*Sheet, bool) {
	for _, sheet := range workbook.Sheets {
		if sheet.Name == name {
			return sheet, true
		}
	}
	normalizedName := normalizeSheetName(name)
	for _, sheet := range workbook.Sheets {
		if normalizeSheetName(sheet.Name) == normalizedName {
			return sheet, true
		}
	}
	return nil, false
}

// SheetOrFirst returns the named sheet, falling back to the first sheet of the workbook.
func (workbook *Workbook) SheetOrFirst(name string) (*Sheet, bool) {
	if sheet, found := workbook.Sheet(name); found {
		return sheet, true
	}
	if len(workbook.Sheets) == 0 {
		return nil, false
	}
	return workbook.Sheets[0], true
}

func normalizeSheetName(name string) string {
	var builder strings.Builder
	for _, character := range strings.ToLower(name) {
		if character == '_' || unicode.IsSpace(character) {
			continue
		}
		builder.WriteRune(character)
	}
	return builder.String()
}

// Sanitize removes control characters that are illegal in XML while keeping tab, newline and carriage return.
func Sanitize(text string) string {
	return strings.Map(func(character rune) rune {
		switch {
		case character == '\t', character == '\n', character == '\r':
			return character
		case character < 0x20, character == 0xFFFE, character == 0xFFFF:
			return -1
		case character >= 0xD800 && character <= 0xDFFF:
			return -1
		default:
			return character
		}
	}, text)
}
