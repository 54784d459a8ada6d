package fieldmap

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/xuri/excelize/v2"
)

const (
	isoDateLayoutConstant          = "2006-01-02"
	minimumSpreadsheetSerialDate   = 1
	maximumSpreadsheetSerialDate   = 2958465
	spreadsheetSerialUses1904Epoch = false
	compactDateDigitCountConstant  = 8
	yearDigitCountConstant         = 4
	floatBitSizeConstant           = 64
)

var calendarDateLayouts = []string{
	isoDateLayoutConstant,
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02",
	"2006.01.02",
	"20060102",
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"1/2/06",
	"January 2, 2006",
	"January 2 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"2 January 2006",
	"2 Jan 2006",
	"02-Jan-2006",
	"Monday, January 2, 2006",
	"Mon, Jan 2, 2006",
	"Mon Jan 2 2006",
}

// dateParser converts spreadsheet cells into calendar dates.
type dateParser struct {
	naturalLanguageParser *when.Parser
	referenceTime         func() time.Time
}

func newDateParser(referenceTime func() time.Time) *dateParser {
	naturalLanguageParser := when.New(nil)
	naturalLanguageParser.Add(en.All...)
	naturalLanguageParser.Add(common.All...)
	return &dateParser{naturalLanguageParser: naturalLanguageParser, referenceTime: referenceTime}
}

func (parser *dateParser) format(rawValue any) string {
	switch typedValue := rawValue.(type) {
	case nil:
		return ""
	case time.Time:
		if typedValue.IsZero() {
			return ""
		}
		return typedValue.Format(isoDateLayoutConstant)
	case *time.Time:
		if typedValue == nil || typedValue.IsZero() {
			return ""
		}
		return typedValue.Format(isoDateLayoutConstant)
	case float64:
		return parser.formatNumber(typedValue, strconv.FormatFloat(typedValue, 'f', -1, floatBitSizeConstant))
	case int:
		return parser.formatNumber(float64(typedValue), strconv.Itoa(typedValue))
	case int64:
		return parser.formatNumber(float64(typedValue), strconv.FormatInt(typedValue, 10))
	case string:
		return parser.formatText(typedValue)
	default:
		return parser.formatText(fmt.Sprint(typedValue))
	}
}

func (parser *dateParser) formatText(rawValue string) string {
	trimmedValue := strings.TrimSpace(rawValue)
	if len(trimmedValue) == 0 {
		return ""
	}

	if formattedDate, parsed := parseCalendarLayouts(trimmedValue); parsed {
		return formattedDate
	}
	if numericValue, parseError := strconv.ParseFloat(trimmedValue, floatBitSizeConstant); parseError == nil && !math.IsNaN(numericValue) && !math.IsInf(numericValue, 0) {
		return parser.formatNumber(numericValue, trimmedValue)
	}

	if parsedTime, parsed := parser.parseNaturalLanguage(trimmedValue); parsed {
		return parsedTime.Format(isoDateLayoutConstant)
	}

	return trimmedValue
}

// parseNaturalLanguage accepts a phrase only when the whole cell is recognized as a date expression.
func (parser *dateParser) parseNaturalLanguage(trimmedValue string) (parsedTime time.Time, parsed bool) {
	defer func() {
		if recover() != nil {
			parsedTime, parsed = time.Time{}, false
		}
	}()

	result, parseError := parser.naturalLanguageParser.Parse(trimmedValue, parser.referenceTime())
	if parseError != nil || result == nil {
		return time.Time{}, false
	}
	if !strings.EqualFold(strings.TrimSpace(result.Text), trimmedValue) {
		return time.Time{}, false
	}
	return result.Time, true
}

func parseCalendarLayouts(trimmedValue string) (string, bool) {
	for _, layout := range calendarDateLayouts {
		if parsedTime, parseError := time.Parse(layout, trimmedValue); parseError == nil {
			return parsedTime.Format(isoDateLayoutConstant), true
		}
	}
	return "", false
}

// formatNumber reads a number as a spreadsheet serial date unless its digits spell a compact
// YYYYMMDD date or a bare year. Anything else that is not a serial keeps its original text.
func (parser *dateParser) formatNumber(numericValue float64, originalText string) string {
	if math.IsNaN(numericValue) || math.IsInf(numericValue, 0) {
		return ""
	}
	if isDigitString(originalText, compactDateDigitCountConstant) {
		if formattedDate, parsed := parseCalendarLayouts(originalText); parsed {
			return formattedDate
		}
		return originalText
	}
	if isDigitString(originalText, yearDigitCountConstant) {
		return originalText
	}
	if numericValue < minimumSpreadsheetSerialDate || numericValue > maximumSpreadsheetSerialDate {
		return originalText
	}
	convertedTime, conversionError := excelize.ExcelDateToTime(numericValue, spreadsheetSerialUses1904Epoch)
	if conversionError != nil {
		return originalText
	}
	return convertedTime.Format(isoDateLayoutConstant)
}

func isDigitString(candidate string, length int) bool {
	if len(candidate) != length {
		return false
	}
	for _, character := range candidate {
		if character < '0' || character > '9' {
			return false
		}
	}
	return true
}
