package issues

import (
	"fmt"
	"strings"
)

const (
	dateValueKeyConstant             = "date"
	iterationValueKeyConstant        = "iterationId"
	singleSelectValueKeyConstant     = "singleSelectOptionId"
	unsupportedFieldValueTemplate    = "unsupported project field value %T"
	unknownFieldKindTemplateConstant = "unknown project field kind %q"
)

// FieldKind names the project field value shapes.
type FieldKind string

// Supported project field kinds.
const (
	FieldKindDate         FieldKind = FieldKind("date")
	FieldKindIteration    FieldKind = FieldKind("iteration")
	FieldKindSingleSelect FieldKind = FieldKind("single_select")
)

// ProjectFieldValue is one of DateValue, IterationValue or SingleSelectValue.
type ProjectFieldValue interface {
	projectFieldValue()
}

// DateValue sets a date field to an ISO-8601 date.
type DateValue struct {
	Date string
}

// IterationValue sets an iteration field.
type IterationValue struct {
	IterationID string
}

// SingleSelectValue sets a single-select field.
type SingleSelectValue struct {
	OptionID string
}

func (DateValue) projectFieldValue()         {}
func (IterationValue) projectFieldValue()    {}
func (SingleSelectValue) projectFieldValue() {}

// ProjectFieldUpdate addresses a value to a project field.
type ProjectFieldUpdate struct {
	FieldID string
	Value   ProjectFieldValue
}

// ParseFieldKind accepts the configured spellings of a field kind.
func ParseFieldKind(rawKind string) (FieldKind, error) {
	normalizedKind := strings.ToLower(strings.TrimSpace(rawKind))
	normalizedKind = strings.ReplaceAll(normalizedKind, "-", "_")
	switch normalizedKind {
	case string(FieldKindDate):
		return FieldKindDate, nil
	case string(FieldKindIteration):
		return FieldKindIteration, nil
	case string(FieldKindSingleSelect), "singleselect", "select", "option":
		return FieldKindSingleSelect, nil
	default:
		return "", fmt.Errorf(unknownFieldKindTemplateConstant, rawKind)
	}
}

// NewProjectFieldValue wraps a resolved cell value in the shape matching its kind.
func NewProjectFieldValue(kind FieldKind, resolvedValue string) (ProjectFieldValue, error) {
	switch kind {
	case FieldKindDate:
		return DateValue{Date: resolvedValue}, nil
	case FieldKindIteration:
		return IterationValue{IterationID: resolvedValue}, nil
	case FieldKindSingleSelect:
		return SingleSelectValue{OptionID: resolvedValue}, nil
	default:
		return nil, fmt.Errorf(unknownFieldKindTemplateConstant, kind)
	}
}

func buildFieldValuePayload(value ProjectFieldValue) (map[string]any, error) {
	switch typedValue := value.(type) {
	case DateValue:
		return map[string]any{dateValueKeyConstant: typedValue.Date}, nil
	case IterationValue:
		return map[string]any{iterationValueKeyConstant: typedValue.IterationID}, nil
	case SingleSelectValue:
		return map[string]any{singleSelectValueKeyConstant: typedValue.OptionID}, nil
	default:
		return nil, fmt.Errorf(unsupportedFieldValueTemplate, value)
	}
}
