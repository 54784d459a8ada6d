package fieldmap_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/temirov/ghmigrate/internal/fieldmap"
)

const (
	testSeparatorConstant       = "||"
	testStatusIdentifier        = "f75ad846"
	testTeamIdentifier          = "0a1b2c3d"
	testPriorityIdentifier      = "P0000001"
	testMilestoneIdentifier     = "MI_kwDOA"
	testBugIssueTypeIdentifier  = "IT_bug"
	testFeatureIssueTypeID      = "IT_feature"
	testDefaultIssueTypeID      = "IT_task"
	testIterationIdentifier     = "iter-3"
	testQuarterIdentifier       = "quarter-2"
	testUnknownValueConstant    = "unknown value"
	testPassThroughHexConstant  = "DEADBEEF"
	testPassThroughMilestoneKey = "mi_abcdef"
)

func newTestMapper() *fieldmap.Mapper {
	return fieldmap.NewMapper(fieldmap.Tables{
		Iteration: map[int]string{3: testIterationIdentifier},
		Quarter:   map[int]string{2: testQuarterIdentifier},
		Status:    map[string]string{"In Progress": testStatusIdentifier, "Won't Do – Closed": "b0b0b0b0"},
		Team:      map[string]string{"Platform  Team": testTeamIdentifier},
		Priority:  map[string]string{"P0": testPriorityIdentifier},
		Readiness: map[string]string{"Ready": "aaaa0001"},
		Effort:    map[string]string{"Large": "bbbb0002"},
		Milestone: map[string]string{"Release 1.0": testMilestoneIdentifier},
		Label:     map[string]string{"UI": "LA_ui"},
		User:      map[string]string{"alice smith": "U_1", "bob": "U_2", "carol": "U_3", "@dave": "U_4", "erin": "U_5"},
		IssueType: map[string]string{"bug": testBugIssueTypeIdentifier, "Feature": testFeatureIssueTypeID, "default": testDefaultIssueTypeID},
	}, testSeparatorConstant)
}

func TestNormalizeEquivalence(testInstance *testing.T) {
	testCases := []struct {
		name     string
		left     string
		right    string
		expected string
	}{
		{name: "case", left: "In Progress", right: "in progress", expected: "in progress"},
		{name: "surrounding_whitespace", left: "  In Progress\t", right: "In Progress", expected: "in progress"},
		{name: "internal_whitespace", left: "In \t  Progress", right: "In Progress", expected: "in progress"},
		{name: "en_dash", left: "Won't Do – Closed", right: "won't do - closed", expected: "won't do - closed"},
		{name: "em_dash", left: "Won't Do — Closed", right: "WON'T DO - CLOSED", expected: "won't do - closed"},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(testInstance *testing.T) {
			require.Equal(testInstance, testCase.expected, fieldmap.Normalize(testCase.left))
			require.Equal(testInstance, fieldmap.Normalize(testCase.left), fieldmap.Normalize(testCase.right))
		})
	}
}

func TestOptionLookupsResolveNormalizedVariants(testInstance *testing.T) {
	mapper := newTestMapper()

	testCases := []struct {
		name     string
		mapping  func(string) string
		input    string
		expected string
	}{
		{name: "status_case", mapping: mapper.MapStatus, input: "IN PROGRESS", expected: testStatusIdentifier},
		{name: "status_dash", mapping: mapper.MapStatus, input: " won't do — closed ", expected: "b0b0b0b0"},
		{name: "team_whitespace", mapping: mapper.MapTeam, input: "platform team", expected: testTeamIdentifier},
		{name: "priority", mapping: mapper.MapPriority, input: "p0", expected: testPriorityIdentifier},
		{name: "readiness", mapping: mapper.MapReadiness, input: "ready", expected: "aaaa0001"},
		{name: "effort", mapping: mapper.MapEffort, input: "LARGE", expected: "bbbb0002"},
		{name: "milestone", mapping: mapper.MapMilestone, input: "release 1.0", expected: testMilestoneIdentifier},
		{name: "status_miss", mapping: mapper.MapStatus, input: testUnknownValueConstant, expected: ""},
		{name: "empty", mapping: mapper.MapTeam, input: "", expected: ""},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(testInstance *testing.T) {
			require.Equal(testInstance, testCase.expected, testCase.mapping(testCase.input))
		})
	}
}

func TestHexIdentifiersPassThrough(testInstance *testing.T) {
	mapper := newTestMapper()
	mappings := map[string]func(string) string{
		"status":    mapper.MapStatus,
		"team":      mapper.MapTeam,
		"priority":  mapper.MapPriority,
		"readiness": mapper.MapReadiness,
		"effort":    mapper.MapEffort,
	}

	for fieldName, mapping := range mappings {
		testInstance.Run(fieldName, func(testInstance *testing.T) {
			require.Equal(testInstance, testPassThroughHexConstant, mapping("  "+testPassThroughHexConstant+" "))
			require.Equal(testInstance, "0123abcd", mapping("0123abcd"))
			require.Empty(testInstance, mapping("0123abcdef"))
		})
	}
}

func TestMilestoneAndUserPassThrough(testInstance *testing.T) {
	mapper := newTestMapper()
	require.Equal(testInstance, testPassThroughMilestoneKey, mapper.MapMilestone(" "+testPassThroughMilestoneKey+" "))
	require.Equal(testInstance, "U_kgDOB", mapper.MapUser(" U_kgDOB "))
	require.Equal(testInstance, "U_kgDOB||U_2", mapper.MapUsers("U_kgDOB||bob"))
}

func TestNumberedLookups(testInstance *testing.T) {
	mapper := newTestMapper()

	testCases := []struct {
		name     string
		mapping  func(any) string
		input    any
		expected string
	}{
		{name: "iteration_integer", mapping: mapper.MapIteration, input: 3, expected: testIterationIdentifier},
		{name: "iteration_float", mapping: mapper.MapIteration, input: 3.0, expected: testIterationIdentifier},
		{name: "iteration_word", mapping: mapper.MapIteration, input: "  Iteration 3 ", expected: testIterationIdentifier},
		{name: "iteration_word_uppercase", mapping: mapper.MapIteration, input: "ITERATION   3", expected: testIterationIdentifier},
		{name: "iteration_digits", mapping: mapper.MapIteration, input: " 3 ", expected: testIterationIdentifier},
		{name: "iteration_wrong_word", mapping: mapper.MapIteration, input: "Sprint 3", expected: ""},
		{name: "iteration_unknown_number", mapping: mapper.MapIteration, input: 7, expected: ""},
		{name: "iteration_nil", mapping: mapper.MapIteration, input: nil, expected: ""},
		{name: "quarter_word", mapping: mapper.MapQuarter, input: "quarter 2", expected: testQuarterIdentifier},
		{name: "quarter_integer", mapping: mapper.MapQuarter, input: int64(2), expected: testQuarterIdentifier},
		{name: "quarter_other_word", mapping: mapper.MapQuarter, input: "Iteration 2", expected: ""},
		{name: "quarter_garbage", mapping: mapper.MapQuarter, input: "Q2 2024", expected: ""},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(testInstance *testing.T) {
			require.Equal(testInstance, testCase.expected, testCase.mapping(testCase.input))
		})
	}
}

func TestMapLabels(testInstance *testing.T) {
	mapper := newTestMapper()
	require.Equal(testInstance, "Bug||LA_ui", mapper.MapLabels("Bug|| ui ||"))
	require.Empty(testInstance, mapper.MapLabels("   "))
}

func TestMapUsers(testInstance *testing.T) {
	mapper := newTestMapper()

	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "scenario", input: "Alice Smith||@bob||https://github.com/carol", expected: "U_1||U_2||U_3"},
		{name: "handle_prefixed_key", input: "dave", expected: "U_4"},
		{name: "no_spaces_variant", input: "Er in", expected: "U_5"},
		{name: "parenthetical", input: "Bob (backend)", expected: "U_2"},
		{name: "punctuation", input: "@carol,", expected: "U_3"},
		{name: "unmapped_dropped", input: "zed||bob", expected: "U_2"},
		{name: "all_unmapped", input: "zed", expected: ""},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(testInstance *testing.T) {
			require.Equal(testInstance, testCase.expected, mapper.MapUsers(testCase.input))
		})
	}
}

func TestMapCommentAuthorsKeepsPositions(testInstance *testing.T) {
	mapper := newTestMapper()

	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "unmapped_first_author", input: "Stranger||Alice Smith", expected: "Stranger||U_1"},
		{name: "blank_position", input: "bob|| ||@carol", expected: "U_2||||U_3"},
		{name: "node_identifier", input: "U_9||zed", expected: "U_9||zed"},
		{name: "empty", input: "  ", expected: ""},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(testInstance *testing.T) {
			require.Equal(testInstance, testCase.expected, mapper.MapCommentAuthors(testCase.input))
		})
	}
}

func TestMapIssueTypePrecedence(testInstance *testing.T) {
	mapper := newTestMapper()

	testCases := []struct {
		name     string
		value    string
		labels   string
		expected string
	}{
		{name: "bug_label_overrides_value", value: "Feature", labels: "Bug||UI", expected: testBugIssueTypeIdentifier},
		{name: "bug_label_lowercase", value: "", labels: "ui||bug", expected: testBugIssueTypeIdentifier},
		{name: "value_without_bug_label", value: "feature", labels: "UI", expected: testFeatureIssueTypeID},
		{name: "default_when_empty", value: "", labels: "", expected: testDefaultIssueTypeID},
		{name: "unknown_value_is_empty", value: "Epic", labels: "", expected: ""},
		{name: "label_substring_not_bug", value: "feature", labels: "bugfix", expected: testFeatureIssueTypeID},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(testInstance *testing.T) {
			require.Equal(testInstance, testCase.expected, mapper.MapIssueType(testCase.value, testCase.labels))
		})
	}
}

func TestMapIssueTypeWithoutBugMapping(testInstance *testing.T) {
	mapper := fieldmap.NewMapper(fieldmap.Tables{IssueType: map[string]string{"feature": testFeatureIssueTypeID}}, "")
	require.Equal(testInstance, testFeatureIssueTypeID, mapper.MapIssueType("Feature", "bug"))
	require.Equal(testInstance, fieldmap.DefaultSeparator, mapper.Separator())
}

func TestFormatDate(testInstance *testing.T) {
	mapper := newTestMapper()

	testCases := []struct {
		name     string
		input    any
		expected string
	}{
		{name: "long_month", input: "March 3, 2024", expected: "2024-03-03"},
		{name: "unparseable", input: "TBD", expected: "TBD"},
		{name: "iso", input: "2024-03-03", expected: "2024-03-03"},
		{name: "timestamp", input: "2024-03-03T10:15:00Z", expected: "2024-03-03"},
		{name: "datetime", input: "2024-03-03 10:15:00", expected: "2024-03-03"},
		{name: "us_slash", input: "3/3/2024", expected: "2024-03-03"},
		{name: "short_month", input: "Mar 3, 2024", expected: "2024-03-03"},
		{name: "time_value", input: time.Date(2024, time.March, 3, 8, 0, 0, 0, time.UTC), expected: "2024-03-03"},
		{name: "spreadsheet_serial", input: 45354.0, expected: "2024-03-03"},
		{name: "whitespace", input: "   ", expected: ""},
		{name: "nil", input: nil, expected: ""},
		{name: "trimmed_fallback", input: "  sometime soon-ish  ", expected: "sometime soon-ish"},
		{name: "compact_text", input: "20240303", expected: "2024-03-03"},
		{name: "compact_number", input: float64(20240303), expected: "2024-03-03"},
		{name: "invalid_compact_text", input: " 99999999 ", expected: "99999999"},
		{name: "serial_text", input: "45354", expected: "2024-03-03"},
		{name: "year_only", input: "2024", expected: "2024"},
		{name: "out_of_range_number", input: float64(123456789), expected: "123456789"},
		{name: "integer_serial", input: 45354, expected: "2024-03-03"},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(testInstance *testing.T) {
			require.NotPanics(testInstance, func() {
				require.Equal(testInstance, testCase.expected, mapper.FormatDate(testCase.input))
			})
		})
	}
}

func TestSplitMultiValue(testInstance *testing.T) {
	require.Equal(testInstance, []string{"a", "b"}, fieldmap.SplitMultiValue(" a || ||b ", testSeparatorConstant))
	require.Nil(testInstance, fieldmap.SplitMultiValue("", testSeparatorConstant))
	require.Equal(testInstance, []string{"a||b"}, fieldmap.SplitMultiValue("a||b", ""))
}

func TestSplitPositional(testInstance *testing.T) {
	require.Equal(testInstance, []string{"a", "", "b"}, fieldmap.SplitPositional(" a || ||b ", testSeparatorConstant))
	require.Nil(testInstance, fieldmap.SplitPositional(" ", testSeparatorConstant))
	require.Equal(testInstance, []string{"a||b"}, fieldmap.SplitPositional(" a||b ", ""))
}
