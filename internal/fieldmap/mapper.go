package fieldmap

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultSeparator joins and splits multi-valued cells.
	DefaultSeparator = "||"

	bugLabelConstant             = "bug"
	defaultIssueTypeKeyConstant  = "default"
	milestonePrefixConstant      = "MI_"
	userPrefixConstant           = "U_"
	userHandlePrefixConstant     = "@"
	userTokenTrimCharacters      = " ,;:|/-"
	iterationWordConstant        = "iteration"
	quarterWordConstant          = "quarter"
	numberedValuePatternTemplate = `(?i)^\s*%s\s*(\d+)\s*$`
)

var (
	hexIdentifierPattern    = regexp.MustCompile(`^[0-9a-fA-F]{8}$`)
	bareNumberPattern       = regexp.MustCompile(`^\s*(\d+)\s*$`)
	iterationValuePattern   = regexp.MustCompile(fmt.Sprintf(numberedValuePatternTemplate, iterationWordConstant))
	quarterValuePattern     = regexp.MustCompile(fmt.Sprintf(numberedValuePatternTemplate, quarterWordConstant))
	profileURLHandlePattern = regexp.MustCompile(`(?i)github\.com/([^/\s]+)`)
	parentheticalPattern    = regexp.MustCompile(`\(.*?\)`)
)

// Tables holds the configured lookup tables keyed by human-entered text.
type Tables struct {
	Iteration map[int]string    `mapstructure:"iteration" yaml:"iteration"`
	Quarter   map[int]string    `mapstructure:"quarter" yaml:"quarter"`
	Status    map[string]string `mapstructure:"status" yaml:"status"`
	Team      map[string]string `mapstructure:"team" yaml:"team"`
	Priority  map[string]string `mapstructure:"priority" yaml:"priority"`
	Readiness map[string]string `mapstructure:"readiness" yaml:"readiness"`
	Effort    map[string]string `mapstructure:"effort" yaml:"effort"`
	Milestone map[string]string `mapstructure:"milestone" yaml:"milestone"`
	Label     map[string]string `mapstructure:"label" yaml:"label"`
	User      map[string]string `mapstructure:"user" yaml:"user"`
	IssueType map[string]string `mapstructure:"issue_type" yaml:"issue_type"`
}

// Mapper resolves raw cell values against normalized lookup tables.
type Mapper struct {
	separator      string
	iterationTable map[int]string
	quarterTable   map[int]string
	statusTable    map[string]string
	teamTable      map[string]string
	priorityTable  map[string]string
	readinessTable map[string]string
	effortTable    map[string]string
	milestoneTable map[string]string
	labelTable     map[string]string
	userTable      map[string]string
	issueTypeTable map[string]string
	dateParser     *dateParser
}

// NewMapper normalizes every table once; the resulting mapper is immutable.
func NewMapper(tables Tables, separator string) *Mapper {
	if len(separator) == 0 {
		separator = DefaultSeparator
	}
	return &Mapper{
		separator:      separator,
		iterationTable: copyNumberedTable(tables.Iteration),
		quarterTable:   copyNumberedTable(tables.Quarter),
		statusTable:    normalizeTable(tables.Status),
		teamTable:      normalizeTable(tables.Team),
		priorityTable:  normalizeTable(tables.Priority),
		readinessTable: normalizeTable(tables.Readiness),
		effortTable:    normalizeTable(tables.Effort),
		milestoneTable: normalizeTable(tables.Milestone),
		labelTable:     normalizeTable(tables.Label),
		userTable:      normalizeTable(tables.User),
		issueTypeTable: normalizeTable(tables.IssueType),
		dateParser:     newDateParser(time.Now),
	}
}

// Separator returns the multi-value separator used by the mapper.
func (mapper *Mapper) Separator() string {
	return mapper.separator
}

// MapIteration resolves an integer, "Iteration N" or a digit string to an iteration identifier.
func (mapper *Mapper) MapIteration(rawValue any) string {
	return resolveNumbered(rawValue, iterationValuePattern, mapper.iterationTable)
}

// MapQuarter resolves an integer, "Quarter N" or a digit string to a quarter iteration identifier.
func (mapper *Mapper) MapQuarter(rawValue any) string {
	return resolveNumbered(rawValue, quarterValuePattern, mapper.quarterTable)
}

// MapStatus resolves a status option.
func (mapper *Mapper) MapStatus(rawValue string) string {
	return resolveOption(rawValue, mapper.statusTable)
}

// MapTeam resolves a team option.
func (mapper *Mapper) MapTeam(rawValue string) string {
	return resolveOption(rawValue, mapper.teamTable)
}

// MapPriority resolves a priority option.
func (mapper *Mapper) MapPriority(rawValue string) string {
	return resolveOption(rawValue, mapper.priorityTable)
}

// MapReadiness resolves a readiness option.
func (mapper *Mapper) MapReadiness(rawValue string) string {
	return resolveOption(rawValue, mapper.readinessTable)
}

// MapEffort resolves an estimated effort option.
func (mapper *Mapper) MapEffort(rawValue string) string {
	return resolveOption(rawValue, mapper.effortTable)
}

// MapMilestone resolves a milestone, passing MI_ identifiers through.
func (mapper *Mapper) MapMilestone(rawValue string) string {
	trimmedValue := strings.TrimSpace(rawValue)
	if strings.HasPrefix(strings.ToUpper(trimmedValue), milestonePrefixConstant) {
		return trimmedValue
	}
	return mapper.milestoneTable[Normalize(trimmedValue)]
}

// MapLabels maps every token of a multi-valued cell; unmapped labels keep their original text.
func (mapper *Mapper) MapLabels(rawValue string) string {
	labelTokens := SplitMultiValue(rawValue, mapper.separator)
	mappedLabels := make([]string, 0, len(labelTokens))
	for _, labelToken := range labelTokens {
		if labelIdentifier, found := mapper.labelTable[Normalize(labelToken)]; found {
			mappedLabels = append(mappedLabels, labelIdentifier)
			continue
		}
		mappedLabels = append(mappedLabels, labelToken)
	}
	return strings.Join(mappedLabels, mapper.separator)
}

// MapUsers maps every token of a multi-valued cell; unmapped users are dropped.
func (mapper *Mapper) MapUsers(rawValue string) string {
	userTokens := SplitMultiValue(rawValue, mapper.separator)
	mappedUsers := make([]string, 0, len(userTokens))
	for _, userToken := range userTokens {
		if userIdentifier := mapper.MapUser(userToken); len(userIdentifier) > 0 {
			mappedUsers = append(mappedUsers, userIdentifier)
		}
	}
	return strings.Join(mappedUsers, mapper.separator)
}

// MapCommentAuthors maps authors position by position. Unmapped authors keep their original text
// so the list stays parallel to the comments cell.
func (mapper *Mapper) MapCommentAuthors(rawValue string) string {
	authorTokens := SplitPositional(rawValue, mapper.separator)
	for authorIndex, authorToken := range authorTokens {
		if userIdentifier := mapper.MapUser(authorToken); len(userIdentifier) > 0 {
			authorTokens[authorIndex] = userIdentifier
		}
	}
	return strings.Join(authorTokens, mapper.separator)
}

// MapUser resolves a single name, handle or profile URL.
func (mapper *Mapper) MapUser(rawValue string) string {
	trimmedValue := strings.TrimSpace(rawValue)
	if strings.HasPrefix(trimmedValue, userPrefixConstant) {
		return trimmedValue
	}

	cleanedToken := cleanUserToken(trimmedValue)
	if len(cleanedToken) == 0 {
		return ""
	}

	normalizedToken := Normalize(cleanedToken)
	lookupCandidates := []string{
		normalizedToken,
		strings.ReplaceAll(normalizedToken, singleSpace, ""),
		userHandlePrefixConstant + normalizedToken,
	}
	for _, lookupCandidate := range lookupCandidates {
		if userIdentifier := mapper.userTable[lookupCandidate]; len(userIdentifier) > 0 {
			return userIdentifier
		}
	}
	return ""
}

// MapIssueType resolves the issue type with precedence: bug label, explicit value, configured default.
func (mapper *Mapper) MapIssueType(rawValue string, labels string) string {
	for _, labelToken := range SplitMultiValue(labels, mapper.separator) {
		if strings.EqualFold(labelToken, bugLabelConstant) {
			if bugIdentifier := mapper.issueTypeTable[bugLabelConstant]; len(bugIdentifier) > 0 {
				return bugIdentifier
			}
			break
		}
	}

	if len(strings.TrimSpace(rawValue)) > 0 {
		return mapper.issueTypeTable[Normalize(rawValue)]
	}

	return mapper.issueTypeTable[defaultIssueTypeKeyConstant]
}

// FormatDate renders a calendar date as YYYY-MM-DD, falling back to the trimmed text.
func (mapper *Mapper) FormatDate(rawValue any) string {
	return mapper.dateParser.format(rawValue)
}

func resolveOption(rawValue string, table map[string]string) string {
	trimmedValue := strings.TrimSpace(rawValue)
	if hexIdentifierPattern.MatchString(trimmedValue) {
		return trimmedValue
	}
	return table[Normalize(trimmedValue)]
}

func resolveNumbered(rawValue any, wordPattern *regexp.Regexp, table map[int]string) string {
	switch typedValue := rawValue.(type) {
	case nil:
		return ""
	case int:
		return table[typedValue]
	case int64:
		return table[int(typedValue)]
	case float64:
		if math.IsNaN(typedValue) || math.IsInf(typedValue, 0) {
			return ""
		}
		return table[int(typedValue)]
	case string:
		return resolveNumberedText(typedValue, wordPattern, table)
	default:
		return resolveNumberedText(fmt.Sprint(typedValue), wordPattern, table)
	}
}

func resolveNumberedText(rawValue string, wordPattern *regexp.Regexp, table map[int]string) string {
	for _, pattern := range []*regexp.Regexp{wordPattern, bareNumberPattern} {
		matches := pattern.FindStringSubmatch(rawValue)
		if len(matches) < 2 {
			continue
		}
		number, parseError := strconv.Atoi(matches[1])
		if parseError != nil {
			return ""
		}
		return table[number]
	}
	return ""
}

func cleanUserToken(rawToken string) string {
	cleanedToken := strings.TrimSpace(rawToken)
	if matches := profileURLHandlePattern.FindStringSubmatch(cleanedToken); len(matches) == 2 {
		cleanedToken = matches[1]
	}
	cleanedToken = parentheticalPattern.ReplaceAllString(cleanedToken, "")
	cleanedToken = strings.TrimLeft(cleanedToken, userHandlePrefixConstant)
	cleanedToken = strings.Trim(cleanedToken, userTokenTrimCharacters)
	cleanedToken = whitespaceRunPattern.ReplaceAllString(cleanedToken, singleSpace)
	return strings.ToLower(strings.TrimSpace(cleanedToken))
}

func copyNumberedTable(table map[int]string) map[int]string {
	copiedTable := make(map[int]string, len(table))
	for number, identifier := range table {
		copiedTable[number] = identifier
	}
	return copiedTable
}
