package fieldmap

import (
	"regexp"
	"strings"
)

const (
	enDashConstant    = "–"
	emDashConstant    = "—"
	plainDashConstant = "-"
	singleSpace       = " "
)

var whitespaceRunPattern = regexp.MustCompile(`\s+`)

// Normalize folds case, trims, collapses whitespace runs and unifies en and em dashes.
func Normalize(rawValue string) string {
	normalizedValue := strings.ToLower(strings.TrimSpace(rawValue))
	normalizedValue = strings.ReplaceAll(normalizedValue, enDashConstant, plainDashConstant)
	normalizedValue = strings.ReplaceAll(normalizedValue, emDashConstant, plainDashConstant)
	return whitespaceRunPattern.ReplaceAllString(normalizedValue, singleSpace)
}

// SplitMultiValue splits a multi-valued cell and drops blank tokens.
func SplitMultiValue(rawValue string, separator string) []string {
	if len(strings.TrimSpace(rawValue)) == 0 {
		return nil
	}
	if len(separator) == 0 {
		return []string{strings.TrimSpace(rawValue)}
	}
	rawTokens := strings.Split(rawValue, separator)
	tokens := make([]string, 0, len(rawTokens))
	for _, rawToken := range rawTokens {
		token := strings.TrimSpace(rawToken)
		if len(token) == 0 {
			continue
		}
		tokens = append(tokens, token)
	}
	return tokens
}

// SplitPositional splits a multi-valued cell and keeps blank tokens so positions line up with a parallel cell.
func SplitPositional(rawValue string, separator string) []string {
	if len(strings.TrimSpace(rawValue)) == 0 {
		return nil
	}
	if len(separator) == 0 {
		return []string{strings.TrimSpace(rawValue)}
	}
	tokens := strings.Split(rawValue, separator)
	for tokenIndex, token := range tokens {
		tokens[tokenIndex] = strings.TrimSpace(token)
	}
	return tokens
}

func normalizeTable(table map[string]string) map[string]string {
	normalizedTable := make(map[string]string, len(table))
	for rawKey, identifier := range table {
		normalizedTable[Normalize(rawKey)] = identifier
	}
	return normalizedTable
}
