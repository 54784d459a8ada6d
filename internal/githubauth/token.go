package githubauth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"golang.org/x/term"
)

// Environment variable names consulted for a GitHub token, in preference order.
const (
	EnvGitHubToken    = "GITHUB_TOKEN"
	EnvGitHubCLIToken = "GH_TOKEN"
	EnvGitHubAPIToken = "GITHUB_API_TOKEN"
)

const (
	defaultDotEnvFileNameConstant      = ".env"
	tokenPromptConstant                = "GitHub token: "
	promptLineTerminatorConstant       = "\n"
	dotEnvReadErrorTemplateConstant    = "unable to read %s: %w"
	promptReadErrorTemplateConstant    = "unable to read token from terminal: %w"
	tokenNotFoundMessageConstant       = "GitHub token not found: pass --token or set GITHUB_TOKEN"
	nonInteractiveInputMessageConstant = "standard input is not a terminal"
)

var (
	// ErrTokenNotFound indicates that no source supplied a token.
	ErrTokenNotFound = errors.New(tokenNotFoundMessageConstant)
	// ErrNonInteractiveInput indicates that the prompt cannot run without a terminal.
	ErrNonInteractiveInput = errors.New(nonInteractiveInputMessageConstant)
)

var tokenPreference = []string{
	EnvGitHubToken,
	EnvGitHubCLIToken,
	EnvGitHubAPIToken,
}

// ResolveToken returns the first non-empty GitHub authentication token observed
// in the process environment or, failing that, the provided environment map.
func ResolveToken(environment map[string]string) (string, bool) {
	for _, key := range tokenPreference {
		if value, ok := os.LookupEnv(key); ok {
			value = strings.TrimSpace(value)
			if len(value) > 0 {
				return value, true
			}
		}
	}
	for _, key := range tokenPreference {
		if value, ok := lookup(environment, key); ok {
			return value, true
		}
	}
	return "", false
}

// ReadDotEnv merges the variables defined in the given files. Missing files are ignored.
func ReadDotEnv(filePaths ...string) (map[string]string, error) {
	if len(filePaths) == 0 {
		filePaths = []string{defaultDotEnvFileNameConstant}
	}
	merged := make(map[string]string)
	for _, filePath := range filePaths {
		values, readError := godotenv.Read(filePath)
		if readError != nil {
			if errors.Is(readError, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf(dotEnvReadErrorTemplateConstant, filePath, readError)
		}
		for key, value := range values {
			if _, exists := merged[key]; !exists {
				merged[key] = value
			}
		}
	}
	return merged, nil
}

// TokenPrompter asks the operator for a token.
type TokenPrompter interface {
	PromptToken() (string, error)
}

// TerminalPrompter reads a token from the terminal without echoing it.
type TerminalPrompter struct {
	Input  *os.File
	Output io.Writer
}

// NewTerminalPrompter constructs a prompter bound to standard input and standard error.
func NewTerminalPrompter() TerminalPrompter {
	return TerminalPrompter{Input: os.Stdin, Output: os.Stderr}
}

// PromptToken prints a prompt and reads the hidden reply.
func (prompter TerminalPrompter) PromptToken() (string, error) {
	if prompter.Input == nil {
		return "", ErrNonInteractiveInput
	}
	fileDescriptor := int(prompter.Input.Fd())
	if !term.IsTerminal(fileDescriptor) {
		return "", ErrNonInteractiveInput
	}
	output := prompter.Output
	if output == nil {
		output = io.Discard
	}

	fmt.Fprint(output, tokenPromptConstant)
	tokenBytes, readError := term.ReadPassword(fileDescriptor)
	fmt.Fprint(output, promptLineTerminatorConstant)
	if readError != nil {
		return "", fmt.Errorf(promptReadErrorTemplateConstant, readError)
	}
	return strings.TrimSpace(string(tokenBytes)), nil
}

// TokenResolver picks a token from an explicit value, the environment, .env files,
// an external source such as the GitHub CLI, or a prompt.
type TokenResolver struct {
	DotEnvPaths []string
	Source      TokenSource
	Prompter    TokenPrompter
}

// Resolve returns the explicit token when present and otherwise consults the remaining sources in order.
func (resolver TokenResolver) Resolve(explicitToken string) (string, error) {
	if trimmedToken := strings.TrimSpace(explicitToken); len(trimmedToken) > 0 {
		return trimmedToken, nil
	}

	dotEnvValues, dotEnvError := ReadDotEnv(resolver.DotEnvPaths...)
	if dotEnvError != nil {
		return "", dotEnvError
	}
	if token, found := ResolveToken(dotEnvValues); found {
		return token, nil
	}
	if resolver.Source != nil {
		if token, found := resolver.Source.Token(context.Background()); found {
			return token, nil
		}
	}

	if resolver.Prompter == nil {
		return "", ErrTokenNotFound
	}
	promptedToken, promptError := resolver.Prompter.PromptToken()
	if promptError != nil {
		if errors.Is(promptError, ErrNonInteractiveInput) {
			return "", ErrTokenNotFound
		}
		return "", promptError
	}
	if len(promptedToken) == 0 {
		return "", ErrTokenNotFound
	}
	return promptedToken, nil
}

func lookup(environment map[string]string, key string) (string, bool) {
	if environment == nil {
		return "", false
	}
	value, exists := environment[key]
	if !exists {
		return "", false
	}
	value = strings.TrimSpace(value)
	if len(value) == 0 {
		return "", false
	}
	return value, true
}
