package githubauth

import (
	"context"
	"strings"
	"time"

	"github.com/temirov/ghmigrate/internal/execshell"
)

const (
	githubCLIAuthSubcommandConstant  = "auth"
	githubCLITokenSubcommandConstant = "token"
	githubCLITimeoutConstant         = 10 * time.Second
)

// TokenSource supplies a token from an external credential store.
type TokenSource interface {
	Token(executionContext context.Context) (string, bool)
}

// GitHubCLITokenSource reads the token stored by `gh auth login`.
type GitHubCLITokenSource struct {
	Runner execshell.CommandRunner
}

// NewGitHubCLITokenSource constructs a source that shells out to the gh executable.
func NewGitHubCLITokenSource() GitHubCLITokenSource {
	return GitHubCLITokenSource{Runner: execshell.NewOSCommandRunner()}
}

// Token runs `gh auth token`. A missing executable, a failed exit, or empty output all report no token.
func (source GitHubCLITokenSource) Token(executionContext context.Context) (string, bool) {
	if source.Runner == nil {
		return "", false
	}
	if executionContext == nil {
		executionContext = context.Background()
	}
	boundedContext, cancel := context.WithTimeout(executionContext, githubCLITimeoutConstant)
	defer cancel()

	result, runError := source.Runner.Run(boundedContext, execshell.ShellCommand{
		Name: execshell.CommandGitHub,
		Details: execshell.CommandDetails{
			Arguments: []string{githubCLIAuthSubcommandConstant, githubCLITokenSubcommandConstant},
		},
	})
	if runError != nil || result.ExitCode != 0 {
		return "", false
	}
	token := strings.TrimSpace(result.StandardOutput)
	return token, len(token) > 0
}
