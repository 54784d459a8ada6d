// Package githubauth resolves the GitHub token used by the API client.
package githubauth
