// Package issues creates fully populated GitHub issues.
//
// Manager exposes the individual GraphQL mutations (create, attach to a
// project, update fields, assign, label, comment, delete). CreateCompleteIssue
// runs them as an ordered list of fallible steps and records every step
// failure on the returned IssueResult instead of returning an error.
package issues
