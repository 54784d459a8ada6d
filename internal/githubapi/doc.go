// Package githubapi issues GitHub GraphQL and REST requests for ghmigrate.
//
// Every request shares one retry policy: transport failures and HTTP 429/5xx
// gateway statuses are retried with exponential backoff, everything else is
// surfaced to the caller immediately. GraphQL responses carrying an errors
// array are reported as RemoteRejectionError even when the HTTP layer
// succeeded. ExecutePagedGraphQL follows cursor pagination to completion or
// to a page ceiling.
package githubapi
