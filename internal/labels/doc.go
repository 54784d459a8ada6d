// Package labels reconciles desired repository labels against the labels that already exist.
//
// Existing labels are fetched once per repository into a Cache owned by the
// caller. Matching is case-insensitive on the label name: a match is updated
// in place, anything else is created.
package labels
