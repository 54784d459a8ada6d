// Package fieldmap translates human-entered spreadsheet values into GitHub node identifiers.
//
// Lookups are performed against normalized keys so that case, surrounding
// whitespace and dash glyphs never affect a match. Values that already look
// like resolved identifiers pass through unchanged, which keeps repeated runs
// over mapped data idempotent. A lookup miss is not an error: it yields an
// empty string and the caller omits the field.
package fieldmap
