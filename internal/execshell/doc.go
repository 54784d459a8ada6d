// Package execshell runs external tools through a small CommandRunner
// abstraction so callers can substitute recorded results in tests.
package execshell
