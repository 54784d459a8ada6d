// Package cli constructs the ghmigrate command-line interface, wiring the
// Cobra command hierarchy, configuration loader, token resolution, and
// structured logging. It exposes helpers to build application instances and
// to execute the default command set.
package cli
