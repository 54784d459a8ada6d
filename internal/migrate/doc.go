// Package migrate orchestrates a project migration run.
//
// A Migrator owns the per-run state shared across rows (the processed
// relationship edges and the label cache) and drives the field mapper, the
// issue creation sequencer, the relationship graph builder and the label
// upserter over tabular inputs. CommandBuilder exposes the operations as
// Cobra subcommands.
package migrate
