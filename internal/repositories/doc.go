// Package repositories implements SQLite persistence for generation records.
//
// Key Implementations:
//   - [GenerationRepository] : one row per finished generation, listed newest first
//
// Sequence numbers provide stable, human-readable ordering independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
