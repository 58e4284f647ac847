// Package history records entity state changes in SQLite.
//
// Repository owns the state_history table (schema created on first
// open) and exposes record, query and prune operations. Recorder
// adapts the repository to the registry's observer hook: state changes
// are queued and written by a background worker so the protocol's push
// path never waits on disk.
package history
