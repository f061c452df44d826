// Package migration implements a resumable migrator for a versioned
// key-value state trie.
//
// The trie is modeled as a *top* namespace plus an arbitrary number of
// *child* sub-namespaces. The migrator walks every entry of both, reading
// its value and writing the same value back, so that each entry gets
// re-encoded under a newer on-disk node format. Because the trie can hold
// millions of entries and the host environment budgets compute per call,
// the walk is split into ticks: each tick advances across at most one key,
// and progress is persisted in a MigrationTask between calls.
//
// Three operations drive the walk: an automatic per-block hook
// (ControlAutoMigration / AutoTick), a signed continuation that
// pre-declares the resources it will consume and is slashed for
// mis-declaring them (ContinueMigrate), and two custom-key-list repair
// operations that operate outside the persisted cursor
// (MigrateCustomTop / MigrateCustomChild).
package migration
