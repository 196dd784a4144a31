// Package store provides SQLite-backed durable storage for tally.
//
// The database holds four things:
//   - Habit rules and sleep bands, loaded into rulestore at startup and
//     flushed back after mutations (Store implements rulestore.Backend)
//   - Days: per-date totals of the latest scoring run
//   - Observations: the raw inputs of each day, so a rule change can be
//     applied retroactively with a rescore
//   - Scores: one row per scored observation, stamped with the run ID
//
// Recording a day replaces every row of that date in a single transaction,
// so a rescore never leaves a day half old and half new.
//
// All reads order by (day, position) so output is stable across runs.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait on lock contention
//   - foreign_keys=ON: observations and scores cascade with their day
package store
