// Package engine scores daily observations against versioned reward rules.
//
// The engine is a deterministic, synchronous resolve-then-score pipeline:
//
//	observation → Resolver.Resolve(habit, date) → model.Record
//	            → Score(record, observation) → model.ScoreResult
//
// Evaluator handles Bool, Numeric and Text habits and routes TimeOfDay rules
// to the clock comparison shared with SleepEvaluator. SleepEvaluator picks
// the best satisfied band among all active bands of a marker. Scorer runs a
// whole day (habits, sleep markers, tasks) and isolates failures so one bad
// observation never aborts the rest of the batch.
//
// # Error Handling
//
//   - NOT_FOUND from the resolver is not an error: the observation is
//     returned unscored with zero reward.
//   - TYPE_MISMATCH is always surfaced; values are never coerced.
//   - Failures are collected per observation on DayResult and reported
//     after the whole day has been scored.
package engine
