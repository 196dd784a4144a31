// Package rulestore holds the versioned reward rules in memory.
//
// Store keeps habit rules keyed by (habit name, valid_from); SleepStore keeps
// sleep bands keyed by (marker, threshold, valid_from). Both are loaded once
// from a Backend at process start and flushed back explicitly; no mutation
// persists on its own.
//
// # Resolution
//
// A record is active on a day when valid_from <= day < valid_to. Among the
// active versions of one habit the greatest valid_from wins. The compound
// key makes two candidates with the same valid_from impossible; tables that
// contain such duplicates are rejected at load time.
//
// # Deletion
//
// Drop removes the records matching a conjunction of predicates. An empty
// filter is refused rather than clearing the store.
package rulestore
