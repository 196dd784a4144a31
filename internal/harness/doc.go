// Package harness runs scoring scenarios: YAML files that declare a rule
// set, a few days of input and the scores those days must earn.
//
// # Scenario Format
//
//	name: sleep_best_of
//	description: "Wake-up bands pay the best satisfied band"
//	today: 2025-03-01          # default from date for rules; optional
//	rules: |                   # CUE rules source, or rules_file: path.cue
//	  habit: Steps: {target: 8000, reward: 2}
//	  sleep: begin: [
//	    {threshold: "07:00", reward: 2, negative: true},
//	    {threshold: "07:30", reward: 1, negative: true},
//	  ]
//	days:
//	  - date: 2025-03-10
//	    habits: {Steps: 9000, Smoking: false}
//	    sleep: {begin: "06:40"}
//	    tasks:
//	      - {name: Call bank, done: true, reward: 2}
//	  - date: 2025-03-11
//	    note: |                # a whole daily note instead of the fields above
//	      ---
//	      Steps: lots
//	      ---
//	assertions:
//	  - {type: score, date: 2025-03-10, source: sleep, name: begin, reward: 2}
//	  - {type: totals, date: 2025-03-10, total: 6}
//	  - {type: failure, date: 2025-03-11, name: Steps, code: TYPE_MISMATCH}
//
// # Assertion Types
//
//   - score: a scored row matches the given reward, completed and scored
//     fields (subset match; source defaults to habit)
//   - totals: a day's reward, fine, total and slept minutes
//   - failure: a row failed with an error carrying the given code
//
// # Deterministic Testing
//
// Each scenario runs against a fresh in-memory SQLite database with a
// fixed run ID (scenario.run_id or "test-run-default"), so the snapshot
// written by RunWithGolden is byte-identical across runs.
package harness
