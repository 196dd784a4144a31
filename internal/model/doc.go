// Package model provides the foundational types for the tally reward engine.
//
// This package contains type definitions only. All other internal packages
// import model; model imports nothing internal. This keeps the rule types
// the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Values are a sealed set: Bool, Number, Text, Minutes. Nothing else
//     can be scored, and nothing is coerced between them.
//   - Numbers are decimals, never float64, so threshold edges are exact.
//   - Dates are civil days (no time zone); clock times are minutes since
//     midnight of the note's day, +1440 for the following day.
//   - Habit names are NFC-normalised before they are used as keys.
package model
