package engine

import (
	"github.com/google/uuid"
)

// RunIDGenerator produces identifiers for scoring runs. Every score row a
// run writes carries its run ID, so a rescore can be told apart from the
// original pass. Implemented by UUIDv7Generator and
// testutil.FixedRunIDGenerator.
type RunIDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 run IDs.
// Stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a new hyphenated UUIDv7.
// Panics if the random source fails.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}
