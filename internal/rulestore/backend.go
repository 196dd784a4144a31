package rulestore

import (
	"context"

	"github.com/roach88/tally/internal/model"
)

// Backend persists rule tables. Load returns every stored row; Flush
// replaces the stored table with the given snapshot.
type Backend interface {
	LoadRules(ctx context.Context) ([]model.Record, error)
	FlushRules(ctx context.Context, records []model.Record) error
	LoadBands(ctx context.Context) ([]model.Band, error)
	FlushBands(ctx context.Context, bands []model.Band) error
}
