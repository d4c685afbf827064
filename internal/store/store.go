// Package store loads the student's source records.
package store

import (
	"context"

	"studycal/internal/model"
)

// Source is anything that can produce the current set of source records.
type Source interface {
	Load(ctx context.Context) (model.Sources, error)
}
