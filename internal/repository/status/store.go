package status

import (
	"context"
	"errors"

	domain "github.com/oshokin/catpoint/internal/domain/security"
)

// Store defines durable persistence of the security state.
type Store interface {
	Load(ctx context.Context) (*domain.Snapshot, error)
	Save(ctx context.Context, snapshot *domain.Snapshot) error
}

// ErrNotFound is returned when no state has been saved yet.
var ErrNotFound = errors.New("state not found")
