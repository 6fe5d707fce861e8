package repository

import (
	"context"

	"github.com/user/slotwatch/internal/entity"
)

// TransitionRepository stores the most recent availability transition per target.
type TransitionRepository interface {
	// Save replaces any previously stored transition for the same target.
	Save(ctx context.Context, t *entity.Transition) error
	// FindByTarget returns nil, nil when nothing has been stored yet.
	FindByTarget(ctx context.Context, target string) (*entity.Transition, error)
}
