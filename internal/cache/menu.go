package cache

import (
	"context"

	"github.com/google/uuid"
	"github.com/tablekeep/backoffice/internal/database"
)

// MenuCache holds the active menu listing of a branch.
type MenuCache interface {
	GetMenu(ctx context.Context, branchID uuid.UUID) ([]database.MenuItem, bool, error)
	SetMenu(ctx context.Context, branchID uuid.UUID, items []database.MenuItem) error
	InvalidateMenu(ctx context.Context, branchID uuid.UUID) error
}

type NoopMenuCache struct{}

func (NoopMenuCache) GetMenu(_ context.Context, _ uuid.UUID) ([]database.MenuItem, bool, error) {
	return nil, false, nil
}

func (NoopMenuCache) SetMenu(_ context.Context, _ uuid.UUID, _ []database.MenuItem) error {
	return nil
}

func (NoopMenuCache) InvalidateMenu(_ context.Context, _ uuid.UUID) error {
	return nil
}

func menuKey(branchID uuid.UUID) string {
	return "menu:branch:" + branchID.String()
}
