package repository

import (
	"context"

	"github.com/gokatarajesh/question-bank/internal/db/queries"
)

// GrantStore is implemented by *queries.Store and *postgrest.Client.
type GrantStore interface {
	ListActiveGrantsByUser(ctx context.Context, userID string) ([]queries.AccessGrant, error)
}

// GrantRepository reads access grants.
type GrantRepository struct {
	store GrantStore
}

func NewGrantRepository(store GrantStore) *GrantRepository {
	return &GrantRepository{store: store}
}

// ListActive returns the grants flagged active for userID. Expiry is left to the caller.
func (r *GrantRepository) ListActive(ctx context.Context, userID string) ([]queries.AccessGrant, error) {
	return r.store.ListActiveGrantsByUser(ctx, userID)
}
