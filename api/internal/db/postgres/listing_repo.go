package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

type ListingRepo struct {
	db *sqlx.DB
}

func NewListingRepo(db *sqlx.DB) *ListingRepo {
	return &ListingRepo{db: db}
}

// HasAvailableListing reports whether the seller has at least one book that
// is unsold and marked available.
func (r *ListingRepo) HasAvailableListing(ctx context.Context, sellerID string) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1
			FROM books
			WHERE seller_id::text = $1
			  AND sold = false
			  AND availability = 'available'
		)
	`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, sellerID); err != nil {
		return false, fmt.Errorf("failed to query seller listings: %w", err)
	}
	return exists, nil
}
