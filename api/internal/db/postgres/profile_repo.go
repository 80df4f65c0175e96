package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bookmarket/addrvault/api/internal/core/domain"
)

type ProfileRepo struct {
	pool *pgxpool.Pool
}

func NewProfileRepo(pool *pgxpool.Pool) *ProfileRepo {
	return &ProfileRepo{pool: pool}
}

func (r *ProfileRepo) IsAdmin(ctx context.Context, userID string) (bool, error) {
	const query = `SELECT COALESCE(is_admin, false) FROM profiles WHERE id::text = $1`

	var isAdmin bool
	err := r.pool.QueryRow(ctx, query, userID).Scan(&isAdmin)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, domain.ErrNotFound
		}
		return false, fmt.Errorf("failed to load profile role: %w", err)
	}
	return isAdmin, nil
}
