package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bookmarket/addrvault/api/internal/core/domain"
)

// AddressRepo reads and writes encrypted address columns on profiles, books
// and orders. Table and column names come from domain.AddressTarget and are
// quoted with pgx.Identifier; only the row id is a bind parameter.
type AddressRepo struct {
	pool *pgxpool.Pool
}

func NewAddressRepo(pool *pgxpool.Pool) *AddressRepo {
	return &AddressRepo{pool: pool}
}

func (r *AddressRepo) FetchBundle(ctx context.Context, target domain.AddressTarget) (*domain.StoredAddress, error) {
	if !target.Table.Valid() {
		return nil, domain.NewParseError(domain.ReasonInvalidTarget, "unknown table")
	}

	query := fmt.Sprintf(
		`SELECT %s::text, %s FROM %s WHERE id::text = $1`,
		pgx.Identifier{string(target.Column)}.Sanitize(),
		pgx.Identifier{domain.VersionColumn}.Sanitize(),
		pgx.Identifier{string(target.Table)}.Sanitize(),
	)

	var (
		bundle  *string
		version *int
	)
	err := r.pool.QueryRow(ctx, query, target.TargetID).Scan(&bundle, &version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query %s address: %w", target.Table, err)
	}
	if bundle == nil || *bundle == "" {
		return nil, domain.ErrNotFound
	}

	stored := &domain.StoredAddress{Bundle: *bundle}
	if version != nil {
		stored.RecordVersion = *version
	}
	return stored, nil
}

// SaveBundle overwrites the column and its key version. Last write wins.
func (r *AddressRepo) SaveBundle(ctx context.Context, target domain.AddressTarget, bundle string, version int) error {
	if !target.Table.Valid() {
		return domain.NewParseError(domain.ReasonInvalidTarget, "unknown table")
	}

	query := fmt.Sprintf(
		`UPDATE %s SET %s = $2::jsonb, %s = $3 WHERE id::text = $1`,
		pgx.Identifier{string(target.Table)}.Sanitize(),
		pgx.Identifier{string(target.Column)}.Sanitize(),
		pgx.Identifier{domain.VersionColumn}.Sanitize(),
	)

	tag, err := r.pool.Exec(ctx, query, target.TargetID, bundle, version)
	if err != nil {
		return fmt.Errorf("failed to update %s address: %w", target.Table, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
