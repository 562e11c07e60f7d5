package postgres

import (
	"context"
	"database/sql"
	"dealwire/internal/core/domain"
	"errors"
	"fmt"
	"strings"
)

type DealRepo struct {
	db *sql.DB
}

func NewDealRepo(db *sql.DB) *DealRepo {
	return &DealRepo{db: db}
}

/*
	-- Deals (owned by the main application schema)
	CREATE TABLE deals (
		id          BIGSERIAL PRIMARY KEY,
		artist_id   BIGINT NOT NULL REFERENCES users(id),
		exec_id     BIGINT NOT NULL REFERENCES users(id),
		track_id    BIGINT NOT NULL REFERENCES tracks(id),
		status      TEXT NOT NULL DEFAULT 'pending',
		terms       JSONB,
		version     BIGINT NOT NULL DEFAULT 1,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE INDEX deals_artist_idx ON deals (artist_id);
	CREATE INDEX deals_exec_idx ON deals (exec_id);
*/

const dealColumns = `id, artist_id, exec_id, track_id, status, terms, version, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDeal(row rowScanner) (*domain.Deal, error) {
	var d domain.Deal
	var terms []byte
	if err := row.Scan(
		&d.ID,
		&d.ArtistID,
		&d.ExecID,
		&d.TrackID,
		&d.Status,
		&terms,
		&d.Version,
		&d.CreatedAt,
		&d.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(terms) > 0 {
		d.Terms = terms
	}
	return &d, nil
}

func (r *DealRepo) GetDeal(ctx context.Context, id int64) (*domain.Deal, error) {
	if id <= 0 {
		return nil, domain.ErrInvalidDealID
	}
	exec := GetExecutor(ctx, r.db)
	d, err := scanDeal(exec.QueryRowContext(ctx, `SELECT `+dealColumns+` FROM deals WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrDealNotFound
		}
		return nil, fmt.Errorf("get deal %d: %w", id, err)
	}
	return d, nil
}

func (r *DealRepo) ListDeals(ctx context.Context, filter domain.DealFilter) ([]domain.Deal, error) {
	var (
		where []string
		args  []any
	)
	if filter.ParticipantID > 0 {
		args = append(args, filter.ParticipantID)
		where = append(where, fmt.Sprintf("(artist_id = $%d OR exec_id = $%d)", len(args), len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	query := `SELECT ` + dealColumns + ` FROM deals`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY updated_at DESC, id DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	exec := GetExecutor(ctx, r.db)
	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list deals: %w", err)
	}
	defer rows.Close()
	var deals []domain.Deal
	for rows.Next() {
		d, err := scanDeal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan deal: %w", err)
		}
		deals = append(deals, *d)
	}
	return deals, rows.Err()
}

// UpdateDeal writes the patch and bumps version in one statement so the
// returned row is exactly what was committed.
func (r *DealRepo) UpdateDeal(ctx context.Context, id int64, patch domain.DealPatch) (*domain.Deal, error) {
	if id <= 0 {
		return nil, domain.ErrInvalidDealID
	}
	if patch.Empty() {
		return nil, domain.ErrEmptyPatch
	}
	var status any
	if patch.Status != nil {
		status = string(*patch.Status)
	}
	var terms any
	if len(patch.Terms) > 0 {
		terms = string(patch.Terms)
	}
	exec := GetExecutor(ctx, r.db)
	d, err := scanDeal(exec.QueryRowContext(ctx, `
		UPDATE deals
		SET status = COALESCE($2, status),
		    terms = COALESCE($3::jsonb, terms),
		    version = version + 1,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+dealColumns, id, status, terms))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrDealNotFound
		}
		return nil, fmt.Errorf("update deal %d: %w", id, err)
	}
	return d, nil
}
