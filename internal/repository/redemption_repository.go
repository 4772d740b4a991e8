package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/shopbot/internal/domain"
)

// ErrDuplicateInvoice is returned when an insert collides with an existing
// ledger row for the same invoice. The unique index makes the loser of a
// concurrent double-redeem land here instead of creating a second row.
var ErrDuplicateInvoice = errors.New("invoice already redeemed")

const uniqueViolation = "23505"

// RedemptionRepository encapsulates redemption ledger persistence.
type RedemptionRepository interface {
	Insert(ctx context.Context, rec *domain.RedemptionRecord) error
	GetByInvoiceID(ctx context.Context, invoiceID string) (*domain.RedemptionRecord, error)
	GetByRoleID(ctx context.Context, roleID string) (*domain.RedemptionRecord, error)
	MarkRedeemed(ctx context.Context, id int64, userID, username string, at time.Time) error
	List(ctx context.Context, limit, offset int) ([]domain.RedemptionRecord, error)
}

type redemptionRepository struct {
	pool *pgxpool.Pool
}

// NewRedemptionRepository instantiates the repository.
func NewRedemptionRepository(pool *pgxpool.Pool) RedemptionRepository {
	return &redemptionRepository{pool: pool}
}

func (r *redemptionRepository) Insert(ctx context.Context, rec *domain.RedemptionRecord) error {
	const query = `
        INSERT INTO role_redeem (role_id, redeemed, redeemed_by, invoice_id, product_name, variant_name, discord_username, redeemed_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at`
	err := r.pool.QueryRow(ctx, query,
		rec.RoleID,
		rec.Redeemed,
		rec.RedeemedBy,
		rec.InvoiceID,
		rec.ProductName,
		rec.VariantName,
		rec.DiscordUsername,
		rec.RedeemedAt,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDuplicateInvoice
		}
		return err
	}
	return nil
}

func (r *redemptionRepository) GetByInvoiceID(ctx context.Context, invoiceID string) (*domain.RedemptionRecord, error) {
	const query = `
        SELECT id, role_id, redeemed, redeemed_by, invoice_id, product_name, variant_name, discord_username, redeemed_at, created_at
        FROM role_redeem WHERE invoice_id=$1`
	return r.fetchSingle(ctx, query, invoiceID)
}

func (r *redemptionRepository) GetByRoleID(ctx context.Context, roleID string) (*domain.RedemptionRecord, error) {
	const query = `
        SELECT id, role_id, redeemed, redeemed_by, invoice_id, product_name, variant_name, discord_username, redeemed_at, created_at
        FROM role_redeem WHERE role_id=$1 ORDER BY id DESC LIMIT 1`
	return r.fetchSingle(ctx, query, roleID)
}

func (r *redemptionRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.RedemptionRecord, error) {
	var rec domain.RedemptionRecord
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&rec.ID,
		&rec.RoleID,
		&rec.Redeemed,
		&rec.RedeemedBy,
		&rec.InvoiceID,
		&rec.ProductName,
		&rec.VariantName,
		&rec.DiscordUsername,
		&rec.RedeemedAt,
		&rec.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *redemptionRepository) MarkRedeemed(ctx context.Context, id int64, userID, username string, at time.Time) error {
	const query = `
        UPDATE role_redeem SET redeemed=TRUE, redeemed_by=$1, discord_username=$2, redeemed_at=$3
        WHERE id=$4`
	cmd, err := r.pool.Exec(ctx, query, userID, username, at, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *redemptionRepository) List(ctx context.Context, limit, offset int) ([]domain.RedemptionRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
        SELECT id, role_id, redeemed, redeemed_by, invoice_id, product_name, variant_name, discord_username, redeemed_at, created_at
        FROM role_redeem ORDER BY id DESC LIMIT $1 OFFSET $2`
	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.RedemptionRecord
	for rows.Next() {
		var rec domain.RedemptionRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.RoleID,
			&rec.Redeemed,
			&rec.RedeemedBy,
			&rec.InvoiceID,
			&rec.ProductName,
			&rec.VariantName,
			&rec.DiscordUsername,
			&rec.RedeemedAt,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}
