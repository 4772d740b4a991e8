package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/shopbot/internal/domain"
)

// TicketRepository encapsulates ticket persistence, including the channel
// ownership side table.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	GetOpenByOpener(ctx context.Context, openerID string) (*domain.Ticket, error)
	BindChannel(ctx context.Context, binding domain.TicketChannel) error
	ChannelOwnership(ctx context.Context, channelID string) (*domain.TicketChannel, error)
	Close(ctx context.Context, id int64, at time.Time) error
	List(ctx context.Context, limit, offset int) ([]domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates the repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (opener_id, status)
        VALUES ($1, $2)
        RETURNING id, opened_at`
	return r.pool.QueryRow(ctx, query,
		ticket.OpenerID,
		ticket.Status,
	).Scan(&ticket.ID, &ticket.OpenedAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	const query = `
        SELECT id, opener_id, status, channel_id, opened_at, closed_at
        FROM tickets WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) GetOpenByOpener(ctx context.Context, openerID string) (*domain.Ticket, error) {
	const query = `
        SELECT id, opener_id, status, channel_id, opened_at, closed_at
        FROM tickets WHERE opener_id=$1 AND status=$2
        ORDER BY id DESC LIMIT 1`
	var ticket domain.Ticket
	if err := r.pool.QueryRow(ctx, query, openerID, domain.TicketStatusOpen).Scan(
		&ticket.ID,
		&ticket.OpenerID,
		&ticket.Status,
		&ticket.ChannelID,
		&ticket.OpenedAt,
		&ticket.ClosedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&ticket.ID,
		&ticket.OpenerID,
		&ticket.Status,
		&ticket.ChannelID,
		&ticket.OpenedAt,
		&ticket.ClosedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) BindChannel(ctx context.Context, binding domain.TicketChannel) error {
	const update = `UPDATE tickets SET channel_id=$1 WHERE id=$2`
	cmd, err := r.pool.Exec(ctx, update, binding.ChannelID, binding.TicketID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}

	const insert = `
        INSERT INTO ticket_channels (channel_id, ticket_id, opener_id)
        VALUES ($1,$2,$3)
        ON CONFLICT (channel_id) DO UPDATE SET ticket_id=EXCLUDED.ticket_id, opener_id=EXCLUDED.opener_id`
	_, err = r.pool.Exec(ctx, insert, binding.ChannelID, binding.TicketID, binding.OpenerID)
	return err
}

func (r *ticketRepository) ChannelOwnership(ctx context.Context, channelID string) (*domain.TicketChannel, error) {
	const query = `
        SELECT channel_id, ticket_id, opener_id
        FROM ticket_channels WHERE channel_id=$1`
	var binding domain.TicketChannel
	if err := r.pool.QueryRow(ctx, query, channelID).Scan(
		&binding.ChannelID,
		&binding.TicketID,
		&binding.OpenerID,
	); err != nil {
		return nil, err
	}
	return &binding, nil
}

func (r *ticketRepository) Close(ctx context.Context, id int64, at time.Time) error {
	const query = `
        UPDATE tickets SET status=$1, closed_at=$2
        WHERE id=$3 AND status=$4`
	cmd, err := r.pool.Exec(ctx, query, domain.TicketStatusClosed, at, id, domain.TicketStatusOpen)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) List(ctx context.Context, limit, offset int) ([]domain.Ticket, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
        SELECT id, opener_id, status, channel_id, opened_at, closed_at
        FROM tickets ORDER BY id DESC LIMIT $1 OFFSET $2`
	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.OpenerID,
			&ticket.Status,
			&ticket.ChannelID,
			&ticket.OpenedAt,
			&ticket.ClosedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
