package repository

import (
	"context"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/triage-service/internal/domain"
)

// TicketFilter captures listing parameters.
type TicketFilter struct {
	CustomerID *string
	Statuses   []domain.TicketStatus
	Limit      int
	Offset     int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	GetByReferenceCode(ctx context.Context, code string) (*domain.Ticket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (customer_id, creator_id, channel, status, priority, category, subject, summary, assignee_id, reference_code)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.CustomerID,
		ticket.CreatorID,
		ticket.Channel,
		ticket.Status,
		ticket.Priority,
		ticket.Category,
		ticket.Subject,
		ticket.Summary,
		ticket.AssigneeID,
		ticket.ReferenceCode,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET channel=$1, status=$2, priority=$3, category=$4, subject=$5, summary=$6,
            assignee_id=$7, resolved_at=$8, updated_at=NOW()
        WHERE id=$9`
	cmd, err := r.pool.Exec(ctx, query,
		ticket.Channel,
		ticket.Status,
		ticket.Priority,
		ticket.Category,
		ticket.Subject,
		ticket.Summary,
		ticket.AssigneeID,
		ticket.ResolvedAt,
		ticket.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	const query = ticketSelect + ` WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) GetByReferenceCode(ctx context.Context, code string) (*domain.Ticket, error) {
	const query = ticketSelect + ` WHERE reference_code=$1`
	return r.fetchSingle(ctx, query, code)
}

const ticketSelect = `
        SELECT id, customer_id, creator_id, channel, status, priority, category, subject, summary,
               assignee_id, reference_code, created_at, updated_at, resolved_at
        FROM tickets`

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&ticket.ID,
		&ticket.CustomerID,
		&ticket.CreatorID,
		&ticket.Channel,
		&ticket.Status,
		&ticket.Priority,
		&ticket.Category,
		&ticket.Subject,
		&ticket.Summary,
		&ticket.AssigneeID,
		&ticket.ReferenceCode,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.ResolvedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	query := ticketSelect + ` WHERE 1=1`
	args := []any{}
	idx := 1
	if filter.CustomerID != nil {
		query += ` AND customer_id=$` + strconv.Itoa(idx)
		args = append(args, *filter.CustomerID)
		idx++
	}
	if len(filter.Statuses) > 0 {
		query += ` AND status = ANY($` + strconv.Itoa(idx) + `)`
		statuses := make([]string, 0, len(filter.Statuses))
		for _, s := range filter.Statuses {
			statuses = append(statuses, string(s))
		}
		args = append(args, statuses)
		idx++
	}
	query += ` ORDER BY created_at DESC`
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query += ` LIMIT $` + strconv.Itoa(idx)
	args = append(args, limit)
	idx++
	if filter.Offset > 0 {
		query += ` OFFSET $` + strconv.Itoa(idx)
		args = append(args, filter.Offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.CustomerID,
			&ticket.CreatorID,
			&ticket.Channel,
			&ticket.Status,
			&ticket.Priority,
			&ticket.Category,
			&ticket.Subject,
			&ticket.Summary,
			&ticket.AssigneeID,
			&ticket.ReferenceCode,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
			&ticket.ResolvedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
