package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/triage-service/internal/domain"
)

// OutboundMessageFilter captures customer listing parameters.
type OutboundMessageFilter struct {
	Status *domain.OutboundStatus
	Limit  int
}

// OutboundMessageRepository persists queued notifications.
type OutboundMessageRepository interface {
	Create(ctx context.Context, msg *domain.OutboundMessage) error
	Update(ctx context.Context, msg *domain.OutboundMessage) error
	GetByID(ctx context.Context, id string) (*domain.OutboundMessage, error)
	// FindByCorrelationKey returns the most recent message for the key, or
	// pgx.ErrNoRows when none exists.
	FindByCorrelationKey(ctx context.Context, key string) (*domain.OutboundMessage, error)
	// ListDispatchable returns PENDING and FAILED messages oldest-first.
	ListDispatchable(ctx context.Context) ([]domain.OutboundMessage, error)
	CountDispatchable(ctx context.Context) (int, error)
	// ListDeadLetters returns DEAD_LETTER messages oldest-first.
	ListDeadLetters(ctx context.Context, limit int) ([]domain.OutboundMessage, error)
	ListByCustomer(ctx context.Context, customerID string, filter OutboundMessageFilter) ([]domain.OutboundMessage, error)
}

type outboundMessageRepository struct {
	pool *pgxpool.Pool
}

// NewOutboundMessageRepository builds repository.
func NewOutboundMessageRepository(pool *pgxpool.Pool) OutboundMessageRepository {
	return &outboundMessageRepository{pool: pool}
}

func (r *outboundMessageRepository) Create(ctx context.Context, msg *domain.OutboundMessage) error {
	const query = `
        INSERT INTO outbound_messages (ticket_id, customer_id, recipient, subject, body, correlation_key, status, attempt_count)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		msg.TicketID,
		msg.CustomerID,
		msg.Recipient,
		msg.Subject,
		msg.Body,
		msg.CorrelationKey,
		msg.Status,
		msg.AttemptCount,
	).Scan(&msg.ID, &msg.CreatedAt)
}

func (r *outboundMessageRepository) Update(ctx context.Context, msg *domain.OutboundMessage) error {
	const query = `
        UPDATE outbound_messages SET status=$1, attempt_count=$2, last_error=$3, sent_at=$4, dead_lettered_at=$5
        WHERE id=$6`
	cmd, err := r.pool.Exec(ctx, query,
		msg.Status,
		msg.AttemptCount,
		msg.LastError,
		msg.SentAt,
		msg.DeadLetteredAt,
		msg.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

const outboundSelect = `
        SELECT id, ticket_id, customer_id, recipient, subject, body, correlation_key, status,
               attempt_count, last_error, created_at, sent_at, dead_lettered_at
        FROM outbound_messages`

func (r *outboundMessageRepository) GetByID(ctx context.Context, id string) (*domain.OutboundMessage, error) {
	return r.fetchSingle(ctx, outboundSelect+` WHERE id=$1`, id)
}

func (r *outboundMessageRepository) FindByCorrelationKey(ctx context.Context, key string) (*domain.OutboundMessage, error) {
	const query = outboundSelect + `
        WHERE correlation_key=$1 ORDER BY created_at DESC LIMIT 1`
	return r.fetchSingle(ctx, query, key)
}

func (r *outboundMessageRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.OutboundMessage, error) {
	var msg domain.OutboundMessage
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&msg.ID,
		&msg.TicketID,
		&msg.CustomerID,
		&msg.Recipient,
		&msg.Subject,
		&msg.Body,
		&msg.CorrelationKey,
		&msg.Status,
		&msg.AttemptCount,
		&msg.LastError,
		&msg.CreatedAt,
		&msg.SentAt,
		&msg.DeadLetteredAt,
	); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *outboundMessageRepository) ListDispatchable(ctx context.Context) ([]domain.OutboundMessage, error) {
	const query = outboundSelect + `
        WHERE status = ANY($1) ORDER BY created_at ASC`
	return r.queryMessages(ctx, query, []string{string(domain.OutboundStatusPending), string(domain.OutboundStatusFailed)})
}

func (r *outboundMessageRepository) CountDispatchable(ctx context.Context) (int, error) {
	const query = `
        SELECT COUNT(*) FROM outbound_messages WHERE status = ANY($1)`
	var count int
	err := r.pool.QueryRow(ctx, query, []string{string(domain.OutboundStatusPending), string(domain.OutboundStatusFailed)}).Scan(&count)
	return count, err
}

func (r *outboundMessageRepository) ListDeadLetters(ctx context.Context, limit int) ([]domain.OutboundMessage, error) {
	const query = outboundSelect + `
        WHERE status=$1 ORDER BY created_at ASC LIMIT $2`
	return r.queryMessages(ctx, query, domain.OutboundStatusDeadLetter, limit)
}

func (r *outboundMessageRepository) ListByCustomer(ctx context.Context, customerID string, filter OutboundMessageFilter) ([]domain.OutboundMessage, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 200
	}
	if filter.Status != nil {
		const query = outboundSelect + `
        WHERE customer_id=$1 AND status=$2 ORDER BY created_at DESC LIMIT $3`
		return r.queryMessages(ctx, query, customerID, *filter.Status, limit)
	}
	const query = outboundSelect + `
        WHERE customer_id=$1 ORDER BY created_at DESC LIMIT $2`
	return r.queryMessages(ctx, query, customerID, limit)
}

func (r *outboundMessageRepository) queryMessages(ctx context.Context, query string, args ...any) ([]domain.OutboundMessage, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.OutboundMessage
	for rows.Next() {
		var msg domain.OutboundMessage
		if err := rows.Scan(
			&msg.ID,
			&msg.TicketID,
			&msg.CustomerID,
			&msg.Recipient,
			&msg.Subject,
			&msg.Body,
			&msg.CorrelationKey,
			&msg.Status,
			&msg.AttemptCount,
			&msg.LastError,
			&msg.CreatedAt,
			&msg.SentAt,
			&msg.DeadLetteredAt,
		); err != nil {
			return nil, err
		}
		result = append(result, msg)
	}
	return result, rows.Err()
}
