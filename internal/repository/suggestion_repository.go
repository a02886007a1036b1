package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/triage-service/internal/domain"
)

// SuggestionRepository persists AI triage suggestions.
type SuggestionRepository interface {
	Create(ctx context.Context, suggestion *domain.Suggestion) error
	Update(ctx context.Context, suggestion *domain.Suggestion) error
	// GetLatestPending returns the most-recently created PENDING_APPROVAL
	// suggestion for a ticket, or pgx.ErrNoRows when none exists.
	GetLatestPending(ctx context.Context, ticketID string) (*domain.Suggestion, error)
	ListByTicket(ctx context.Context, ticketID string) ([]domain.Suggestion, error)
}

type suggestionRepository struct {
	pool *pgxpool.Pool
}

// NewSuggestionRepository builds repository.
func NewSuggestionRepository(pool *pgxpool.Pool) SuggestionRepository {
	return &suggestionRepository{pool: pool}
}

func (r *suggestionRepository) Create(ctx context.Context, suggestion *domain.Suggestion) error {
	const query = `
        INSERT INTO suggestions (ticket_id, draft_response, category, priority, risk, confidence, status, processed_by, prompt_hash, input_tokens, output_tokens)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		suggestion.TicketID,
		suggestion.DraftResponse,
		suggestion.Category,
		suggestion.Priority,
		suggestion.Risk,
		suggestion.Confidence,
		suggestion.Status,
		suggestion.ProcessedBy,
		suggestion.PromptHash,
		suggestion.InputTokens,
		suggestion.OutputTokens,
	).Scan(&suggestion.ID, &suggestion.CreatedAt, &suggestion.UpdatedAt)
}

func (r *suggestionRepository) Update(ctx context.Context, suggestion *domain.Suggestion) error {
	const query = `
        UPDATE suggestions SET draft_response=$1, status=$2, processed_by=$3, updated_at=NOW()
        WHERE id=$4
        RETURNING updated_at`
	return r.pool.QueryRow(ctx, query,
		suggestion.DraftResponse,
		suggestion.Status,
		suggestion.ProcessedBy,
		suggestion.ID,
	).Scan(&suggestion.UpdatedAt)
}

const suggestionSelect = `
        SELECT id, ticket_id, draft_response, category, priority, risk, confidence, status,
               processed_by, prompt_hash, input_tokens, output_tokens, created_at, updated_at
        FROM suggestions`

func (r *suggestionRepository) GetLatestPending(ctx context.Context, ticketID string) (*domain.Suggestion, error) {
	const query = suggestionSelect + `
        WHERE ticket_id=$1 AND status=$2
        ORDER BY created_at DESC LIMIT 1`
	var s domain.Suggestion
	if err := r.pool.QueryRow(ctx, query, ticketID, domain.SuggestionStatusPendingApproval).Scan(
		&s.ID,
		&s.TicketID,
		&s.DraftResponse,
		&s.Category,
		&s.Priority,
		&s.Risk,
		&s.Confidence,
		&s.Status,
		&s.ProcessedBy,
		&s.PromptHash,
		&s.InputTokens,
		&s.OutputTokens,
		&s.CreatedAt,
		&s.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *suggestionRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Suggestion, error) {
	const query = suggestionSelect + ` WHERE ticket_id=$1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Suggestion
	for rows.Next() {
		var s domain.Suggestion
		if err := rows.Scan(
			&s.ID,
			&s.TicketID,
			&s.DraftResponse,
			&s.Category,
			&s.Priority,
			&s.Risk,
			&s.Confidence,
			&s.Status,
			&s.ProcessedBy,
			&s.PromptHash,
			&s.InputTokens,
			&s.OutputTokens,
			&s.CreatedAt,
			&s.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, rows.Err()
}
