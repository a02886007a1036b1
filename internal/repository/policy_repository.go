package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/triage-service/internal/domain"
)

// PolicyRepository persists per-customer automation policies.
type PolicyRepository interface {
	GetByCustomer(ctx context.Context, customerID string) (*domain.CustomerAiPolicy, error)
	Upsert(ctx context.Context, policy *domain.CustomerAiPolicy) error
}

type policyRepository struct {
	pool *pgxpool.Pool
}

// NewPolicyRepository builds repository.
func NewPolicyRepository(pool *pgxpool.Pool) PolicyRepository {
	return &policyRepository{pool: pool}
}

func (r *policyRepository) GetByCustomer(ctx context.Context, customerID string) (*domain.CustomerAiPolicy, error) {
	const query = `
        SELECT customer_id, mode, confidence_threshold, updated_at
        FROM customer_ai_policies WHERE customer_id=$1`
	var policy domain.CustomerAiPolicy
	if err := r.pool.QueryRow(ctx, query, customerID).Scan(
		&policy.CustomerID,
		&policy.Mode,
		&policy.ConfidenceThreshold,
		&policy.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &policy, nil
}

func (r *policyRepository) Upsert(ctx context.Context, policy *domain.CustomerAiPolicy) error {
	const query = `
        INSERT INTO customer_ai_policies (customer_id, mode, confidence_threshold, updated_at)
        VALUES ($1,$2,$3,NOW())
        ON CONFLICT (customer_id)
        DO UPDATE SET mode=EXCLUDED.mode, confidence_threshold=EXCLUDED.confidence_threshold, updated_at=NOW()
        RETURNING updated_at`
	return r.pool.QueryRow(ctx, query,
		policy.CustomerID,
		policy.Mode,
		policy.ConfidenceThreshold,
	).Scan(&policy.UpdatedAt)
}
