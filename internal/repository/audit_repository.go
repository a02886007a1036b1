package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/triage-service/internal/domain"
)

// AuditRepository persists audit records for mutating actions.
type AuditRepository interface {
	Create(ctx context.Context, record *domain.AuditRecord) error
	ListByEntity(ctx context.Context, entityKind, entityID string, limit int) ([]domain.AuditRecord, error)
}

type auditRepository struct {
	pool *pgxpool.Pool
}

// NewAuditRepository builds repository.
func NewAuditRepository(pool *pgxpool.Pool) AuditRepository {
	return &auditRepository{pool: pool}
}

func (r *auditRepository) Create(ctx context.Context, record *domain.AuditRecord) error {
	const query = `
        INSERT INTO audit_records (customer_id, actor_type, actor_id, action, entity_kind, entity_id, payload)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at`
	payload := record.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	return r.pool.QueryRow(ctx, query,
		record.CustomerID,
		record.ActorType,
		record.ActorID,
		record.Action,
		record.EntityKind,
		record.EntityID,
		payload,
	).Scan(&record.ID, &record.CreatedAt)
}

func (r *auditRepository) ListByEntity(ctx context.Context, entityKind, entityID string, limit int) ([]domain.AuditRecord, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	const query = `
        SELECT id, customer_id, actor_type, actor_id, action, entity_kind, entity_id, payload, created_at
        FROM audit_records
        WHERE entity_kind=$1 AND entity_id=$2
        ORDER BY created_at DESC LIMIT $3`
	rows, err := r.pool.Query(ctx, query, entityKind, entityID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.AuditRecord
	for rows.Next() {
		var record domain.AuditRecord
		if err := rows.Scan(
			&record.ID,
			&record.CustomerID,
			&record.ActorType,
			&record.ActorID,
			&record.Action,
			&record.EntityKind,
			&record.EntityID,
			&record.Payload,
			&record.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, record)
	}
	return result, rows.Err()
}
