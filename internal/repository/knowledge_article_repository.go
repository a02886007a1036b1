package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/triage-service/internal/domain"
)

// KnowledgeArticleRepository reads published help articles. Article
// administration lives outside this service.
type KnowledgeArticleRepository interface {
	// ListRelevant returns up to limit published articles for the customer,
	// preferring category matches.
	ListRelevant(ctx context.Context, customerID, category string, limit int) ([]domain.KnowledgeArticle, error)
}

type knowledgeArticleRepository struct {
	pool *pgxpool.Pool
}

// NewKnowledgeArticleRepository builds repository.
func NewKnowledgeArticleRepository(pool *pgxpool.Pool) KnowledgeArticleRepository {
	return &knowledgeArticleRepository{pool: pool}
}

func (r *knowledgeArticleRepository) ListRelevant(ctx context.Context, customerID, category string, limit int) ([]domain.KnowledgeArticle, error) {
	if limit <= 0 {
		limit = 3
	}
	const query = `
        SELECT id, customer_id, category, title, body, published, created_at, updated_at
        FROM knowledge_articles
        WHERE published AND (customer_id IS NULL OR customer_id=$1)
        ORDER BY (category=$2) DESC, updated_at DESC
        LIMIT $3`
	rows, err := r.pool.Query(ctx, query, customerID, category, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.KnowledgeArticle
	for rows.Next() {
		var article domain.KnowledgeArticle
		if err := rows.Scan(
			&article.ID,
			&article.CustomerID,
			&article.Category,
			&article.Title,
			&article.Body,
			&article.Published,
			&article.CreatedAt,
			&article.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, article)
	}
	return result, rows.Err()
}
