package domain

import "time"

// KnowledgeArticle is a published help article surfaced to the suggestion
// generator as grounding context.
type KnowledgeArticle struct {
	ID         string
	CustomerID *string
	Category   string
	Title      string
	Body       string
	Published  bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
