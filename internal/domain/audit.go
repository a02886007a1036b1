package domain

import "time"

// AuditRecord captures a mutating action with enough structured payload to
// reconstruct intent.
type AuditRecord struct {
	ID         string
	CustomerID string
	ActorType  MessageAuthorType
	ActorID    *string
	Action     string
	EntityKind string
	EntityID   string
	Payload    map[string]any
	CreatedAt  time.Time
}
