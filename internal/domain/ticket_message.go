package domain

import "time"

// MessageAuthorType indicates who authored a ticket message.
type MessageAuthorType string

const (
	AuthorTypeEndUser MessageAuthorType = "END_USER"
	AuthorTypeAgent   MessageAuthorType = "AGENT"
	AuthorTypeSystem  MessageAuthorType = "SYSTEM"
)

// MessageSource differentiates human-written replies from machine-generated ones.
type MessageSource string

const (
	SourceHuman MessageSource = "HUMAN"
	SourceAI    MessageSource = "AI"
)

// TicketMessage captures communications in a ticket thread.
type TicketMessage struct {
	ID         string
	TicketID   string
	AuthorType MessageAuthorType
	AuthorID   *string
	Source     MessageSource
	Body       string
	CreatedAt  time.Time
}
