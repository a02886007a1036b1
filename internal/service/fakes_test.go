package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/triage-service/internal/domain"
	"github.com/spec-kit/triage-service/internal/repository"
	"github.com/spec-kit/triage-service/internal/triage"
)

// In-memory repository fakes. They mirror the persistence contract the
// services rely on: Create assigns IDs and timestamps, lookups return copies,
// missing rows surface pgx.ErrNoRows.

type fakeTicketRepo struct {
	mu      sync.Mutex
	tickets map[string]domain.Ticket
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: map[string]domain.Ticket{}}
}

func (r *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket.ID = uuid.NewString()
	ticket.CreatedAt = time.Now()
	ticket.UpdatedAt = ticket.CreatedAt
	r.tickets[ticket.ID] = *ticket
	return nil
}

func (r *fakeTicketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tickets[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	ticket.UpdatedAt = time.Now()
	r.tickets[ticket.ID] = *ticket
	return nil
}

func (r *fakeTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := ticket
	return &copied, nil
}

func (r *fakeTicketRepo) GetByReferenceCode(_ context.Context, code string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ticket := range r.tickets {
		if ticket.ReferenceCode == code {
			copied := ticket
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeTicketRepo) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.Ticket{}
	for _, ticket := range r.tickets {
		if filter.CustomerID != nil && ticket.CustomerID != *filter.CustomerID {
			continue
		}
		if len(filter.Statuses) > 0 {
			matched := false
			for _, status := range filter.Statuses {
				if ticket.Status == status {
					matched = true
					break
				}
			}
			if !matched {
				continue
			}
		}
		out = append(out, ticket)
	}
	return out, nil
}

type fakeMessageRepo struct {
	mu       sync.Mutex
	messages []domain.TicketMessage
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{}
}

func (r *fakeMessageRepo) Create(_ context.Context, msg *domain.TicketMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg.ID = uuid.NewString()
	msg.CreatedAt = time.Now()
	r.messages = append(r.messages, *msg)
	return nil
}

func (r *fakeMessageRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.TicketMessage{}
	for _, msg := range r.messages {
		if msg.TicketID == ticketID {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (r *fakeMessageRepo) ListRecent(ctx context.Context, ticketID string, limit int) ([]domain.TicketMessage, error) {
	all, _ := r.ListByTicket(ctx, ticketID)
	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}

type fakeSuggestionRepo struct {
	mu          sync.Mutex
	suggestions []domain.Suggestion
}

func newFakeSuggestionRepo() *fakeSuggestionRepo {
	return &fakeSuggestionRepo{}
}

func (r *fakeSuggestionRepo) Create(_ context.Context, suggestion *domain.Suggestion) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	suggestion.ID = uuid.NewString()
	suggestion.CreatedAt = time.Now()
	suggestion.UpdatedAt = suggestion.CreatedAt
	r.suggestions = append(r.suggestions, *suggestion)
	return nil
}

func (r *fakeSuggestionRepo) Update(_ context.Context, suggestion *domain.Suggestion) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.suggestions {
		if r.suggestions[i].ID == suggestion.ID {
			suggestion.UpdatedAt = time.Now()
			r.suggestions[i] = *suggestion
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (r *fakeSuggestionRepo) GetLatestPending(_ context.Context, ticketID string) (*domain.Suggestion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.suggestions) - 1; i >= 0; i-- {
		s := r.suggestions[i]
		if s.TicketID == ticketID && s.Status == domain.SuggestionStatusPendingApproval {
			copied := s
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeSuggestionRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.Suggestion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.Suggestion{}
	for _, s := range r.suggestions {
		if s.TicketID == ticketID {
			out = append(out, s)
		}
	}
	return out, nil
}

type fakePolicyRepo struct {
	mu       sync.Mutex
	policies map[string]domain.CustomerAiPolicy
}

func newFakePolicyRepo() *fakePolicyRepo {
	return &fakePolicyRepo{policies: map[string]domain.CustomerAiPolicy{}}
}

func (r *fakePolicyRepo) GetByCustomer(_ context.Context, customerID string) (*domain.CustomerAiPolicy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	policy, ok := r.policies[customerID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := policy
	return &copied, nil
}

func (r *fakePolicyRepo) Upsert(_ context.Context, policy *domain.CustomerAiPolicy) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	policy.UpdatedAt = time.Now()
	r.policies[policy.CustomerID] = *policy
	return nil
}

type fakeArticleRepo struct {
	articles []domain.KnowledgeArticle
}

func (r *fakeArticleRepo) ListRelevant(_ context.Context, _, _ string, limit int) ([]domain.KnowledgeArticle, error) {
	if len(r.articles) > limit {
		return r.articles[:limit], nil
	}
	return r.articles, nil
}

type fakeAuditRepo struct {
	mu      sync.Mutex
	records []domain.AuditRecord
}

func newFakeAuditRepo() *fakeAuditRepo {
	return &fakeAuditRepo{}
}

func (r *fakeAuditRepo) Create(_ context.Context, record *domain.AuditRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	record.ID = uuid.NewString()
	record.CreatedAt = time.Now()
	r.records = append(r.records, *record)
	return nil
}

func (r *fakeAuditRepo) ListByEntity(_ context.Context, entityKind, entityID string, limit int) ([]domain.AuditRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.AuditRecord{}
	for _, record := range r.records {
		if record.EntityKind == entityKind && record.EntityID == entityID {
			out = append(out, record)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeAuditRepo) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.records))
	for _, record := range r.records {
		out = append(out, record.Action)
	}
	return out
}

func (r *fakeAuditRepo) countAction(action string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, record := range r.records {
		if record.Action == action {
			n++
		}
	}
	return n
}

type fakeOutboundRepo struct {
	mu       sync.Mutex
	messages []domain.OutboundMessage
}

func newFakeOutboundRepo() *fakeOutboundRepo {
	return &fakeOutboundRepo{}
}

func (r *fakeOutboundRepo) Create(_ context.Context, msg *domain.OutboundMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg.ID = uuid.NewString()
	msg.CreatedAt = time.Now()
	r.messages = append(r.messages, *msg)
	return nil
}

func (r *fakeOutboundRepo) Update(_ context.Context, msg *domain.OutboundMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.messages {
		if r.messages[i].ID == msg.ID {
			r.messages[i] = *msg
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (r *fakeOutboundRepo) GetByID(_ context.Context, id string) (*domain.OutboundMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, msg := range r.messages {
		if msg.ID == id {
			copied := msg
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeOutboundRepo) FindByCorrelationKey(_ context.Context, key string) (*domain.OutboundMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.messages) - 1; i >= 0; i-- {
		if r.messages[i].CorrelationKey == key {
			copied := r.messages[i]
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeOutboundRepo) ListDispatchable(_ context.Context) ([]domain.OutboundMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.OutboundMessage{}
	for _, msg := range r.messages {
		if msg.Status == domain.OutboundStatusPending || msg.Status == domain.OutboundStatusFailed {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (r *fakeOutboundRepo) CountDispatchable(ctx context.Context) (int, error) {
	msgs, _ := r.ListDispatchable(ctx)
	return len(msgs), nil
}

func (r *fakeOutboundRepo) ListDeadLetters(_ context.Context, limit int) ([]domain.OutboundMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.OutboundMessage{}
	for _, msg := range r.messages {
		if msg.Status == domain.OutboundStatusDeadLetter {
			out = append(out, msg)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *fakeOutboundRepo) ListByCustomer(_ context.Context, customerID string, filter repository.OutboundMessageFilter) ([]domain.OutboundMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.OutboundMessage{}
	for i := len(r.messages) - 1; i >= 0; i-- {
		msg := r.messages[i]
		if msg.CustomerID != customerID {
			continue
		}
		if filter.Status != nil && msg.Status != *filter.Status {
			continue
		}
		out = append(out, msg)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func (r *fakeOutboundRepo) byCorrelationKey(key string) []domain.OutboundMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.OutboundMessage{}
	for _, msg := range r.messages {
		if msg.CorrelationKey == key {
			out = append(out, msg)
		}
	}
	return out
}

// fakeTransport fails the first failures sends, then succeeds.
type fakeTransport struct {
	mu       sync.Mutex
	failures int
	sends    int
}

func (t *fakeTransport) Name() string { return "fake" }

func (t *fakeTransport) Send(_ context.Context, _ *domain.OutboundMessage) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sends++
	if t.sends <= t.failures {
		return errors.New("transport unavailable")
	}
	return nil
}

func (t *fakeTransport) sendCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sends
}

// fakeLease denies acquisition for IDs in the held set.
type fakeLease struct {
	mu       sync.Mutex
	held     map[string]bool
	acquired []string
	released []string
}

func newFakeLease() *fakeLease {
	return &fakeLease{held: map[string]bool{}}
}

func (l *fakeLease) Acquire(_ context.Context, messageID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[messageID] {
		return false, nil
	}
	l.held[messageID] = true
	l.acquired = append(l.acquired, messageID)
	return true, nil
}

func (l *fakeLease) Release(_ context.Context, messageID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, messageID)
	l.released = append(l.released, messageID)
	return nil
}

// scriptedGenerator returns a fixed draft.
type scriptedGenerator struct {
	draft *triage.Draft
	calls int
}

func (g *scriptedGenerator) Generate(_ context.Context, _ triage.Input) *triage.Draft {
	g.calls++
	copied := *g.draft
	return &copied
}
