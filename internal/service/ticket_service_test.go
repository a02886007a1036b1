package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/triage-service/internal/domain"
	"github.com/spec-kit/triage-service/internal/events"
)

type ticketFixture struct {
	tickets  *fakeTicketRepo
	messages *fakeMessageRepo
	audit    *fakeAuditRepo
	svc      *TicketService
}

func newTicketFixture(t *testing.T) *ticketFixture {
	t.Helper()
	f := &ticketFixture{
		tickets:  newFakeTicketRepo(),
		messages: newFakeMessageRepo(),
		audit:    newFakeAuditRepo(),
	}
	f.svc = NewTicketService(TicketDependencies{
		TicketRepo:  f.tickets,
		MessageRepo: f.messages,
		AuditRepo:   f.audit,
		Dispatcher:  events.NewInMemoryDispatcher(zap.NewNop()),
	})
	return f
}

func TestCreateTicketDefaults(t *testing.T) {
	f := newTicketFixture(t)

	ticket, err := f.svc.CreateTicket(context.Background(), endUserAccess("cust-1"), TicketCreateInput{
		Subject: "  Printer on fire  ",
	})
	require.NoError(t, err)
	assert.Equal(t, "Printer on fire", ticket.Subject)
	assert.Equal(t, domain.TicketStatusNew, ticket.Status)
	assert.Equal(t, domain.ChannelPortal, ticket.Channel)
	assert.Equal(t, domain.TicketPriorityMedium, ticket.Priority)
	assert.Equal(t, "cust-1", ticket.CustomerID)
	assert.Equal(t, "user-1", ticket.CreatorID)
	assert.True(t, strings.HasPrefix(ticket.ReferenceCode, "TKT-"))
	assert.Len(t, ticket.ReferenceCode, 12)
}

func TestCreateTicketRequiresSubject(t *testing.T) {
	f := newTicketFixture(t)
	_, err := f.svc.CreateTicket(context.Background(), endUserAccess("cust-1"), TicketCreateInput{Subject: "   "})
	require.Error(t, err)
}

func TestGetTicketTenantBoundary(t *testing.T) {
	f := newTicketFixture(t)
	ticket, err := f.svc.CreateTicket(context.Background(), endUserAccess("cust-1"), TicketCreateInput{Subject: "help"})
	require.NoError(t, err)

	_, err = f.svc.GetTicket(context.Background(), endUserAccess("cust-2"), ticket.ID)
	require.Error(t, err)

	_, err = f.svc.GetTicket(context.Background(), domain.AccessContext{UserID: "op", Role: domain.RolePlatformOperator}, ticket.ID)
	require.NoError(t, err)

	_, err = f.svc.GetTicket(context.Background(), endUserAccess("cust-1"), "missing")
	require.Error(t, err)
}

func TestAgentReplyMovesInProgressToWaitingCustomer(t *testing.T) {
	f := newTicketFixture(t)
	ticket, err := f.svc.CreateTicket(context.Background(), endUserAccess("cust-1"), TicketCreateInput{Subject: "help"})
	require.NoError(t, err)
	_, err = f.svc.ChangeStatus(context.Background(), agentAccess("cust-1"), ticket.ID, domain.TicketStatusInProgress, "")
	require.NoError(t, err)

	_, err = f.svc.AddMessage(context.Background(), agentAccess("cust-1"), ticket.ID, "working on it")
	require.NoError(t, err)

	stored, err := f.tickets.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusWaitingCustomer, stored.Status)
}

func TestEndUserReplyMovesWaitingCustomerToInProgress(t *testing.T) {
	f := newTicketFixture(t)
	ticket, err := f.svc.CreateTicket(context.Background(), endUserAccess("cust-1"), TicketCreateInput{Subject: "help"})
	require.NoError(t, err)
	_, err = f.svc.ChangeStatus(context.Background(), agentAccess("cust-1"), ticket.ID, domain.TicketStatusInProgress, "")
	require.NoError(t, err)
	_, err = f.svc.ChangeStatus(context.Background(), agentAccess("cust-1"), ticket.ID, domain.TicketStatusWaitingCustomer, "")
	require.NoError(t, err)

	_, err = f.svc.AddMessage(context.Background(), endUserAccess("cust-1"), ticket.ID, "still broken")
	require.NoError(t, err)

	stored, err := f.tickets.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, stored.Status)
}

func TestEndUserReplyOnNewTicketKeepsStatus(t *testing.T) {
	f := newTicketFixture(t)
	ticket, err := f.svc.CreateTicket(context.Background(), endUserAccess("cust-1"), TicketCreateInput{Subject: "help"})
	require.NoError(t, err)

	_, err = f.svc.AddMessage(context.Background(), endUserAccess("cust-1"), ticket.ID, "more detail")
	require.NoError(t, err)

	stored, err := f.tickets.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusNew, stored.Status)
}

func TestChangeStatusRejectsInvalidEdge(t *testing.T) {
	f := newTicketFixture(t)
	ticket, err := f.svc.CreateTicket(context.Background(), endUserAccess("cust-1"), TicketCreateInput{Subject: "help"})
	require.NoError(t, err)
	_, err = f.svc.ChangeStatus(context.Background(), agentAccess("cust-1"), ticket.ID, domain.TicketStatusClosed, "")
	require.NoError(t, err)

	_, err = f.svc.ChangeStatus(context.Background(), agentAccess("cust-1"), ticket.ID, domain.TicketStatusResolved, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid ticket status transition")

	stored, _ := f.tickets.GetByID(context.Background(), ticket.ID)
	assert.Equal(t, domain.TicketStatusClosed, stored.Status)
}

func TestChangeStatusRequiresManageCapability(t *testing.T) {
	f := newTicketFixture(t)
	ticket, err := f.svc.CreateTicket(context.Background(), endUserAccess("cust-1"), TicketCreateInput{Subject: "help"})
	require.NoError(t, err)

	_, err = f.svc.ChangeStatus(context.Background(), endUserAccess("cust-1"), ticket.ID, domain.TicketStatusResolved, "")
	require.Error(t, err)
}

func TestResolveStampsAndReopenClears(t *testing.T) {
	f := newTicketFixture(t)
	ticket, err := f.svc.CreateTicket(context.Background(), endUserAccess("cust-1"), TicketCreateInput{Subject: "help"})
	require.NoError(t, err)

	resolved, err := f.svc.ChangeStatus(context.Background(), agentAccess("cust-1"), ticket.ID, domain.TicketStatusResolved, "done")
	require.NoError(t, err)
	require.NotNil(t, resolved.ResolvedAt)

	reopened, err := f.svc.ChangeStatus(context.Background(), agentAccess("cust-1"), ticket.ID, domain.TicketStatusInProgress, "reopen")
	require.NoError(t, err)
	assert.Nil(t, reopened.ResolvedAt)
}

func TestListTicketsScopedToTenant(t *testing.T) {
	f := newTicketFixture(t)
	_, err := f.svc.CreateTicket(context.Background(), endUserAccess("cust-1"), TicketCreateInput{Subject: "one"})
	require.NoError(t, err)
	other := domain.AccessContext{UserID: "user-9", Role: domain.RoleEndUser, CustomerID: "cust-2"}
	_, err = f.svc.CreateTicket(context.Background(), other, TicketCreateInput{Subject: "two"})
	require.NoError(t, err)

	mine, err := f.svc.ListTickets(context.Background(), endUserAccess("cust-1"), nil, 50, 0)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	all, err := f.svc.ListTickets(context.Background(), domain.AccessContext{UserID: "op", Role: domain.RolePlatformOperator}, nil, 50, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
