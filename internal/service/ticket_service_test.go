package service

import (
	"context"
	"testing"
	"time"

	"github.com/spec-kit/ticket-workflow/internal/domain"
	"github.com/spec-kit/ticket-workflow/internal/events"
	"github.com/spec-kit/ticket-workflow/internal/repository"
	apperrors "github.com/spec-kit/ticket-workflow/pkg/util/errorutil"
)

func TestCreateTicketDefaults(t *testing.T) {
	f := newFixture(t)
	ticket, err := f.tickets.Create(context.Background(), f.u1, TicketInput{Subject: "  VPN down  "})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if ticket.Status != domain.TicketStatusOpen || ticket.Priority != domain.TicketPriorityMedium {
		t.Fatalf("unexpected defaults %+v", ticket)
	}
	if ticket.CreatorID != f.u1.ID || ticket.Subject != "VPN down" || ticket.AssigneeID != nil {
		t.Fatalf("unexpected ticket %+v", ticket)
	}

	event := f.dispatcher.last(t)
	if event.Type != events.EventTicketCreated || event.TicketID != ticket.ID || event.ActorID != f.u1.ID || event.ID == "" {
		t.Fatalf("unexpected event %+v", event)
	}
}

func TestCreateTicketValidation(t *testing.T) {
	f := newFixture(t)
	cases := []TicketInput{
		{Subject: "   "},
		{Subject: "ok", Priority: "CRITICAL"},
	}
	for _, input := range cases {
		_, err := f.tickets.Create(context.Background(), f.u1, input)
		expectCode(t, err, apperrors.CodeValidation)
	}
	if len(f.dispatcher.published()) != 0 {
		t.Fatalf("rejected create must not publish")
	}
}

func TestAssignResolveRateScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket := f.createTicket(t, f.u1)

	assigned := f.assign(t, ticket.ID, f.a1)
	if assigned.Status != domain.TicketStatusInProgress || assigned.AssigneeID == nil || *assigned.AssigneeID != f.a1.ID {
		t.Fatalf("unexpected assignment %+v", assigned)
	}

	resolved, err := f.tickets.ChangeStatus(ctx, f.a1, ticket.ID, domain.TicketStatusResolved)
	if err != nil {
		t.Fatalf("agent resolve: %v", err)
	}
	if resolved.ResolvedAt == nil || !resolved.ResolvedAt.Equal(f.now) {
		t.Fatalf("resolvedAt not set: %+v", resolved.ResolvedAt)
	}

	rating, err := f.ratings.Submit(ctx, f.u1, ticket.ID, RatingInput{Value: 4, Feedback: "quick"})
	if err != nil {
		t.Fatalf("rate: %v", err)
	}
	if rating.Value != 4 || rating.RaterID != f.u1.ID {
		t.Fatalf("unexpected rating %+v", rating)
	}

	_, err = f.ratings.Submit(ctx, f.u1, ticket.ID, RatingInput{Value: 5})
	expectCode(t, err, apperrors.CodeAlreadyRated)
}

func TestUnrelatedUserDenied(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket := f.createTicket(t, f.u1)

	_, err := f.tickets.Get(ctx, f.u2, ticket.ID)
	expectCode(t, err, apperrors.CodeAccessDenied)

	_, err = f.tickets.UpdateFields(ctx, f.u2, ticket.ID, TicketInput{Subject: "hijacked"})
	expectCode(t, err, apperrors.CodeAccessDenied)

	stored, _ := f.store.Tickets().GetByID(ctx, ticket.ID)
	if stored.Subject != "Printer on fire" {
		t.Fatalf("denied update changed the ticket: %+v", stored)
	}

	err = f.tickets.Delete(ctx, f.u2, ticket.ID)
	expectCode(t, err, apperrors.CodeAccessDenied)
}

func TestAssignToRegularUserFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket := f.createTicket(t, f.u1)

	_, err := f.tickets.Assign(ctx, f.admin, ticket.ID, f.u2.ID)
	expectCode(t, err, apperrors.CodeInvalidAssignee)

	stored, _ := f.store.Tickets().GetByID(ctx, ticket.ID)
	if stored.Status != domain.TicketStatusOpen || stored.AssigneeID != nil {
		t.Fatalf("ticket changed after failed assignment: %+v", stored)
	}
	if len(f.dispatcher.published()) != 1 {
		t.Fatalf("failed assignment must not publish")
	}
}

func TestAssignRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket := f.createTicket(t, f.u1)

	_, err := f.tickets.Assign(ctx, f.u1, ticket.ID, f.a1.ID)
	expectCode(t, err, apperrors.CodeAccessDenied)

	_, err = f.tickets.Assign(ctx, f.admin, ticket.ID, "missing")
	expectCode(t, err, apperrors.CodeNotFound)

	_, err = f.tickets.Assign(ctx, f.admin, ticket.ID, " ")
	expectCode(t, err, apperrors.CodeValidation)

	// any agent may assign, not only the current assignee
	f.assign(t, ticket.ID, f.a1)
	reassigned, err := f.tickets.Assign(ctx, f.a2, ticket.ID, f.a2.ID)
	if err != nil {
		t.Fatalf("agent reassign: %v", err)
	}
	if *reassigned.AssigneeID != f.a2.ID {
		t.Fatalf("expected a2 assigned")
	}
	event := f.dispatcher.last(t)
	payload := event.Payload.(events.TicketAssignedPayload)
	if payload.OldAssigneeID == nil || *payload.OldAssigneeID != f.a1.ID || payload.NewAssigneeID != f.a2.ID {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestAssignDoesNotChangeFinishedStatus(t *testing.T) {
	f := newFixture(t)
	for _, status := range []domain.TicketStatus{domain.TicketStatusInProgress, domain.TicketStatusResolved, domain.TicketStatusClosed} {
		ticket := f.createTicket(t, f.u1)
		f.setStatus(t, ticket.ID, status)
		assigned := f.assign(t, ticket.ID, f.a1)
		if assigned.Status != status {
			t.Fatalf("assignment moved %s to %s", status, assigned.Status)
		}
	}
}

func TestInactiveAssigneeAccepted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user, _ := f.store.Users().GetByID(ctx, f.a1.ID)
	user.Active = false
	if err := f.store.Users().Update(ctx, user); err != nil {
		t.Fatalf("update: %v", err)
	}
	ticket := f.createTicket(t, f.u1)
	f.assign(t, ticket.ID, f.a1)
}

func TestChangeStatusRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket := f.createTicket(t, f.u1)

	_, err := f.tickets.ChangeStatus(ctx, f.u1, ticket.ID, domain.TicketStatusClosed)
	expectCode(t, err, apperrors.CodeAccessDenied)

	_, err = f.tickets.ChangeStatus(ctx, f.a1, ticket.ID, domain.TicketStatusClosed)
	expectCode(t, err, apperrors.CodeAccessDenied)

	_, err = f.tickets.ChangeStatus(ctx, f.admin, "missing", "DONE")
	expectCode(t, err, apperrors.CodeValidation)

	_, err = f.tickets.ChangeStatus(ctx, f.admin, "missing", domain.TicketStatusClosed)
	expectCode(t, err, apperrors.CodeNotFound)
}

func TestResolvedAtSetOnce(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t, f.u1)
	first := f.now

	f.setStatus(t, ticket.ID, domain.TicketStatusResolved)
	f.now = f.now.Add(time.Hour)
	f.setStatus(t, ticket.ID, domain.TicketStatusOpen)
	reopened, _ := f.store.Tickets().GetByID(context.Background(), ticket.ID)
	if reopened.ResolvedAt == nil {
		t.Fatalf("resolvedAt cleared on reopen")
	}

	f.now = f.now.Add(time.Hour)
	again := f.setStatus(t, ticket.ID, domain.TicketStatusResolved)
	if !again.ResolvedAt.Equal(first) {
		t.Fatalf("resolvedAt moved from %v to %v", first, *again.ResolvedAt)
	}

	closed := f.setStatus(t, ticket.ID, domain.TicketStatusClosed)
	if closed.ClosedAt == nil || !closed.ClosedAt.Equal(f.now) {
		t.Fatalf("closedAt not set")
	}

	event := f.dispatcher.last(t)
	payload := event.Payload.(events.TicketStatusChangedPayload)
	if payload.OldStatus != domain.TicketStatusResolved || payload.NewStatus != domain.TicketStatusClosed {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestUpdateFieldsLeavesStatusAndAssignee(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket := f.createTicket(t, f.u1)
	f.assign(t, ticket.ID, f.a1)

	updated, err := f.tickets.UpdateFields(ctx, f.a1, ticket.ID, TicketInput{
		Subject:     "Printer fixed?",
		Description: "toner",
		Priority:    domain.TicketPriorityUrgent,
	})
	if err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	if updated.Subject != "Printer fixed?" || updated.Priority != domain.TicketPriorityUrgent {
		t.Fatalf("fields not updated %+v", updated)
	}
	if updated.Status != domain.TicketStatusInProgress || *updated.AssigneeID != f.a1.ID || updated.CreatorID != f.u1.ID {
		t.Fatalf("update touched status/assignee/creator %+v", updated)
	}

	// a2 is an agent but not the assignee
	_, err = f.tickets.UpdateFields(ctx, f.a2, ticket.ID, TicketInput{Subject: "x"})
	expectCode(t, err, apperrors.CodeAccessDenied)
}

func TestDeleteTicketCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket := f.createTicket(t, f.u1)

	if _, err := f.comments.Add(ctx, f.u1, ticket.ID, CommentInput{Content: "hello"}); err != nil {
		t.Fatalf("comment: %v", err)
	}
	if _, err := f.attachments.Upload(ctx, f.u1, ticket.ID, UploadInput{FileName: "log.txt", Data: []byte("log")}); err != nil {
		t.Fatalf("upload: %v", err)
	}
	if f.blobs.Len() != 1 {
		t.Fatalf("expected one blob")
	}

	if err := f.tickets.Delete(ctx, f.u1, ticket.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if f.blobs.Len() != 0 {
		t.Fatalf("blob survived ticket delete")
	}
	_, err := f.tickets.Get(ctx, f.admin, ticket.ID)
	expectCode(t, err, apperrors.CodeNotFound)
	comments, _ := f.store.Comments().ListByTicket(ctx, ticket.ID, true)
	if len(comments) != 0 {
		t.Fatalf("comments survived ticket delete")
	}
}

func TestListings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mine := f.createTicket(t, f.u1)
	f.createTicket(t, f.u2)
	f.assign(t, mine.ID, f.a1)

	page, err := f.tickets.ListMine(ctx, f.u1, TicketListFilter{})
	if err != nil || page.Total != 1 || page.Items[0].ID != mine.ID {
		t.Fatalf("ListMine = %+v, %v", page, err)
	}
	if page.Limit != 10 {
		t.Fatalf("expected normalized page size, got %d", page.Limit)
	}

	page, err = f.tickets.ListAssigned(ctx, f.a1, TicketListFilter{})
	if err != nil || page.Total != 1 || page.Items[0].ID != mine.ID {
		t.Fatalf("ListAssigned = %+v, %v", page, err)
	}
	_, err = f.tickets.ListAssigned(ctx, f.u1, TicketListFilter{})
	expectCode(t, err, apperrors.CodeAccessDenied)

	page, err = f.tickets.ListAll(ctx, f.admin, TicketListFilter{Sort: repository.Sort{SortBy: "createdAt", SortDesc: true}})
	if err != nil || page.Total != 2 {
		t.Fatalf("ListAll = %+v, %v", page, err)
	}
	_, err = f.tickets.ListAll(ctx, f.a1, TicketListFilter{})
	expectCode(t, err, apperrors.CodeAccessDenied)

	bad := domain.TicketStatus("WAITING")
	_, err = f.tickets.ListAll(ctx, f.admin, TicketListFilter{Status: &bad})
	expectCode(t, err, apperrors.CodeValidation)
}
