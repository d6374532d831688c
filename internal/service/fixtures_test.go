package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/spec-kit/ticket-workflow/internal/blob"
	"github.com/spec-kit/ticket-workflow/internal/domain"
	"github.com/spec-kit/ticket-workflow/internal/events"
	"github.com/spec-kit/ticket-workflow/internal/repository/memory"
	apperrors "github.com/spec-kit/ticket-workflow/pkg/util/errorutil"
)

// recordingDispatcher captures published events instead of delivering them.
type recordingDispatcher struct {
	mu       sync.Mutex
	events   []events.Event
	handlers map[events.EventType][]events.EventHandler
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(eventType events.EventType, handler events.EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.handlers == nil {
		d.handlers = map[events.EventType][]events.EventHandler{}
	}
	d.handlers[eventType] = append(d.handlers[eventType], handler)
}

func (d *recordingDispatcher) published() []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]events.Event(nil), d.events...)
}

func (d *recordingDispatcher) last(t *testing.T) events.Event {
	t.Helper()
	all := d.published()
	if len(all) == 0 {
		t.Fatalf("no events published")
	}
	return all[len(all)-1]
}

type fixture struct {
	store      *memory.Store
	blobs      *blob.MemoryStore
	dispatcher *recordingDispatcher
	now        time.Time

	tickets     *TicketService
	comments    *CommentService
	attachments *AttachmentService
	ratings     *RatingService

	u1, u2, a1, a2, admin domain.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:      memory.NewStore(),
		blobs:      blob.NewMemoryStore(),
		dispatcher: &recordingDispatcher{},
		now:        time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return f.now }

	f.u1 = f.addUser(t, "u1", domain.RoleRegular)
	f.u2 = f.addUser(t, "u2", domain.RoleRegular)
	f.a1 = f.addUser(t, "a1", domain.RoleAgent)
	f.a2 = f.addUser(t, "a2", domain.RoleAgent)
	f.admin = f.addUser(t, "admin", domain.RoleAdmin)

	f.tickets = NewTicketService(TicketDependencies{
		TicketRepo:     f.store.Tickets(),
		UserRepo:       f.store.Users(),
		AttachmentRepo: f.store.Attachments(),
		Blobs:          f.blobs,
		Dispatcher:     f.dispatcher,
		Clock:          clock,
	})
	f.comments = NewCommentService(CommentDependencies{
		TicketRepo:  f.store.Tickets(),
		CommentRepo: f.store.Comments(),
		Dispatcher:  f.dispatcher,
		Clock:       clock,
	})
	f.attachments = NewAttachmentService(AttachmentDependencies{
		TicketRepo:     f.store.Tickets(),
		AttachmentRepo: f.store.Attachments(),
		Blobs:          f.blobs,
		MaxSize:        1 << 10,
	})
	f.ratings = NewRatingService(RatingDependencies{
		TicketRepo: f.store.Tickets(),
		RatingRepo: f.store.Ratings(),
	})
	return f
}

func (f *fixture) addUser(t *testing.T, name string, role domain.Role) domain.Actor {
	t.Helper()
	user := &domain.User{Username: name, Email: name + "@example.com", Role: role, Active: true}
	if err := f.store.Users().Create(context.Background(), user); err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return user.Actor()
}

func (f *fixture) createTicket(t *testing.T, creator domain.Actor) *domain.Ticket {
	t.Helper()
	ticket, err := f.tickets.Create(context.Background(), creator, TicketInput{Subject: "Printer on fire", Description: "smoke"})
	if err != nil {
		t.Fatalf("create ticket: %v", err)
	}
	return ticket
}

func (f *fixture) assign(t *testing.T, ticketID string, assignee domain.Actor) *domain.Ticket {
	t.Helper()
	ticket, err := f.tickets.Assign(context.Background(), f.admin, ticketID, assignee.ID)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	return ticket
}

func (f *fixture) setStatus(t *testing.T, ticketID string, status domain.TicketStatus) *domain.Ticket {
	t.Helper()
	ticket, err := f.tickets.ChangeStatus(context.Background(), f.admin, ticketID, status)
	if err != nil {
		t.Fatalf("change status: %v", err)
	}
	return ticket
}

func expectCode(t *testing.T, err error, code string) {
	t.Helper()
	if !apperrors.HasCode(err, code) {
		t.Fatalf("expected %s, got %v", code, err)
	}
}
