package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-workflow/internal/domain"
	"github.com/spec-kit/ticket-workflow/internal/events"
	"github.com/spec-kit/ticket-workflow/internal/notifier"
	"github.com/spec-kit/ticket-workflow/internal/repository/memory"
	"github.com/spec-kit/ticket-workflow/internal/service"
)

type captureNotifier struct {
	mu   sync.Mutex
	sent map[string][]string
}

func (n *captureNotifier) Notify(_ context.Context, kind string, _ notifier.Notification, recipients []string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.sent == nil {
		n.sent = map[string][]string{}
	}
	n.sent[kind] = append(n.sent[kind], recipients...)
	return nil
}

func TestEventWorkerDeliversToNotificationAndHistory(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	creator := &domain.User{Username: "u1", Email: "u1@example.com", Role: domain.RoleRegular, Active: true}
	agent := &domain.User{Username: "a1", Email: "a1@example.com", Role: domain.RoleAgent, Active: true}
	for _, u := range []*domain.User{creator, agent} {
		if err := store.Users().Create(ctx, u); err != nil {
			t.Fatalf("create user: %v", err)
		}
	}

	dispatcher := events.NewAsyncDispatcher(16, 1, zap.NewNop())
	sink := &captureNotifier{}
	notifications := service.NewNotificationService(service.NotificationDependencies{
		Dispatcher: dispatcher,
		TicketRepo: store.Tickets(),
		UserRepo:   store.Users(),
		Notifier:   sink,
	})
	history := service.NewHistoryService(service.HistoryDependencies{
		Dispatcher:  dispatcher,
		TicketRepo:  store.Tickets(),
		HistoryRepo: store.History(),
	})
	tickets := service.NewTicketService(service.TicketDependencies{
		TicketRepo: store.Tickets(),
		UserRepo:   store.Users(),
		Dispatcher: dispatcher,
	})

	w := NewEventWorker(dispatcher, nil, notifications, history)
	w.Start()

	ticket, err := tickets.Create(ctx, creator.Actor(), service.TicketInput{Subject: "printer", Description: "jammed"})
	if err != nil {
		t.Fatalf("create ticket: %v", err)
	}
	if _, err := tickets.Assign(ctx, agent.Actor(), ticket.ID, agent.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}

	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := w.Stop(stopCtx); err != nil {
		t.Fatalf("stop: %v", err)
	}

	sink.mu.Lock()
	created := sink.sent[string(events.EventTicketCreated)]
	assigned := sink.sent[string(events.EventTicketAssigned)]
	sink.mu.Unlock()
	if len(created) != 1 || created[0] != "u1@example.com" {
		t.Fatalf("unexpected created recipients %v", created)
	}
	if len(assigned) != 2 {
		t.Fatalf("assignment notifies assignee and creator, got %v", assigned)
	}

	entries, err := history.List(ctx, agent.Actor(), ticket.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(entries) != 1 || entries[0].ChangeType != domain.ChangeTypeAssignee {
		t.Fatalf("expected one assignee entry, got %+v", entries)
	}
}
