package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestAsyncDispatcherDeliversAfterPublishReturns(t *testing.T) {
	d := NewAsyncDispatcher(8, 2, zap.NewNop())
	release := make(chan struct{})
	delivered := make(chan Event, 1)
	d.Subscribe(EventTicketCreated, func(_ context.Context, e Event) error {
		<-release
		delivered <- e
		return nil
	})
	d.Start()

	if err := d.Publish(context.Background(), Event{ID: "e1", Type: EventTicketCreated, TicketID: "t1"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	// Publish returned while the handler is still blocked.
	close(release)

	select {
	case e := <-delivered:
		if e.ID != "e1" {
			t.Fatalf("unexpected event %+v", e)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("event not delivered")
	}

	if err := d.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestAsyncDispatcherHandlerFailureIsolated(t *testing.T) {
	d := NewAsyncDispatcher(8, 1, zap.NewNop())
	var mu sync.Mutex
	var calls []string
	d.Subscribe(EventCommentAdded, func(context.Context, Event) error {
		mu.Lock()
		calls = append(calls, "failing")
		mu.Unlock()
		return errors.New("smtp down")
	})
	d.Subscribe(EventCommentAdded, func(context.Context, Event) error {
		panic("boom")
	})
	d.Subscribe(EventCommentAdded, func(context.Context, Event) error {
		mu.Lock()
		calls = append(calls, "ok")
		mu.Unlock()
		return nil
	})
	d.Start()

	if err := d.Publish(context.Background(), Event{Type: EventCommentAdded}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := d.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(calls) != 2 || calls[0] != "failing" || calls[1] != "ok" {
		t.Fatalf("unexpected calls %v", calls)
	}
}

func TestAsyncDispatcherDropsWhenFull(t *testing.T) {
	d := NewAsyncDispatcher(1, 1, zap.NewNop())
	// Not started: the queue holds one event and the second is dropped.
	if err := d.Publish(context.Background(), Event{ID: "a", Type: EventTicketCreated}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := d.Publish(context.Background(), Event{ID: "b", Type: EventTicketCreated}); err != nil {
		t.Fatalf("Publish should not fail when full: %v", err)
	}

	var got []string
	d.Subscribe(EventTicketCreated, func(_ context.Context, e Event) error {
		got = append(got, e.ID)
		return nil
	})
	d.Start()
	if err := d.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if len(got) != 1 || got[0] != "a" {
		t.Fatalf("expected only the first event, got %v", got)
	}
}

func TestAsyncDispatcherHandlerContextOutlivesCaller(t *testing.T) {
	d := NewAsyncDispatcher(4, 1, zap.NewNop())
	errs := make(chan error, 1)
	d.Subscribe(EventTicketAssigned, func(ctx context.Context, _ Event) error {
		errs <- ctx.Err()
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	if err := d.Publish(ctx, Event{Type: EventTicketAssigned}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	cancel()
	d.Start()
	_ = d.Close(context.Background())

	if err := <-errs; err != nil {
		t.Fatalf("handler saw cancelled context: %v", err)
	}
}

func TestAsyncDispatcherPublishAfterClose(t *testing.T) {
	d := NewAsyncDispatcher(1, 1, zap.NewNop())
	d.Start()
	if err := d.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := d.Publish(context.Background(), Event{Type: EventTicketCreated}); !errors.Is(err, ErrDispatcherClosed) {
		t.Fatalf("expected ErrDispatcherClosed, got %v", err)
	}
	if err := d.Close(context.Background()); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
