package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-workflow/internal/events"
)

// Subscriber registers its event handlers with the dispatcher it was built with.
type Subscriber interface {
	RegisterHandlers()
}

// EventWorker owns the background consumers of ticket events.
type EventWorker struct {
	dispatcher  *events.AsyncDispatcher
	subscribers []Subscriber
	logger      *zap.Logger
}

// NewEventWorker constructs the worker.
func NewEventWorker(dispatcher *events.AsyncDispatcher, logger *zap.Logger, subscribers ...Subscriber) *EventWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventWorker{dispatcher: dispatcher, subscribers: subscribers, logger: logger}
}

// Start registers handlers and then starts delivery.
func (w *EventWorker) Start() {
	for _, sub := range w.subscribers {
		sub.RegisterHandlers()
	}
	w.dispatcher.Start()
	w.logger.Info("event worker started")
}

// Stop drains queued events until ctx expires.
func (w *EventWorker) Stop(ctx context.Context) error {
	err := w.dispatcher.Close(ctx)
	if err != nil {
		w.logger.Warn("event queue not drained", zap.Error(err))
	} else {
		w.logger.Info("event worker stopped")
	}
	return err
}
