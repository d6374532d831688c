// Package memory provides in-process implementations of the repository
// interfaces. It backs the service when no Postgres DSN is configured and is
// the store used by the service tests.
package memory

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/ticket-workflow/internal/domain"
	"github.com/spec-kit/ticket-workflow/internal/repository"
)

// Store holds every entity behind one lock so cascading deletes are atomic.
type Store struct {
	mu          sync.RWMutex
	now         func() time.Time
	seq         int64
	users       map[string]userRecord
	tickets     map[string]ticketRecord
	comments    map[string]commentRecord
	attachments map[string]attachmentRecord
	ratings     map[string]ratingRecord
	history     map[string]historyRecord
}

type userRecord struct {
	seq  int64
	user domain.User
}

type ticketRecord struct {
	seq    int64
	ticket domain.Ticket
}

type commentRecord struct {
	seq     int64
	comment domain.Comment
}

type attachmentRecord struct {
	seq        int64
	attachment domain.Attachment
}

type ratingRecord struct {
	seq    int64
	rating domain.Rating
}

type historyRecord struct {
	seq   int64
	entry domain.TicketHistory
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore builds an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		now:         func() time.Time { return time.Now().UTC() },
		users:       map[string]userRecord{},
		tickets:     map[string]ticketRecord{},
		comments:    map[string]commentRecord{},
		attachments: map[string]attachmentRecord{},
		ratings:     map[string]ratingRecord{},
		history:     map[string]historyRecord{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Users returns the user repository view of the store.
func (s *Store) Users() repository.UserRepository { return &userRepository{s} }

// Tickets returns the ticket repository view of the store.
func (s *Store) Tickets() repository.TicketRepository { return &ticketRepository{s} }

// Comments returns the comment repository view of the store.
func (s *Store) Comments() repository.CommentRepository { return &commentRepository{s} }

// Attachments returns the attachment repository view of the store.
func (s *Store) Attachments() repository.AttachmentRepository { return &attachmentRepository{s} }

// Ratings returns the rating repository view of the store.
func (s *Store) Ratings() repository.RatingRepository { return &ratingRepository{s} }

// History returns the ticket history repository view of the store.
func (s *Store) History() repository.TicketHistoryRepository { return &historyRepository{s} }

// nextSeq must be called with the write lock held.
func (s *Store) nextSeq() int64 {
	s.seq++
	return s.seq
}

func newID() string {
	return uuid.NewString()
}

func cloneTicket(in domain.Ticket) domain.Ticket {
	out := in
	out.AssigneeID = cloneString(in.AssigneeID)
	out.ResolvedAt = cloneTime(in.ResolvedAt)
	out.ClosedAt = cloneTime(in.ClosedAt)
	return out
}

func cloneString(in *string) *string {
	if in == nil {
		return nil
	}
	v := *in
	return &v
}

func cloneTime(in *time.Time) *time.Time {
	if in == nil {
		return nil
	}
	v := *in
	return &v
}

func cloneMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
