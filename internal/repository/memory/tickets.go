package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/spec-kit/ticket-workflow/internal/domain"
	"github.com/spec-kit/ticket-workflow/internal/repository"
)

type ticketRepository struct {
	s *Store
}

func (r *ticketRepository) Create(_ context.Context, ticket *domain.Ticket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.now()
	ticket.ID = newID()
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	r.s.tickets[ticket.ID] = ticketRecord{seq: r.s.nextSeq(), ticket: cloneTicket(*ticket)}
	return nil
}

func (r *ticketRepository) Update(_ context.Context, ticket *domain.Ticket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rec, ok := r.s.tickets[ticket.ID]
	if !ok {
		return repository.ErrNotFound
	}
	ticket.UpdatedAt = r.s.now()
	// creator and creation time are owned by the store
	ticket.CreatorID = rec.ticket.CreatorID
	ticket.CreatedAt = rec.ticket.CreatedAt
	rec.ticket = cloneTicket(*ticket)
	r.s.tickets[ticket.ID] = rec
	return nil
}

func (r *ticketRepository) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rec, ok := r.s.tickets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	ticket := cloneTicket(rec.ticket)
	return &ticket, nil
}

func (r *ticketRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.tickets[id]; !ok {
		return repository.ErrNotFound
	}
	for key, rec := range r.s.comments {
		if rec.comment.TicketID == id {
			delete(r.s.comments, key)
		}
	}
	for key, rec := range r.s.attachments {
		if rec.attachment.TicketID == id {
			delete(r.s.attachments, key)
		}
	}
	for key, rec := range r.s.ratings {
		if rec.rating.TicketID == id {
			delete(r.s.ratings, key)
		}
	}
	for key, rec := range r.s.history {
		if rec.entry.TicketID == id {
			delete(r.s.history, key)
		}
	}
	delete(r.s.tickets, id)
	return nil
}

func (r *ticketRepository) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	matched := make([]ticketRecord, 0, len(r.s.tickets))
	for _, rec := range r.s.tickets {
		if matchesTicket(filter, &rec.ticket) {
			matched = append(matched, rec)
		}
	}

	page := filter.Sort.Normalize()
	column := repository.SortColumn(repository.TicketSortColumns, page.SortBy)
	sort.Slice(matched, func(i, j int) bool {
		c := compareTicket(&matched[i].ticket, &matched[j].ticket, column)
		if c == 0 {
			c = compareInt(matched[i].seq, matched[j].seq)
		}
		if page.SortDesc {
			return c > 0
		}
		return c < 0
	})

	total := int64(len(matched))
	result := []domain.Ticket{}
	for i := page.Offset; i < len(matched) && len(result) < page.Limit; i++ {
		result = append(result, cloneTicket(matched[i].ticket))
	}
	return result, total, nil
}

func (r *ticketRepository) CountByStatus(_ context.Context) (map[domain.TicketStatus]int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	counts := map[domain.TicketStatus]int64{}
	for _, rec := range r.s.tickets {
		counts[rec.ticket.Status]++
	}
	return counts, nil
}

func (r *ticketRepository) CountByPriority(_ context.Context) (map[domain.TicketPriority]int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	counts := map[domain.TicketPriority]int64{}
	for _, rec := range r.s.tickets {
		counts[rec.ticket.Priority]++
	}
	return counts, nil
}

func matchesTicket(filter repository.TicketFilter, ticket *domain.Ticket) bool {
	if filter.SearchTerm != nil {
		term := strings.ToLower(strings.TrimSpace(*filter.SearchTerm))
		if term != "" &&
			!strings.Contains(strings.ToLower(ticket.Subject), term) &&
			!strings.Contains(strings.ToLower(ticket.Description), term) {
			return false
		}
	}
	if filter.Status != nil && ticket.Status != *filter.Status {
		return false
	}
	if filter.Priority != nil && ticket.Priority != *filter.Priority {
		return false
	}
	if filter.CreatorID != nil && ticket.CreatorID != *filter.CreatorID {
		return false
	}
	if filter.AssigneeID != nil && !ticket.IsAssignee(*filter.AssigneeID) {
		return false
	}
	return true
}

func compareTicket(a, b *domain.Ticket, column string) int {
	switch column {
	case "id":
		return strings.Compare(a.ID, b.ID)
	case "subject":
		return strings.Compare(a.Subject, b.Subject)
	case "description":
		return strings.Compare(a.Description, b.Description)
	case "creator_id":
		return strings.Compare(a.CreatorID, b.CreatorID)
	case "assignee_id":
		return compareOptionalString(a.AssigneeID, b.AssigneeID)
	case "status":
		return strings.Compare(string(a.Status), string(b.Status))
	case "priority":
		return strings.Compare(string(a.Priority), string(b.Priority))
	case "updated_at":
		return a.UpdatedAt.Compare(b.UpdatedAt)
	case "resolved_at":
		return compareOptionalTime(a.ResolvedAt, b.ResolvedAt)
	case "closed_at":
		return compareOptionalTime(a.ClosedAt, b.ClosedAt)
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}
