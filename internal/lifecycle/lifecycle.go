// Package lifecycle applies status transitions and assignment to tickets.
//
// Any status is reachable from any other; the only automatic effects are the
// set-once resolved/closed timestamps and the OPEN to IN_PROGRESS move when a
// ticket is first assigned.
package lifecycle

import (
	"time"

	"github.com/spec-kit/ticket-workflow/internal/domain"
)

// Initial is the status of a newly created ticket.
func Initial() domain.TicketStatus {
	return domain.TicketStatusOpen
}

// ApplyStatus moves the ticket to target and returns the previous status.
func ApplyStatus(ticket *domain.Ticket, target domain.TicketStatus, now time.Time) domain.TicketStatus {
	old := ticket.Status
	ticket.Status = target
	if target == domain.TicketStatusResolved && old != domain.TicketStatusResolved && ticket.ResolvedAt == nil {
		ticket.ResolvedAt = timePtr(now)
	}
	if target == domain.TicketStatusClosed && old != domain.TicketStatusClosed && ticket.ClosedAt == nil {
		ticket.ClosedAt = timePtr(now)
	}
	return old
}

// ApplyAssignment sets the assignee and returns the previous one. An OPEN
// ticket moves to IN_PROGRESS; any other status is left alone.
func ApplyAssignment(ticket *domain.Ticket, assigneeID string) *string {
	old := ticket.AssigneeID
	id := assigneeID
	ticket.AssigneeID = &id
	if ticket.Status == domain.TicketStatusOpen {
		ticket.Status = domain.TicketStatusInProgress
	}
	return old
}

func timePtr(t time.Time) *time.Time {
	return &t
}
