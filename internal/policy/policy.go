// Package policy decides whether an actor may perform an action on a ticket or
// one of its sub-resources. Every check is relative to the resource: the same
// actor can be allowed on one ticket and denied on the next, so callers must
// evaluate per call.
package policy

import "github.com/spec-kit/ticket-workflow/internal/domain"

// CanView reports whether the actor may read the ticket.
func CanView(ticket *domain.Ticket, actor domain.Actor) bool {
	return actor.IsAdmin() ||
		ticket.IsCreator(actor.ID) ||
		workingAssignee(ticket, actor)
}

// CanModify reports whether the actor may edit subject, description and priority.
func CanModify(ticket *domain.Ticket, actor domain.Actor) bool {
	return actor.IsAdmin() ||
		ticket.IsCreator(actor.ID) ||
		workingAssignee(ticket, actor)
}

// CanChangeStatus reports whether the actor may move the ticket to another
// status. Creators cannot, unless they are also admin or the working assignee.
func CanChangeStatus(ticket *domain.Ticket, actor domain.Actor) bool {
	return actor.IsAdmin() || workingAssignee(ticket, actor)
}

// CanAssign reports whether the actor may assign tickets. Any agent may assign,
// not only the current assignee.
func CanAssign(actor domain.Actor) bool {
	return actor.Role == domain.RoleAdmin || actor.Role == domain.RoleAgent
}

// CanDeleteTicket reports whether the actor may delete the ticket.
func CanDeleteTicket(ticket *domain.Ticket, actor domain.Actor) bool {
	return actor.IsAdmin() || ticket.IsCreator(actor.ID)
}

// CanComment reports whether the actor may post to the ticket thread.
func CanComment(ticket *domain.Ticket, actor domain.Actor) bool {
	return actor.IsAdmin() ||
		ticket.IsCreator(actor.ID) ||
		workingAssignee(ticket, actor)
}

// CanUploadAttachment reports whether the actor may upload or list attachments.
func CanUploadAttachment(ticket *domain.Ticket, actor domain.Actor) bool {
	return actor.IsAdmin() ||
		ticket.IsCreator(actor.ID) ||
		workingAssignee(ticket, actor)
}

// CanDeleteAttachment reports whether the actor may remove the attachment.
func CanDeleteAttachment(attachment *domain.Attachment, actor domain.Actor) bool {
	return actor.IsAdmin() || attachment.UploaderID == actor.ID
}

// RateVerdict is the outcome of a rating check.
type RateVerdict int

const (
	RateAllowed RateVerdict = iota
	RateNotFinished
	RateAlreadyRated
	RateDenied
)

// CheckRate evaluates a rating attempt. Ticket state is checked first, then an
// existing rating, then the rater's relation to the ticket.
func CheckRate(ticket *domain.Ticket, actor domain.Actor, alreadyRated bool) RateVerdict {
	switch {
	case !ticket.Status.Finished():
		return RateNotFinished
	case alreadyRated:
		return RateAlreadyRated
	case !ticket.IsCreator(actor.ID):
		return RateDenied
	}
	return RateAllowed
}

// CanRate reports whether the actor may rate the ticket now.
func CanRate(ticket *domain.Ticket, actor domain.Actor, alreadyRated bool) bool {
	return CheckRate(ticket, actor, alreadyRated) == RateAllowed
}

// CanViewRating reports whether the actor may read the ticket's rating.
func CanViewRating(ticket *domain.Ticket, actor domain.Actor) bool {
	return actor.IsAdmin() ||
		ticket.IsCreator(actor.ID) ||
		(ticket.IsAssignee(actor.ID) && actor.Role.IsStaff())
}

// workingAssignee is true for an AGENT currently assigned to the ticket.
// Admins pass every check on their own.
func workingAssignee(ticket *domain.Ticket, actor domain.Actor) bool {
	return actor.Role == domain.RoleAgent && ticket.IsAssignee(actor.ID)
}
