package policy

import (
	"testing"

	"github.com/spec-kit/ticket-workflow/internal/domain"
)

func strPtr(s string) *string { return &s }

func ticketFixture(status domain.TicketStatus, assignee *string) *domain.Ticket {
	return &domain.Ticket{ID: "t1", CreatorID: "creator", AssigneeID: assignee, Status: status}
}

var (
	admin             = domain.Actor{ID: "admin", Role: domain.RoleAdmin, Active: true}
	creator           = domain.Actor{ID: "creator", Role: domain.RoleRegular, Active: true}
	agent             = domain.Actor{ID: "agent", Role: domain.RoleAgent, Active: true}
	otherAgent        = domain.Actor{ID: "other-agent", Role: domain.RoleAgent, Active: true}
	stranger          = domain.Actor{ID: "stranger", Role: domain.RoleRegular, Active: true}
	regularAsAssignee = domain.Actor{ID: "agent", Role: domain.RoleRegular, Active: true}
)

func TestCanViewMatchesRelation(t *testing.T) {
	assigned := ticketFixture(domain.TicketStatusInProgress, strPtr("agent"))
	unassigned := ticketFixture(domain.TicketStatusOpen, nil)

	cases := []struct {
		name   string
		ticket *domain.Ticket
		actor  domain.Actor
		want   bool
	}{
		{"admin unrelated", unassigned, admin, true},
		{"creator", unassigned, creator, true},
		{"assigned agent", assigned, agent, true},
		{"other agent", assigned, otherAgent, false},
		{"agent on unassigned", unassigned, agent, false},
		{"stranger", assigned, stranger, false},
		{"regular role matching assignee id", assigned, regularAsAssignee, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CanView(tc.ticket, tc.actor); got != tc.want {
				t.Fatalf("CanView = %v, want %v", got, tc.want)
			}
			if got := CanComment(tc.ticket, tc.actor); got != tc.want {
				t.Fatalf("CanComment = %v, want %v", got, tc.want)
			}
			if got := CanUploadAttachment(tc.ticket, tc.actor); got != tc.want {
				t.Fatalf("CanUploadAttachment = %v, want %v", got, tc.want)
			}
			if got := CanModify(tc.ticket, tc.actor); got != tc.want {
				t.Fatalf("CanModify = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestCanViewIsEvaluatedPerTicket(t *testing.T) {
	mine := ticketFixture(domain.TicketStatusInProgress, strPtr("agent"))
	theirs := ticketFixture(domain.TicketStatusInProgress, strPtr("other-agent"))
	if !CanView(mine, agent) {
		t.Fatalf("agent should see own assignment")
	}
	if CanView(theirs, agent) {
		t.Fatalf("agent should not see another agent's ticket")
	}
}

func TestCanChangeStatus(t *testing.T) {
	assigned := ticketFixture(domain.TicketStatusInProgress, strPtr("agent"))
	if !CanChangeStatus(assigned, admin) {
		t.Fatalf("admin must change status")
	}
	if !CanChangeStatus(assigned, agent) {
		t.Fatalf("assignee must change status")
	}
	if CanChangeStatus(assigned, creator) {
		t.Fatalf("creator must not change status")
	}
	if CanChangeStatus(assigned, otherAgent) {
		t.Fatalf("non-assigned agent must not change status")
	}
}

func TestCanAssign(t *testing.T) {
	if !CanAssign(admin) || !CanAssign(agent) || !CanAssign(otherAgent) {
		t.Fatalf("admins and any agent may assign")
	}
	if CanAssign(creator) {
		t.Fatalf("regular users may not assign")
	}
}

func TestCanDeleteTicket(t *testing.T) {
	assigned := ticketFixture(domain.TicketStatusInProgress, strPtr("agent"))
	if !CanDeleteTicket(assigned, admin) || !CanDeleteTicket(assigned, creator) {
		t.Fatalf("admin and creator may delete")
	}
	if CanDeleteTicket(assigned, agent) {
		t.Fatalf("assignee may not delete")
	}
}

func TestCanDeleteAttachment(t *testing.T) {
	att := &domain.Attachment{ID: "a1", UploaderID: "agent"}
	if !CanDeleteAttachment(att, agent) || !CanDeleteAttachment(att, admin) {
		t.Fatalf("uploader and admin may delete")
	}
	if CanDeleteAttachment(att, creator) {
		t.Fatalf("ticket creator who did not upload may not delete")
	}
}

func TestCheckRate(t *testing.T) {
	cases := []struct {
		name    string
		status  domain.TicketStatus
		actor   domain.Actor
		rated   bool
		verdict RateVerdict
	}{
		{"open", domain.TicketStatusOpen, creator, false, RateNotFinished},
		{"in progress", domain.TicketStatusInProgress, creator, false, RateNotFinished},
		{"resolved", domain.TicketStatusResolved, creator, false, RateAllowed},
		{"closed", domain.TicketStatusClosed, creator, false, RateAllowed},
		{"already rated", domain.TicketStatusResolved, creator, true, RateAlreadyRated},
		{"already rated other actor", domain.TicketStatusResolved, stranger, true, RateAlreadyRated},
		{"not creator", domain.TicketStatusResolved, admin, false, RateDenied},
		{"assignee", domain.TicketStatusClosed, agent, false, RateDenied},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tk := ticketFixture(tc.status, strPtr("agent"))
			if got := CheckRate(tk, tc.actor, tc.rated); got != tc.verdict {
				t.Fatalf("CheckRate = %v, want %v", got, tc.verdict)
			}
			if CanRate(tk, tc.actor, tc.rated) != (tc.verdict == RateAllowed) {
				t.Fatalf("CanRate disagrees with CheckRate")
			}
		})
	}
}

func TestCanViewRating(t *testing.T) {
	tk := ticketFixture(domain.TicketStatusResolved, strPtr("agent"))
	for _, actor := range []domain.Actor{admin, creator, agent} {
		if !CanViewRating(tk, actor) {
			t.Fatalf("%s should view rating", actor.ID)
		}
	}
	if CanViewRating(tk, stranger) || CanViewRating(tk, otherAgent) {
		t.Fatalf("unrelated actors must not view rating")
	}
}
