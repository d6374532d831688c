package service

import (
	"context"
	"testing"

	"github.com/spec-kit/ticket-workflow/internal/domain"
	apperrors "github.com/spec-kit/ticket-workflow/pkg/util/errorutil"
)

func newUserService(f *fixture) *UserService {
	return NewUserService(UserDependencies{
		UserRepo:   f.store.Users(),
		RatingRepo: f.store.Ratings(),
		BcryptCost: 4,
	})
}

func TestAdminUserManagement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := newUserService(f)

	agent, err := svc.Create(ctx, CreateUserInput{Username: "a3", Email: "a3@example.com", Password: "secret1", Role: domain.RoleAgent})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if agent.Role != domain.RoleAgent {
		t.Fatalf("role not applied")
	}
	_, err = svc.Create(ctx, CreateUserInput{Username: "a4", Email: "a4@example.com", Password: "secret1", Role: "BOSS"})
	expectCode(t, err, apperrors.CodeValidation)

	promoted, err := svc.ChangeRole(ctx, agent.ID, domain.RoleAdmin)
	if err != nil || promoted.Role != domain.RoleAdmin {
		t.Fatalf("ChangeRole = %+v, %v", promoted, err)
	}
	_, err = svc.ChangeRole(ctx, "missing", domain.RoleAdmin)
	expectCode(t, err, apperrors.CodeNotFound)

	toggled, err := svc.ToggleActive(ctx, agent.ID)
	if err != nil || toggled.Active {
		t.Fatalf("ToggleActive = %+v, %v", toggled, err)
	}

	if err := svc.Delete(ctx, agent.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	err = svc.Delete(ctx, agent.ID)
	expectCode(t, err, apperrors.CodeNotFound)

	f.createTicket(t, f.u1)
	err = svc.Delete(ctx, f.u1.ID)
	expectCode(t, err, apperrors.CodeConflict)
}

func TestListUsers(t *testing.T) {
	f := newFixture(t)
	svc := newUserService(f)
	role := domain.RoleAgent
	page, err := svc.List(context.Background(), UserListFilter{Role: &role})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if page.Total != 2 || len(page.Items) != 2 {
		t.Fatalf("expected 2 agents, got %+v", page)
	}
	term := "ADMIN"
	page, _ = svc.List(context.Background(), UserListFilter{SearchTerm: &term})
	if page.Total != 1 || page.Items[0].ID != f.admin.ID {
		t.Fatalf("search failed: %+v", page)
	}
}

func TestSupportAgentsWithRatings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := newUserService(f)

	ticket := f.createTicket(t, f.u1)
	f.assign(t, ticket.ID, f.a1)
	f.setStatus(t, ticket.ID, domain.TicketStatusResolved)
	if _, err := f.ratings.Submit(ctx, f.u1, ticket.ID, RatingInput{Value: 5}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	agents, err := svc.SupportAgents(ctx)
	if err != nil {
		t.Fatalf("SupportAgents: %v", err)
	}
	if len(agents) != 2 || agents[0].User.ID != f.a1.ID || agents[1].User.ID != f.a2.ID {
		t.Fatalf("unexpected agents %+v", agents)
	}
	if agents[0].AverageRating == nil || *agents[0].AverageRating != 5 || agents[1].AverageRating != nil {
		t.Fatalf("unexpected averages %+v", agents)
	}
}
