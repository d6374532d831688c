package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-workflow/internal/api/dto"
	"github.com/spec-kit/ticket-workflow/internal/domain"
	"github.com/spec-kit/ticket-workflow/internal/service"
	apperrors "github.com/spec-kit/ticket-workflow/pkg/util/errorutil"
)

// AdminHandler serves the admin console: users, support agents and the
// dashboard. Routes are guarded by the ADMIN role.
type AdminHandler struct {
	users *service.UserService
	stats *service.StatsService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(userService *service.UserService, statsService *service.StatsService) *AdminHandler {
	return &AdminHandler{users: userService, stats: statsService}
}

// ListUsers GET /api/admin/users.
func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	active, err := optionalBool(c, "active")
	if err != nil {
		return err
	}
	filter := service.UserListFilter{
		SearchTerm: optionalString(c, "search"),
		Active:     active,
		Sort:       parseSort(c),
	}
	if val := optionalString(c, "role"); val != nil {
		role := domain.Role(*val)
		filter.Role = &role
	}
	page, err := h.users.List(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data": dto.NewUserResponses(page.Items),
		"meta": dto.NewPageMeta(page.Limit, page.Offset, page.Total),
	})
}

// GetUser GET /api/admin/users/:id.
func (h *AdminHandler) GetUser(c *fiber.Ctx) error {
	user, err := h.users.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// CreateUser POST /api/admin/users.
func (h *AdminHandler) CreateUser(c *fiber.Ctx) error {
	var req dto.CreateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	user, err := h.users.Create(c.UserContext(), service.CreateUserInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      req.Role,
	})
	if err != nil {
		return err
	}
	h.stats.Invalidate(c.UserContext())
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// ChangeRole PUT /api/admin/users/:id/role.
func (h *AdminHandler) ChangeRole(c *fiber.Ctx) error {
	var req dto.RoleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	user, err := h.users.ChangeRole(c.UserContext(), c.Params("id"), req.Role)
	if err != nil {
		return err
	}
	h.stats.Invalidate(c.UserContext())
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// ToggleActive PUT /api/admin/users/:id/toggle-status.
func (h *AdminHandler) ToggleActive(c *fiber.Ctx) error {
	user, err := h.users.ToggleActive(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	h.stats.Invalidate(c.UserContext())
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// DeleteUser DELETE /api/admin/users/:id.
func (h *AdminHandler) DeleteUser(c *fiber.Ctx) error {
	if err := h.users.Delete(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	h.stats.Invalidate(c.UserContext())
	return c.SendStatus(http.StatusNoContent)
}

// SupportAgents GET /api/admin/support-agents.
func (h *AdminHandler) SupportAgents(c *fiber.Ctx) error {
	agents, err := h.users.SupportAgents(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.SupportAgentResponse, 0, len(agents))
	for i := range agents {
		items = append(items, dto.SupportAgentResponse{
			UserResponse:  dto.NewUserResponse(&agents[i].User),
			AverageRating: agents[i].AverageRating,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

// Dashboard GET /api/admin/dashboard/stats.
func (h *AdminHandler) Dashboard(c *fiber.Ctx) error {
	stats, err := h.stats.Dashboard(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": stats})
}
