package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-workflow/internal/auth"
	"github.com/spec-kit/ticket-workflow/internal/domain"
	"github.com/spec-kit/ticket-workflow/internal/repository"
	apperrors "github.com/spec-kit/ticket-workflow/pkg/util/errorutil"
)

const defaultPageSize = 10

func actorFrom(c *fiber.Ctx) (domain.Actor, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return domain.Actor{}, apperrors.NewUnauthorized("authentication required")
	}
	return principal.Actor, nil
}

// parseSort reads page (zero based), size, sortBy and sortDir.
func parseSort(c *fiber.Ctx) repository.Sort {
	sort := repository.NewPage(parseInt(c.Query("page"), 0), parseInt(c.Query("size"), defaultPageSize))
	sort.SortBy = c.Query("sortBy", "createdAt")
	sort.SortDesc = !strings.EqualFold(c.Query("sortDir", "desc"), "asc")
	return sort
}

func optionalString(c *fiber.Ctx, key string) *string {
	val := strings.TrimSpace(c.Query(key))
	if val == "" {
		return nil
	}
	return &val
}

func optionalBool(c *fiber.Ctx, key string) (*bool, error) {
	val := strings.TrimSpace(c.Query(key))
	if val == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid boolean", map[string]any{key: val})
	}
	return &parsed, nil
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
