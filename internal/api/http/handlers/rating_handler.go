package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-workflow/internal/api/dto"
	"github.com/spec-kit/ticket-workflow/internal/service"
	apperrors "github.com/spec-kit/ticket-workflow/pkg/util/errorutil"
)

// RatingHandler serves ticket satisfaction ratings.
type RatingHandler struct {
	ratings *service.RatingService
}

// NewRatingHandler constructs handler.
func NewRatingHandler(ratingService *service.RatingService) *RatingHandler {
	return &RatingHandler{ratings: ratingService}
}

// GetRating GET /api/tickets/:id/rating. Data is null when not rated yet.
func (h *RatingHandler) GetRating(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	rating, err := h.ratings.Get(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewRatingResponse(rating)})
}

// Rate POST /api/tickets/:id/rating.
func (h *RatingHandler) Rate(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.RatingRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	rating, err := h.ratings.Submit(c.UserContext(), actor, c.Params("id"), service.RatingInput{
		Value:    req.Rating,
		Feedback: req.Feedback,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewRatingResponse(rating)})
}
