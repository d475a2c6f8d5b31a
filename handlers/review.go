package handlers

import (
	"github.com/gofiber/fiber/v2"

	"indibox/middleware"
	"indibox/services"
)

type ReviewHandler struct {
	reviews *services.ReviewService
	users   *services.UserService
}

func NewReviewHandler(reviews *services.ReviewService, users *services.UserService) *ReviewHandler {
	return &ReviewHandler{reviews: reviews, users: users}
}

func (h *ReviewHandler) Create(c *fiber.Ctx) error {
	var in services.ReviewInput
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	who := middleware.IdentityFrom(c)
	if _, err := h.users.EnsureProfile(c.UserContext(), who); err != nil {
		return err
	}
	review, err := h.reviews.Create(c.UserContext(), who, c.Params("id"), in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(review)
}

func (h *ReviewHandler) List(c *fiber.Ctx) error {
	reviews, err := h.reviews.ListByGame(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": reviews})
}

func (h *ReviewHandler) UserReview(c *fiber.Ctx) error {
	status, err := h.reviews.UserReview(c.UserContext(), middleware.IdentityFrom(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(status)
}

func (h *ReviewHandler) Update(c *fiber.Ctx) error {
	var in services.ReviewInput
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	review, err := h.reviews.Update(c.UserContext(), middleware.IdentityFrom(c), c.Params("review_id"), in)
	if err != nil {
		return err
	}
	return c.JSON(review)
}

func (h *ReviewHandler) Delete(c *fiber.Ctx) error {
	if err := h.reviews.Delete(c.UserContext(), middleware.IdentityFrom(c), c.Params("review_id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
