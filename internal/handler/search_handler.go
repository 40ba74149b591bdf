package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/ahmednasr/firstcommit/internal/models"
	"github.com/ahmednasr/firstcommit/internal/service"
)

// SearchHandler wires HTTP → SearchService.
type SearchHandler struct {
	svc service.SearchService
}

// NewSearchHandler returns a handler instance.
func NewSearchHandler(svc service.SearchService) *SearchHandler {
	return &SearchHandler{svc: svc}
}

// Register mounts POST /repositories/:id/search on the given router group.
func (h *SearchHandler) Register(r fiber.Router) {
	r.Post("/repositories/:id/search", h.search)
}

// search handles POST /repositories/:id/search {"query": "...", "topK": 5}
func (h *SearchHandler) search(c *fiber.Ctx) error {
	var req models.SearchRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Query) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "query is required")
	}
	if req.TopK < 0 {
		return fiber.NewError(fiber.StatusBadRequest, "topK must not be negative")
	}

	results, err := h.svc.QueryRepository(c.UserContext(), c.Params("id"), req.Query, req.TopK)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(results)
}
