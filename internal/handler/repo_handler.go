package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/ahmednasr/firstcommit/internal/middleware"
	"github.com/ahmednasr/firstcommit/internal/models"
	"github.com/ahmednasr/firstcommit/internal/service"
)

// RepoHandler wires HTTP → ImportService and IntegrityService.
type RepoHandler struct {
	imports   service.ImportService
	integrity service.IntegrityService
}

// NewRepoHandler creates a new RepoHandler.
func NewRepoHandler(imports service.ImportService, integrity service.IntegrityService) *RepoHandler {
	return &RepoHandler{imports: imports, integrity: integrity}
}

// Register mounts the repository lifecycle routes on the supplied group.
func (h *RepoHandler) Register(r fiber.Router) {
	r.Post("/repositories/import", h.importRepo)
	r.Get("/repositories/:id/status", h.status)
	r.Get("/repositories/:id/integrity", h.checkIntegrity)
	r.Delete("/repositories/:id", h.deleteRepo)
}

// importRepo handles POST /repositories/import
func (h *RepoHandler) importRepo(c *fiber.Ctx) error {
	userID, token := middleware.UserID(c), middleware.GitHubToken(c)
	if userID == "" || token == "" {
		return fiber.NewError(fiber.StatusUnauthorized, "a signed-in user with a GitHub token is required")
	}

	var body models.ImportRequest
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(body.RepoURL) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "repoUrl is required")
	}

	mode := service.ModeDetached
	if body.Wait {
		mode = service.ModeSync
	}
	repo, err := h.imports.Import(c.UserContext(), service.ImportRequest{
		RepoURL: body.RepoURL,
		Token:   token,
		UserID:  userID,
		Mode:    mode,
	})
	if err != nil {
		return httpError(err)
	}

	code := fiber.StatusOK
	if mode == service.ModeDetached && !repo.Status.Terminal() {
		code = fiber.StatusAccepted
	}
	return c.Status(code).JSON(repo.StatusReport())
}

// status handles GET /repositories/:id/status
func (h *RepoHandler) status(c *fiber.Ctx) error {
	report, err := h.imports.Status(c.UserContext(), c.Params("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(report)
}

// checkIntegrity handles GET /repositories/:id/integrity
func (h *RepoHandler) checkIntegrity(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := h.imports.Status(c.UserContext(), id); err != nil {
		return httpError(err)
	}
	return c.JSON(h.integrity.Check(c.UserContext(), id))
}

// deleteRepo handles DELETE /repositories/:id
func (h *RepoHandler) deleteRepo(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	if userID == "" {
		return fiber.NewError(fiber.StatusUnauthorized, "a signed-in user is required")
	}
	if err := h.imports.Delete(c.UserContext(), userID, c.Params("id")); err != nil {
		return httpError(err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
