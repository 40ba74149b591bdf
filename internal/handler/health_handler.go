package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/ahmednasr/firstcommit/internal/database"
)

// Heartbeater is a dependency that can report whether it is reachable.
type Heartbeater interface {
	Heartbeat(ctx context.Context) error
}

type HealthHandler struct {
	mongo  *mongo.Client
	chroma Heartbeater
}

func NewHealthHandler(mongo *mongo.Client, chroma Heartbeater) *HealthHandler {
	return &HealthHandler{mongo: mongo, chroma: chroma}
}

func (h *HealthHandler) Register(r fiber.Router) {
	r.Get("/health", h.health)
}

func (h *HealthHandler) health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 3*time.Second)
	defer cancel()

	deps := fiber.Map{
		"mongo":  h.checkMongo(ctx),
		"chroma": h.checkChroma(ctx),
	}
	status, code := "ok", fiber.StatusOK
	for _, v := range deps {
		if v == "error" {
			status, code = "degraded", fiber.StatusServiceUnavailable
		}
	}
	return c.Status(code).JSON(fiber.Map{"status": status, "dependencies": deps})
}

func (h *HealthHandler) checkMongo(ctx context.Context) string {
	if h.mongo == nil {
		return "not_configured"
	}
	if err := database.Ping(ctx, h.mongo); err != nil {
		return "error"
	}
	return "connected"
}

func (h *HealthHandler) checkChroma(ctx context.Context) string {
	if h.chroma == nil {
		return "not_configured"
	}
	if err := h.chroma.Heartbeat(ctx); err != nil {
		return "error"
	}
	return "connected"
}
