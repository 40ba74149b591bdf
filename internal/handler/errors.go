package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/ahmednasr/firstcommit/internal/github"
	"github.com/ahmednasr/firstcommit/internal/models"
)

// httpError maps a service error onto the status code the UI expects.
func httpError(err error) error {
	switch {
	case errors.Is(err, models.ErrInvalidRepoURL):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, github.ErrCredentialExpired):
		// the UI matches this literal to restart the OAuth flow
		return fiber.NewError(fiber.StatusUnauthorized, github.ErrCredentialExpired.Error())
	case errors.Is(err, github.ErrNotFound), errors.Is(err, models.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, "repository not found")
	case errors.Is(err, models.ErrImportInProgress):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, models.SafeErrorMessage(err))
	}
}

// ErrorHandler renders every error as {"error": message}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "internal server error"
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code, msg = fe.Code, fe.Message
	} else {
		log.Error().Err(err).Str("path", c.Path()).Msg("unhandled error")
	}
	return c.Status(code).JSON(fiber.Map{"error": msg})
}
