package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/ahmednasr/firstcommit/internal/app"
	"github.com/ahmednasr/firstcommit/internal/config"
	"github.com/ahmednasr/firstcommit/internal/handler"
	"github.com/ahmednasr/firstcommit/internal/middleware"
)

// main is the single entry-point for the REST API.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	config.SetupLogging(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	services, err := app.Build(ctx, cfg, app.Options{})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialise services")
	}
	defer services.Close()

	server := fiber.New(fiber.Config{
		ReadTimeout:           cfg.ReadTimeout,
		WriteTimeout:          cfg.WriteTimeout,
		ErrorHandler:          handler.ErrorHandler,
		DisableStartupMessage: true,
	})
	server.Use(middleware.Logging())

	handler.RegisterRoutes(server,
		services.Imports,
		services.Integrity,
		services.Search,
		handler.NewHealthHandler(services.Mongo, services.Chroma),
	)

	go func() {
		log.Info().Str("port", cfg.Port).Msg("server starting")
		if err := server.Listen(":" + cfg.Port); err != nil {
			log.Error().Err(err).Msg("server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	if err := server.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown failed")
	}
	// detached imports keep running until they reach a terminal status
	services.Imports.Wait()
	log.Info().Msg("all imports finished")
}
