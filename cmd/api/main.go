package main

import (
	"os"

	"github.com/bildungsfortschritt/api/internal/pkg/logger"
	"github.com/bildungsfortschritt/api/internal/server"
)

// @title Bildungsfortschritt API
// @version 1.0
// @description Lernfortschritt von Lernenden entlang der Leistungsziele

// @host localhost:5000
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT access token, prefixed with "Bearer "

func main() {
	srv, err := server.NewServer()
	if err != nil {
		// details are logged by the bootstrap steps
		logger.Error().Err(err).Msg("Failed to initialize server")
		os.Exit(1)
	}

	// blocks until SIGINT/SIGTERM
	if err := srv.Run(); err != nil {
		logger.Error().Err(err).Msg("Server execution failed or shutdown encountered errors")
		os.Exit(1)
	}

	logger.Info().Msg("Application finished gracefully.")
}
