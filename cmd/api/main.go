package main

import (
	"os"

	"github.com/yigit/scribelink/internal/pkg/logger"
	"github.com/yigit/scribelink/internal/server"
)

func main() {
	// NewServer orchestrates configuration, logging, storage, dependencies and routing
	srv, err := server.NewServer()
	if err != nil {
		// Error details are logged within NewServer's setup functions
		logger.Error().Err(err).Msg("Failed to initialize server")
		os.Exit(1)
	}

	// Run blocks until a shutdown signal arrives
	if err := srv.Run(); err != nil {
		logger.Error().Err(err).Msg("Server execution failed or shutdown encountered errors")
		os.Exit(1)
	}

	logger.Info().Msg("Application finished gracefully.")
}
