package main

import (
	"os"

	"github.com/rs/zerolog/log"

	"renoquote/internal/logging"
)

func main() {
	logging.Init(os.Getenv("LOG_LEVEL"), true)
	if err := NewRoot().Execute(); err != nil {
		log.Error().Err(err).Msg("renoctl failed")
		os.Exit(1)
	}
}
