// migrate applies the embedded schema migrations to DATABASE_URL.
package main

import (
	"flag"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/autovolt/voice-bridge-go/internal/database"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	direction := flag.String("direction", "up", "Migration direction: up or down")
	flag.Parse()

	if err := database.Migrate(os.Getenv("DATABASE_URL"), *direction); err != nil {
		log.Fatal().Err(err).Str("direction", *direction).Msg("migration failed")
	}
	log.Info().Str("direction", *direction).Msg("migrations applied")
}
