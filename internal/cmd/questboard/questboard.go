// Package questboard parses questboard command flags and launches the HTTP API.
package questboard

import (
	"context"
	"flag"
	"log"

	"github.com/neighborly/questboard/internal/app/server"
	"github.com/neighborly/questboard/internal/platform/config"
	"github.com/neighborly/questboard/internal/platform/otel"
	"github.com/neighborly/questboard/internal/platform/timeouts"
)

// Config holds questboard command configuration.
type Config struct {
	Port int `env:"QUESTBOARD_PORT" envDefault:"8080"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The questboard HTTP server port")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the questboard service.
func Run(ctx context.Context, cfg Config) error {
	shutdown, err := otel.Setup(ctx, "questboard")
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			log.Printf("otel shutdown: %v", err)
		}
	}()

	return server.Run(ctx, cfg.Port)
}
