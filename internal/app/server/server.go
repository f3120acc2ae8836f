// Package server wires the questboard HTTP JSON API.
//
// It composes the quest store, moderation gate, metadata inferencer,
// dismissal store, and intake orchestrator, and owns process-wide state
// like the telemetry counters.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"sync"

	"github.com/neighborly/questboard/internal/dismissal"
	"github.com/neighborly/questboard/internal/inference"
	"github.com/neighborly/questboard/internal/intake"
	"github.com/neighborly/questboard/internal/moderation"
	"github.com/neighborly/questboard/internal/platform/config"
	"github.com/neighborly/questboard/internal/platform/telemetry"
	"github.com/neighborly/questboard/internal/platform/timeouts"
	questsqlite "github.com/neighborly/questboard/internal/quest/storage/sqlite"
)

// serverEnv holds env-parsed configuration for the questboard server.
type serverEnv struct {
	DBPath          string `env:"QUESTBOARD_DB_PATH"`
	DismissalDBPath string `env:"QUESTBOARD_DISMISSAL_DB_PATH"`

	OpenAIAPIKey         string `env:"QUESTBOARD_OPENAI_API_KEY"`
	OpenAIModerationsURL string `env:"QUESTBOARD_OPENAI_MODERATIONS_URL"`

	CohereAPIKey  string `env:"QUESTBOARD_COHERE_API_KEY"`
	CohereChatURL string `env:"QUESTBOARD_COHERE_CHAT_URL"`
	CohereModel   string `env:"QUESTBOARD_COHERE_MODEL"`
}

func loadServerEnv() serverEnv {
	var cfg serverEnv
	_ = config.ParseEnv(&cfg)
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join("data", "quests.db")
	}
	if cfg.DismissalDBPath == "" {
		cfg.DismissalDBPath = filepath.Join("data", "dismissals.db")
	}
	return cfg
}

// Server hosts the questboard HTTP API.
type Server struct {
	httpServer *http.Server
	store      *questsqlite.Store
	dismissals *dismissal.BoltStore
	counters   *telemetry.Counters
	closeOnce  sync.Once
}

// New creates a configured server listening on the provided port.
func New(port int) (*Server, error) {
	return NewWithAddr(fmt.Sprintf(":%d", port))
}

// NewWithAddr creates a configured server listening on the provided address.
func NewWithAddr(addr string) (*Server, error) {
	srvEnv := loadServerEnv()

	store, err := questsqlite.Open(srvEnv.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open quest store: %w", err)
	}

	dismissals, err := dismissal.OpenBoltStore(srvEnv.DismissalDBPath)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("open dismissal store: %w", err)
	}

	gate := moderation.NewClassifier(moderation.ClassifierConfig{
		ModerationsURL: srvEnv.OpenAIModerationsURL,
		APIKey:         srvEnv.OpenAIAPIKey,
	})
	inferencer := inference.NewGenerator(inference.GeneratorConfig{
		ChatURL: srvEnv.CohereChatURL,
		APIKey:  srvEnv.CohereAPIKey,
		Model:   srvEnv.CohereModel,
	})

	counters := telemetry.NewCounters()
	orchestrator, err := intake.New(intake.Config{
		Gate:       gate,
		Inferencer: inferencer,
		Store:      store,
		Counters:   counters,
	})
	if err != nil {
		_ = store.Close()
		_ = dismissals.Close()
		return nil, fmt.Errorf("build orchestrator: %w", err)
	}

	h := newHandlers(store, orchestrator, dismissals)
	server := &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           h.routes(),
			ReadHeaderTimeout: timeouts.ReadHeader,
		},
		store:      store,
		dismissals: dismissals,
		counters:   counters,
	}
	return server, nil
}

// Serve blocks serving HTTP until ctx is cancelled or the listener fails.
func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Printf("questboard server listening at %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.close()
			return fmt.Errorf("shutdown http server: %w", err)
		}
		s.close()
		return <-errCh
	case err := <-errCh:
		s.close()
		return err
	}
}

func (s *Server) close() {
	s.closeOnce.Do(func() {
		if err := s.store.Close(); err != nil {
			log.Printf("close quest store: %v", err)
		}
		if err := s.dismissals.Close(); err != nil {
			log.Printf("close dismissal store: %v", err)
		}
	})
}

// Run starts a server on the port and serves until ctx is cancelled.
func Run(ctx context.Context, port int) error {
	server, err := New(port)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}
