package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/debemdeboas/redux-content/internal/api"
	"github.com/debemdeboas/redux-content/internal/auth"
	"github.com/debemdeboas/redux-content/internal/config"
	"github.com/debemdeboas/redux-content/internal/content"
	"github.com/debemdeboas/redux-content/internal/db"
	"github.com/debemdeboas/redux-content/internal/events"
	"github.com/debemdeboas/redux-content/internal/logger"
	"github.com/debemdeboas/redux-content/internal/model"
	"github.com/debemdeboas/redux-content/internal/pages"
	"github.com/debemdeboas/redux-content/internal/repository"
	"github.com/debemdeboas/redux-content/internal/sse"
)

const shutdownTimeout = 15 * time.Second

func setLoggers(l zerolog.Logger) {
	config.SetLogger(l.With().Str("component", "config").Logger())
	db.SetLogger(l.With().Str("component", "db").Logger())
	repository.SetLogger(l.With().Str("component", "repository").Logger())
	content.SetLogger(l.With().Str("component", "content").Logger())
	events.SetLogger(l.With().Str("component", "events").Logger())
	sse.SetLogger(l.With().Str("component", "sse").Logger())
	auth.SetLogger(l.With().Str("component", "auth").Logger())
	api.SetLogger(l.With().Str("component", "api").Logger())
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to the config file")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		l := logger.New("info")
		l.Warn().Err(err).Msg("Error loading .env file")
	}

	if err := config.LoadConfig(*configPath); err != nil {
		l := logger.New("info")
		l.Fatal().Err(err).Msgf(config.ErrLoadConfigFmt, err)
	}
	cfg := config.AppConfig

	l := logger.New(cfg.Logging.Level)
	setLoggers(l)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry, err := pages.Default()
	if err != nil {
		l.Fatal().Err(err).Msgf(config.ErrLoadDefaultsFmt, err)
	}

	repo, err := repository.Open(ctx, cfg.Storage)
	if err != nil {
		l.Fatal().Err(err).Msgf(config.ErrInitializeStoreFmt, err)
	}
	defer repo.Close()

	timeout, _ := cfg.Storage.TimeoutDuration()

	clients := sse.NewSSEClients()
	workflow := content.NewWorkflow(repo, content.WorkflowOptions{
		Timeout:    timeout,
		Validation: model.ValidationOptions{MaxListDepth: cfg.Content.MaxListDepth},
	})

	notifiers := []events.Notifier{clients.NotifyChange}
	if cfg.Events.RedisAddr != "" {
		client, err := events.Dial(ctx, cfg.Events.RedisAddr)
		if err != nil {
			l.Fatal().Err(err).Msgf(config.ErrConnectRedisFmt, err)
		}
		defer client.Close()

		bus := events.NewRedisBus(client, cfg.Events.RedisChannel)
		if err := bus.Subscribe(ctx, clients.NotifyChange); err != nil {
			l.Fatal().Err(err).Msgf(config.ErrConnectRedisFmt, err)
		}
		notifiers = append(notifiers, bus.Publish)
	}
	workflow.SetChangeNotifier(events.Fanout(notifiers...))

	handler := api.NewHandler(
		content.NewResolver(repo, registry, timeout),
		workflow,
		content.NewAuditor(repo, timeout),
		clients,
		auth.NewHeaderAuthorProvider(config.HAuthorID),
	)

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:           handler.Wrap(handler.Router(), l, cfg.Server.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	srv.RegisterOnShutdown(clients.CloseAll)

	go func() {
		l.Info().
			Str("addr", srv.Addr).
			Str("backend", cfg.Storage.Backend).
			Strs("pages", registry.ListPageIDs()).
			Msg("Content service listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Fatal().Err(err).Msg("Server error")
		}
	}()

	<-ctx.Done()
	l.Info().Msg("Shutdown signal received, draining requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		l.Error().Err(err).Msg("Forced shutdown")
	}
	l.Info().Msg("Server stopped")
}
