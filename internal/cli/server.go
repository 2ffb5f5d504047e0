package cli

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/config"
	transport "live-quiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}
	if cfg.Auth.JWTSecret == "" {
		return errors.New("auth.jwtSecret (QUIZ_AUTH_JWT_SECRET) must be set")
	}

	b, err := buildBackends(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	service := app.NewQuizService(b.catalog, b.sessions, b.locker)
	if !b.durable && cfg.Seed.File != "" {
		err := seedGames(ctx, service, cfg.Seed.File, cfg.Seed.Owner)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			log.Printf("seed file %s not found, starting with an empty catalog", cfg.Seed.File)
		case err != nil:
			return err
		}
	}

	server := &http.Server{
		Addr: ":" + finalPort,
		Handler: transport.NewRouter(service, transport.RouterConfig{
			JWTSecret:      cfg.Auth.JWTSecret,
			AllowedOrigins: cfg.Server.AllowedOrigins,
		}),
		ReadTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quiz service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
