package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/yourusername/facturas/config"
	"github.com/yourusername/facturas/handlers"
	"github.com/yourusername/facturas/invoicing"
	"github.com/yourusername/facturas/lock"
	"github.com/yourusername/facturas/logger"
	"github.com/yourusername/facturas/store"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Example: `  # Single instance with the in-process lock
  facturas serve

  # Several instances sharing a Redis lock
  LOCK_BACKEND=redis REDIS_ADDR=redis:6379 facturas serve`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("port", "", "Listen port (overrides PORT)")
}

// newLocker builds the per-company lock the config asks for. The returned
// close func releases the Redis connection, if any.
func newLocker(cfg *config.Config) (lock.Locker, func(), error) {
	if cfg.LockBackend != config.LockBackendRedis {
		return lock.NewMemoryLocker(), func() {}, nil
	}
	client, err := lock.Connect(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, nil, err
	}
	return lock.NewRedisLocker(client, cfg.LockTTL), func() { client.Close() }, nil
}

func newService(cfg *config.Config, s *store.Store, locker lock.Locker) *invoicing.Service {
	return invoicing.NewService(s, locker, invoicing.Options{
		QRBaseURL:         cfg.QRBaseURL,
		DefaultSoftwareID: cfg.DefaultSoftwareID,
	})
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("serve")

	if err := cfg.RequireSecrets(); err != nil {
		return err
	}
	if port, _ := cmd.Flags().GetString("port"); port != "" {
		cfg.Port = port
	}

	db, err := config.InitDB(cfg)
	if err != nil {
		return err
	}

	locker, closeLocker, err := newLocker(cfg)
	if err != nil {
		return fmt.Errorf("failed to set up %s lock: %w", cfg.LockBackend, err)
	}
	defer closeLocker()

	gin.SetMode(cfg.GinMode)
	service := newService(cfg, store.New(db), locker)
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handlers.SetupRouter(cfg, db, service),
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		log.Info().
			Str("port", cfg.Port).
			Str("lock_backend", cfg.LockBackend).
			Msg("Starting facturas API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
		log.Info().Msg("Shutting down gracefully")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}
