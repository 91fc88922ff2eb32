package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/steveyiyo/pitchcoach-backend/internal/config"
	"github.com/steveyiyo/pitchcoach-backend/internal/core/session"
	h "github.com/steveyiyo/pitchcoach-backend/internal/http"
	"github.com/steveyiyo/pitchcoach-backend/internal/log"
	"github.com/steveyiyo/pitchcoach-backend/internal/repo/archive"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	lg := log.New(cfg.LogLevel, cfg.LogDir)
	if err := run(cfg, lg); err != nil {
		lg.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, lg *log.Logger) error {
	var arch session.Archiver
	if cfg.DataDir != "" {
		store, err := archive.New(filepath.Join(cfg.DataDir, "sessions"))
		if err != nil {
			return fmt.Errorf("archive: %w", err)
		}
		arch = store
	}

	r, err := h.NewRouter(cfg, lg, arch)
	if err != nil {
		return fmt.Errorf("router: %w", err)
	}
	stopSweep, err := r.Sessions.StartSweeper()
	if err != nil {
		return fmt.Errorf("sweeper: %w", err)
	}
	defer stopSweep()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg, gctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		lg.Info("listening", "addr", srv.Addr, "public_host", cfg.Host())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-gctx.Done()
		lg.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		// Hijacked WebSocket connections are not tracked by Shutdown.
		r.Hub.CloseAll()
		return srv.Shutdown(shutdownCtx)
	})
	err = eg.Wait()

	// End whatever is still open so it reaches the archive.
	for _, id := range r.Sessions.Repo.IdleSince(time.Now().Add(time.Hour)) {
		if err := r.Sessions.End(id); err != nil {
			lg.Warn("archive on shutdown", "session_id", id, "error", err)
		}
	}
	return err
}
