package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	router "github.com/aurora-ops/realtime/internal/adapters/http"
	wssignal "github.com/aurora-ops/realtime/internal/adapters/signal"
	"github.com/aurora-ops/realtime/internal/app"
	"github.com/aurora-ops/realtime/internal/app/orch"
	"github.com/aurora-ops/realtime/internal/auth"
	"github.com/aurora-ops/realtime/internal/backplane"
	"github.com/aurora-ops/realtime/internal/store"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the websocket and REST server",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	verifier, err := auth.NewJWT(cfg.JWT.Secret, cfg.JWT.Issuer)
	if err != nil {
		return err
	}

	bp, err := backplane.New(cfg.Backplane)
	if err != nil {
		return err
	}
	defer bp.Close()

	perms := app.DefaultPermissions()
	bus := app.NewEventBus()
	defer bus.Close()

	o := &orch.Orchestrator{
		Registry:  app.NewRegistry(),
		Rooms:     app.NewRoomManager(),
		Presence:  app.NewPresence(nil),
		Policy:    app.SimplePolicy{},
		Backplane: bp,
		NodeID:    uuid.NewString(),
	}
	tasks := &app.TaskService{
		Tasks:         st,
		Projects:      st,
		Comments:      st,
		Notifications: st,
		Permissions:   perms,
		Bus:           bus,
		Timeout:       cfg.CollaboratorTimeout,
	}
	notifications := &app.NotificationService{Store: st, Permissions: perms, Timeout: cfg.CollaboratorTimeout}
	fanout := &orch.Fanout{Orch: o, Bus: bus, Tasks: tasks, TasksLimit: cfg.TasksLimit}

	r := router.SetupRouter(ctx, cfg, router.Deps{
		Orch:          o,
		Auth:          &app.Authenticator{Verifier: verifier, Memberships: st, Timeout: cfg.CollaboratorTimeout},
		Tasks:         tasks,
		Notifications: notifications,
		Limiter:       wssignal.NewRateLimiter(cfg.RateLimit.Events, cfg.RateLimit.Interval),
	})
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", addr).Str("node", o.NodeID).Msg("Aurora realtime server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error { return o.Run(gctx) })
	g.Go(func() error { return fanout.Run(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down")
		o.Shutdown()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server forced to shutdown")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info().Msg("Server exited gracefully")
	return nil
}
