package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kiosk-lottery/internal/assets"
	"kiosk-lottery/internal/config"
	"kiosk-lottery/internal/handlers"
	"kiosk-lottery/internal/middleware"
	"kiosk-lottery/internal/roster"
	"kiosk-lottery/internal/services"
	"kiosk-lottery/internal/ws"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/logger"
	"github.com/spf13/cobra"
)

func newServeCommand(a *app) *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the kiosk API and display push",
		RunE: func(cmd *cobra.Command, args []string) error {
			if port != "" {
				a.cfg.Server.Port = port
			}
			return serve(cmd.Context(), a.cfg)
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "listen port, overrides Server.Port")
	return cmd
}

func serve(parent context.Context, cfg *config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Event settings and draw history
	settings, err := config.LoadSettings(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	store, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer store.Close()

	// 2. Roster, draw controller and its timers
	people := roster.Load(cfg.RosterPath)
	ctrl := services.NewDrawController(store, settings)
	seq := services.NewSequencer(ctrl, services.RealClock, services.PacingFor(cfg.Kiosk.ReducedMotion), cfg.Kiosk.AutoComplete)
	seq.Start()
	defer seq.Stop()

	// 3. Decorative media, loaded in the background
	media := assets.NewCache(os.DirFS(cfg.AssetsDir), cfg.Assets)
	go func() {
		loaded := media.Preload(ctx)
		logger.Infof("media preload finished: %d/%d assets", loaded, len(cfg.Assets))
	}()

	// 4. HTTP API
	hub := ws.NewHub()
	httpHandler := handlers.NewHTTPHandler(handlers.Dependencies{
		Settings:    settings,
		Roster:      people,
		Controller:  ctrl,
		Sequencer:   seq,
		Store:       store,
		Hub:         hub,
		Media:       media,
		Auth:        middleware.NewOperatorAuth(cfg.Operator),
		MaxPerRound: cfg.Kiosk.MaxPerRound,
	})
	unsubscribe := ctrl.Subscribe(httpHandler.BroadcastState)
	defer unsubscribe()

	if !cfg.LogVerbose {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	httpHandler.RegisterRoutes(r)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Server starting on http://localhost:%s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("Server exiting")
	return nil
}
