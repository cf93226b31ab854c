package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coder/websocket"
	"github.com/gorilla/mux"

	"github.com/inkslate/inkslate/backend-go/internal/api"
	"github.com/inkslate/inkslate/backend-go/internal/asset"
	"github.com/inkslate/inkslate/backend-go/internal/auth"
	"github.com/inkslate/inkslate/backend-go/internal/canvas"
	"github.com/inkslate/inkslate/backend-go/internal/config"
	"github.com/inkslate/inkslate/backend-go/internal/document"
	mw "github.com/inkslate/inkslate/backend-go/internal/middleware"
	"github.com/inkslate/inkslate/backend-go/internal/session"
	"github.com/inkslate/inkslate/backend-go/internal/store"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := store.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	st := store.NewPostgres(pool)
	if err := st.EnsureSchema(ctx); err != nil {
		slog.Error("prepare database", "error", err)
		os.Exit(1)
	}

	authService := auth.NewService(cfg.JWTSecret)

	// Canvas loader for the hub: the newest stored snapshot
	loader := func(ctx context.Context, canvasID string) (canvas.Snapshot, error) {
		snap, err := st.LatestSnapshot(ctx, canvasID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return canvas.Snapshot{}, session.ErrUnknownCanvas
			}
			return canvas.Snapshot{}, err
		}
		return document.Decode(snap.Document)
	}

	// Canvas saver for the hub: every save is a new version
	saver := func(ctx context.Context, canvasID string, snap canvas.Snapshot) error {
		doc, err := document.Encode(snap)
		if err != nil {
			return fmt.Errorf("encode canvas: %w", err)
		}
		version, err := st.SaveSnapshot(ctx, canvasID, doc)
		if err != nil {
			return err
		}
		slog.Debug("snapshot stored", "canvas", canvasID, "version", version)
		return nil
	}

	hub := session.NewHub(loader, saver,
		session.WithCanvasOptions(cfg.CanvasOptions()...),
		session.WithEventBuffer(cfg.EventBuffer),
		session.WithAutosaveInterval(cfg.AutosaveInterval),
	)
	go hub.Run()

	assetHandler, err := asset.NewHandler(cfg.AssetDir)
	if err != nil {
		slog.Error("prepare asset storage", "error", err)
		os.Exit(1)
	}
	canvasHandler := api.NewHandler(api.NewService(st, hub, canvas.DefaultConfig()))

	origins := cfg.Origins()

	r := mux.NewRouter()

	// Global middleware
	r.Use(mw.Recovery)
	r.Use(mw.Logger)
	r.Use(mw.CORS(origins))
	r.Use(mw.SecurityHeaders)

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	if cfg.DevTokens {
		slog.Warn("development token endpoint enabled")
		r.HandleFunc("/auth/token", auth.NewHandler(authService).IssueToken).Methods("POST")
	}

	r.PathPrefix("/assets/").Handler(assetHandler.Serve()).Methods("GET")

	// Protected API routes
	apiRouter := r.PathPrefix("/api").Subrouter()
	apiRouter.Use(authService.AuthMiddleware)
	apiRouter.HandleFunc("/assets", assetHandler.Upload).Methods("POST")
	canvasHandler.Routes(apiRouter)

	// WebSocket endpoint
	r.HandleFunc("/ws/canvas/{canvasId}", func(w http.ResponseWriter, r *http.Request) {
		handleWebSocket(w, r, hub, authService, origins)
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server")

		// Stop the hub first so every changed canvas is saved
		slog.Info("saving all canvases...")
		hub.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("server starting", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func handleWebSocket(w http.ResponseWriter, r *http.Request, hub *session.Hub, authSvc *auth.Service, origins []string) {
	canvasID := mux.Vars(r)["canvasId"]

	// Browsers cannot set headers on a websocket handshake
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}
	principal, err := authSvc.ValidateToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	// Load before upgrading so an unknown canvas is a plain 404
	if _, err := hub.Open(r.Context(), canvasID); err != nil {
		if errors.Is(err, session.ErrUnknownCanvas) {
			http.Error(w, "canvas not found", http.StatusNotFound)
			return
		}
		slog.Error("open canvas", "error", err, "canvas", canvasID)
		http.Error(w, "canvas unavailable", http.StatusServiceUnavailable)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: mw.OriginHosts(origins),
	})
	if err != nil {
		slog.Error("websocket accept", "error", err)
		return
	}

	client := session.NewClient(hub, conn, principal.Subject, canvasID)
	ctx := r.Context()
	if err := hub.Register(ctx, client); err != nil {
		slog.Error("register client", "error", err, "canvas", canvasID)
		conn.Close(websocket.StatusInternalError, "canvas unavailable")
		return
	}

	go client.WritePump(ctx)
	client.ReadPump(ctx)
}
