package main

import (
	stdctx "context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lilypad/internal/config"
	"lilypad/internal/database"
	"lilypad/internal/engine"
	"lilypad/internal/handlers"
	"lilypad/internal/middleware"
	"lilypad/internal/ratelimit"
	"lilypad/internal/utils"
	"lilypad/internal/webhook"
	"lilypad/internal/websocket"

	"github.com/asynkron/protoactor-go/actor"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	metrics := utils.NewMetricsCollector()

	db, err := openDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(stdctx.Background()); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	// Actor system: comment/site pipeline, per-key rate limiter, webhook queue.
	system := actor.NewActorSystem()

	hub := websocket.NewHub()
	go hub.Run()

	notifier := webhook.NewNotifier(system, cfg.Policy.WebhookTimeout, cfg.Policy.WebhookMaxAttempts)
	lilypadEngine := engine.NewEngine(system, db, notifier, hub, metrics, cfg.Policy.FlagThreshold)
	limiter := ratelimit.NewLimiter(system, cfg.Policy.RateLimitMax, cfg.Policy.RateLimitWindow)
	auth := middleware.NewAuthenticator(cfg.JWTSecret)

	server := handlers.NewServer(system, lilypadEngine, metrics, db, auth, hub)
	server.RequestTimeout = cfg.Server.RequestTimeout

	cors := middleware.DefaultCORSConfig(cfg.AllowedOrigins)

	// Route helpers. Order on writes matters: the rate limiter runs before
	// authentication and body parsing, so a rejected request does no work.
	public := func(h http.HandlerFunc) http.HandlerFunc {
		return middleware.ApplyCORS(instrument(h, metrics), cors)
	}
	protected := func(h http.HandlerFunc) http.HandlerFunc {
		return public(auth.RequireAuth(h))
	}
	limitedWrite := func(h http.HandlerFunc) http.HandlerFunc {
		return public(middleware.ApplyRateLimit(auth.RequireAuth(h), limiter, metrics))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", public(server.HandleHealth()))

	mux.HandleFunc("/user/register", public(server.HandleUserRegister()))
	mux.HandleFunc("/user/login", public(server.HandleUserLogin()))
	mux.HandleFunc("/user/profile", protected(server.HandleUserProfile()))

	// Reads stay cheap and unauthenticated; submissions are rate limited.
	comments := server.HandleComments()
	submitComment := limitedWrite(comments)
	listComments := public(comments)
	mux.HandleFunc("/comments", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			submitComment(w, r)
			return
		}
		listComments(w, r)
	})
	mux.HandleFunc("/comments/like", limitedWrite(server.HandleCommentLike()))
	mux.HandleFunc("/comments/flag", limitedWrite(server.HandleCommentFlag()))

	mux.HandleFunc("/sites", protected(server.HandleSites()))
	mux.HandleFunc("/sites/policy", protected(server.HandleSitePolicy()))
	mux.HandleFunc("/moderation/queue", protected(server.HandleModerationQueue()))
	mux.HandleFunc("/moderation/decide", protected(server.HandleModerateComment()))

	mux.HandleFunc("/ws/moderation", server.HandleModerationFeed())

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:    serverAddr,
		Handler: mux,
	}

	go func() {
		log.Printf("Starting server on %s (db=%s)", serverAddr, cfg.Database.Type)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Println("Shutting down...")
	shutdownCtx, cancel := stdctx.WithTimeout(stdctx.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}
	system.Shutdown()
}

func openDatabase(cfg *config.Config) (database.DBAdapter, error) {
	switch cfg.Database.Type {
	case "memory":
		log.Println("Using in-memory database; state will not survive a restart")
		return database.NewMemoryDB(), nil
	default:
		pg, err := database.NewPostgresDB(cfg.Database.URI)
		if err != nil {
			return nil, err
		}
		if err := pg.InitializeTables(stdctx.Background()); err != nil {
			return nil, err
		}
		return pg, nil
	}
}

// instrument counts every request before handing off.
func instrument(h http.HandlerFunc, metrics *utils.MetricsCollector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metrics.IncrementRequests()
		h(w, r)
	}
}
