package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"livequiz-service/internal/config"
	"livequiz-service/internal/domain"
	"livequiz-service/internal/game"
	"livequiz-service/internal/infra/memory"
	pgstore "livequiz-service/internal/infra/postgres"
	rediscache "livequiz-service/internal/infra/redis"
	transport "livequiz-service/internal/transport/http"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the live quiz server",
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

	var store game.Store = sampleStore()
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		store = pgstore.NewStore(pool)
	}

	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ttl := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)
		store = rediscache.NewStoreCache(store, redisClient, ttl)
	}

	hub := transport.NewHub()
	registry := game.NewSessionRegistry()
	timers := game.NewTimerScheduler(hub)
	orchestrator := game.NewOrchestrator(registry, timers, store, hub)
	orchestrator.SetBufferSeconds(cfg.Game.BufferSeconds)
	wsHandler := transport.NewWSHandler(orchestrator, registry, store, hub)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting live quiz service on :%s", finalPort)
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

// sampleStore seeds a minimal demo quiz; swap for postgres in production.
func sampleStore() *memory.Store {
	store := memory.NewStore()
	store.PutQuiz(domain.Quiz{ID: "quiz-1", Title: "Demo Quiz"})
	store.PutQuestion(domain.Question{
		ID:         "q1",
		QuizID:     "quiz-1",
		Text:       "What is 2 + 2?",
		Type:       domain.MultipleChoice,
		Difficulty: "EASY",
		Options:    []string{"3", "4", "5", "6"},
		CorrectKey: "B",
		Points:     10,
		TimeLimit:  30,
		OrderIndex: 0,
	})
	store.PutQuestion(domain.Question{
		ID:         "q2",
		QuizID:     "quiz-1",
		Text:       "Name the process plants use to turn light into energy.",
		Type:       domain.Identification,
		Difficulty: "EASY",
		CorrectKey: "photosynthesis",
		Points:     15,
		TimeLimit:  20,
		OrderIndex: 1,
	})
	store.PutTeam(domain.Team{ID: "team-1", QuizID: "quiz-1", Name: "Alpha"})
	store.PutTeam(domain.Team{ID: "team-2", QuizID: "quiz-1", Name: "Bravo"})
	return store
}
