package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"quizarena-service/internal/app"
	"quizarena-service/internal/config"
	"quizarena-service/internal/domain"
	"quizarena-service/internal/gen"
	"quizarena-service/internal/infra/memory"
	pgstore "quizarena-service/internal/infra/postgres"
	redisstore "quizarena-service/internal/infra/redis"
	"quizarena-service/internal/logging"
	transport "quizarena-service/internal/transport/http"
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

	log, err := logging.New(cfg.Log.Level, cfg.Log.Encoding)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
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

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	sessionTTL := config.TTLDuration(cfg.Redis.TTL, 4*time.Hour)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var loader memory.QuestionLoader = memory.NewStaticQuestionLoader(sampleQuestions())
	if pool != nil {
		loader = pgstore.NewQuestionLoader(pool)
	}
	bankTTL := config.TTLDuration(cfg.Bank.TTL, 10*time.Minute)
	if redisClient != nil {
		loader = redisstore.NewQuestionCache(redisClient, loader, bankTTL)
	}
	bank := memory.NewQuestionBank(loader, bankTTL)

	var sessions app.SessionStore
	var players app.PlayerStore
	if redisClient != nil {
		sessions = redisstore.NewSessionStore(redisClient, sessionTTL)
		players = redisstore.NewPlayerStore(redisClient, sessionTTL)
	} else {
		sessions = memory.NewSessionStore()
		players = memory.NewPlayerStore()
	}

	opts := []app.Option{app.WithQuestionBank(bank)}
	if cfg.Generator.URL != "" {
		timeout := config.TTLDuration(cfg.Generator.Timeout, 30*time.Second)
		opts = append(opts, app.WithGenerator(gen.NewClient(cfg.Generator.URL, cfg.Generator.APIKey, timeout, log)))
	}

	service := app.NewQuizService(sessions, players, log, opts...)
	wsHandler := transport.NewWSHandler(service, log)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      wsHandler.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Infow("starting quiz service", "port", finalPort, "redis", redisClient != nil, "postgres", pool != nil)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorw("server stopped", "err", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Infow("shutting down")
	case <-ctx.Done():
		log.Infow("context canceled, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleQuestions seeds the bank for local runs without Postgres.
func sampleQuestions() map[string]domain.Question {
	return map[string]domain.Question{
		"sample-1": {
			ID:        "sample-1",
			Text:      "Which keyword starts a goroutine?",
			TimeLimit: 30,
			Detail: domain.MCQDetail{
				Options:      []string{"go", "run", "spawn", "async"},
				CorrectIndex: 0,
			},
		},
		"sample-2": {
			ID:        "sample-2",
			Text:      "Which Go testing tool do you reach for first?",
			TimeLimit: 45,
			Detail: domain.SurveyDetail{
				Options: []string{"testing", "testify", "gomock", "ginkgo"},
			},
		},
		"sample-3": {
			ID:        "sample-3",
			Text:      "One word that describes your code reviews",
			TimeLimit: 45,
			Detail:    domain.WordCloudDetail{},
		},
		"sample-4": {
			ID:        "sample-4",
			Text:      "Match the tool to its job",
			TimeLimit: 60,
			Detail: domain.MatchDetail{
				Pairs: []domain.MatchPair{
					{Prompt: "gofmt", CorrectMatch: "formatting"},
					{Prompt: "vet", CorrectMatch: "static analysis"},
					{Prompt: "pprof", CorrectMatch: "profiling"},
				},
				OptionPool: []string{"profiling", "static analysis", "formatting"},
			},
		},
	}
}
