package integration

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
	"go.uber.org/zap"

	"quizarena-service/internal/app"
	"quizarena-service/internal/domain"
	"quizarena-service/internal/infra/memory"
	pgstore "quizarena-service/internal/infra/postgres"
	pgmigrations "quizarena-service/internal/infra/postgres/migrations"
	redisstore "quizarena-service/internal/infra/redis"
)

// Runs a full session against real Redis and Postgres: bank-backed quiz
// creation, join, host-driven flow, scored answer, finish.
func TestQuizEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisAddr, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	migrateAndSeed(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient := goredis.NewClient(&goredis.Options{Addr: redisAddr})
	defer redisClient.Close()

	loader := redisstore.NewQuestionCache(redisClient, pgstore.NewQuestionLoader(pool), 5*time.Minute)
	bank := memory.NewQuestionBank(loader, 5*time.Minute)
	sessions := redisstore.NewSessionStore(redisClient, time.Hour)
	players := redisstore.NewPlayerStore(redisClient, time.Hour)

	service := app.NewQuizService(sessions, players, zap.NewNop().Sugar(), app.WithQuestionBank(bank))

	created, err := service.CreateQuiz(ctx, app.CreateParams{
		Title:       "Integration",
		QuestionIDs: []string{"bank-q1"},
	})
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	code := created.Quiz.ID

	alice, err := service.Join(ctx, code, "Alice", "fox", "")
	if err != nil {
		t.Fatalf("join alice: %v", err)
	}
	if _, err := service.Join(ctx, code, "Bob", "owl", ""); err != nil {
		t.Fatalf("join bob: %v", err)
	}

	if _, err := service.Start(ctx, code, created.HostToken); err != nil {
		t.Fatalf("start: %v", err)
	}
	quiz, err := service.AutoAdvance(ctx, code, created.HostToken)
	if err != nil {
		t.Fatalf("advance to active: %v", err)
	}
	if quiz.GameState != domain.StateQuestionActive {
		t.Fatalf("expected QUESTION_ACTIVE, got %s", quiz.GameState)
	}

	result, err := service.SubmitAnswer(ctx, code, alice.ID, domain.OptionAnswer(1), "")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !result.Correct || result.Answer.Score < 1000 {
		t.Fatalf("expected scored correct answer, got %+v", result)
	}

	if _, err := service.ShowResult(ctx, code, created.HostToken); err != nil {
		t.Fatalf("show result: %v", err)
	}
	quiz, err = service.ShowLeaderboard(ctx, code, created.HostToken)
	if err != nil {
		t.Fatalf("show leaderboard: %v", err)
	}
	if quiz.GameState != domain.StateFinished || quiz.ParticipantCount != 2 {
		t.Fatalf("expected FINISHED with 2 participants, got %+v", quiz)
	}

	view, err := service.LeaderboardView(ctx, code)
	if err != nil {
		t.Fatalf("leaderboard view: %v", err)
	}
	if len(view.Entries) != 2 || view.Entries[0].PlayerID != alice.ID {
		t.Fatalf("expected alice leading, got %+v", view.Entries)
	}
}

func migrateAndSeed(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	pool, err := pgxpool.Connect(ctx, dsn)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	loader := pgstore.NewQuestionLoader(pool)
	err = loader.SaveQuestion(ctx, domain.Question{
		ID:         "bank-q1",
		Text:       "Which call starts an HTTP server?",
		TimeLimit:  30,
		Technology: "golang",
		Skill:      "beginner",
		Detail: domain.MCQDetail{
			Options:      []string{"http.Get", "http.ListenAndServe", "http.Post", "http.Handle"},
			CorrectIndex: 1,
		},
	})
	if err != nil {
		t.Fatalf("seed question: %v", err)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	return fmt.Sprintf("%s:%s", host, port.Port()), func() {
		_ = container.Terminate(ctx)
	}
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
