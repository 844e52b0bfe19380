package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"quizarena-service/internal/app"
	"quizarena-service/internal/domain"
	"quizarena-service/internal/infra/memory"
)

func newTestServer(t *testing.T, opts ...app.Option) (*httptest.Server, *app.QuizService) {
	t.Helper()
	service := app.NewQuizService(
		memory.NewSessionStore(),
		memory.NewPlayerStore(),
		zap.NewNop().Sugar(),
		opts...,
	)
	handler := NewWSHandler(service, zap.NewNop().Sugar())
	server := httptest.NewServer(handler.Routes())
	t.Cleanup(server.Close)
	return server, service
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	u := "ws" + server.URL[len("http"):] + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readUntil(t *testing.T, conn *websocket.Conn, want string) map[string]any {
	t.Helper()
	for i := 0; i < 50; i++ {
		var msg struct {
			Type    string          `json:"type"`
			Payload json.RawMessage `json:"payload"`
		}
		_ = conn.SetReadDeadline(time.Now().Add(10 * time.Second))
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read json waiting for %s: %v", want, err)
		}
		if msg.Type == "error" && want != "error" {
			t.Fatalf("got error waiting for %s: %s", want, msg.Payload)
		}
		if msg.Type != want {
			continue
		}
		var payload map[string]any
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			t.Fatalf("decode %s payload: %v", want, err)
		}
		return payload
	}
	t.Fatalf("never received %s", want)
	return nil
}

func sendMessage(t *testing.T, conn *websocket.Conn, msgType string, payload any) {
	t.Helper()
	if err := conn.WriteJSON(map[string]any{"type": msgType, "payload": payload}); err != nil {
		t.Fatalf("write %s: %v", msgType, err)
	}
}

func TestWebSocketFullGame(t *testing.T) {
	server, service := newTestServer(t)

	host := dial(t, server)
	sendMessage(t, host, "create", map[string]any{
		"title": "Go Basics",
		"questions": []map[string]any{
			{
				"type":               "MCQ",
				"text":               "What is a goroutine?",
				"timeLimit":          30,
				"options":            []string{"thread", "lightweight thread", "process", "callback"},
				"correctAnswerIndex": 1,
			},
		},
	})
	created := readUntil(t, host, "created")
	quiz := created["quiz"].(map[string]any)
	code := quiz["id"].(string)
	if len(code) != 6 {
		t.Fatalf("expected 6-char join code, got %q", code)
	}

	player := dial(t, server)
	sendMessage(t, player, "join", map[string]any{"code": code, "name": "Alice", "avatar": "fox"})
	joined := readUntil(t, player, "joined")
	if joined["name"] != "Alice" {
		t.Fatalf("expected joined Alice, got %v", joined)
	}

	sendMessage(t, host, "start", nil)
	// the host runner walks INTRO into ACTIVE after the intro window; drive
	// and observe via the session stream
	var active bool
	deadline := time.Now().Add(8 * time.Second)
	for !active && time.Now().Before(deadline) {
		session := readUntil(t, player, "session")
		if session["gameState"] == string(domain.StateQuestionActive) {
			active = true
		}
	}
	if !active {
		t.Fatal("session never reached QUESTION_ACTIVE")
	}

	sendMessage(t, player, "answer", map[string]any{"kind": "option", "option": 1})
	result := readUntil(t, player, "answerResult")
	if result["correct"] != true {
		t.Fatalf("expected correct answer, got %v", result)
	}
	if result["awarded"].(float64) < 1000 {
		t.Fatalf("expected at least the base score, got %v", result["awarded"])
	}

	sendMessage(t, host, "showResult", nil)
	results := readUntil(t, host, "questionResults")
	if results["responseCount"].(float64) != 1 {
		t.Fatalf("expected 1 response, got %v", results["responseCount"])
	}
	tallies := results["optionTallies"].([]any)
	if tallies[1].(map[string]any)["count"].(float64) != 1 {
		t.Fatalf("expected option 1 to carry the answer, got %v", tallies)
	}

	sendMessage(t, host, "showLeaderboard", nil)
	leaderboard := readUntil(t, host, "leaderboard")
	entries := leaderboard["entries"].([]any)
	if len(entries) != 1 {
		t.Fatalf("expected 1 leaderboard entry, got %d", len(entries))
	}
	top := entries[0].(map[string]any)
	if top["name"] != "Alice" || top["rank"].(float64) != 1 {
		t.Fatalf("unexpected top entry: %v", top)
	}

	final, err := service.Quiz(context.Background(), code)
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if final.GameState != domain.StateFinished {
		t.Fatalf("expected FINISHED, got %s", final.GameState)
	}
	if final.ParticipantCount != 1 || final.EndTime == nil {
		t.Fatalf("finish snapshot incomplete: %+v", final)
	}
}

func TestWebSocketRejectsNonHostActions(t *testing.T) {
	server, service := newTestServer(t)

	created, err := service.CreateQuiz(context.Background(), app.CreateParams{
		Title: "Guarded",
		Questions: []domain.Question{{
			Text:      "Q",
			TimeLimit: 30,
			Detail:    domain.MCQDetail{Options: []string{"a", "b", "c", "d"}, CorrectIndex: 0},
		}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	player := dial(t, server)
	sendMessage(t, player, "join", map[string]any{"code": created.Quiz.ID, "name": "Mallory"})
	readUntil(t, player, "joined")

	// a player connection holds no host token
	sendMessage(t, player, "start", nil)
	readUntil(t, player, "error")
}

type stubGenerator struct{}

func (stubGenerator) Generate(_ context.Context, topic, _ string, count int) ([]domain.Question, error) {
	questions := make([]domain.Question, count)
	for i := range questions {
		questions[i] = domain.Question{
			Text:      "Generated about " + topic,
			TimeLimit: 30,
			Detail:    domain.MCQDetail{Options: []string{"a", "b", "c", "d"}, CorrectIndex: 0},
		}
	}
	return questions, nil
}

func TestWebSocketCreateWithGeneratedQuestions(t *testing.T) {
	server, _ := newTestServer(t, app.WithGenerator(stubGenerator{}))

	host := dial(t, server)
	sendMessage(t, host, "create", map[string]any{
		"title":    "AI Round",
		"generate": map[string]any{"topic": "goroutines", "skill": "intermediate", "count": 3},
	})
	created := readUntil(t, host, "created")
	quiz := created["quiz"].(map[string]any)
	questions := quiz["questions"].([]any)
	if len(questions) != 3 {
		t.Fatalf("expected 3 generated questions, got %d", len(questions))
	}
}

func TestWebSocketUnknownMessageType(t *testing.T) {
	server, _ := newTestServer(t)
	conn := dial(t, server)
	sendMessage(t, conn, "bogus", nil)
	errPayload := readUntil(t, conn, "error")
	if errPayload["message"] != "unsupported message type" {
		t.Fatalf("unexpected error payload: %v", errPayload)
	}
}
