package http

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"quizarena-service/internal/app"
	"quizarena-service/internal/domain"
)

type WSHandler struct {
	service *app.QuizService
	log     *zap.SugaredLogger

	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService, log *zap.SugaredLogger) *WSHandler {
	return &WSHandler{
		service: service,
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Routes mounts the websocket endpoint and the health probe.
func (h *WSHandler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.ServeWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type createPayload struct {
	Title       string            `json:"title"`
	Questions   []domain.Question `json:"questions"`
	QuestionIDs []string          `json:"questionIds"`
	Generate    *generateRequest  `json:"generate,omitempty"`
	Config      domain.QuizConfig `json:"config"`
}

type generateRequest struct {
	Topic string `json:"topic"`
	Skill string `json:"skill"`
	Count int    `json:"count"`
}

type createdPayload struct {
	Quiz      domain.Quiz `json:"quiz"`
	HostToken string      `json:"hostToken"`
}

type joinPayload struct {
	Code   string      `json:"code"`
	Name   string      `json:"name"`
	Avatar string      `json:"avatar"`
	Clan   domain.Clan `json:"clan,omitempty"`
}

type answerPayload struct {
	Kind    string  `json:"kind"` // option | text | matches
	Option  *int    `json:"option,omitempty"`
	Text    *string `json:"text,omitempty"`
	Matches []int   `json:"matches,omitempty"`
}

type answerResult struct {
	QuestionID     string  `json:"questionId"`
	Correct        bool    `json:"correct"`
	CorrectMatches int     `json:"correctMatches,omitempty"`
	Awarded        int     `json:"awarded"`
	TimeTaken      float64 `json:"timeTaken"`
	EarnedDoubler  bool    `json:"earnedDoubler,omitempty"`
	Duplicate      bool    `json:"duplicate,omitempty"`
}

type lifelinePayload struct {
	Kind domain.Lifeline `json:"kind"`
}

type lifelineResult struct {
	Kind              domain.Lifeline `json:"kind"`
	Cost              int             `json:"cost,omitempty"`
	EliminatedOptions []int           `json:"eliminatedOptions,omitempty"`
}

// connState is one websocket's session identity plus the per-question
// lifeline latch. Lifeline arming is connection-local: a reconnect forfeits
// an armed doubler, matching how clients treat it as UI state.
type connState struct {
	mu sync.Mutex

	code      string
	playerID  string
	hostToken string

	lifelineUsed  bool
	armedLifeline domain.Lifeline
	questionIndex int
}

func (c *connState) identity() (code, hostToken string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.code, c.hostToken
}

// resetForQuestion drops the latch when the session moves to a new question.
func (c *connState) resetForQuestion(index int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index != c.questionIndex {
		c.questionIndex = index
		c.lifelineUsed = false
		c.armedLifeline = ""
	}
}

// ServeWS upgrades the connection and runs its read loop. One goroutine owns
// all writes; a second pumps store watch updates into the write channel.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warnw("ws upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	ctx, cancelCtx := context.WithCancel(r.Context())
	defer cancelCtx()

	state := &connState{}
	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	var pumpWG sync.WaitGroup

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Debugw("ws write error", "err", err)
				return
			}
		}
	}()

	sendMsg := func(msgType string, payload any) {
		select {
		case send <- outboundMessage[any]{Type: msgType, Payload: payload}:
		case <-closeSignals:
		case <-writerDone:
		}
	}
	sendErr := func(err error) {
		sendMsg("error", errorPayload{Message: err.Error()})
	}

	// subscribe attaches the session and roster pumps once the connection is
	// bound to a quiz (after create or join).
	subscribe := func(code string) error {
		quizUpdates, cancelQuiz, err := h.service.WatchQuiz(ctx, code)
		if err != nil {
			return err
		}
		playerUpdates, cancelPlayers, err := h.service.WatchPlayers(ctx, code)
		if err != nil {
			cancelQuiz()
			return err
		}
		pumpWG.Add(1)
		go func() {
			defer pumpWG.Done()
			defer cancelQuiz()
			defer cancelPlayers()
			var last domain.Quiz
			for {
				select {
				case quiz, ok := <-quizUpdates:
					if !ok {
						return
					}
					last = quiz
					state.resetForQuestion(quiz.CurrentQuestionIndex)
					sendMsg("session", quiz)
				case players, ok := <-playerUpdates:
					if !ok {
						return
					}
					sendMsg("players", players)
					// live answer counter while a question runs
					if last.Config.ShowLiveResponseCount && last.GameState == domain.StateQuestionActive {
						if q, ok := last.CurrentQuestion(); ok {
							count := 0
							for _, p := range players {
								if p.HasAnswered(q.ID) {
									count++
								}
							}
							sendMsg("responseCount", map[string]int{"count": count})
						}
					}
				case <-closeSignals:
					return
				}
			}
		}()
		return nil
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		h.handleMessage(ctx, inbound, state, sendMsg, sendErr, subscribe)
	}

	close(closeSignals)
	pumpWG.Wait()
	close(send)
	<-writerDone
}

func (h *WSHandler) handleMessage(
	ctx context.Context,
	inbound inboundMessage,
	state *connState,
	sendMsg func(string, any),
	sendErr func(error),
	subscribe func(string) error,
) {
	switch inbound.Type {
	case "create":
		var payload createPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			sendErr(domain.ErrInvalidQuestion)
			return
		}
		questions := payload.Questions
		if payload.Generate != nil {
			generated, err := h.service.GenerateQuestions(ctx, payload.Generate.Topic, payload.Generate.Skill, payload.Generate.Count)
			if err != nil {
				sendErr(err)
				return
			}
			questions = append(questions, generated...)
		}
		created, err := h.service.CreateQuiz(ctx, app.CreateParams{
			Title:       payload.Title,
			Questions:   questions,
			QuestionIDs: payload.QuestionIDs,
			Config:      payload.Config,
		})
		if err != nil {
			sendErr(err)
			return
		}
		state.mu.Lock()
		state.code = created.Quiz.ID
		state.hostToken = created.HostToken
		state.mu.Unlock()
		if err := subscribe(created.Quiz.ID); err != nil {
			sendErr(err)
			return
		}
		sendMsg("created", createdPayload{Quiz: created.Quiz, HostToken: created.HostToken})

	case "join":
		var payload joinPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			sendErr(domain.ErrInvalidAnswer)
			return
		}
		player, err := h.service.Join(ctx, payload.Code, payload.Name, payload.Avatar, payload.Clan)
		if err != nil {
			sendErr(err)
			return
		}
		state.mu.Lock()
		state.code = payload.Code
		state.playerID = player.ID
		state.mu.Unlock()
		if err := subscribe(payload.Code); err != nil {
			sendErr(err)
			return
		}
		sendMsg("joined", player)

	case "start":
		code, token := state.identity()
		quiz, err := h.service.Start(ctx, code, token)
		if err != nil {
			sendErr(err)
			return
		}
		// the host connection drives the timed windows for its session
		runner := app.NewHostRunner(h.service, code, token, h.log)
		go func() {
			if err := runner.Run(ctx); err != nil && ctx.Err() == nil {
				h.log.Warnw("host runner stopped", "code", code, "err", err)
			}
		}()
		sendMsg("session", quiz)

	case "answer":
		var payload answerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			sendErr(domain.ErrInvalidAnswer)
			return
		}
		submission, err := toAnswerPayload(payload)
		if err != nil {
			sendErr(err)
			return
		}
		state.mu.Lock()
		code, playerID := state.code, state.playerID
		armed := state.armedLifeline
		state.armedLifeline = ""
		state.mu.Unlock()

		result, err := h.service.SubmitAnswer(ctx, code, playerID, submission, armed)
		if err != nil {
			sendErr(err)
			return
		}
		sendMsg("answerResult", answerResult{
			QuestionID:     result.Answer.QuestionID,
			Correct:        result.Correct,
			CorrectMatches: result.CorrectMatches,
			Awarded:        result.Answer.Score,
			TimeTaken:      result.Answer.TimeTaken,
			EarnedDoubler:  result.EarnedDoubler,
			Duplicate:      result.Duplicate,
		})

	case "lifeline":
		var payload lifelinePayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			sendErr(domain.ErrLifelineUnavailable)
			return
		}
		state.mu.Lock()
		code, playerID := state.code, state.playerID
		used := state.lifelineUsed
		state.mu.Unlock()

		result, err := h.service.UseLifeline(ctx, code, playerID, payload.Kind, used)
		if err != nil {
			sendErr(err)
			return
		}
		state.mu.Lock()
		state.lifelineUsed = true
		state.armedLifeline = result.Kind
		state.mu.Unlock()
		sendMsg("lifelineResult", lifelineResult{
			Kind:              result.Kind,
			Cost:              result.Cost,
			EliminatedOptions: result.EliminatedOptions,
		})

	case "showResult":
		code, token := state.identity()
		quiz, err := h.service.ShowResult(ctx, code, token)
		if err != nil {
			sendErr(err)
			return
		}
		sendMsg("session", quiz)
		if results, err := h.service.QuestionResults(ctx, code); err == nil {
			sendMsg("questionResults", results)
		}

	case "showLeaderboard":
		code, token := state.identity()
		quiz, err := h.service.ShowLeaderboard(ctx, code, token)
		if err != nil {
			sendErr(err)
			return
		}
		sendMsg("session", quiz)
		if view, err := h.service.LeaderboardView(ctx, code); err == nil {
			sendMsg("leaderboard", view)
		}

	case "nextQuestion":
		code, token := state.identity()
		quiz, err := h.service.NextQuestion(ctx, code, token)
		if err != nil {
			sendErr(err)
			return
		}
		sendMsg("session", quiz)

	default:
		sendMsg("error", errorPayload{Message: "unsupported message type"})
	}
}

func toAnswerPayload(p answerPayload) (domain.AnswerPayload, error) {
	switch p.Kind {
	case "option":
		if p.Option == nil {
			return nil, domain.ErrInvalidAnswer
		}
		return domain.OptionAnswer(*p.Option), nil
	case "text":
		if p.Text == nil {
			return nil, domain.ErrInvalidAnswer
		}
		return domain.TextAnswer(*p.Text), nil
	case "matches":
		return domain.MatchAnswer(p.Matches), nil
	}
	return nil, domain.ErrInvalidAnswer
}
