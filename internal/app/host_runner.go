package app

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"quizarena-service/internal/domain"
	"quizarena-service/internal/game"
)

// HostRunner schedules the fixed-window automatic transitions on behalf of
// the host's client. Exactly one runner per session should be live; it stops
// with the host's context, and a disconnected host leaves the session stalled
// in whatever state it was in.
type HostRunner struct {
	service   *QuizService
	code      string
	hostToken string
	log       *zap.SugaredLogger

	// timers are shortened in tests
	scale float64
}

func NewHostRunner(service *QuizService, code, hostToken string, log *zap.SugaredLogger) *HostRunner {
	return &HostRunner{service: service, code: code, hostToken: hostToken, log: log, scale: 1}
}

// WithTimerScale is test-only: multiplies every window by scale.
func (r *HostRunner) WithTimerScale(scale float64) *HostRunner {
	r.scale = scale
	return r
}

// Run watches the session and, whenever it sits in a timed state, arms the
// state's window and advances when it fires. Returns when the context ends
// or the session reaches FINISHED.
func (r *HostRunner) Run(ctx context.Context) error {
	updates, cancel, err := r.service.WatchQuiz(ctx, r.code)
	if err != nil {
		return err
	}
	defer cancel()

	timer := time.NewTimer(time.Hour)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	var armedFor domain.GameState

	arm := func(state domain.GameState) {
		window, ok := game.AutoWindow(state)
		if !ok {
			armedFor = ""
			return
		}
		if armedFor == state {
			return // already counting down for this window
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(time.Duration(float64(window) * r.scale))
		armedFor = state
	}

	quiz, err := r.service.Quiz(ctx, r.code)
	if err != nil {
		return err
	}
	arm(quiz.GameState)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case quiz, ok := <-updates:
			if !ok {
				return nil
			}
			if quiz.GameState == domain.StateFinished {
				return nil
			}
			arm(quiz.GameState)
		case <-timer.C:
			state := armedFor
			armedFor = ""
			if _, err := r.service.AutoAdvance(ctx, r.code, r.hostToken); err != nil {
				// A host action may have raced the timer past this state;
				// that's fine, keep watching.
				if errors.Is(err, domain.ErrBadTransition) {
					continue
				}
				return err
			}
			r.log.Debugw("auto transition fired", "code", r.code, "from", state)
		}
	}
}
