// Package flow drives one learner session: the dialogue history, the view
// state, and the hand-off to the tutor generator.
//
// All state changes go through Apply, a pure function of (state, event). The
// Engine adds locking around it and runs generations outside the lock.
package flow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/BTreeMap/MicroTutor/internal/models"
	"github.com/BTreeMap/MicroTutor/internal/tutor"
	"github.com/BTreeMap/MicroTutor/internal/util"
)

// Responder produces a tutor lesson for a request. It must not fail.
type Responder interface {
	Respond(ctx context.Context, req tutor.Request) models.LessonContent
}

// Curriculum provides the modules and the greeting.
type Curriculum interface {
	Get(id string) (models.Module, error)
	List() []models.Module
	Welcome() models.LessonContent
}

// Engine owns the state of one session.
type Engine struct {
	mu         sync.Mutex
	state      models.SessionState
	responder  Responder
	curriculum Curriculum
	now        func() time.Time
	newID      func() string
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithClock overrides the time source.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator overrides how turn ids are created.
func WithIDGenerator(newID func() string) EngineOption {
	return func(e *Engine) { e.newID = newID }
}

// NewEngine creates a session seeded with the greeting turn.
func NewEngine(sessionID string, responder Responder, curriculum Curriculum, opts ...EngineOption) *Engine {
	e := &Engine{
		responder:  responder,
		curriculum: curriculum,
		now:        time.Now,
		newID:      util.NewTurnID,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.state = NewSession(sessionID, e.newID(), curriculum.Welcome(), e.now())
	slog.Debug("Engine.NewEngine: session created", "sessionID", sessionID)
	return e
}

// ID returns the session id.
func (e *Engine) ID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.ID
}

// State returns a snapshot of the session.
func (e *Engine) State() models.SessionState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone()
}

// apply runs one event under the lock and returns the previous and new state.
func (e *Engine) apply(ev Event) (prev models.SessionState, res Result, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	prev = e.state
	res, err = Apply(e.state, ev)
	if err != nil {
		return prev, res, err
	}
	e.state = res.State
	return prev, res, nil
}

// Submit appends learner text and waits for the tutor reply. A submission
// while another generation is pending is rejected with ErrGenerationInFlight.
func (e *Engine) Submit(ctx context.Context, text string) (models.Turn, error) {
	prev, res, err := e.apply(SubmitInput{TurnID: e.newID(), Text: text, At: e.now()})
	if err != nil {
		e.logRejected("Engine.Submit", prev.ID, err)
		return models.Turn{}, err
	}
	slog.Info("Engine.Submit: user turn appended", "sessionID", prev.ID, "turns", len(res.State.History))
	return e.generate(ctx, prev, res.State, text)
}

// SelectModule makes the module active and generates its opening lesson.
func (e *Engine) SelectModule(ctx context.Context, moduleID string) (models.Turn, error) {
	module, err := e.curriculum.Get(moduleID)
	if err != nil {
		return models.Turn{}, err
	}
	prev, res, err := e.apply(SelectModule{Module: module, At: e.now()})
	if err != nil {
		e.logRejected("Engine.SelectModule", prev.ID, err)
		return models.Turn{}, err
	}
	slog.Info("Engine.SelectModule: module started", "sessionID", prev.ID, "moduleID", moduleID)
	return e.generate(ctx, prev, res.State, "")
}

// UseTaskOption forwards a chip as a learner turn. The second use of a card's
// chips is a no-op and returns (nil, nil).
func (e *Engine) UseTaskOption(ctx context.Context, cardTurnID, option string) (*models.Turn, error) {
	prev, res, err := e.apply(UseTaskOption{CardTurnID: cardTurnID, Option: option, TurnID: e.newID(), At: e.now()})
	if err != nil {
		e.logRejected("Engine.UseTaskOption", prev.ID, err)
		return nil, err
	}
	if res.Noop {
		slog.Debug("Engine.UseTaskOption: chips already used", "sessionID", prev.ID, "turnID", cardTurnID)
		return nil, nil
	}
	slog.Info("Engine.UseTaskOption: option forwarded", "sessionID", prev.ID, "turnID", cardTurnID, "option", option)
	reply, err := e.generate(ctx, prev, res.State, option)
	if err != nil {
		return nil, err
	}
	return &reply, nil
}

// AnswerQuiz records a quiz selection. It is local to the card and adds nothing to the dialogue.
func (e *Engine) AnswerQuiz(cardTurnID string, index int) (models.CardState, error) {
	prev, res, err := e.apply(AnswerQuiz{CardTurnID: cardTurnID, Index: index, At: e.now()})
	if err != nil {
		e.logRejected("Engine.AnswerQuiz", prev.ID, err)
		return models.CardState{}, err
	}
	cs := res.State.CardState(cardTurnID)
	slog.Debug("Engine.AnswerQuiz: quiz answered", "sessionID", prev.ID, "turnID", cardTurnID, "state", cs.Quiz)
	return cs, nil
}

// SelectView switches the active view.
func (e *Engine) SelectView(view models.ViewMode) (models.SessionState, error) {
	prev, res, err := e.apply(SelectView{View: view, At: e.now()})
	if err != nil {
		e.logRejected("Engine.SelectView", prev.ID, err)
		return models.SessionState{}, err
	}
	slog.Info("Engine.SelectView: view changed", "sessionID", prev.ID, "from", prev.View, "to", view)
	return res.State.Clone(), nil
}

// FollowRedirect opens the simulator at the coordinate carried by a tutor card.
func (e *Engine) FollowRedirect(cardTurnID string) (models.SessionState, error) {
	prev, res, err := e.apply(FollowRedirect{CardTurnID: cardTurnID, At: e.now()})
	if err != nil {
		e.logRejected("Engine.FollowRedirect", prev.ID, err)
		return models.SessionState{}, err
	}
	slog.Info("Engine.FollowRedirect: simulator opened", "sessionID", prev.ID, "turnID", cardTurnID,
		"coordinate", res.State.PendingRedirect.Coordinate())
	return res.State.Clone(), nil
}

// Reset discards the dialogue. A reply still in flight for the old history is
// dropped, and the session stays pending until it arrives.
func (e *Engine) Reset() models.SessionState {
	prev, res, _ := e.apply(Reset{GreetingTurnID: e.newID(), Greeting: e.curriculum.Welcome(), At: e.now()})
	slog.Info("Engine.Reset: session reset", "sessionID", prev.ID, "epoch", res.State.Epoch)
	return res.State.Clone()
}

// generate calls the responder without holding the lock, then appends the reply.
func (e *Engine) generate(ctx context.Context, prev, cur models.SessionState, input string) (models.Turn, error) {
	req := tutor.Request{
		SessionID: cur.ID,
		History:   prev.History,
		Input:     input,
		Cursor:    cur.Cursor,
		LastAnswerCorrect: cur.Cursor.ModuleID == prev.Cursor.ModuleID &&
			cur.Cursor.StepIndex > prev.Cursor.StepIndex,
	}
	if cur.ActiveModuleID != "" {
		if m, err := e.curriculum.Get(cur.ActiveModuleID); err == nil {
			req.Module = &m
		} else {
			slog.Warn("Engine.generate: active module missing from curriculum", "sessionID", cur.ID, "moduleID", cur.ActiveModuleID, "error", err)
		}
	}

	content := e.responder.Respond(ctx, req)

	replyID := e.newID()
	_, res, err := e.apply(TutorReplied{TurnID: replyID, Epoch: cur.Epoch, Content: content, At: e.now()})
	if err != nil {
		return models.Turn{}, err
	}
	if res.Stale {
		slog.Warn("Engine.generate: dropping reply for reset session", "sessionID", cur.ID, "epoch", cur.Epoch)
		return models.Turn{}, models.ErrStaleReply
	}
	turn, _ := res.State.FindTurn(replyID)
	slog.Info("Engine.generate: tutor turn appended", "sessionID", cur.ID, "turnID", replyID, "turns", len(res.State.History))
	return turn, nil
}

func (e *Engine) logRejected(where, sessionID string, err error) {
	if errors.Is(err, models.ErrGenerationInFlight) {
		slog.Warn(where+": submission ignored while generating", "sessionID", sessionID)
		return
	}
	slog.Debug(where+": event rejected", "sessionID", sessionID, "error", err)
}
