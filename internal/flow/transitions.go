package flow

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/BTreeMap/MicroTutor/internal/models"
	"github.com/BTreeMap/MicroTutor/internal/render"
)

// Event is an input to the session state machine.
type Event interface {
	eventName() string
}

// SubmitInput is free text typed by the learner.
type SubmitInput struct {
	TurnID string
	Text   string
	At     time.Time
}

// TutorReplied delivers the generated lesson for the pending submission.
type TutorReplied struct {
	TurnID  string
	Epoch   int
	Content models.LessonContent
	At      time.Time
}

// SelectModule starts a module from the menu.
type SelectModule struct {
	Module models.Module
	At     time.Time
}

// SelectView switches the active view from the menu.
type SelectView struct {
	View models.ViewMode
	At   time.Time
}

// FollowRedirect opens the simulator at the redirect carried by a tutor turn.
type FollowRedirect struct {
	CardTurnID string
	At         time.Time
}

// UseTaskOption clicks one of a card's task option chips.
type UseTaskOption struct {
	CardTurnID string
	Option     string
	// TurnID is the id given to the resulting user turn.
	TurnID string
	At     time.Time
}

// AnswerQuiz selects an option on a card's quiz widget.
type AnswerQuiz struct {
	CardTurnID string
	Index      int
	At         time.Time
}

// Reset discards the dialogue and starts over from the greeting.
type Reset struct {
	GreetingTurnID string
	Greeting       models.LessonContent
	At             time.Time
}

func (SubmitInput) eventName() string    { return "submit_input" }
func (TutorReplied) eventName() string   { return "tutor_replied" }
func (SelectModule) eventName() string   { return "select_module" }
func (SelectView) eventName() string     { return "select_view" }
func (FollowRedirect) eventName() string { return "follow_redirect" }
func (UseTaskOption) eventName() string  { return "use_task_option" }
func (AnswerQuiz) eventName() string     { return "answer_quiz" }
func (Reset) eventName() string          { return "reset" }

// Result is the outcome of applying one event.
type Result struct {
	State models.SessionState
	// Generate is set when the transition started a tutor generation.
	Generate bool
	// Noop is set when the event was accepted but changed nothing.
	Noop bool
	// Stale is set when a reply from before a reset settled the outstanding
	// generation without adding a turn.
	Stale bool
}

// NewSession builds the initial state: lesson view and the greeting turn.
func NewSession(id, greetingTurnID string, greeting models.LessonContent, at time.Time) models.SessionState {
	s := models.SessionState{ID: id, CreatedAt: at}
	return reset(s, greetingTurnID, greeting, at)
}

// Apply is the session state machine. It never mutates s.
func Apply(s models.SessionState, ev Event) (Result, error) {
	switch e := ev.(type) {
	case SubmitInput:
		return applySubmit(s, e.TurnID, e.Text, e.At)
	case TutorReplied:
		return applyReply(s, e)
	case SelectModule:
		return applySelectModule(s, e)
	case SelectView:
		if !models.IsValidViewMode(e.View) {
			return Result{}, fmt.Errorf("%w: %q", models.ErrInvalidView, e.View)
		}
		next := s.Clone()
		next.View = e.View
		next.UpdatedAt = e.At
		return Result{State: next}, nil
	case FollowRedirect:
		return applyFollowRedirect(s, e)
	case UseTaskOption:
		return applyUseTaskOption(s, e)
	case AnswerQuiz:
		return applyAnswerQuiz(s, e)
	case Reset:
		next := reset(s, e.GreetingTurnID, e.Greeting, e.At)
		next.Epoch = s.Epoch + 1
		// The outstanding call still counts until its reply arrives.
		next.Pending = s.Pending
		return Result{State: next}, nil
	default:
		return Result{}, fmt.Errorf("unknown event %T", ev)
	}
}

func reset(s models.SessionState, greetingTurnID string, greeting models.LessonContent, at time.Time) models.SessionState {
	return models.SessionState{
		ID:        s.ID,
		View:      models.ViewLesson,
		History:   []models.Turn{models.NewTutorTurn(greetingTurnID, greeting, at)},
		Cards:     map[string]models.CardState{greetingTurnID: models.NewCardState()},
		Progress:  map[string]int{},
		Epoch:     s.Epoch,
		CreatedAt: s.CreatedAt,
		UpdatedAt: at,
	}
}

func applySubmit(s models.SessionState, turnID, text string, at time.Time) (Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Result{}, models.ErrEmptyInput
	}
	if s.Pending {
		return Result{}, models.ErrGenerationInFlight
	}

	next := s.Clone()
	if answersLatestQuiz(s, text) {
		next.Cursor.StepIndex++
		if next.Progress == nil {
			next.Progress = map[string]int{}
		}
		next.Progress[next.Cursor.ModuleID] = max(next.Progress[next.Cursor.ModuleID], next.Cursor.StepIndex)
	}
	next.History = AppendTurn(s.History, models.NewUserTurn(turnID, text, at))
	next.Pending = true
	next.UpdatedAt = at
	return Result{State: next, Generate: true}, nil
}

// answersLatestQuiz reports whether text is the correct option of the latest
// tutor quiz in the active module's sequence.
func answersLatestQuiz(s models.SessionState, text string) bool {
	if s.ActiveModuleID == "" || s.Cursor.ModuleID != s.ActiveModuleID {
		return false
	}
	quiz := LatestTutorQuiz(s.History)
	if quiz == nil {
		return false
	}
	return MatchesAnswer(text, quiz.CorrectOption())
}

// MatchesAnswer compares learner text with an option, ignoring case and whitespace runs.
func MatchesAnswer(text, option string) bool {
	if option == "" {
		return false
	}
	return normalizeAnswer(text) == normalizeAnswer(option)
}

func normalizeAnswer(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func applyReply(s models.SessionState, e TutorReplied) (Result, error) {
	if !s.Pending {
		return Result{}, models.ErrStaleReply
	}
	next := s.Clone()
	if e.Epoch != s.Epoch {
		next.Pending = false
		return Result{State: next, Stale: true}, nil
	}
	next.History = AppendTurn(s.History, models.NewTutorTurn(e.TurnID, e.Content, e.At))
	if next.Cards == nil {
		next.Cards = map[string]models.CardState{}
	}
	next.Cards[e.TurnID] = models.NewCardState()
	next.Pending = false
	next.UpdatedAt = e.At
	return Result{State: next}, nil
}

func applySelectModule(s models.SessionState, e SelectModule) (Result, error) {
	if s.Pending {
		return Result{}, models.ErrGenerationInFlight
	}
	next := s.Clone()
	next.ActiveModuleID = e.Module.ID
	next.Cursor = models.Cursor{ModuleID: e.Module.ID}
	next.View = models.ViewLesson
	if next.Progress == nil {
		next.Progress = map[string]int{}
	}
	if _, ok := next.Progress[e.Module.ID]; !ok {
		next.Progress[e.Module.ID] = 0
	}
	next.Pending = true
	next.UpdatedAt = e.At
	return Result{State: next, Generate: true}, nil
}

func tutorTurn(s models.SessionState, turnID string) (models.Turn, error) {
	turn, ok := s.FindTurn(turnID)
	if !ok {
		return models.Turn{}, fmt.Errorf("%w: %s", models.ErrUnknownTurn, turnID)
	}
	if !turn.IsTutor() {
		return models.Turn{}, fmt.Errorf("%w: %s", models.ErrNotTutorTurn, turnID)
	}
	return turn, nil
}

func applyFollowRedirect(s models.SessionState, e FollowRedirect) (Result, error) {
	turn, err := tutorTurn(s, e.CardTurnID)
	if err != nil {
		return Result{}, err
	}
	if turn.Lesson.SimulationRedirect == nil {
		return Result{}, models.ErrNoRedirect
	}
	next := s.Clone()
	redirect := *turn.Lesson.SimulationRedirect
	next.PendingRedirect = &redirect
	next.View = models.ViewSimulatorGA4
	next.UpdatedAt = e.At
	return Result{State: next}, nil
}

func applyUseTaskOption(s models.SessionState, e UseTaskOption) (Result, error) {
	turn, err := tutorTurn(s, e.CardTurnID)
	if err != nil {
		return Result{}, err
	}
	if !render.ChipsVisible(*turn.Lesson, models.CardState{}) {
		return Result{}, models.ErrNoTaskOptions
	}
	option := strings.TrimSpace(e.Option)
	if !slices.Contains(turn.Lesson.TaskOptions, option) {
		return Result{}, fmt.Errorf("%w: %q", models.ErrUnknownTaskOption, option)
	}
	if s.CardState(e.CardTurnID).OptionsUsed {
		return Result{State: s, Noop: true}, nil
	}

	res, err := applySubmit(s, e.TurnID, option, e.At)
	if err != nil {
		return Result{}, err
	}
	card := res.State.CardState(e.CardTurnID)
	card.OptionsUsed = true
	if res.State.Cards == nil {
		res.State.Cards = map[string]models.CardState{}
	}
	res.State.Cards[e.CardTurnID] = card
	return res, nil
}

func applyAnswerQuiz(s models.SessionState, e AnswerQuiz) (Result, error) {
	turn, err := tutorTurn(s, e.CardTurnID)
	if err != nil {
		return Result{}, err
	}
	quiz := turn.Lesson.Quiz
	if quiz == nil {
		return Result{}, models.ErrNoQuiz
	}
	if e.Index < 0 || e.Index >= len(quiz.Options) {
		return Result{}, fmt.Errorf("%w: %d", models.ErrQuizOptionOutOfRange, e.Index)
	}
	card := s.CardState(e.CardTurnID)
	if card.Quiz == models.QuizCorrect {
		return Result{State: s, Noop: true}, nil
	}

	next := s.Clone()
	card.Quiz = render.NextQuizState(card.Quiz, quiz, e.Index)
	card.Selected = e.Index
	if next.Cards == nil {
		next.Cards = map[string]models.CardState{}
	}
	next.Cards[e.CardTurnID] = card
	next.UpdatedAt = e.At
	return Result{State: next}, nil
}
