package models

import (
	"maps"
	"time"
)

// ViewMode is the screen the learner is currently looking at.
type ViewMode string

const (
	// ViewLesson is the dialogue view with lesson cards.
	ViewLesson ViewMode = "lesson"
	// ViewSimulatorGA4 is the mock analytics dashboard.
	ViewSimulatorGA4 ViewMode = "simulator-ga4"
	// ViewSimulatorInterview is the interview practice guide.
	ViewSimulatorInterview ViewMode = "simulator-interview"
	// ViewDashboard is the learning path overview.
	ViewDashboard ViewMode = "dashboard"
)

// IsValidViewMode reports whether v is one of the known views.
func IsValidViewMode(v ViewMode) bool {
	switch v {
	case ViewLesson, ViewSimulatorGA4, ViewSimulatorInterview, ViewDashboard:
		return true
	}
	return false
}

// Module is one immutable entry of the curriculum.
type Module struct {
	ID           string `json:"id" yaml:"id"`
	Title        string `json:"title" yaml:"title"`
	Description  string `json:"description" yaml:"description"`
	TeachingPlan string `json:"teachingPlanText" yaml:"teachingPlanText"`
	// QuizLength is the number of questions in the module's fixed quiz sequence, 0 when it has none.
	QuizLength int `json:"quizLength,omitempty" yaml:"quizLength,omitempty"`
}

// Cursor tracks progress through a module's quiz sequence.
type Cursor struct {
	ModuleID  string `json:"moduleId,omitempty"`
	StepIndex int    `json:"stepIndex"`
}

// QuizState is the local state of a quiz widget.
type QuizState string

const (
	QuizUnanswered QuizState = "unanswered"
	QuizCorrect    QuizState = "correct"
	QuizIncorrect  QuizState = "incorrect"
)

// CardState is the per-card interaction state kept outside the immutable history.
type CardState struct {
	OptionsUsed bool      `json:"optionsUsed"`
	Quiz        QuizState `json:"quiz,omitempty"`
	// Selected is the last quiz option picked, -1 when none.
	Selected int `json:"selected"`
}

// NewCardState returns the state of a card nobody has touched yet.
func NewCardState() CardState {
	return CardState{Quiz: QuizUnanswered, Selected: -1}
}

// SessionState is the complete, serializable state of one learner session.
type SessionState struct {
	ID              string               `json:"id"`
	View            ViewMode             `json:"view"`
	ActiveModuleID  string               `json:"activeModuleId,omitempty"`
	PendingRedirect *SimulationRedirect  `json:"pendingRedirect,omitempty"`
	History         []Turn               `json:"history"`
	Cursor          Cursor               `json:"cursor"`
	Cards           map[string]CardState `json:"cards,omitempty"`
	// Progress records the furthest quiz step reached per module.
	Progress map[string]int `json:"progress,omitempty"`
	// Pending is true while a tutor response is being generated.
	Pending bool `json:"pending"`
	// Epoch increments on reset so replies to an abandoned history are dropped.
	Epoch     int       `json:"epoch"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Clone returns a copy that shares no mutable containers with s. Turns are
// immutable so the history slice only needs a fresh backing array.
func (s SessionState) Clone() SessionState {
	out := s
	out.History = append([]Turn(nil), s.History...)
	out.Cards = maps.Clone(s.Cards)
	out.Progress = maps.Clone(s.Progress)
	if s.PendingRedirect != nil {
		r := *s.PendingRedirect
		out.PendingRedirect = &r
	}
	return out
}

// CardState returns the interaction state of the given turn's card.
func (s SessionState) CardState(turnID string) CardState {
	if cs, ok := s.Cards[turnID]; ok {
		return cs
	}
	return NewCardState()
}

// FindTurn returns the turn with the given ID.
func (s SessionState) FindTurn(turnID string) (Turn, bool) {
	for _, t := range s.History {
		if t.ID == turnID {
			return t, true
		}
	}
	return Turn{}, false
}

// LastTutorTurn returns the most recent tutor turn.
func (s SessionState) LastTutorTurn() (Turn, bool) {
	for i := len(s.History) - 1; i >= 0; i-- {
		if s.History[i].IsTutor() {
			return s.History[i], true
		}
	}
	return Turn{}, false
}
