package flow

import (
	"errors"
	"testing"
	"time"

	"github.com/BTreeMap/MicroTutor/internal/models"
)

var (
	testAt       = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	testGreeting = models.LessonContent{
		MicroLessonText: "Welcome to the GA4 Micro-Tutor!",
		PracticeTask:    "Ready to start?",
		TaskOptions:     []string{"Let's go!", "What is GA4?"},
	}
	testModule = models.Module{ID: "m1", Title: "UA vs GA4", TeachingPlan: "Plan", QuizLength: 5}
)

func mustApply(t *testing.T, s models.SessionState, ev Event) Result {
	t.Helper()
	res, err := Apply(s, ev)
	if err != nil {
		t.Fatalf("Apply(%s) failed: %v", ev.eventName(), err)
	}
	return res
}

func TestNewSession(t *testing.T) {
	s := NewSession("s1", "g", testGreeting, testAt)
	if s.View != models.ViewLesson {
		t.Errorf("expected lesson view, got %s", s.View)
	}
	if len(s.History) != 1 || !s.History[0].IsTutor() || s.History[0].ID != "g" {
		t.Fatalf("expected greeting turn, got %+v", s.History)
	}
	if s.Pending {
		t.Error("new session should not be pending")
	}
}

func TestSubmitRejectsBlankInput(t *testing.T) {
	s := NewSession("s1", "g", testGreeting, testAt)
	_, err := Apply(s, SubmitInput{TurnID: "u1", Text: "  \n", At: testAt})
	if !errors.Is(err, models.ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}
}

func TestSubmitWhilePendingIgnored(t *testing.T) {
	s := NewSession("s1", "g", testGreeting, testAt)
	s = mustApply(t, s, SubmitInput{TurnID: "u1", Text: "hello", At: testAt}).State
	_, err := Apply(s, SubmitInput{TurnID: "u2", Text: "again", At: testAt})
	if !errors.Is(err, models.ErrGenerationInFlight) {
		t.Fatalf("expected ErrGenerationInFlight, got %v", err)
	}
	if len(s.History) != 2 {
		t.Errorf("rejected submission must not append, history=%d", len(s.History))
	}
}

func TestHistoryOrdering(t *testing.T) {
	s := NewSession("s1", "g", testGreeting, testAt)
	res := mustApply(t, s, UseTaskOption{CardTurnID: "g", Option: "Let's go!", TurnID: "u1", At: testAt})
	if !res.Generate {
		t.Fatal("chip use should start a generation")
	}
	s = mustApply(t, res.State, TutorReplied{TurnID: "t1", Epoch: 0, Content: models.LessonContent{MicroLessonText: "Lesson 1"}, At: testAt}).State

	n := len(s.History)
	if s.History[n-2].Sender != models.SenderUser || s.History[n-2].Text != "Let's go!" {
		t.Errorf("expected user turn before reply, got %+v", s.History[n-2])
	}
	if !s.History[n-1].IsTutor() || s.History[n-1].Lesson.MicroLessonText != "Lesson 1" {
		t.Errorf("expected tutor reply last, got %+v", s.History[n-1])
	}
	if s.Pending {
		t.Error("reply should clear pending")
	}
}

func TestChipIdempotence(t *testing.T) {
	s := NewSession("s1", "g", testGreeting, testAt)
	s = mustApply(t, s, UseTaskOption{CardTurnID: "g", Option: "Let's go!", TurnID: "u1", At: testAt}).State
	s = mustApply(t, s, TutorReplied{TurnID: "t1", Content: models.LessonContent{MicroLessonText: "x"}, At: testAt}).State
	before := len(s.History)

	res := mustApply(t, s, UseTaskOption{CardTurnID: "g", Option: "What is GA4?", TurnID: "u2", At: testAt})
	if !res.Noop || res.Generate {
		t.Errorf("second chip use should be a no-op, got %+v", res)
	}
	if len(res.State.History) != before {
		t.Errorf("second chip use appended a turn")
	}
}

func TestChipRejectedWhilePendingStaysAvailable(t *testing.T) {
	s := NewSession("s1", "g", testGreeting, testAt)
	s = mustApply(t, s, SubmitInput{TurnID: "u1", Text: "hi", At: testAt}).State
	_, err := Apply(s, UseTaskOption{CardTurnID: "g", Option: "Let's go!", TurnID: "u2", At: testAt})
	if !errors.Is(err, models.ErrGenerationInFlight) {
		t.Fatalf("expected ErrGenerationInFlight, got %v", err)
	}
	if s.CardState("g").OptionsUsed {
		t.Error("rejected chip must not be marked used")
	}
}

func TestUseTaskOptionValidation(t *testing.T) {
	s := NewSession("s1", "g", testGreeting, testAt)
	s = mustApply(t, s, SubmitInput{TurnID: "u1", Text: "hi", At: testAt}).State
	s = mustApply(t, s, TutorReplied{TurnID: "t1", Content: models.LessonContent{MicroLessonText: "no task"}, At: testAt}).State

	tests := []struct {
		name string
		ev   UseTaskOption
		want error
	}{
		{"unknown turn", UseTaskOption{CardTurnID: "nope", Option: "x"}, models.ErrUnknownTurn},
		{"user turn", UseTaskOption{CardTurnID: "u1", Option: "x"}, models.ErrNotTutorTurn},
		{"no options", UseTaskOption{CardTurnID: "t1", Option: "x"}, models.ErrNoTaskOptions},
		{"option not offered", UseTaskOption{CardTurnID: "g", Option: "Something else"}, models.ErrUnknownTaskOption},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Apply(s, tt.ev); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestStaleReplyDropped(t *testing.T) {
	s := NewSession("s1", "g", testGreeting, testAt)
	s = mustApply(t, s, SubmitInput{TurnID: "u1", Text: "hi", At: testAt}).State
	s = mustApply(t, s, Reset{GreetingTurnID: "g2", Greeting: testGreeting, At: testAt}).State
	if s.Epoch != 1 || !s.Pending || len(s.History) != 1 {
		t.Fatalf("reset should keep the outstanding generation: %+v", s)
	}
	if _, err := Apply(s, SubmitInput{TurnID: "u2", Text: "again", At: testAt}); !errors.Is(err, models.ErrGenerationInFlight) {
		t.Fatalf("expected ErrGenerationInFlight after reset, got %v", err)
	}

	res := mustApply(t, s, TutorReplied{TurnID: "t1", Epoch: 0, Content: models.LessonContent{MicroLessonText: "late"}, At: testAt})
	if !res.Stale || res.State.Pending || len(res.State.History) != 1 {
		t.Fatalf("late reply should settle without a turn: stale=%v %+v", res.Stale, res.State)
	}
	if _, err := Apply(res.State, TutorReplied{TurnID: "t2", Epoch: 0, At: testAt}); !errors.Is(err, models.ErrStaleReply) {
		t.Errorf("reply with nothing pending should be stale, got %v", err)
	}
	mustApply(t, res.State, SubmitInput{TurnID: "u3", Text: "now", At: testAt})
}

func TestSelectModule(t *testing.T) {
	s := NewSession("s1", "g", testGreeting, testAt)
	s = mustApply(t, s, SelectView{View: models.ViewDashboard, At: testAt}).State
	res := mustApply(t, s, SelectModule{Module: testModule, At: testAt})
	if !res.Generate {
		t.Error("module selection should start a generation")
	}
	st := res.State
	if st.View != models.ViewLesson || st.ActiveModuleID != "m1" || st.Cursor != (models.Cursor{ModuleID: "m1"}) {
		t.Errorf("unexpected state %+v", st)
	}
	if len(st.History) != len(s.History) {
		t.Error("module start prompt must not be added to history")
	}
	if _, ok := st.Progress["m1"]; !ok {
		t.Error("module should be marked started")
	}
}

func TestRedirectRoundTrip(t *testing.T) {
	s := NewSession("s1", "g", testGreeting, testAt)
	s = mustApply(t, s, SubmitInput{TurnID: "u1", Text: "show me", At: testAt}).State
	s = mustApply(t, s, TutorReplied{TurnID: "t1", Content: models.LessonContent{
		MicroLessonText:    "Realtime shows the last 30 minutes.",
		PracticeTask:       "How many users are active?",
		TaskOptions:        []string{"I found it"},
		SimulationRedirect: &models.SimulationRedirect{Page: "reports", SubPage: "realtime", Message: "Check the count."},
	}, At: testAt}).State
	turns := len(s.History)

	s = mustApply(t, s, FollowRedirect{CardTurnID: "t1", At: testAt}).State
	if s.View != models.ViewSimulatorGA4 {
		t.Errorf("expected simulator view, got %s", s.View)
	}
	if s.PendingRedirect == nil || s.PendingRedirect.Coordinate() != "reports/realtime" {
		t.Errorf("unexpected pending redirect %+v", s.PendingRedirect)
	}
	if len(s.History) != turns {
		t.Error("redirect must not create a user turn")
	}

	if _, err := Apply(s, FollowRedirect{CardTurnID: "g"}); !errors.Is(err, models.ErrNoRedirect) {
		t.Errorf("expected ErrNoRedirect, got %v", err)
	}
}

func TestRedirectLastWins(t *testing.T) {
	s := NewSession("s1", "g", testGreeting, testAt)
	for i, target := range []models.SimulationRedirect{{Page: "home"}, {Page: "reports", SubPage: "snapshot"}} {
		id := []string{"t1", "t2"}[i]
		s = mustApply(t, s, SubmitInput{TurnID: "u" + id, Text: "go", At: testAt}).State
		r := target
		s = mustApply(t, s, TutorReplied{TurnID: id, Content: models.LessonContent{
			MicroLessonText: "x", PracticeTask: "t", TaskOptions: []string{"Continue"}, SimulationRedirect: &r,
		}, At: testAt}).State
	}
	s = mustApply(t, s, FollowRedirect{CardTurnID: "t1"}).State
	s = mustApply(t, s, FollowRedirect{CardTurnID: "t2"}).State
	if s.PendingRedirect.Coordinate() != "reports/snapshot" {
		t.Errorf("expected last redirect to win, got %s", s.PendingRedirect.Coordinate())
	}
}

func TestAnswerQuizIsLocal(t *testing.T) {
	s := NewSession("s1", "g", testGreeting, testAt)
	s = mustApply(t, s, SubmitInput{TurnID: "u1", Text: "quiz me", At: testAt}).State
	s = mustApply(t, s, TutorReplied{TurnID: "t1", Content: models.LessonContent{
		MicroLessonText: "Quick check.",
		Quiz:            &models.Quiz{Question: "Q?", Options: []string{"A", "B", "C"}, CorrectAnswerIndex: 1},
	}, At: testAt}).State
	turns := len(s.History)

	s = mustApply(t, s, AnswerQuiz{CardTurnID: "t1", Index: 0}).State
	if s.CardState("t1").Quiz != models.QuizIncorrect {
		t.Errorf("expected incorrect, got %s", s.CardState("t1").Quiz)
	}
	s = mustApply(t, s, AnswerQuiz{CardTurnID: "t1", Index: 1}).State
	if s.CardState("t1").Quiz != models.QuizCorrect {
		t.Errorf("expected correct, got %s", s.CardState("t1").Quiz)
	}
	res := mustApply(t, s, AnswerQuiz{CardTurnID: "t1", Index: 2})
	if !res.Noop || res.State.CardState("t1").Quiz != models.QuizCorrect {
		t.Error("correct quiz must be terminal")
	}
	if len(res.State.History) != turns || res.State.Pending {
		t.Error("quiz answers must not touch the dialogue")
	}

	if _, err := Apply(s, AnswerQuiz{CardTurnID: "t1", Index: 3}); !errors.Is(err, models.ErrQuizOptionOutOfRange) {
		t.Errorf("expected ErrQuizOptionOutOfRange, got %v", err)
	}
	if _, err := Apply(s, AnswerQuiz{CardTurnID: "g", Index: 0}); !errors.Is(err, models.ErrNoQuiz) {
		t.Errorf("expected ErrNoQuiz, got %v", err)
	}
}

func TestCursorAdvancesOnlyOnCorrectAnswer(t *testing.T) {
	s := NewSession("s1", "g", testGreeting, testAt)
	s = mustApply(t, s, SelectModule{Module: testModule, At: testAt}).State
	s = mustApply(t, s, TutorReplied{TurnID: "t1", Content: models.LessonContent{
		MicroLessonText: "Question 1.",
		Quiz:            &models.Quiz{Question: "Q1?", Options: []string{"Sessions", "Events"}, CorrectAnswerIndex: 1},
	}, At: testAt}).State

	s = mustApply(t, s, SubmitInput{TurnID: "u1", Text: "sessions", At: testAt}).State
	if s.Cursor.StepIndex != 0 {
		t.Fatalf("wrong answer advanced cursor to %d", s.Cursor.StepIndex)
	}
	s = mustApply(t, s, TutorReplied{TurnID: "t2", Content: models.LessonContent{
		MicroLessonText: "Not quite, try again.",
		Quiz:            &models.Quiz{Question: "Q1?", Options: []string{"Sessions", "Events"}, CorrectAnswerIndex: 1},
	}, At: testAt}).State

	s = mustApply(t, s, SubmitInput{TurnID: "u2", Text: "  EVENTS ", At: testAt}).State
	if s.Cursor.StepIndex != 1 {
		t.Fatalf("correct answer should advance cursor, got %d", s.Cursor.StepIndex)
	}
	if s.Progress["m1"] != 1 {
		t.Errorf("expected progress 1, got %d", s.Progress["m1"])
	}
}

func TestCursorIgnoresQuizOutsideModule(t *testing.T) {
	s := NewSession("s1", "g", testGreeting, testAt)
	s = mustApply(t, s, SubmitInput{TurnID: "u0", Text: "quiz", At: testAt}).State
	s = mustApply(t, s, TutorReplied{TurnID: "t1", Content: models.LessonContent{
		MicroLessonText: "Q",
		Quiz:            &models.Quiz{Question: "Q?", Options: []string{"A", "B"}, CorrectAnswerIndex: 0},
	}, At: testAt}).State
	s = mustApply(t, s, SubmitInput{TurnID: "u1", Text: "A", At: testAt}).State
	if s.Cursor.StepIndex != 0 {
		t.Error("cursor should only move inside an active module")
	}
}

func TestSelectViewValidation(t *testing.T) {
	s := NewSession("s1", "g", testGreeting, testAt)
	if _, err := Apply(s, SelectView{View: "settings"}); !errors.Is(err, models.ErrInvalidView) {
		t.Errorf("expected ErrInvalidView, got %v", err)
	}
	for _, v := range []models.ViewMode{models.ViewSimulatorGA4, models.ViewSimulatorInterview, models.ViewDashboard, models.ViewLesson} {
		if res := mustApply(t, s, SelectView{View: v}); res.State.View != v {
			t.Errorf("expected view %s, got %s", v, res.State.View)
		}
	}
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	s := NewSession("s1", "g", testGreeting, testAt)
	snapshot := s.Clone()
	mustApply(t, s, UseTaskOption{CardTurnID: "g", Option: "Let's go!", TurnID: "u1", At: testAt})
	if len(s.History) != len(snapshot.History) || s.CardState("g").OptionsUsed || s.Pending {
		t.Error("Apply mutated its input state")
	}
}
