package flow

import (
	"errors"
	"log/slog"

	"github.com/BTreeMap/MicroTutor/internal/models"
	"github.com/BTreeMap/MicroTutor/internal/simulator"
)

// DefaultSimulatorPage is shown when the simulator is opened without a redirect.
const DefaultSimulatorPage = "home"

// ScreenResolver looks up simulator screens by coordinate.
type ScreenResolver interface {
	Resolve(page, subPage string) (simulator.Screen, error)
}

// SimulatorView is what the simulator shows when entered.
type SimulatorView struct {
	Screen simulator.Screen `json:"screen"`
	// Redirect is the pending redirect that selected the screen, if any.
	Redirect *models.SimulationRedirect `json:"redirect,omitempty"`
	// Malformed is set when the redirect named an unknown coordinate.
	Malformed bool `json:"malformed,omitempty"`
}

// SimulatorFor resolves the screen for the session's pending redirect, falling
// back to the home page. It never fails: unknown coordinates get the placeholder.
func SimulatorFor(s models.SessionState, screens ScreenResolver) SimulatorView {
	page, sub := DefaultSimulatorPage, ""
	if r := s.PendingRedirect; r != nil {
		page, sub = r.Page, r.SubPage
	}
	screen, err := screens.Resolve(page, sub)
	view := SimulatorView{Screen: screen}
	if s.PendingRedirect != nil {
		r := *s.PendingRedirect
		view.Redirect = &r
	}
	var malformed *simulator.MalformedRedirect
	if errors.As(err, &malformed) {
		slog.Warn("Flow.SimulatorFor: malformed redirect", "sessionID", s.ID, "page", page, "subPage", sub)
		view.Malformed = true
	}
	return view
}

// ModuleProgress is one row of the learning path dashboard.
type ModuleProgress struct {
	Module     models.Module `json:"module"`
	Started    bool          `json:"started"`
	Active     bool          `json:"active"`
	Step       int           `json:"step"`
	QuizLength int           `json:"quizLength,omitempty"`
	Complete   bool          `json:"complete"`
}

// Dashboard summarizes progress across the curriculum in module order.
func Dashboard(s models.SessionState, modules []models.Module) []ModuleProgress {
	out := make([]ModuleProgress, 0, len(modules))
	for _, m := range modules {
		step, started := s.Progress[m.ID]
		out = append(out, ModuleProgress{
			Module:     m,
			Started:    started,
			Active:     s.ActiveModuleID == m.ID,
			Step:       step,
			QuizLength: m.QuizLength,
			Complete:   m.QuizLength > 0 && step >= m.QuizLength,
		})
	}
	return out
}
