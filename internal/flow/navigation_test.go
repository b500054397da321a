package flow

import (
	"testing"

	"github.com/BTreeMap/MicroTutor/internal/models"
	"github.com/BTreeMap/MicroTutor/internal/simulator"
)

func TestSimulatorForDefaultsToHome(t *testing.T) {
	s := NewSession("s1", "g", testGreeting, testAt)
	view := SimulatorFor(s, simulator.Load())
	if view.Screen.Page != "home" || view.Redirect != nil || view.Malformed {
		t.Errorf("unexpected view %+v", view)
	}
}

func TestSimulatorForRedirects(t *testing.T) {
	tests := []struct {
		name          string
		redirect      models.SimulationRedirect
		wantTitle     string
		wantPlacehold bool
		wantMalformed bool
	}{
		{"realtime", models.SimulationRedirect{Page: "reports", SubPage: "realtime"}, "Realtime overview", false, false},
		{"reports default", models.SimulationRedirect{Page: "reports"}, "Reports snapshot", false, false},
		{"mixed case", models.SimulationRedirect{Page: " Reports ", SubPage: "REALTIME"}, "Realtime overview", false, false},
		{"unknown", models.SimulationRedirect{Page: "billing", SubPage: "invoices"}, "", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSession("s1", "g", testGreeting, testAt)
			r := tt.redirect
			s.PendingRedirect = &r
			view := SimulatorFor(s, simulator.Load())
			if tt.wantTitle != "" && view.Screen.Title != tt.wantTitle {
				t.Errorf("expected %q, got %q", tt.wantTitle, view.Screen.Title)
			}
			if view.Screen.Placeholder != tt.wantPlacehold {
				t.Errorf("expected placeholder=%v, got %v", tt.wantPlacehold, view.Screen.Placeholder)
			}
			if view.Malformed != tt.wantMalformed {
				t.Errorf("expected malformed=%v, got %v", tt.wantMalformed, view.Malformed)
			}
			if view.Redirect == nil {
				t.Error("view should carry the pending redirect")
			}
		})
	}
}

func TestDashboard(t *testing.T) {
	modules := []models.Module{
		{ID: "m1", Title: "One", QuizLength: 2},
		{ID: "m2", Title: "Two"},
		{ID: "m3", Title: "Three"},
	}
	s := NewSession("s1", "g", testGreeting, testAt)
	s.ActiveModuleID = "m2"
	s.Progress = map[string]int{"m1": 2, "m2": 0}

	rows := Dashboard(s, modules)
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if !rows[0].Started || !rows[0].Complete || rows[0].Active {
		t.Errorf("unexpected m1 row %+v", rows[0])
	}
	if !rows[1].Started || rows[1].Complete || !rows[1].Active {
		t.Errorf("unexpected m2 row %+v", rows[1])
	}
	if rows[2].Started {
		t.Errorf("m3 should not be started")
	}
	for i, m := range modules {
		if rows[i].Module.ID != m.ID {
			t.Errorf("row %d out of curriculum order", i)
		}
	}
}
