package curriculum

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/BTreeMap/MicroTutor/internal/models"
)

func TestDefaultCatalog(t *testing.T) {
	c := Default()
	mods := c.List()
	if len(mods) != 5 {
		t.Fatalf("expected 5 modules, got %d", len(mods))
	}
	wantIDs := []string{"m1", "m2", "m3", "m4", "m5"}
	for i, id := range wantIDs {
		if mods[i].ID != id {
			t.Errorf("module %d: expected %s, got %s", i, id, mods[i].ID)
		}
		if mods[i].TeachingPlan == "" {
			t.Errorf("module %s has no teaching plan", id)
		}
	}
	m1, err := c.Get("m1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m1.QuizLength != 5 {
		t.Errorf("expected m1 quiz length 5, got %d", m1.QuizLength)
	}
	m3, _ := c.Get("m3")
	if !strings.Contains(m3.TeachingPlan, `"subPage": "realtime"`) {
		t.Error("m3 plan should reference the realtime report")
	}
	if len(c.Greeting.TaskOptions) != 2 || c.Greeting.TaskOptions[0] != "Let's go!" {
		t.Errorf("unexpected greeting options: %v", c.Greeting.TaskOptions)
	}
}

func TestGetUnknownModule(t *testing.T) {
	_, err := Default().Get("m9")
	if !errors.Is(err, models.ErrUnknownModule) {
		t.Fatalf("expected ErrUnknownModule, got %v", err)
	}
}

func TestListReturnsCopy(t *testing.T) {
	c := Default()
	mods := c.List()
	mods[0].Title = "changed"
	if got, _ := c.Get("m1"); got.Title == "changed" {
		t.Error("List exposed internal slice")
	}
}

func TestParseValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"no modules", "greeting:\n  microLessonText: hi\nmodules: []\n"},
		{"no greeting text", "modules:\n  - id: a\n    title: A\n"},
		{"duplicate ids", "greeting:\n  microLessonText: hi\nmodules:\n  - id: a\n    title: A\n  - id: a\n    title: B\n"},
		{"missing title", "greeting:\n  microLessonText: hi\nmodules:\n  - id: a\n"},
		{"bad yaml", "modules: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.yaml)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "modules.yaml")
	data := "greeting:\n  microLessonText: Hello\nmodules:\n  - id: x1\n    title: Custom\n    teachingPlanText: Plan X\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m, err := c.Get("x1")
	if err != nil || m.TeachingPlan != "Plan X" {
		t.Errorf("unexpected module %+v (%v)", m, err)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
	if c, err := Load(""); err != nil || len(c.List()) != 5 {
		t.Errorf("empty path should load built-in catalog, got %v", err)
	}
}
