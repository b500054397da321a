package tutor

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/BTreeMap/MicroTutor/internal/genai"
	"github.com/BTreeMap/MicroTutor/internal/models"
)

// fakeCollaborator records calls and returns a canned reply.
type fakeCollaborator struct {
	reply    string
	err      error
	calls    int
	messages []genai.Message
}

func (f *fakeCollaborator) GenerateStructured(ctx context.Context, messages []genai.Message, schema *genai.ResponseSchema) (string, error) {
	f.calls++
	f.messages = messages
	return f.reply, f.err
}

type fakeRecorder struct {
	receipts []models.GenerationReceipt
}

func (f *fakeRecorder) AddGenerationReceipt(ctx context.Context, r models.GenerationReceipt) error {
	f.receipts = append(f.receipts, r)
	return nil
}

var m1 = models.Module{ID: "m1", Title: "UA vs GA4: The Shift", TeachingPlan: "Step 1: intro.", QuizLength: 5}

func TestGenerate_Success(t *testing.T) {
	collab := &fakeCollaborator{reply: `{"microLessonText":"GA4 counts events.","practiceTask":"Pick one","taskOptions":["Page view"," "]}`}
	g := NewGenerator(collab)
	content, err := g.Generate(context.Background(), Request{Input: "What is GA4?"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if content.MicroLessonText != "GA4 counts events." {
		t.Errorf("unexpected text %q", content.MicroLessonText)
	}
	if len(content.TaskOptions) != 1 {
		t.Errorf("expected blank option dropped, got %v", content.TaskOptions)
	}
	if collab.calls != 1 {
		t.Errorf("expected exactly one call, got %d", collab.calls)
	}
}

func TestGenerate_Failures(t *testing.T) {
	tests := []struct {
		name   string
		collab *fakeCollaborator
		stage  string
	}{
		{"transport", &fakeCollaborator{err: errors.New("network down")}, StageTransport},
		{"empty", &fakeCollaborator{reply: "  "}, StageEmpty},
		{"not json", &fakeCollaborator{reply: "Hello there"}, StageParse},
		{"missing text", &fakeCollaborator{reply: `{"practiceTask":"x"}`}, StageParse},
		{"wrong type", &fakeCollaborator{reply: `{"microLessonText":42}`}, StageParse},
		{"options not array", &fakeCollaborator{reply: `{"microLessonText":"x","taskOptions":"Continue"}`}, StageParse},
		{"empty text", &fakeCollaborator{reply: `{"microLessonText":""}`}, StageValidate},
		{"redirect without task", &fakeCollaborator{reply: `{"microLessonText":"x","simulationRedirect":{"page":"home","message":"go"}}`}, StageValidate},
		{"quiz without answer index", &fakeCollaborator{reply: `{"microLessonText":"x","quiz":{"question":"Q?","options":["A","B","C"]}}`}, StageParse},
		{"quiz without question", &fakeCollaborator{reply: `{"microLessonText":"x","quiz":{"options":["A","B"],"correctAnswerIndex":1}}`}, StageParse},
		{"quiz index as string", &fakeCollaborator{reply: `{"microLessonText":"x","quiz":{"question":"Q?","options":["A","B"],"correctAnswerIndex":"1"}}`}, StageParse},
		{"quiz blank correct option", &fakeCollaborator{reply: `{"microLessonText":"x","quiz":{"question":"Q?","options":["A","  ","C"],"correctAnswerIndex":1}}`}, StageValidate},
		{"redirect without message", &fakeCollaborator{reply: `{"microLessonText":"x","practiceTask":"t","taskOptions":["ok"],"simulationRedirect":{"page":"home"}}`}, StageParse},
		{"comparison without labels", &fakeCollaborator{reply: `{"microLessonText":"x","comparison":{"title":"T","rows":[{"feature":"f","leftValue":"a","rightValue":"b"}]}}`}, StageParse},
		{"comparison row without values", &fakeCollaborator{reply: `{"microLessonText":"x","comparison":{"title":"T","leftLabel":"UA","rightLabel":"GA4","rows":[{"feature":"f"}]}}`}, StageParse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGenerator(tt.collab)
			_, err := g.Generate(context.Background(), Request{Input: "hi"})
			var genErr *GenerationError
			if !errors.As(err, &genErr) {
				t.Fatalf("expected GenerationError, got %v", err)
			}
			if genErr.Stage != tt.stage {
				t.Errorf("expected stage %s, got %s", tt.stage, genErr.Stage)
			}
			if tt.collab.calls != 1 {
				t.Errorf("expected one call without retries, got %d", tt.collab.calls)
			}
		})
	}
}

func TestGenerate_CompleteNestedObjectsAccepted(t *testing.T) {
	reply := `{"microLessonText":"x",
		"comparison":{"title":"T","leftLabel":"UA","rightLabel":"GA4","rows":[{"feature":"Model","leftValue":"Sessions","rightValue":"Events"}]},
		"quiz":{"question":"Q?","options":["A","","C"],"correctAnswerIndex":2},
		"practiceTask":"t","taskOptions":["ok"],
		"simulationRedirect":{"page":"reports","subPage":"realtime","message":"Look"}}`
	content, err := NewGenerator(&fakeCollaborator{reply: reply}).Generate(context.Background(), Request{Input: "hi"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := content.Quiz.CorrectOption(); got != "C" {
		t.Errorf("expected correct option C after dropping the blank, got %q", got)
	}
	if content.SimulationRedirect.Message != "Look" || content.Comparison.Rows[0].RightValue != "Events" {
		t.Errorf("nested fields lost: %+v", content)
	}
}

func TestGenerate_RedirectRejectedWrapsSentinel(t *testing.T) {
	g := NewGenerator(&fakeCollaborator{reply: `{"microLessonText":"x","practiceTask":"t","simulationRedirect":{"page":"home","message":"go"}}`})
	_, err := g.Generate(context.Background(), Request{Input: "hi"})
	if !errors.Is(err, models.ErrRedirectWithoutTask) {
		t.Fatalf("expected ErrRedirectWithoutTask, got %v", err)
	}
}

func TestGenerate_CodeFenceStripped(t *testing.T) {
	g := NewGenerator(&fakeCollaborator{reply: "```json\n{\"microLessonText\":\"fenced\"}\n```"})
	content, err := g.Generate(context.Background(), Request{Input: "hi"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if content.MicroLessonText != "fenced" {
		t.Errorf("unexpected text %q", content.MicroLessonText)
	}
}

func TestGenerate_EmptyInputWithoutModule(t *testing.T) {
	collab := &fakeCollaborator{reply: `{"microLessonText":"x"}`}
	_, err := NewGenerator(collab).Generate(context.Background(), Request{Input: " "})
	if !errors.Is(err, models.ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}
	if collab.calls != 0 {
		t.Errorf("expected no call, got %d", collab.calls)
	}
}

func TestGenerate_ModuleStart(t *testing.T) {
	collab := &fakeCollaborator{reply: `{"microLessonText":"Welcome to module 1.","quiz":{"question":"Q?","options":["A","B"],"correctAnswerIndex":0}}`}
	mod := m1
	content, err := NewGenerator(collab).Generate(context.Background(), Request{Module: &mod, Cursor: models.Cursor{ModuleID: "m1"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if content.Quiz != nil {
		t.Error("opening turn of a module must not carry a quiz")
	}
	if !strings.HasSuffix(collab.messages[0].Content, "CURRENT MODULE FOCUS:\nStep 1: intro.") {
		t.Errorf("system prompt missing module focus: %q", collab.messages[0].Content)
	}
	last := collab.messages[len(collab.messages)-1]
	want := "Start teaching UA vs GA4: The Shift. Follow the plan: Step 1: intro."
	if last.Role != genai.RoleUser || last.Content != want {
		t.Errorf("expected start prompt %q, got %+v", want, last)
	}
}

func TestRespond_FallbackOnFailure(t *testing.T) {
	rec := &fakeRecorder{}
	g := NewGenerator(&fakeCollaborator{err: errors.New("timeout")}, WithReceiptRecorder(rec))
	content := g.Respond(context.Background(), Request{SessionID: "s1", Input: "hi"})
	if content.MicroLessonText != FallbackContent().MicroLessonText {
		t.Errorf("expected fallback text, got %q", content.MicroLessonText)
	}
	if content.PracticeTask == "" {
		t.Error("fallback should suggest a recovery task")
	}
	if len(rec.receipts) != 1 || rec.receipts[0].Status != models.GenerationFallback || rec.receipts[0].Stage != StageTransport {
		t.Errorf("unexpected receipts: %+v", rec.receipts)
	}
}

func TestRespond_ReceiptOnSuccess(t *testing.T) {
	rec := &fakeRecorder{}
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	g := NewGenerator(&fakeCollaborator{reply: `{"microLessonText":"ok"}`}, WithReceiptRecorder(rec), WithClock(func() time.Time { return clock }))
	mod := m1
	g.Respond(context.Background(), Request{SessionID: "s1", Input: "hi", Module: &mod})
	if len(rec.receipts) != 1 {
		t.Fatalf("expected one receipt, got %d", len(rec.receipts))
	}
	r := rec.receipts[0]
	if r.Status != models.GenerationOK || r.ModuleID != "m1" || r.SessionID != "s1" || !r.Time.Equal(clock) {
		t.Errorf("unexpected receipt: %+v", r)
	}
}

func TestBuildMessages_HistorySerialization(t *testing.T) {
	at := time.Now()
	history := []models.Turn{
		models.NewTutorTurn("t0", models.LessonContent{MicroLessonText: "Welcome"}, at),
		models.NewUserTurn("u1", "Let's go!", at),
		models.NewTutorTurn("t1", models.LessonContent{MicroLessonText: "Events"}, at),
	}
	msgs, err := BuildMessages(Request{History: history, Input: "Next"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msgs) != 5 {
		t.Fatalf("expected 5 messages, got %d", len(msgs))
	}
	wantRoles := []genai.Role{genai.RoleSystem, genai.RoleAssistant, genai.RoleUser, genai.RoleAssistant, genai.RoleUser}
	for i, role := range wantRoles {
		if msgs[i].Role != role {
			t.Errorf("message %d: expected role %s, got %s", i, role, msgs[i].Role)
		}
	}
	var lesson models.LessonContent
	if err := json.Unmarshal([]byte(msgs[3].Content), &lesson); err != nil || lesson.MicroLessonText != "Events" {
		t.Errorf("tutor turn not sent as JSON: %q", msgs[3].Content)
	}
	if msgs[4].Content != "Next" {
		t.Errorf("expected current input last, got %q", msgs[4].Content)
	}
}

func TestCursorContext(t *testing.T) {
	mod := m1
	if got := CursorContext(nil, models.Cursor{}, false); got != "" {
		t.Errorf("expected empty context without module, got %q", got)
	}
	got := CursorContext(&mod, models.Cursor{ModuleID: "m1", StepIndex: 2}, true)
	if !strings.Contains(got, "2 answered correctly") || !strings.Contains(got, "ask question 3") {
		t.Errorf("unexpected context %q", got)
	}
	done := CursorContext(&mod, models.Cursor{ModuleID: "m1", StepIndex: 5}, true)
	if !strings.Contains(done, "All questions") {
		t.Errorf("expected completion context, got %q", done)
	}
	noQuiz := models.Module{ID: "m2", TeachingPlan: "plan"}
	if got := CursorContext(&noQuiz, models.Cursor{ModuleID: "m2"}, false); got != "" {
		t.Errorf("expected no context for module without quiz, got %q", got)
	}
}
