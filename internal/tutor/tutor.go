// Package tutor turns dialogue history into the next structured lesson turn.
//
// Generate makes exactly one call to the LLM collaborator and validates the reply.
// Respond wraps Generate and never fails: any GenerationError is replaced by a fixed
// fallback lesson so the learner always sees a card.
package tutor

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/BTreeMap/MicroTutor/internal/genai"
	"github.com/BTreeMap/MicroTutor/internal/models"
)

// Collaborator is the remote model the generator delegates to.
type Collaborator interface {
	GenerateStructured(ctx context.Context, messages []genai.Message, schema *genai.ResponseSchema) (string, error)
}

// ReceiptRecorder stores an audit record for each generation call.
type ReceiptRecorder interface {
	AddGenerationReceipt(ctx context.Context, r models.GenerationReceipt) error
}

// Request is everything the generator needs for one turn.
type Request struct {
	SessionID string
	// History is the dialogue so far, excluding the current input.
	History []models.Turn
	// Input is the learner text. It may be empty only when Module is set, which
	// means the module is being started.
	Input  string
	Module *models.Module
	Cursor models.Cursor
	// LastAnswerCorrect is true when Input answered the latest quiz correctly.
	LastAnswerCorrect bool
}

// IsModuleStart reports whether the request is the synthetic trigger that opens a module.
func (r Request) IsModuleStart() bool {
	return strings.TrimSpace(r.Input) == "" && r.Module != nil
}

// FallbackContent is shown whenever a generation fails.
func FallbackContent() models.LessonContent {
	return models.LessonContent{
		MicroLessonText: "I'm having trouble connecting to the GA4 knowledge base right now. Please try again in a moment.",
		PracticeTask:    "Try asking me specifically about 'Events' or 'Users'.",
	}
}

// Generator produces tutor turns.
type Generator struct {
	collab   Collaborator
	receipts ReceiptRecorder
	now      func() time.Time
}

// Option configures a Generator.
type Option func(*Generator)

// WithReceiptRecorder records a receipt for each Respond call.
func WithReceiptRecorder(r ReceiptRecorder) Option {
	return func(g *Generator) { g.receipts = r }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// NewGenerator creates a generator backed by the given collaborator.
func NewGenerator(collab Collaborator, opts ...Option) *Generator {
	g := &Generator{collab: collab, now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate makes one collaborator call and returns validated lesson content.
func (g *Generator) Generate(ctx context.Context, req Request) (models.LessonContent, error) {
	if strings.TrimSpace(req.Input) == "" && req.Module == nil {
		return models.LessonContent{}, models.ErrEmptyInput
	}
	messages, err := BuildMessages(req)
	if err != nil {
		return models.LessonContent{}, &GenerationError{Stage: StageTransport, Err: err}
	}
	slog.Debug("Generator.Generate: calling collaborator", "sessionID", req.SessionID, "messages", len(messages), "moduleStart", req.IsModuleStart())

	raw, err := g.collab.GenerateStructured(ctx, messages, LessonSchema)
	if err != nil {
		return models.LessonContent{}, &GenerationError{Stage: StageTransport, Err: err}
	}
	content, err := ParseLesson(raw)
	if err != nil {
		return models.LessonContent{}, err
	}
	if req.IsModuleStart() && content.Quiz != nil {
		slog.Warn("Generator.Generate: dropping quiz from module opening turn", "sessionID", req.SessionID, "moduleID", req.Module.ID)
		content.Quiz = nil
	}
	return content, nil
}

// Respond is Generate with the fallback substituted on failure. It never returns an error.
func (g *Generator) Respond(ctx context.Context, req Request) models.LessonContent {
	start := g.now()
	content, err := g.Generate(ctx, req)

	receipt := models.GenerationReceipt{
		SessionID: req.SessionID,
		Status:    models.GenerationOK,
		Time:      start,
	}
	if req.Module != nil {
		receipt.ModuleID = req.Module.ID
	}
	if err != nil {
		var genErr *GenerationError
		if errors.As(err, &genErr) {
			receipt.Stage = genErr.Stage
		}
		receipt.Status = models.GenerationFallback
		receipt.Cause = err.Error()
		slog.Warn("Generator.Respond: generation failed, using fallback", "sessionID", req.SessionID, "stage", receipt.Stage, "error", err)
		content = FallbackContent()
	}
	receipt.LatencyMS = g.now().Sub(start).Milliseconds()

	if g.receipts != nil {
		if rerr := g.receipts.AddGenerationReceipt(ctx, receipt); rerr != nil {
			slog.Error("Generator.Respond: failed to record receipt", "sessionID", req.SessionID, "error", rerr)
		}
	}
	return content
}

// BuildMessages serializes the request into the chat transcript sent to the collaborator.
// Tutor turns are sent as their JSON form so the model sees its own structured replies.
func BuildMessages(req Request) ([]genai.Message, error) {
	messages := make([]genai.Message, 0, len(req.History)+3)
	messages = append(messages, genai.Message{Role: genai.RoleSystem, Content: BuildSystemPrompt(req.Module)})
	if cc := CursorContext(req.Module, req.Cursor, req.LastAnswerCorrect); cc != "" {
		messages = append(messages, genai.Message{Role: genai.RoleSystem, Content: cc})
	}

	for _, turn := range req.History {
		switch {
		case turn.IsTutor():
			data, err := json.Marshal(turn.Lesson)
			if err != nil {
				return nil, err
			}
			messages = append(messages, genai.Message{Role: genai.RoleAssistant, Content: string(data)})
		case turn.Sender == models.SenderUser:
			messages = append(messages, genai.Message{Role: genai.RoleUser, Content: turn.Text})
		}
	}

	input := strings.TrimSpace(req.Input)
	if req.IsModuleStart() {
		input = StartPrompt(*req.Module)
	}
	messages = append(messages, genai.Message{Role: genai.RoleUser, Content: input})
	return messages, nil
}
