package genai

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/openai/openai-go"
)

// mockChatService implements chatService for testing.
type mockChatService struct {
	resp       openai.ChatCompletion
	err        error
	lastParams openai.ChatCompletionNewParams
	deadline   bool
}

func (m *mockChatService) Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error) {
	m.lastParams = params
	_, m.deadline = ctx.Deadline()
	return m.resp, m.err
}

func textResponse(content string) openai.ChatCompletion {
	return openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: content}},
		},
	}
}

func TestGenerateStructured_Success(t *testing.T) {
	mock := &mockChatService{resp: textResponse(`{"microLessonText":"hi"}`)}
	client := &Client{chat: mock, model: "test-model", timeout: time.Second}

	msgs := []Message{
		{Role: RoleSystem, Content: "sys"},
		{Role: RoleUser, Content: "hello"},
		{Role: RoleAssistant, Content: "{}"},
		{Role: RoleUser, Content: "next"},
	}
	schema := &ResponseSchema{Name: "lesson", Schema: map[string]any{"type": "object"}}
	out, err := client.GenerateStructured(context.Background(), msgs, schema)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if out != `{"microLessonText":"hi"}` {
		t.Errorf("unexpected content %q", out)
	}
	if len(mock.lastParams.Messages) != 4 {
		t.Errorf("expected 4 messages, got %d", len(mock.lastParams.Messages))
	}
	if mock.lastParams.ResponseFormat.OfJSONSchema == nil {
		t.Error("expected JSON schema response format")
	} else if mock.lastParams.ResponseFormat.OfJSONSchema.JSONSchema.Name != "lesson" {
		t.Errorf("unexpected schema name %q", mock.lastParams.ResponseFormat.OfJSONSchema.JSONSchema.Name)
	}
	if string(mock.lastParams.Model) != "test-model" {
		t.Errorf("expected model test-model, got %s", mock.lastParams.Model)
	}
	if !mock.deadline {
		t.Error("expected request context to carry a deadline")
	}
}

func TestGenerateStructured_NoSchema(t *testing.T) {
	mock := &mockChatService{resp: textResponse("plain")}
	client := &Client{chat: mock, model: "m"}
	if _, err := client.GenerateStructured(context.Background(), []Message{{Role: RoleUser, Content: "x"}}, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mock.lastParams.ResponseFormat.OfJSONSchema != nil {
		t.Error("response format should be unset without a schema")
	}
	if mock.deadline {
		t.Error("no deadline expected when timeout is zero")
	}
}

func TestGenerateStructured_ServiceError(t *testing.T) {
	client := &Client{chat: &mockChatService{err: errors.New("service failure")}}
	_, err := client.GenerateStructured(context.Background(), nil, nil)
	if err == nil || !strings.Contains(err.Error(), "service failure") {
		t.Errorf("expected service failure error, got %v", err)
	}
}

func TestGenerateStructured_NoChoices(t *testing.T) {
	client := &Client{chat: &mockChatService{resp: openai.ChatCompletion{}}}
	_, err := client.GenerateStructured(context.Background(), nil, nil)
	if !errors.Is(err, ErrNoChoicesReturned) {
		t.Errorf("expected no choices returned error, got %v", err)
	}
}

func TestNewClient_NoKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	_, err := NewClient()
	if err == nil {
		t.Error("expected error when API key not provided, got nil")
	}
}

func TestNewClient_WithKey(t *testing.T) {
	cli, err := NewClient(WithAPIKey("test-key"), WithModel("gpt-test"), WithMaxTokens(10), WithTimeout(5*time.Second))
	if err != nil {
		t.Fatalf("expected no error with API key, got %v", err)
	}
	if cli.model != "gpt-test" || cli.maxTokens != 10 || cli.timeout != 5*time.Second {
		t.Errorf("options not applied: %+v", cli)
	}
}

func TestNewClient_EnvKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "env-key")
	cli, err := NewClient()
	if err != nil {
		t.Fatalf("expected env key to be used, got %v", err)
	}
	if cli.model != string(DefaultModel) {
		t.Errorf("expected default model, got %s", cli.model)
	}
}
