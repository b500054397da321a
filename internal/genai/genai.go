// Package genai provides structured chat completions on top of the OpenAI API.
package genai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// Defaults for the chat completion request.
const (
	DefaultModel       = openai.ChatModelGPT4oMini
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 2048
	DefaultTimeout     = 60 * time.Second
)

// ErrNoChoicesReturned is returned when the API answers without any choices.
var ErrNoChoicesReturned = errors.New("no choices returned from OpenAI API")

// Role is the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of a chat transcript.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ResponseSchema constrains the model output to a JSON schema.
type ResponseSchema struct {
	Name        string
	Description string
	Schema      map[string]any
	Strict      bool
}

// ClientInterface is the surface other packages depend on.
type ClientInterface interface {
	GenerateStructured(ctx context.Context, messages []Message, schema *ResponseSchema) (string, error)
}

// chatService defines minimal interface for chat completions.
type chatService interface {
	Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error)
}

type completionsAdapter struct {
	svc *openai.ChatCompletionService
}

func (a completionsAdapter) Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error) {
	resp, err := a.svc.New(ctx, params)
	if err != nil {
		return openai.ChatCompletion{}, err
	}
	return *resp, nil
}

// Client wraps the OpenAI chat completion service.
type Client struct {
	chat        chatService
	model       string
	temperature float64
	maxTokens   int
	timeout     time.Duration
	debugMode   bool
	stateDir    string
}

// Opts holds configuration for the GenAI client.
type Opts struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	DebugMode   bool
	StateDir    string
}

// Option configures a Client.
type Option func(*Opts)

// WithAPIKey sets the OpenAI API key.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithBaseURL points the client at an OpenAI compatible endpoint.
func WithBaseURL(url string) Option {
	return func(o *Opts) { o.BaseURL = url }
}

// WithModel sets the chat model name.
func WithModel(model string) Option {
	return func(o *Opts) { o.Model = model }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(temp float64) Option {
	return func(o *Opts) { o.Temperature = temp }
}

// WithMaxTokens caps the completion length.
func WithMaxTokens(n int) Option {
	return func(o *Opts) { o.MaxTokens = n }
}

// WithTimeout bounds every request.
func WithTimeout(d time.Duration) Option {
	return func(o *Opts) { o.Timeout = d }
}

// WithDebugMode enables writing request/response pairs to the state directory.
func WithDebugMode(enabled bool) Option {
	return func(o *Opts) { o.DebugMode = enabled }
}

// WithStateDir sets where debug logs are written.
func WithStateDir(dir string) Option {
	return func(o *Opts) { o.StateDir = dir }
}

// NewClient initializes a new GenAI client. The API key falls back to OPENAI_API_KEY.
func NewClient(opts ...Option) (*Client, error) {
	cfg := Opts{
		Model:       string(DefaultModel),
		Temperature: DefaultTemperature,
		MaxTokens:   DefaultMaxTokens,
		Timeout:     DefaultTimeout,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.APIKey == "" {
		slog.Error("GenAI.NewClient: API key not set")
		return nil, fmt.Errorf("OpenAI API key not set")
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}
	cli := openai.NewClient(reqOpts...)

	slog.Debug("GenAI.NewClient: client initialized", "model", cfg.Model, "temperature", cfg.Temperature,
		"maxTokens", cfg.MaxTokens, "timeout", cfg.Timeout, "debugMode", cfg.DebugMode, "baseURL_set", cfg.BaseURL != "")
	return &Client{
		chat:        completionsAdapter{svc: &cli.Chat.Completions},
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		timeout:     cfg.Timeout,
		debugMode:   cfg.DebugMode,
		stateDir:    cfg.StateDir,
	}, nil
}

// GenerateStructured sends the transcript and returns the raw text of the first choice.
// When schema is set the model is asked for JSON matching it.
func (c *Client) GenerateStructured(ctx context.Context, messages []Message, schema *ResponseSchema) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	params := c.buildParams(messages, schema)
	slog.Debug("GenAI.GenerateStructured: sending request", "model", c.model, "messages", len(messages), "schema", schema != nil)

	start := time.Now()
	resp, err := c.chat.Create(ctx, params)
	if c.debugMode {
		c.logDebugCall("GenerateStructured", params, resp, err, time.Since(start))
	}
	if err != nil {
		slog.Error("GenAI.GenerateStructured: chat completion failed", "error", err, "model", c.model)
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		slog.Warn("GenAI.GenerateStructured: no choices returned", "model", c.model)
		return "", ErrNoChoicesReturned
	}
	content := resp.Choices[0].Message.Content
	slog.Debug("GenAI.GenerateStructured: response received", "length", len(content), "elapsed", time.Since(start))
	return content, nil
}

func (c *Client) buildParams(messages []Message, schema *ResponseSchema) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Messages: buildOpenAIMessages(messages),
		Model:    shared.ChatModel(c.model),
	}
	if c.temperature > 0 {
		params.Temperature = openai.Float(c.temperature)
	}
	if c.maxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(c.maxTokens))
	}
	if schema != nil {
		jsonSchema := shared.ResponseFormatJSONSchemaJSONSchemaParam{
			Name:   schema.Name,
			Schema: schema.Schema,
			Strict: openai.Bool(schema.Strict),
		}
		if schema.Description != "" {
			jsonSchema.Description = openai.String(schema.Description)
		}
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{JSONSchema: jsonSchema},
		}
	}
	return params
}

func buildOpenAIMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		case RoleUser:
			out = append(out, openai.UserMessage(m.Content))
		default:
			slog.Warn("GenAI.buildOpenAIMessages: unknown role, sending as user", "role", m.Role)
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}
