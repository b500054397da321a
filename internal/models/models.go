// Package models defines the core data structures for MicroTutor: lesson content,
// dialogue turns, session state, curriculum modules, and API payloads.
package models

import "strings"

// APIStatus represents the status of an API response.
type APIStatus string

const (
	// APIStatusOK indicates an API request completed successfully.
	APIStatusOK APIStatus = "ok"
	// APIStatusError indicates an API request failed with an error.
	APIStatusError APIStatus = "error"
	// APIStatusIgnored indicates the request was accepted but had no effect.
	APIStatusIgnored APIStatus = "ignored"
)

// API Response types for consistent JSON responses

// APIResponse represents a standard API response with a status and optional data.
type APIResponse struct {
	Status  string      `json:"status"`            // status of the API response
	Message string      `json:"message,omitempty"` // optional message for error responses or additional info
	Result  interface{} `json:"result,omitempty"`  // optional result data for successful responses
}

// APIResponseBuilder provides a fluent interface for building API responses.
type APIResponseBuilder struct {
	response APIResponse
}

// NewAPIResponseBuilder creates a new APIResponseBuilder instance.
func NewAPIResponseBuilder() *APIResponseBuilder {
	return &APIResponseBuilder{}
}

// WithStatus sets the status of the API response.
func (b *APIResponseBuilder) WithStatus(status APIStatus) *APIResponseBuilder {
	b.response.Status = string(status)
	return b
}

// WithMessage sets the message of the API response.
func (b *APIResponseBuilder) WithMessage(message string) *APIResponseBuilder {
	b.response.Message = message
	return b
}

// WithResult sets the result data of the API response.
func (b *APIResponseBuilder) WithResult(result interface{}) *APIResponseBuilder {
	b.response.Result = result
	return b
}

// Build constructs and returns the final APIResponse.
func (b *APIResponseBuilder) Build() APIResponse {
	return b.response
}

// Success creates a successful API response with optional result data.
func Success(result interface{}) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusOK).
		WithResult(result).
		Build()
}

// SuccessWithMessage creates a successful API response with a message and optional result data.
func SuccessWithMessage(message string, result interface{}) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusOK).
		WithMessage(message).
		WithResult(result).
		Build()
}

// Error creates an error API response with a message.
func Error(message string) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusError).
		WithMessage(message).
		Build()
}

// Ignored creates a response for a no-op request, such as a second use of a card's chips.
func Ignored(message string) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusIgnored).
		WithMessage(message).
		Build()
}

// MessageRequest is the body of a learner message submission.
type MessageRequest struct {
	Text string `json:"text"`
}

// Validate rejects blank input.
func (r *MessageRequest) Validate() error {
	if strings.TrimSpace(r.Text) == "" {
		return ErrEmptyInput
	}
	return nil
}

// ViewRequest selects a view from the menu.
type ViewRequest struct {
	View ViewMode `json:"view"`
}

// Validate checks the view is known.
func (r *ViewRequest) Validate() error {
	if !IsValidViewMode(r.View) {
		return ErrInvalidView
	}
	return nil
}

// TaskOptionRequest picks one of a card's task option chips.
type TaskOptionRequest struct {
	Option string `json:"option"`
}

// Validate rejects blank options.
func (r *TaskOptionRequest) Validate() error {
	if strings.TrimSpace(r.Option) == "" {
		return ErrEmptyInput
	}
	return nil
}

// QuizAnswerRequest picks a quiz option by index.
type QuizAnswerRequest struct {
	Index *int `json:"index"`
}

// Validate requires an index so an empty body does not select option 0.
func (r *QuizAnswerRequest) Validate() error {
	if r.Index == nil {
		return ErrMissingQuizIndex
	}
	return nil
}
