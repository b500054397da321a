package genai

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/openai/openai-go"
)

type debugLogEntry struct {
	Timestamp string                         `json:"timestamp"`
	Method    string                         `json:"method"`
	Model     string                         `json:"model"`
	ElapsedMS int64                          `json:"elapsedMs"`
	Params    openai.ChatCompletionNewParams `json:"params"`
	Response  *openai.ChatCompletion         `json:"response"`
	Error     string                         `json:"error,omitempty"`
}

// logDebugCall writes one request/response pair to <stateDir>/debug. Failures are logged and swallowed.
func (c *Client) logDebugCall(method string, params openai.ChatCompletionNewParams, resp openai.ChatCompletion, callErr error, elapsed time.Duration) {
	if c.stateDir == "" {
		slog.Warn("GenAI.logDebugCall: debug mode enabled without state dir")
		return
	}
	debugDir := filepath.Join(c.stateDir, "debug")
	if err := os.MkdirAll(debugDir, 0o755); err != nil {
		slog.Error("GenAI.logDebugCall: failed to create debug dir", "error", err, "dir", debugDir)
		return
	}

	now := time.Now()
	entry := debugLogEntry{
		Timestamp: now.Format(time.RFC3339Nano),
		Method:    method,
		Model:     c.model,
		ElapsedMS: elapsed.Milliseconds(),
		Params:    params,
	}
	if callErr != nil {
		entry.Error = callErr.Error()
	} else {
		entry.Response = &resp
	}

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		slog.Error("GenAI.logDebugCall: failed to marshal debug entry", "error", err)
		return
	}
	name := fmt.Sprintf("%s_%s.json", now.Format("20060102_150405.000000000"), method)
	path := filepath.Join(debugDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		slog.Error("GenAI.logDebugCall: failed to write debug file", "error", err, "path", path)
		return
	}
	slog.Debug("GenAI.logDebugCall: debug entry written", "path", path)
}
