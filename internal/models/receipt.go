package models

import "time"

// GenerationStatus is the outcome of one tutor generation call.
type GenerationStatus string

const (
	// GenerationOK means a validated lesson was produced.
	GenerationOK GenerationStatus = "ok"
	// GenerationFallback means the call failed and the fallback lesson was used.
	GenerationFallback GenerationStatus = "fallback"
)

// GenerationReceipt is an audit record of one outbound generation call.
type GenerationReceipt struct {
	ID        int64            `json:"id,omitempty"`
	SessionID string           `json:"sessionId"`
	ModuleID  string           `json:"moduleId,omitempty"`
	Status    GenerationStatus `json:"status"`
	// Stage names the failing step ("transport", "empty", "parse", "validate") for fallbacks.
	Stage     string    `json:"stage,omitempty"`
	Cause     string    `json:"cause,omitempty"`
	LatencyMS int64     `json:"latencyMs"`
	Time      time.Time `json:"time"`
}
