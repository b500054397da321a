// Package export writes session transcripts in shareable formats.
package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/BTreeMap/MicroTutor/internal/models"
)

// Exporter defines the interface for all export formats
type Exporter interface {
	Export(t *Transcript, w io.Writer) error
	Extension() string
	ContentType() string
}

// NewExporter creates a new exporter based on format
func NewExporter(format string) (Exporter, error) {
	switch strings.ToLower(format) {
	case "", "json":
		return &JSONExporter{}, nil
	case "yaml", "yml":
		return &YAMLExporter{}, nil
	case "md", "markdown":
		return &MarkdownExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s (supported: json, yaml, md)", format)
	}
}

// Transcript is the exported view of a session.
type Transcript struct {
	SessionID    string           `json:"sessionId" yaml:"sessionId"`
	ActiveModule string           `json:"activeModule,omitempty" yaml:"activeModule,omitempty"`
	View         models.ViewMode  `json:"view" yaml:"view"`
	Progress     map[string]int   `json:"progress,omitempty" yaml:"progress,omitempty"`
	CreatedAt    time.Time        `json:"createdAt" yaml:"createdAt"`
	ExportedAt   time.Time        `json:"exportedAt" yaml:"exportedAt"`
	Turns        []TranscriptTurn `json:"turns" yaml:"turns"`
}

// TranscriptTurn is one dialogue entry. Exactly one of Text and Lesson is set.
type TranscriptTurn struct {
	ID        string                `json:"id" yaml:"id"`
	Sender    models.Sender         `json:"sender" yaml:"sender"`
	Timestamp time.Time             `json:"timestamp" yaml:"timestamp"`
	Text      string                `json:"text,omitempty" yaml:"text,omitempty"`
	Lesson    *models.LessonContent `json:"lesson,omitempty" yaml:"lesson,omitempty"`
}

// FromSession builds a transcript from a session snapshot.
func FromSession(s models.SessionState, at time.Time) *Transcript {
	t := &Transcript{
		SessionID:    s.ID,
		ActiveModule: s.ActiveModuleID,
		View:         s.View,
		Progress:     s.Progress,
		CreatedAt:    s.CreatedAt,
		ExportedAt:   at,
		Turns:        make([]TranscriptTurn, 0, len(s.History)),
	}
	for _, turn := range s.History {
		tt := TranscriptTurn{ID: turn.ID, Sender: turn.Sender, Timestamp: turn.Timestamp}
		if turn.IsTutor() {
			tt.Lesson = turn.Lesson.Clone()
		} else {
			tt.Text = turn.Text
		}
		t.Turns = append(t.Turns, tt)
	}
	return t
}
