package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Sender identifies who produced a turn.
type Sender string

const (
	// SenderUser marks a turn typed or selected by the learner.
	SenderUser Sender = "user"
	// SenderTutor marks a turn produced by the tutor.
	SenderTutor Sender = "tutor"
)

// IsValidSender reports whether s is a known sender.
func IsValidSender(s Sender) bool {
	return s == SenderUser || s == SenderTutor
}

// Turn is one immutable entry of the dialogue history. User turns carry Text,
// tutor turns carry Lesson.
type Turn struct {
	ID        string
	Sender    Sender
	Text      string
	Lesson    *LessonContent
	Timestamp time.Time
}

// NewUserTurn builds a learner turn.
func NewUserTurn(id, text string, at time.Time) Turn {
	return Turn{ID: id, Sender: SenderUser, Text: text, Timestamp: at}
}

// NewTutorTurn builds a tutor turn. The lesson is copied so later edits to the
// caller's value cannot leak into history.
func NewTutorTurn(id string, lesson LessonContent, at time.Time) Turn {
	return Turn{ID: id, Sender: SenderTutor, Lesson: lesson.Clone(), Timestamp: at}
}

// IsTutor reports whether the turn was produced by the tutor.
func (t Turn) IsTutor() bool {
	return t.Sender == SenderTutor && t.Lesson != nil
}

type turnJSON struct {
	ID        string          `json:"id"`
	Sender    Sender          `json:"sender"`
	Content   json.RawMessage `json:"content"`
	Timestamp time.Time       `json:"timestamp"`
}

// MarshalJSON encodes content as a string for user turns and as an object for tutor turns.
func (t Turn) MarshalJSON() ([]byte, error) {
	var content []byte
	var err error
	if t.Sender == SenderTutor && t.Lesson != nil {
		content, err = json.Marshal(t.Lesson)
	} else {
		content, err = json.Marshal(t.Text)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to marshal turn content: %w", err)
	}
	return json.Marshal(turnJSON{ID: t.ID, Sender: t.Sender, Content: content, Timestamp: t.Timestamp})
}

// UnmarshalJSON accepts content as either a string or a lesson object.
func (t *Turn) UnmarshalJSON(data []byte) error {
	var raw turnJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if !IsValidSender(raw.Sender) {
		return fmt.Errorf("invalid sender %q", raw.Sender)
	}
	*t = Turn{ID: raw.ID, Sender: raw.Sender, Timestamp: raw.Timestamp}

	trimmed := bytes.TrimSpace(raw.Content)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var lesson LessonContent
		if err := json.Unmarshal(trimmed, &lesson); err != nil {
			return fmt.Errorf("failed to decode lesson content: %w", err)
		}
		t.Lesson = &lesson
		return nil
	}
	if len(trimmed) > 0 {
		if err := json.Unmarshal(trimmed, &t.Text); err != nil {
			return fmt.Errorf("failed to decode text content: %w", err)
		}
	}
	return nil
}

// Clone returns a deep copy of the lesson content.
func (c LessonContent) Clone() *LessonContent {
	out := c
	if c.Comparison != nil {
		cmp := *c.Comparison
		cmp.Rows = append([]ComparisonRow(nil), c.Comparison.Rows...)
		out.Comparison = &cmp
	}
	if c.Quiz != nil {
		q := *c.Quiz
		q.Options = append([]string(nil), c.Quiz.Options...)
		out.Quiz = &q
	}
	if c.SimulationRedirect != nil {
		r := *c.SimulationRedirect
		out.SimulationRedirect = &r
	}
	if c.TaskOptions != nil {
		out.TaskOptions = append([]string(nil), c.TaskOptions...)
	}
	return &out
}
