package models

import (
	"fmt"
	"strings"
)

// ComparisonRow is one feature line of a side-by-side comparison table.
type ComparisonRow struct {
	Feature    string `json:"feature" yaml:"feature"`
	LeftValue  string `json:"leftValue" yaml:"leftValue"`
	RightValue string `json:"rightValue" yaml:"rightValue"`
}

// Comparison is a two-column table contrasting the legacy product with the new one.
type Comparison struct {
	Title      string          `json:"title" yaml:"title"`
	LeftLabel  string          `json:"leftLabel" yaml:"leftLabel"`
	RightLabel string          `json:"rightLabel" yaml:"rightLabel"`
	Rows       []ComparisonRow `json:"rows" yaml:"rows"`
	Insight    string          `json:"insight,omitempty" yaml:"insight,omitempty"`
}

// Quiz is a single multiple choice question attached to a tutor turn.
type Quiz struct {
	Question           string   `json:"question" yaml:"question"`
	Options            []string `json:"options" yaml:"options"`
	CorrectAnswerIndex int      `json:"correctAnswerIndex" yaml:"correctAnswerIndex"`
	Explanation        string   `json:"explanation,omitempty" yaml:"explanation,omitempty"`
}

// CorrectOption returns the option text at CorrectAnswerIndex, or "" when the index is out of range.
func (q *Quiz) CorrectOption() string {
	if q == nil || q.CorrectAnswerIndex < 0 || q.CorrectAnswerIndex >= len(q.Options) {
		return ""
	}
	return q.Options[q.CorrectAnswerIndex]
}

// SimulationRedirect asks the learner to look at a simulator screen.
type SimulationRedirect struct {
	Page    string `json:"page" yaml:"page"`
	SubPage string `json:"subPage,omitempty" yaml:"subPage,omitempty"`
	Message string `json:"message" yaml:"message"`
}

// Coordinate returns the "page" or "page/subPage" form of the redirect target.
func (r SimulationRedirect) Coordinate() string {
	if r.SubPage == "" {
		return r.Page
	}
	return r.Page + "/" + r.SubPage
}

// LessonContent is the structured body of one tutor turn.
type LessonContent struct {
	MicroLessonText    string              `json:"microLessonText" yaml:"microLessonText"`
	ExampleTitle       string              `json:"exampleTitle,omitempty" yaml:"exampleTitle,omitempty"`
	ExampleContent     string              `json:"exampleContent,omitempty" yaml:"exampleContent,omitempty"`
	Comparison         *Comparison         `json:"comparison,omitempty" yaml:"comparison,omitempty"`
	Quiz               *Quiz               `json:"quiz,omitempty" yaml:"quiz,omitempty"`
	PracticeTask       string              `json:"practiceTask,omitempty" yaml:"practiceTask,omitempty"`
	TaskOptions        []string            `json:"taskOptions,omitempty" yaml:"taskOptions,omitempty"`
	SimulationRedirect *SimulationRedirect `json:"simulationRedirect,omitempty" yaml:"simulationRedirect,omitempty"`
}

// Normalize trims whitespace on text fields and drops blank task and quiz options.
// CorrectAnswerIndex is shifted down for each blank option removed before it.
// A blank correct option sets it to -1 so Validate rejects the quiz.
func (c *LessonContent) Normalize() {
	c.MicroLessonText = strings.TrimSpace(c.MicroLessonText)
	c.ExampleTitle = strings.TrimSpace(c.ExampleTitle)
	c.ExampleContent = strings.TrimSpace(c.ExampleContent)
	c.PracticeTask = strings.TrimSpace(c.PracticeTask)
	c.TaskOptions = compactOptions(c.TaskOptions)

	if c.Quiz != nil {
		c.Quiz.Question = strings.TrimSpace(c.Quiz.Question)
		c.Quiz.Explanation = strings.TrimSpace(c.Quiz.Explanation)
		kept := make([]string, 0, len(c.Quiz.Options))
		index := c.Quiz.CorrectAnswerIndex
		for i, opt := range c.Quiz.Options {
			opt = strings.TrimSpace(opt)
			if opt == "" {
				switch {
				case i == c.Quiz.CorrectAnswerIndex:
					index = -1
				case i < c.Quiz.CorrectAnswerIndex && index >= 0:
					index--
				}
				continue
			}
			kept = append(kept, opt)
		}
		c.Quiz.Options = kept
		c.Quiz.CorrectAnswerIndex = index
	}

	if c.SimulationRedirect != nil {
		c.SimulationRedirect.Page = strings.ToLower(strings.TrimSpace(c.SimulationRedirect.Page))
		c.SimulationRedirect.SubPage = strings.ToLower(strings.TrimSpace(c.SimulationRedirect.SubPage))
		c.SimulationRedirect.Message = strings.TrimSpace(c.SimulationRedirect.Message)
	}
}

// Validate checks the structural rules every tutor turn must satisfy.
func (c *LessonContent) Validate() error {
	if strings.TrimSpace(c.MicroLessonText) == "" {
		return ErrMissingLessonText
	}
	if c.Comparison != nil && len(c.Comparison.Rows) == 0 {
		return ErrEmptyComparisonRows
	}
	if c.Quiz != nil {
		if strings.TrimSpace(c.Quiz.Question) == "" {
			return ErrEmptyQuizQuestion
		}
		if len(c.Quiz.Options) < 2 {
			return fmt.Errorf("%w: got %d", ErrTooFewQuizOptions, len(c.Quiz.Options))
		}
		if c.Quiz.CorrectAnswerIndex < 0 || c.Quiz.CorrectAnswerIndex >= len(c.Quiz.Options) {
			return fmt.Errorf("%w: index %d with %d options", ErrQuizAnswerOutOfRange, c.Quiz.CorrectAnswerIndex, len(c.Quiz.Options))
		}
	}
	if c.SimulationRedirect != nil {
		if strings.TrimSpace(c.SimulationRedirect.Page) == "" {
			return ErrRedirectMissingPage
		}
		if strings.TrimSpace(c.PracticeTask) == "" || len(c.TaskOptions) == 0 {
			return ErrRedirectWithoutTask
		}
	}
	return nil
}

// HasPractice reports whether the content carries a practice task with selectable options.
func (c *LessonContent) HasPractice() bool {
	return c.PracticeTask != "" && len(c.TaskOptions) > 0
}

func compactOptions(opts []string) []string {
	if len(opts) == 0 {
		return nil
	}
	out := make([]string, 0, len(opts))
	for _, o := range opts {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
