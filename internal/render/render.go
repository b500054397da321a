// Package render turns lesson content into display-ready cards.
//
// Everything here is a pure function of its inputs. Interaction state (quiz
// answers, used chips) is passed in as a models.CardState.
package render

import (
	"regexp"
	"strings"

	"github.com/BTreeMap/MicroTutor/internal/models"
)

// BlockKind classifies one formatted line of lesson text.
type BlockKind string

const (
	BlockSpacer     BlockKind = "spacer"
	BlockSubheading BlockKind = "subheading"
	BlockBullet     BlockKind = "bullet"
	BlockParagraph  BlockKind = "paragraph"
)

// Section names a card section, in display order.
type Section string

const (
	SectionText       Section = "text"
	SectionExample    Section = "example"
	SectionComparison Section = "comparison"
	SectionQuiz       Section = "quiz"
	SectionPractice   Section = "practice"
)

// DefaultExampleTitle is used when content has an example body but no title.
const DefaultExampleTitle = "Example"

// Feedback strings shown by the quiz widget.
const (
	FeedbackCorrect   = "Correct!"
	FeedbackIncorrect = "Not quite. Try again!"
)

// RedirectLabel is the caption of the simulator deep-link button.
const RedirectLabel = "Open Simulator Link"

// TextBlock is one formatted line.
type TextBlock struct {
	Kind BlockKind `json:"kind"`
	Text string    `json:"text,omitempty"`
}

// ExampleBox is the highlighted worked example.
type ExampleBox struct {
	Title   string      `json:"title"`
	Content []TextBlock `json:"content"`
}

// ComparisonTable is the two-column comparison.
type ComparisonTable struct {
	Title      string                 `json:"title"`
	LeftLabel  string                 `json:"leftLabel"`
	RightLabel string                 `json:"rightLabel"`
	Rows       []models.ComparisonRow `json:"rows"`
	Insight    string                 `json:"insight,omitempty"`
}

// QuizOption is one answer button.
type QuizOption struct {
	Index    int    `json:"index"`
	Text     string `json:"text"`
	Disabled bool   `json:"disabled"`
	Selected bool   `json:"selected"`
	Correct  bool   `json:"correct"`
}

// QuizWidget is the quick check block.
type QuizWidget struct {
	Question    string           `json:"question"`
	Options     []QuizOption     `json:"options"`
	State       models.QuizState `json:"state"`
	Feedback    string           `json:"feedback,omitempty"`
	Explanation string           `json:"explanation,omitempty"`
}

// Chip is one clickable task option.
type Chip struct {
	Label   string `json:"label"`
	Primary bool   `json:"primary"`
}

// RedirectAffordance is the button that opens the simulator at a coordinate.
type RedirectAffordance struct {
	Label   string `json:"label"`
	Page    string `json:"page"`
	SubPage string `json:"subPage,omitempty"`
	Message string `json:"message,omitempty"`
}

// PracticeSection groups the redirect button, task prompt and chips.
type PracticeSection struct {
	Redirect *RedirectAffordance `json:"redirect,omitempty"`
	Task     string              `json:"task,omitempty"`
	Chips    []Chip              `json:"chips,omitempty"`
}

// Card is the rendered form of one turn.
type Card struct {
	TurnID     string           `json:"turnId,omitempty"`
	Sender     models.Sender    `json:"sender"`
	Text       []TextBlock      `json:"text"`
	Example    *ExampleBox      `json:"example,omitempty"`
	Comparison *ComparisonTable `json:"comparison,omitempty"`
	Quiz       *QuizWidget      `json:"quiz,omitempty"`
	Practice   *PracticeSection `json:"practice,omitempty"`
}

// Sections lists the sections present on the card in display order.
func (c Card) Sections() []Section {
	var out []Section
	if len(c.Text) > 0 {
		out = append(out, SectionText)
	}
	if c.Example != nil {
		out = append(out, SectionExample)
	}
	if c.Comparison != nil {
		out = append(out, SectionComparison)
	}
	if c.Quiz != nil {
		out = append(out, SectionQuiz)
	}
	if c.Practice != nil {
		out = append(out, SectionPractice)
	}
	return out
}

var numberedHeading = regexp.MustCompile(`^\d+\.`)

// FormatText splits lesson text into typed blocks. Literal ** markers are removed.
func FormatText(text string) []TextBlock {
	lines := strings.Split(stripEmphasis(text), "\n")
	blocks := make([]TextBlock, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			blocks = append(blocks, TextBlock{Kind: BlockSpacer})
		case numberedHeading.MatchString(trimmed) || strings.HasSuffix(trimmed, ":"):
			blocks = append(blocks, TextBlock{Kind: BlockSubheading, Text: trimmed})
		case bulletMarker(trimmed) != "":
			body := strings.TrimPrefix(trimmed, bulletMarker(trimmed))
			blocks = append(blocks, TextBlock{Kind: BlockBullet, Text: strings.TrimSpace(body)})
		default:
			blocks = append(blocks, TextBlock{Kind: BlockParagraph, Text: trimmed})
		}
	}
	return blocks
}

// bulletMarker returns the single leading bullet marker of line, if any.
func bulletMarker(line string) string {
	for _, m := range []string{"-", "•", "›"} {
		if strings.HasPrefix(line, m) {
			return m
		}
	}
	return ""
}

func stripEmphasis(s string) string {
	return strings.ReplaceAll(s, "**", "")
}

// Render builds a card for fresh content with no interaction yet.
func Render(content models.LessonContent) Card {
	return renderLesson("", content, models.NewCardState())
}

// RenderTurn builds the card for one history turn with its interaction state.
func RenderTurn(turn models.Turn, state models.CardState) Card {
	if !turn.IsTutor() {
		return Card{
			TurnID: turn.ID,
			Sender: models.SenderUser,
			Text:   []TextBlock{{Kind: BlockParagraph, Text: stripEmphasis(strings.TrimSpace(turn.Text))}},
		}
	}
	return renderLesson(turn.ID, *turn.Lesson, state)
}

// RenderHistory renders every turn of a session in order.
func RenderHistory(s models.SessionState) []Card {
	cards := make([]Card, 0, len(s.History))
	for _, t := range s.History {
		cards = append(cards, RenderTurn(t, s.CardState(t.ID)))
	}
	return cards
}

func renderLesson(turnID string, content models.LessonContent, state models.CardState) Card {
	card := Card{
		TurnID: turnID,
		Sender: models.SenderTutor,
		Text:   FormatText(content.MicroLessonText),
	}

	if content.ExampleContent != "" || content.ExampleTitle != "" {
		title := stripEmphasis(content.ExampleTitle)
		if title == "" {
			title = DefaultExampleTitle
		}
		card.Example = &ExampleBox{Title: title, Content: FormatText(content.ExampleContent)}
	}

	if c := content.Comparison; c != nil && len(c.Rows) > 0 {
		rows := make([]models.ComparisonRow, len(c.Rows))
		for i, r := range c.Rows {
			rows[i] = models.ComparisonRow{
				Feature:    stripEmphasis(r.Feature),
				LeftValue:  stripEmphasis(r.LeftValue),
				RightValue: stripEmphasis(r.RightValue),
			}
		}
		card.Comparison = &ComparisonTable{
			Title:      stripEmphasis(c.Title),
			LeftLabel:  stripEmphasis(c.LeftLabel),
			RightLabel: stripEmphasis(c.RightLabel),
			Rows:       rows,
			Insight:    stripEmphasis(c.Insight),
		}
	}

	if content.Quiz != nil {
		card.Quiz = renderQuiz(content.Quiz, state)
	}

	card.Practice = renderPractice(content, state)
	return card
}

func renderQuiz(q *models.Quiz, state models.CardState) *QuizWidget {
	qs := state.Quiz
	if qs == "" {
		qs = models.QuizUnanswered
	}
	w := &QuizWidget{Question: stripEmphasis(q.Question), State: qs}
	for i, opt := range q.Options {
		w.Options = append(w.Options, QuizOption{
			Index:    i,
			Text:     stripEmphasis(opt),
			Disabled: qs == models.QuizCorrect,
			Selected: i == state.Selected,
			Correct:  qs == models.QuizCorrect && i == q.CorrectAnswerIndex,
		})
	}
	switch qs {
	case models.QuizCorrect:
		w.Feedback = FeedbackCorrect
		w.Explanation = stripEmphasis(q.Explanation)
	case models.QuizIncorrect:
		w.Feedback = FeedbackIncorrect
	}
	return w
}

func renderPractice(content models.LessonContent, state models.CardState) *PracticeSection {
	if content.PracticeTask == "" && content.SimulationRedirect == nil {
		return nil
	}
	p := &PracticeSection{Task: stripEmphasis(content.PracticeTask)}
	if r := content.SimulationRedirect; r != nil {
		p.Redirect = &RedirectAffordance{
			Label:   RedirectLabel,
			Page:    r.Page,
			SubPage: r.SubPage,
			Message: stripEmphasis(r.Message),
		}
	}
	if ChipsVisible(content, state) {
		for _, opt := range content.TaskOptions {
			p.Chips = append(p.Chips, Chip{Label: opt, Primary: IsPrimaryOption(opt)})
		}
	}
	return p
}

// ChipsVisible reports whether task option chips should be offered.
func ChipsVisible(content models.LessonContent, state models.CardState) bool {
	return content.PracticeTask != "" && len(content.TaskOptions) > 0 && !state.OptionsUsed
}

// IsPrimaryOption marks the "Let's go" chip that advances the lesson.
func IsPrimaryOption(opt string) bool {
	o := strings.TrimSpace(opt)
	return o == "Let's go!" || o == "Let's go"
}

// NextQuizState applies a selection to a quiz widget. Correct is terminal.
func NextQuizState(current models.QuizState, q *models.Quiz, selected int) models.QuizState {
	if current == models.QuizCorrect {
		return current
	}
	if q != nil && selected == q.CorrectAnswerIndex {
		return models.QuizCorrect
	}
	return models.QuizIncorrect
}
