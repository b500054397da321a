package render

import (
	"fmt"
	"strings"

	"github.com/BTreeMap/MicroTutor/internal/models"
	"github.com/BTreeMap/MicroTutor/internal/simulator"
	"github.com/charmbracelet/lipgloss"
)

var (
	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	headingStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	bulletStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	exampleStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("214")).
			PaddingLeft(1)

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	correctStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	incorrectStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	chipStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255")).
			Background(lipgloss.Color("238")).
			Padding(0, 1)

	primaryChipStyle = chipStyle.
				Background(lipgloss.Color("208")).
				Bold(true)

	linkStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("33")).
			Underline(true)
)

// Terminal renders a card for a terminal session.
func Terminal(c Card) string {
	if c.Sender == models.SenderUser {
		return userStyle.Render("You: ") + textOf(c.Text)
	}

	var sections []string
	sections = append(sections, renderBlocks(c.Text))

	if c.Example != nil {
		body := headingStyle.Render(c.Example.Title) + "\n" + renderBlocks(c.Example.Content)
		sections = append(sections, exampleStyle.Render(body))
	}
	if c.Comparison != nil {
		sections = append(sections, renderComparison(c.Comparison))
	}
	if c.Quiz != nil {
		sections = append(sections, renderQuizWidget(c.Quiz))
	}
	if c.Practice != nil {
		sections = append(sections, renderPracticeSection(c.Practice))
	}
	return cardStyle.Render(strings.Join(sections, "\n\n"))
}

func textOf(blocks []TextBlock) string {
	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		parts = append(parts, b.Text)
	}
	return strings.Join(parts, " ")
}

func renderBlocks(blocks []TextBlock) string {
	lines := make([]string, 0, len(blocks))
	for _, b := range blocks {
		switch b.Kind {
		case BlockSpacer:
			lines = append(lines, "")
		case BlockSubheading:
			lines = append(lines, headingStyle.Render(b.Text))
		case BlockBullet:
			lines = append(lines, bulletStyle.Render("●")+" "+b.Text)
		default:
			lines = append(lines, b.Text)
		}
	}
	return strings.Join(lines, "\n")
}

func renderComparison(t *ComparisonTable) string {
	w0, w1, w2 := len("Feature"), len(t.LeftLabel), len(t.RightLabel)
	for _, r := range t.Rows {
		w0 = max(w0, len(r.Feature))
		w1 = max(w1, len(r.LeftValue))
		w2 = max(w2, len(r.RightValue))
	}
	row := func(a, b, c string) string {
		return fmt.Sprintf("%-*s │ %-*s │ %-*s", w0, a, w1, b, w2, c)
	}
	lines := []string{
		headingStyle.Render(t.Title),
		mutedStyle.Render(row("Feature", t.LeftLabel, t.RightLabel)),
	}
	for _, r := range t.Rows {
		lines = append(lines, row(r.Feature, r.LeftValue, r.RightValue))
	}
	if t.Insight != "" {
		lines = append(lines, mutedStyle.Render("Insight: "+t.Insight))
	}
	return strings.Join(lines, "\n")
}

func renderQuizWidget(q *QuizWidget) string {
	lines := []string{headingStyle.Render("Quick Check"), q.Question}
	for _, o := range q.Options {
		label := fmt.Sprintf("  [%d] %s", o.Index+1, o.Text)
		switch {
		case o.Correct:
			label = correctStyle.Render(label)
		case o.Disabled:
			label = mutedStyle.Render(label)
		}
		lines = append(lines, label)
	}
	switch q.State {
	case models.QuizCorrect:
		lines = append(lines, correctStyle.Render(q.Feedback)+" "+q.Explanation)
	case models.QuizIncorrect:
		lines = append(lines, incorrectStyle.Render(q.Feedback))
	}
	return strings.Join(lines, "\n")
}

func renderPracticeSection(p *PracticeSection) string {
	var lines []string
	if p.Redirect != nil {
		target := p.Redirect.Page
		if p.Redirect.SubPage != "" {
			target += " > " + p.Redirect.SubPage
		}
		lines = append(lines, linkStyle.Render(p.Redirect.Label+" ("+target+")"))
		if p.Redirect.Message != "" {
			lines = append(lines, mutedStyle.Render(p.Redirect.Message))
		}
	}
	if p.Task != "" {
		lines = append(lines, headingStyle.Render("? ")+p.Task)
	}
	if len(p.Chips) > 0 {
		chips := make([]string, 0, len(p.Chips))
		for i, c := range p.Chips {
			style := chipStyle
			if c.Primary {
				style = primaryChipStyle
			}
			chips = append(chips, style.Render(fmt.Sprintf("%c) %s", 'a'+i, c.Label)))
		}
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, strings.Join(chips, " ")))
	}
	return strings.Join(lines, "\n")
}

// TerminalScreen renders a simulator screen.
func TerminalScreen(s simulator.Screen) string {
	lines := []string{headingStyle.Render(s.Title)}
	if s.Subtitle != "" {
		lines = append(lines, mutedStyle.Render(s.Subtitle))
	}
	if s.Note != "" {
		lines = append(lines, s.Note)
	}
	for _, p := range s.Panels {
		lines = append(lines, "", bulletStyle.Render(p.Title))
		for _, m := range p.Metrics {
			line := fmt.Sprintf("  %s: %s", m.Label, m.Value)
			if m.Delta != "" {
				line += " " + correctStyle.Render(m.Delta)
			}
			lines = append(lines, line)
		}
		for _, r := range p.Rows {
			lines = append(lines, fmt.Sprintf("  %-32s %s", r.Label, r.Value))
		}
		if p.Note != "" {
			lines = append(lines, mutedStyle.Render("  "+p.Note))
		}
	}
	return cardStyle.Render(strings.Join(lines, "\n"))
}
