package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/BTreeMap/MicroTutor/internal/models"
)

// MarkdownExporter exports transcripts as a readable Markdown document
type MarkdownExporter struct{}

// Export exports a transcript to Markdown format
func (e *MarkdownExporter) Export(t *Transcript, w io.Writer) error {
	b := &strings.Builder{}
	fmt.Fprintf(b, "# Session %s\n\n", t.SessionID)
	if t.ActiveModule != "" {
		fmt.Fprintf(b, "**Module:** %s  \n", t.ActiveModule)
	}
	fmt.Fprintf(b, "**Turns:** %d  \n", len(t.Turns))
	fmt.Fprintf(b, "**Exported:** %s\n\n", t.ExportedAt.Format("2006-01-02 15:04:05 MST"))
	b.WriteString("---\n\n")

	for i, turn := range t.Turns {
		stamp := turn.Timestamp.Format("15:04:05")
		if turn.Lesson == nil {
			fmt.Fprintf(b, "**Learner** (%s)\n\n%s\n\n", stamp, escapeMarkdown(turn.Text))
		} else {
			fmt.Fprintf(b, "**Tutor** (%s)\n\n", stamp)
			writeLesson(b, turn.Lesson)
		}
		if i < len(t.Turns)-1 {
			b.WriteString("---\n\n")
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeLesson(b *strings.Builder, l *models.LessonContent) {
	fmt.Fprintf(b, "%s\n\n", escapeMarkdown(l.MicroLessonText))

	if l.ExampleContent != "" {
		title := l.ExampleTitle
		if title == "" {
			title = "Example"
		}
		fmt.Fprintf(b, "> **%s:** %s\n\n", escapeMarkdown(title), escapeMarkdown(l.ExampleContent))
	}

	if c := l.Comparison; c != nil {
		if c.Title != "" {
			fmt.Fprintf(b, "#### %s\n\n", escapeMarkdown(c.Title))
		}
		fmt.Fprintf(b, "| Feature | %s | %s |\n|---|---|---|\n", cell(c.LeftLabel), cell(c.RightLabel))
		for _, r := range c.Rows {
			fmt.Fprintf(b, "| %s | %s | %s |\n", cell(r.Feature), cell(r.LeftValue), cell(r.RightValue))
		}
		b.WriteString("\n")
		if c.Insight != "" {
			fmt.Fprintf(b, "_%s_\n\n", escapeMarkdown(c.Insight))
		}
	}

	if q := l.Quiz; q != nil {
		fmt.Fprintf(b, "**Quiz:** %s\n\n", escapeMarkdown(q.Question))
		for i, opt := range q.Options {
			mark := " "
			if i == q.CorrectAnswerIndex {
				mark = "x"
			}
			fmt.Fprintf(b, "- [%s] %s\n", mark, escapeMarkdown(opt))
		}
		b.WriteString("\n")
		if q.Explanation != "" {
			fmt.Fprintf(b, "%s\n\n", escapeMarkdown(q.Explanation))
		}
	}

	if l.PracticeTask != "" {
		fmt.Fprintf(b, "**Practice:** %s\n\n", escapeMarkdown(l.PracticeTask))
		if len(l.TaskOptions) > 0 {
			opts := make([]string, len(l.TaskOptions))
			for i, o := range l.TaskOptions {
				opts[i] = "`" + o + "`"
			}
			fmt.Fprintf(b, "Options: %s\n\n", strings.Join(opts, " · "))
		}
	}

	if r := l.SimulationRedirect; r != nil {
		fmt.Fprintf(b, "**Simulator:** `%s`", r.Coordinate())
		if r.Message != "" {
			fmt.Fprintf(b, " %s", escapeMarkdown(r.Message))
		}
		b.WriteString("\n\n")
	}
}

// cell escapes a value for a table cell.
func cell(s string) string {
	return strings.ReplaceAll(escapeMarkdown(s), "|", "\\|")
}

// escapeMarkdown escapes emphasis markers outside code blocks
func escapeMarkdown(text string) string {
	lines := strings.Split(text, "\n")
	inCodeBlock := false
	for i, line := range lines {
		if strings.HasPrefix(line, "```") {
			inCodeBlock = !inCodeBlock
			continue
		}
		if inCodeBlock {
			continue
		}
		line = strings.ReplaceAll(line, "**", "\\*\\*")
		lines[i] = strings.ReplaceAll(line, "__", "\\_\\_")
	}
	return strings.Join(lines, "\n")
}

// Extension returns the file extension for this format
func (e *MarkdownExporter) Extension() string {
	return "md"
}

func (e *MarkdownExporter) ContentType() string {
	return "text/markdown; charset=utf-8"
}
