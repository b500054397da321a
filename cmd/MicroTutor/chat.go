package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/BTreeMap/MicroTutor/internal/export"
	"github.com/BTreeMap/MicroTutor/internal/flow"
	"github.com/BTreeMap/MicroTutor/internal/models"
	"github.com/BTreeMap/MicroTutor/internal/render"
	"github.com/BTreeMap/MicroTutor/internal/simulator"
	"github.com/BTreeMap/MicroTutor/internal/util"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	noticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("243")).Italic(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

const chatHelp = `Type a question or answer and press enter. Commands:
  /modules            list modules
  /module <id>        start a module
  /pick <n>           use option n of the latest card
  /quiz <n>           answer option n of the latest quiz
  /go                 open the simulator link of the latest card
  /sim                show the simulator screen
  /view <mode>        lesson, simulator-ga4, simulator-interview, dashboard
  /dashboard          show progress
  /export <fmt> [f]   write the transcript as json, yaml or md
  /reset              start over
  /quit               leave`

func newChatCmd(config *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive tutoring session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("log-level") && os.Getenv("LOG_LEVEL") == "" {
				initializeLogger(slog.LevelWarn)
			}
			svc, err := buildServices(*config, false)
			if err != nil {
				return err
			}
			defer svc.Close()

			engine := flow.NewEngine(util.NewSessionID(), svc.generator, svc.catalog)
			c := newChatSession(engine, svc.catalog, simulator.Load(), cmd.OutOrStdout())
			return c.run(cmd.Context(), cmd.InOrStdin())
		},
	}
}

// chatSession is a terminal front end for one engine.
type chatSession struct {
	engine     *flow.Engine
	curriculum flow.Curriculum
	screens    *simulator.Fixture
	out        io.Writer
}

func newChatSession(engine *flow.Engine, curriculum flow.Curriculum, screens *simulator.Fixture, out io.Writer) *chatSession {
	return &chatSession{engine: engine, curriculum: curriculum, screens: screens, out: out}
}

// run reads lines until EOF or /quit.
func (c *chatSession) run(ctx context.Context, in io.Reader) error {
	if ctx == nil {
		ctx = context.Background()
	}
	fmt.Fprintln(c.out, noticeStyle.Render("Type /help for commands."))
	c.printCards(0)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(c.out, promptStyle.Render("you> "))
		if !scanner.Scan() {
			fmt.Fprintln(c.out)
			return scanner.Err()
		}
		quit, err := c.handle(ctx, scanner.Text())
		if err != nil {
			fmt.Fprintln(c.out, errorStyle.Render(err.Error()))
		}
		if quit {
			return nil
		}
	}
}

// handle executes one line of input. It reports whether the session should end.
func (c *chatSession) handle(ctx context.Context, line string) (bool, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false, nil
	}
	if !strings.HasPrefix(line, "/") {
		return false, c.submit(ctx, line)
	}

	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]
	switch cmd {
	case "/quit", "/exit":
		return true, nil
	case "/help":
		fmt.Fprintln(c.out, chatHelp)
	case "/modules":
		for _, m := range c.curriculum.List() {
			fmt.Fprintf(c.out, "  %s  %s\n", m.ID, m.Title)
		}
	case "/module":
		if len(args) != 1 {
			return false, errors.New("usage: /module <id>")
		}
		before := len(c.engine.State().History)
		if _, err := c.engine.SelectModule(ctx, args[0]); err != nil {
			return false, err
		}
		c.printCards(before)
	case "/pick":
		return false, c.pick(ctx, args)
	case "/quiz":
		return false, c.quiz(args)
	case "/go":
		turn, ok := c.latest(func(t models.Turn) bool { return t.Lesson.SimulationRedirect != nil })
		if !ok {
			return false, models.ErrNoRedirect
		}
		if _, err := c.engine.FollowRedirect(turn.ID); err != nil {
			return false, err
		}
		c.printSimulator()
	case "/sim":
		c.printSimulator()
	case "/view":
		if len(args) != 1 {
			return false, errors.New("usage: /view <mode>")
		}
		st, err := c.engine.SelectView(models.ViewMode(args[0]))
		if err != nil {
			return false, err
		}
		c.printView(st.View)
	case "/dashboard":
		c.printDashboard()
	case "/export":
		return false, c.export(args)
	case "/reset":
		c.engine.Reset()
		fmt.Fprintln(c.out, noticeStyle.Render("Session reset."))
		c.printCards(0)
	default:
		return false, fmt.Errorf("unknown command %s, try /help", cmd)
	}
	return false, nil
}

func (c *chatSession) submit(ctx context.Context, text string) error {
	before := len(c.engine.State().History)
	if _, err := c.engine.Submit(ctx, text); err != nil {
		return err
	}
	c.printCards(before + 1)
	return nil
}

func (c *chatSession) pick(ctx context.Context, args []string) error {
	turn, ok := c.latest(func(t models.Turn) bool { return len(t.Lesson.TaskOptions) > 0 })
	if !ok {
		return models.ErrNoTaskOptions
	}
	n, err := optionIndex(args, len(turn.Lesson.TaskOptions))
	if err != nil {
		return err
	}
	before := len(c.engine.State().History)
	reply, err := c.engine.UseTaskOption(ctx, turn.ID, turn.Lesson.TaskOptions[n])
	if err != nil {
		return err
	}
	if reply == nil {
		fmt.Fprintln(c.out, noticeStyle.Render("Those options were already used."))
		return nil
	}
	c.printCards(before)
	return nil
}

func (c *chatSession) quiz(args []string) error {
	turn, ok := c.latest(func(t models.Turn) bool { return t.Lesson.Quiz != nil })
	if !ok {
		return models.ErrNoQuiz
	}
	n, err := optionIndex(args, len(turn.Lesson.Quiz.Options))
	if err != nil {
		return err
	}
	cs, err := c.engine.AnswerQuiz(turn.ID, n)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, render.Terminal(render.RenderTurn(turn, cs)))
	return nil
}

func (c *chatSession) export(args []string) error {
	if len(args) == 0 {
		return errors.New("usage: /export <json|yaml|md> [file]")
	}
	exporter, err := export.NewExporter(args[0])
	if err != nil {
		return err
	}
	st := c.engine.State()
	path := "session-" + st.ID + "." + exporter.Extension()
	if len(args) > 1 {
		path = args[1]
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()
	if err := exporter.Export(export.FromSession(st, st.UpdatedAt), f); err != nil {
		return fmt.Errorf("failed to export session: %w", err)
	}
	fmt.Fprintln(c.out, noticeStyle.Render("Transcript written to "+path))
	return nil
}

// latest finds the most recent tutor turn matching pred.
func (c *chatSession) latest(pred func(models.Turn) bool) (models.Turn, bool) {
	history := c.engine.State().History
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].IsTutor() && pred(history[i]) {
			return history[i], true
		}
	}
	return models.Turn{}, false
}

// printCards prints the cards of history[from:].
func (c *chatSession) printCards(from int) {
	st := c.engine.State()
	for _, t := range st.History[min(from, len(st.History)):] {
		fmt.Fprintln(c.out, render.Terminal(render.RenderTurn(t, st.CardState(t.ID))))
	}
}

func (c *chatSession) printSimulator() {
	view := flow.SimulatorFor(c.engine.State(), c.screens)
	if view.Redirect != nil && view.Redirect.Message != "" {
		fmt.Fprintln(c.out, noticeStyle.Render(view.Redirect.Message))
	}
	fmt.Fprintln(c.out, render.TerminalScreen(view.Screen))
}

func (c *chatSession) printDashboard() {
	for _, row := range flow.Dashboard(c.engine.State(), c.curriculum.List()) {
		status := "not started"
		switch {
		case row.Complete:
			status = "complete"
		case row.Started && row.QuizLength > 0:
			status = fmt.Sprintf("question %d of %d", row.Step+1, row.QuizLength)
		case row.Started:
			status = "started"
		}
		marker := " "
		if row.Active {
			marker = ">"
		}
		fmt.Fprintf(c.out, "%s %-4s %-28s %s\n", marker, row.Module.ID, row.Module.Title, status)
	}
}

func (c *chatSession) printView(view models.ViewMode) {
	switch view {
	case models.ViewSimulatorGA4:
		c.printSimulator()
	case models.ViewSimulatorInterview:
		for _, role := range simulator.InterviewRoles() {
			fmt.Fprintf(c.out, "  %s  %s\n", role.ID, role.Title)
		}
	case models.ViewDashboard:
		c.printDashboard()
	default:
		c.printCards(0)
	}
}

// optionIndex parses a 1-based option number.
func optionIndex(args []string, n int) (int, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("give an option number between 1 and %d", n)
	}
	i, err := strconv.Atoi(args[0])
	if err != nil || i < 1 || i > n {
		return 0, fmt.Errorf("give an option number between 1 and %d", n)
	}
	return i - 1, nil
}
