package main

import (
	"fmt"
	"io"

	"github.com/BTreeMap/MicroTutor/internal/curriculum"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	moduleIDStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	moduleTitleStyle = lipgloss.NewStyle().Bold(true)
	moduleDescStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
)

func newModulesCmd(config *Config) *cobra.Command {
	var showPlan bool
	cmd := &cobra.Command{
		Use:   "modules",
		Short: "List the learning path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := curriculum.Load(config.CurriculumFile)
			if err != nil {
				return err
			}
			printModules(cmd.OutOrStdout(), catalog, showPlan)
			return nil
		},
	}
	cmd.Flags().BoolVar(&showPlan, "plan", false, "also print each module's teaching plan")
	return cmd
}

func printModules(w io.Writer, catalog *curriculum.Catalog, showPlan bool) {
	for i, m := range catalog.List() {
		fmt.Fprintf(w, "%d. %s  %s\n", i+1, moduleIDStyle.Render(m.ID), moduleTitleStyle.Render(m.Title))
		if m.Description != "" {
			fmt.Fprintf(w, "   %s\n", moduleDescStyle.Render(m.Description))
		}
		if m.QuizLength > 0 {
			fmt.Fprintf(w, "   %s\n", moduleDescStyle.Render(fmt.Sprintf("%d question quiz", m.QuizLength)))
		}
		if showPlan {
			fmt.Fprintf(w, "\n%s\n", m.TeachingPlan)
		}
	}
}
