package main

import (
	"errors"
	"fmt"

	"github.com/BTreeMap/MicroTutor/internal/render"
	"github.com/BTreeMap/MicroTutor/internal/simulator"
	"github.com/spf13/cobra"
)

func newScreenCmd() *cobra.Command {
	var list bool
	cmd := &cobra.Command{
		Use:   "screen [page] [subPage]",
		Short: "Print a simulator screen",
		Long: `Print one screen of the simulated GA4 interface.

Unknown coordinates print the placeholder screen. Use --list to show every
navigation coordinate.`,
		Args: cobra.RangeArgs(0, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fixture := simulator.Load()
			out := cmd.OutOrStdout()
			if list || len(args) == 0 {
				for _, item := range fixture.Navigation() {
					coord := item.Page
					if item.SubPage != "" {
						coord += "/" + item.SubPage
					}
					built := ""
					if item.Built {
						built = " *"
					}
					fmt.Fprintf(out, "%-28s %s%s\n", coord, item.Label, built)
				}
				return nil
			}
			page, sub := args[0], ""
			if len(args) == 2 {
				sub = args[1]
			}
			screen, err := fixture.Resolve(page, sub)
			fmt.Fprintln(out, render.TerminalScreen(screen))
			var malformed *simulator.MalformedRedirect
			if errors.As(err, &malformed) {
				fmt.Fprintf(cmd.ErrOrStderr(), "note: %v\n", malformed)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&list, "list", false, "list navigation coordinates (* marks built screens)")
	return cmd
}
