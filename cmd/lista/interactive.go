package main

import (
	"errors"

	"listacerta/cmd/lista/ui"
	"listacerta/internal/suggest"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

// runInteractive starts the TUI on the workspace list.
func runInteractive(cmd *cobra.Command) error {
	ctx, cancel := commandContext(cmd.Context(), "tui")
	defer cancel()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	bridge := &ui.Bridge{}
	var ctrl *suggest.Controller
	if p := a.pipeline(true); p != nil {
		ctrl = suggest.NewController(p, suggest.Options{
			Delay:          a.cfg.GetSuggestDelay(),
			MinQueryLength: a.cfg.GetMinQueryLength(),
			OnChange:       bridge.Forward,
			Context:        ctx,
		})
		defer ctrl.Close()
	}

	model := ui.New(ctx, ui.Config{
		Service:    a.svc,
		Controller: ctrl,
		Tracker:    a.tracker,
		Location:   a.defaultLocation(),
		Workspace:  a.workspace,
	})
	prog := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	bridge.Attach(prog)

	if _, err := prog.Run(); err != nil && !(errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil) {
		return err
	}
	return nil
}
