package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"flux/internal/diag"
	"flux/internal/driver"
	"flux/internal/ui"
)

// chanSink forwards progress events into a channel. Events are dropped
// rather than blocking a compiler worker on a slow UI.
type chanSink struct {
	ch chan<- driver.Event
}

func (s chanSink) OnEvent(ev driver.Event) {
	select {
	case s.ch <- ev:
	default:
	}
}

// printSink is the plain-text progress fallback.
type printSink struct {
	verbose   bool
	quiet     bool
	threshold int
}

func (s *printSink) OnEvent(ev driver.Event) {
	switch ev.Status {
	case driver.EventDone:
		if s.verbose && !s.quiet {
			fmt.Fprintf(os.Stdout, "compiled %s\n", ev.File)
		}
	case driver.EventSlow:
		if !s.quiet {
			fmt.Fprintf(os.Stdout, "%s %s (it's taking more than %ds)\n",
				color.YellowString("still compiling"), ev.File, s.threshold)
		}
	}
}

type buildOutcome struct {
	status driver.Status
	diags  []diag.Diagnostic
	err    error
}

// runBuildWithUI drives the compile under a Bubble Tea progress view. The
// build runs in a goroutine; closing the event channel quits the view.
func runBuildWithUI(cmd *cobra.Command, title string, makeOptions func(driver.ProgressSink) driver.Options) (driver.Status, []diag.Diagnostic, error) {
	events := make(chan driver.Event, 256)
	model := ui.NewProgressModel(title, nil, events)
	prog := tea.NewProgram(model, tea.WithContext(cmd.Context()))

	resCh := make(chan buildOutcome, 1)
	go func() {
		status, diags, err := driver.Compile(cmd.Context(), makeOptions(chanSink{ch: events}))
		resCh <- buildOutcome{status: status, diags: diags, err: err}
		close(events)
	}()

	if _, err := prog.Run(); err != nil {
		out := <-resCh
		if out.err == nil {
			out.err = fmt.Errorf("progress ui failed: %w", err)
		}
		return out.status, out.diags, out.err
	}
	out := <-resCh
	return out.status, out.diags, out.err
}
