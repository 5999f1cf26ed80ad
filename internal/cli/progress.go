package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/v6/text"

	"steward/internal/rollout"
)

// RolloutProgress renders rollout events on the terminal: a spinner whose
// suffix tracks the latest progress line, with warnings and terminal events
// printed through it. The spinner starts lazily on the first event so a
// verb that never triggers a rollout shows nothing. In quiet mode only
// failures are printed and the spinner never starts.
type RolloutProgress struct {
	s     *spinner.Spinner
	quiet bool
}

// NewRolloutProgress creates the progress renderer.
func NewRolloutProgress(quiet bool) *RolloutProgress {
	return &RolloutProgress{quiet: quiet}
}

// Sink returns the rollout.Sink feeding this renderer.
func (p *RolloutProgress) Sink() rollout.Sink {
	return p.handle
}

// Stop halts the spinner. Safe to call at any point, including after a
// terminal event already stopped it.
func (p *RolloutProgress) Stop() {
	if p.s != nil {
		p.s.Stop()
		p.s = nil
	}
}

func (p *RolloutProgress) handle(e rollout.Event) {
	switch e.Kind {
	case rollout.EventProgress:
		p.ensureSpinner()
		if p.s != nil {
			p.s.Suffix = " " + e.Message
		}
	case rollout.EventTimeoutExtended:
		p.println(text.FgYellow.Sprint(e.Message))
	case rollout.EventTaskFailed:
		p.println(text.FgRed.Sprint(e.Message))
		for _, l := range e.Task.LogTail {
			p.println("  " + l)
		}
	case rollout.EventSucceeded:
		p.finish(text.FgGreen.Sprint(e.Message))
	case rollout.EventFailed:
		p.finish(text.FgRed.Sprint(e.Message))
		if p.quiet {
			fmt.Fprintln(os.Stderr, text.FgRed.Sprint(e.Message))
		}
	}
}

func (p *RolloutProgress) ensureSpinner() {
	if p.quiet || p.s != nil {
		return
	}
	p.s = spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	p.s.Suffix = " Waiting for rollout..."
	p.s.Start()
}

// println writes a line without tearing the spinner's redraw.
func (p *RolloutProgress) println(line string) {
	if p.s != nil {
		p.s.Stop()
		fmt.Println(line)
		p.s.Start()
		return
	}
	if !p.quiet {
		fmt.Println(line)
	}
}

func (p *RolloutProgress) finish(msg string) {
	if p.s != nil {
		p.s.FinalMSG = msg + "\n"
		p.s.Stop()
		p.s = nil
		return
	}
	if !p.quiet {
		fmt.Println(msg)
	}
}
