// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"io"
	"sync"
	"time"

	"github.com/pterm/pterm"

	"goexec/cli/internal/logging"
	"goexec/cli/internal/pipeline"
)

// progressUI turns pipeline events into terminal feedback: a spinner while
// the preparation stages run, debug lines when verbose, warnings always.
// Nothing is drawn once the program starts so its output stays clean.
type progressUI struct {
	w       io.Writer
	spinner bool
	mu      sync.Mutex
	stop    func()
}

func newProgressUI(w io.Writer, spinner bool) *progressUI {
	return &progressUI{w: w, spinner: spinner}
}

// handle processes a single event.
func (p *progressUI) handle(ev pipeline.Event) {
	switch ev.Type {
	case pipeline.EventStageStarted:
		p.stopSpinner()
		if label := stageLabel(ev.Stage); label != "" && p.spinner {
			p.mu.Lock()
			p.stop = startInlineSpinner(p.w, label, spinnerFrames, 120*time.Millisecond)
			p.mu.Unlock()
		}
	case pipeline.EventStageDone:
		p.stopSpinner()
		log := logging.Logger()
		log.Debug("stage finished", log.Args("stage", string(ev.Stage), "elapsed", ev.Elapsed))
	case pipeline.EventStageFailed:
		p.stopSpinner()
	case pipeline.EventWarning:
		p.stopSpinner()
		pterm.Fprintln(p.w, pterm.Yellow(ev.Message))
	}
}

func (p *progressUI) stopSpinner() {
	p.mu.Lock()
	stop := p.stop
	p.stop = nil
	p.mu.Unlock()
	if stop != nil {
		stop()
	}
}
