// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"
	"io"
	"sync"
	"time"

	"atomicgo.dev/cursor"
	"github.com/pterm/pterm"

	"goexec/cli/internal/pipeline"
)

var spinnerFrames = []string{"|", "/", "-", "\\"}

// startInlineSpinner starts a simple inline spinner animation on a single line.
// It displays rotating animation frames followed by the provided text, updating
// the same line in the terminal. The cursor is hidden while the spinner runs.
//
// Returns a function that stops the spinner, clears its line and shows the
// cursor again. Calling it more than once is safe.
func startInlineSpinner(w io.Writer, text string, frames []string, interval time.Duration) func() {
	stop := make(chan struct{})
	var wg sync.WaitGroup
	var once sync.Once
	cursor.Hide()
	wg.Add(1)
	go func() {
		defer wg.Done()
		i := 0
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			line := fmt.Sprintf("%s %s", frames[i%len(frames)], text)
			select {
			case <-stop:
				// Clear the spinner line completely, then return
				fmt.Fprintf(w, "\r%*s\r", len(line), "")
				return
			case <-ticker.C:
				fmt.Fprintf(w, "\r%s", line)
				i++
			}
		}
	}()
	return func() {
		once.Do(func() {
			close(stop)
			wg.Wait()
			cursor.Show()
		})
	}
}

// stageLabel is the spinner text shown while a stage runs.
func stageLabel(s pipeline.Stage) string {
	switch s {
	case pipeline.StageEnrich:
		return "reading project"
	case pipeline.StageFetch:
		return "fetching source"
	case pipeline.StageResolve:
		return "resolving references"
	case pipeline.StageCompile:
		return "compiling"
	}
	return ""
}

// renderTimings prints the per-stage durations of a run.
func renderTimings(w io.Writer, rep *pipeline.Report) {
	data := [][]string{{"Stage", "Elapsed", "Result"}}
	for _, s := range rep.Order {
		result := pterm.Green("ok")
		if s == rep.Failed {
			result = pterm.Red("failed")
		}
		data = append(data, []string{string(s), rep.Elapsed(s).Round(time.Millisecond).String(), result})
	}
	data = append(data, []string{"total", rep.Total().Round(time.Millisecond).String(), ""})
	_ = pterm.DefaultTable.WithHasHeader().WithWriter(w).WithData(data).Render()
}
