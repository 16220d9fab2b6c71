// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package repl

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/peterh/liner"

	"goexec/cli/internal/xdg"
)

const historyFile = "repl_history"

// completeTimeout bounds a tab completion; type-checking loads packages.
const completeTimeout = 10 * time.Second

// Terminal is a LineReader backed by liner with persistent history and tab
// completion of member access.
type Terminal struct {
	state   *liner.State
	history string
}

// NewTerminal opens the line editor and loads history from the state
// directory. Close must be called to restore the terminal.
func NewTerminal(session *Session) *Terminal {
	t := &Terminal{state: liner.NewLiner()}
	t.state.SetCtrlCAborts(true)
	t.state.SetTabCompletionStyle(liner.TabPrints)
	if session != nil {
		t.state.SetCompleter(lineCompleter(session))
	}
	if dir, err := xdg.StateDir(); err == nil {
		t.history = filepath.Join(dir, historyFile)
		if f, err := os.Open(t.history); err == nil {
			_, _ = t.state.ReadHistory(f)
			_ = f.Close()
		}
	}
	return t
}

// Prompt reads a line.
func (t *Terminal) Prompt(prompt string) (string, error) {
	line, err := t.state.Prompt(prompt)
	if stderrors.Is(err, liner.ErrPromptAborted) {
		return "", ErrAborted
	}
	return line, err
}

// AppendHistory records line.
func (t *Terminal) AppendHistory(line string) { t.state.AppendHistory(line) }

// Close writes history and restores the terminal.
func (t *Terminal) Close() error {
	if t.history != "" {
		if f, err := os.Create(t.history); err == nil {
			_, _ = t.state.WriteHistory(f)
			_ = f.Close()
		}
	}
	return t.state.Close()
}

// lineCompleter completes the identifier after the last dot of line.
func lineCompleter(session *Session) liner.Completer {
	return func(line string) []string {
		i := strings.LastIndex(line, Trigger)
		if i < 0 {
			return nil
		}
		head, partial := line[:i+1], line[i+1:]
		ctx, cancel := context.WithTimeout(context.Background(), completeTimeout)
		defer cancel()
		items, err := session.Complete(ctx, head)
		if err != nil {
			return nil
		}
		var out []string
		for _, it := range items {
			if strings.HasPrefix(it, partial) {
				out = append(out, head+it)
			}
		}
		return out
	}
}
