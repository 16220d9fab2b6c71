// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package repl

import (
	"context"
	stderrors "errors"
	"fmt"
	"go/scanner"
	"go/token"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/pterm/pterm"

	"goexec/cli/internal/errors"
	"goexec/cli/internal/logging"
	"goexec/cli/internal/terminal"
)

const (
	promptMain = "> "
	promptCont = "* "
)

// State is where the loop is.
type State int

const (
	Idle State = iota
	AwaitingInput
	MetaCommand
	Completion
	Evaluate
	Exited
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingInput:
		return "awaiting-input"
	case MetaCommand:
		return "meta-command"
	case Completion:
		return "completion"
	case Evaluate:
		return "evaluate"
	case Exited:
		return "exited"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// ErrAborted is returned by a LineReader when the user pressed Ctrl+C at
// the prompt.
var ErrAborted = stderrors.New("prompt aborted")

// LineReader reads one line of input. It returns io.EOF when input ends.
type LineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(line string)
}

// REPL drives a session from a line reader.
type REPL struct {
	session *Session
	reader  LineReader
	out     io.Writer
	state   State
	width   func() int

	// interrupt derives the context an evaluation runs under.
	interrupt func(context.Context) (context.Context, context.CancelFunc)
}

// New returns a loop over session.
func New(session *Session, reader LineReader, out io.Writer) *REPL {
	return &REPL{
		session: session,
		reader:  reader,
		out:     out,
		width:   terminal.Width,
		interrupt: func(ctx context.Context) (context.Context, context.CancelFunc) {
			return signal.NotifyContext(ctx, os.Interrupt)
		},
	}
}

// State reports where the loop is.
func (r *REPL) State() State { return r.state }

// Preload folds each source into the session in order. A source that
// cannot be fetched is skipped; other failures are reported and the next
// source is tried.
func (r *REPL) Preload(ctx context.Context, specs []string) {
	for _, spec := range specs {
		err := r.session.Load(ctx, spec)
		switch {
		case err == nil:
			pterm.Fprintln(r.out, pterm.Gray("loaded "+spec))
		case errors.Is(err, errors.FetchError):
			pterm.Fprintln(r.out, pterm.Yellow("skipped "+spec+": "+logging.Mask(err.Error())))
		default:
			logging.Present(r.out, err)
		}
	}
}

// Banner prints the greeting.
func (r *REPL) Banner(version string) {
	pterm.Fprintln(r.out, pterm.NewStyle(pterm.FgLightCyan, pterm.Bold).Sprint("goexec "+version)+
		pterm.Gray(" interactive session. Type #help for commands, #exit to leave."))
}

// Run reads and handles input until #exit or end of input.
func (r *REPL) Run(ctx context.Context) error {
	r.state = AwaitingInput
	for r.state != Exited {
		if err := ctx.Err(); err != nil {
			r.state = Exited
			return nil
		}
		code, ok := r.read()
		if !ok {
			fmt.Fprintln(r.out)
			r.state = Exited
			break
		}
		r.Handle(ctx, code)
	}
	return nil
}

// Handle classifies and processes one complete input.
func (r *REPL) Handle(ctx context.Context, code string) {
	trimmed := strings.TrimSpace(code)
	switch {
	case trimmed == "":
		r.state = AwaitingInput
		return
	case strings.HasPrefix(trimmed, "#"):
		r.state = MetaCommand
		if exit := r.meta(ctx, trimmed); exit {
			r.state = Exited
			return
		}
	case WantsCompletion(trimmed):
		r.state = Completion
		r.complete(ctx, code)
	default:
		r.state = Evaluate
		r.evaluate(ctx, code)
	}
	r.state = AwaitingInput
}

func (r *REPL) evaluate(ctx context.Context, code string) {
	evalCtx, stop := r.interrupt(ctx)
	defer stop()
	if err := r.session.Eval(evalCtx, code); err != nil {
		r.report(err)
		return
	}
	r.reader.AppendHistory(strings.ReplaceAll(code, "\n", " "))
}

func (r *REPL) complete(ctx context.Context, code string) {
	items, err := r.session.Complete(ctx, code)
	if err != nil {
		r.report(err)
		return
	}
	if len(items) == 0 {
		pterm.Fprintln(r.out, pterm.Gray("no completions"))
		return
	}
	fmt.Fprint(r.out, terminal.Columns(items, r.width()))
}

func (r *REPL) report(err error) {
	if errors.Is(err, errors.CancelledError) {
		pterm.Fprintln(r.out, pterm.Yellow("cancelled"))
		return
	}
	logging.Present(r.out, err)
}

// read collects lines until brackets balance.
func (r *REPL) read() (string, bool) {
	var b strings.Builder
	for {
		prompt := promptMain
		if b.Len() > 0 {
			prompt = promptCont
		}
		line, err := r.reader.Prompt(prompt)
		if stderrors.Is(err, ErrAborted) {
			// Ctrl+C drops the pending input.
			return "", true
		}
		if err != nil {
			return "", false
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
		if !incomplete(b.String()) {
			return b.String(), true
		}
	}
}

// incomplete reports whether src has unclosed brackets or an unterminated
// raw string, meaning more lines should be read.
func incomplete(src string) bool {
	if strings.HasPrefix(strings.TrimSpace(src), "#") {
		return false
	}
	var s scanner.Scanner
	fset := token.NewFileSet()
	file := fset.AddFile("", fset.Base(), len(src))
	unterminated := false
	s.Init(file, []byte(src), func(_ token.Position, msg string) {
		if strings.Contains(msg, "raw string literal not terminated") || strings.Contains(msg, "comment not terminated") {
			unterminated = true
		}
	}, 0)
	depth := 0
	for {
		_, tok, _ := s.Scan()
		switch tok {
		case token.EOF:
			return unterminated || depth > 0
		case token.LPAREN, token.LBRACE, token.LBRACK:
			depth++
		case token.RPAREN, token.RBRACE, token.RBRACK:
			depth--
		}
	}
}
