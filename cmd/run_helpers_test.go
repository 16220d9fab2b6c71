// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"bytes"
	"reflect"
	"strings"
	"testing"
	"time"

	"goexec/cli/internal/config"
	"goexec/cli/internal/pipeline"
)

func TestProgramArgs(t *testing.T) {
	tests := []struct {
		in   []string
		want []string
	}{
		{nil, nil},
		{[]string{"--", "-x", "y"}, []string{"-x", "y"}},
		{[]string{"a", "--", "b"}, []string{"a", "--", "b"}},
	}
	for _, tt := range tests {
		if got := programArgs(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("programArgs(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRequestAppliesProfile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	store, err := config.DefaultStore()
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Set("web", config.Profile{
		References: []string{"framework:web"},
		Usings:     []string{"net/http"},
		Compiler:   "simple",
		Entry:      "Serve",
	}); err != nil {
		t.Fatal(err)
	}

	f := runFlags{profile: "web", usings: []string{"strings"}, compiler: "workspace"}
	req, err := f.request("main.go", []string{"-v"})
	if err != nil {
		t.Fatalf("request() error = %v", err)
	}
	if want := []string{"net/http", "strings"}; !reflect.DeepEqual(req.Usings, want) {
		t.Errorf("Usings = %v, want %v", req.Usings, want)
	}
	if req.Compiler != "workspace" {
		t.Errorf("Compiler = %q, want explicit flag to win", req.Compiler)
	}
	if req.Entry != "Serve" || req.Script != "main.go" || !reflect.DeepEqual(req.Args, []string{"-v"}) {
		t.Errorf("request() = %+v", req)
	}
}

func TestRequestUnknownProfile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	f := runFlags{profile: "missing"}
	if _, err := f.request("x.go", nil); err == nil {
		t.Error("request() error = nil, want error for a missing profile")
	}
}

func TestProgressUIWarnings(t *testing.T) {
	var buf bytes.Buffer
	ui := newProgressUI(&buf, false)
	ui.handle(pipeline.Event{Type: pipeline.EventStageStarted, Stage: pipeline.StageCompile})
	ui.handle(pipeline.Event{Type: pipeline.EventWarning, Stage: pipeline.StageCompile, Message: "x declared and not used"})
	ui.handle(pipeline.Event{Type: pipeline.EventStageDone, Stage: pipeline.StageCompile, Elapsed: time.Millisecond})
	if !strings.Contains(buf.String(), "x declared and not used") {
		t.Errorf("output = %q, want the warning", buf.String())
	}
}

func TestRenderTimings(t *testing.T) {
	rep := pipeline.NewReport()
	rep.Start(pipeline.StageFetch)
	rep.Finish(pipeline.StageFetch)
	rep.Start(pipeline.StageCompile)
	rep.Fail(pipeline.StageCompile, nil)
	var buf bytes.Buffer
	renderTimings(&buf, rep)
	for _, want := range []string{"fetch", "compile", "failed", "total"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("timings = %q, want %q", buf.String(), want)
		}
	}
}
