// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package pipeline

import (
	"sync"
	"time"
)

// Report records how a run went: which stages ran, how long each took and
// where it stopped.
type Report struct {
	// Order preserves the sequence in which stages started
	Order []Stage
	// Durations maps each finished stage to its elapsed time
	Durations map[Stage]time.Duration
	// Failed is the stage that stopped the run, if any
	Failed Stage
	// Err is the error that stopped the run
	Err error

	// Warnings are non-fatal diagnostics, already formatted
	Warnings []string

	mu      sync.Mutex
	started map[Stage]time.Time
	now     func() time.Time
}

// NewReport creates an empty report.
func NewReport() *Report {
	return &Report{
		Durations: make(map[Stage]time.Duration),
		started:   make(map[Stage]time.Time),
		now:       time.Now,
	}
}

// Start marks stage as running.
func (r *Report) Start(stage Stage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.started[stage]; !ok {
		r.Order = append(r.Order, stage)
	}
	r.started[stage] = r.now()
}

// Finish records the elapsed time of stage and returns it.
func (r *Report) Finish(stage Stage) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	at, ok := r.started[stage]
	if !ok {
		return 0
	}
	d := r.now().Sub(at)
	r.Durations[stage] = d
	return d
}

// Fail records the elapsed time of stage and marks it as the failing one.
func (r *Report) Fail(stage Stage, err error) time.Duration {
	d := r.Finish(stage)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Failed = stage
	r.Err = err
	return d
}

// Warn appends a non-fatal message.
func (r *Report) Warn(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Warnings = append(r.Warnings, msg)
}

// Elapsed returns the recorded time of stage.
func (r *Report) Elapsed(stage Stage) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Durations[stage]
}

// Total sums the recorded stage times.
func (r *Report) Total() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	var total time.Duration
	for _, d := range r.Durations {
		total += d
	}
	return total
}

// Succeeded reports whether every started stage finished.
func (r *Report) Succeeded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Failed == "" && r.Err == nil
}
