// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package pipeline

import "time"

// Stage names one step of a run.
type Stage string

const (
	StageValidate Stage = "validate"
	StageEnrich   Stage = "enrich"
	StageFetch    Stage = "fetch"
	StageResolve  Stage = "resolve"
	StageCompile  Stage = "compile"
	StageExecute  Stage = "execute"
)

// EventType enumerates the progress notifications a run emits.
type EventType string

const (
	// EventStageStarted is sent before a stage begins.
	EventStageStarted EventType = "stage_started"
	// EventStageDone is sent when a stage succeeds.
	EventStageDone EventType = "stage_done"
	// EventStageFailed is sent when a stage fails; Err is set.
	EventStageFailed EventType = "stage_failed"
	// EventWarning carries a non-fatal message, such as a compiler warning.
	EventWarning EventType = "warning"
)

// Event is a progress notification. Only a subset of fields is set
// depending on Type.
type Event struct {
	Type    EventType
	Stage   Stage
	Message string
	Elapsed time.Duration
	Err     error
}

// Notifier receives events. It is called synchronously from the running
// pipeline and must not block for long.
type Notifier func(Event)
