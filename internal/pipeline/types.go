// Package pipeline orchestrates one analysis run: dependency discovery,
// parallel compilation and flattening, the two external-checker passes with
// scope injection between them, and diagnostic resolution.
package pipeline

import "time"

// Stage describes a high-level pipeline phase.
type Stage string

const (
	// StageDiscover builds and sorts the dependency graph.
	StageDiscover Stage = "discover"
	// StageCompile translates templates into generated units.
	StageCompile Stage = "compile"
	// StageFlatten composes inheritance/inclusion chains.
	StageFlatten Stage = "flatten"
	// StageCollect is the external checker's collection pass.
	StageCollect Stage = "collect"
	// StageInject adds typed scope declarations.
	StageInject Stage = "inject"
	// StageAnalyze is the external checker's analysis pass.
	StageAnalyze Stage = "analyze"
	// StageResolve maps and filters raw findings.
	StageResolve Stage = "resolve"
)

// Status captures progress state within a stage.
type Status string

const (
	// StatusQueued indicates the task is waiting to start.
	StatusQueued Status = "queued"
	// StatusWorking indicates the task is currently working.
	StatusWorking Status = "working"
	// StatusDone indicates the task is done.
	StatusDone Status = "done"
	// StatusError indicates the task encountered an error.
	StatusError Status = "error"
)

// Event reports progress for a template (or for the whole stage when File
// is empty).
type Event struct {
	File    string
	Stage   Stage
	Status  Status
	Err     error
	Elapsed time.Duration
}

// ProgressSink consumes progress events.
type ProgressSink interface {
	OnEvent(Event)
}

// Timings holds stage durations.
type Timings struct {
	stages map[Stage]time.Duration
}

func (t *Timings) ensure() {
	if t.stages == nil {
		t.stages = make(map[Stage]time.Duration)
	}
}

// Set stores a duration for the given stage.
func (t *Timings) Set(stage Stage, dur time.Duration) {
	if t == nil {
		return
	}
	t.ensure()
	t.stages[stage] = dur
}

// Has reports whether a duration for stage is recorded.
func (t Timings) Has(stage Stage) bool {
	if t.stages == nil {
		return false
	}
	_, ok := t.stages[stage]
	return ok
}

// Duration returns the recorded duration for stage.
func (t Timings) Duration(stage Stage) time.Duration {
	if t.stages == nil {
		return 0
	}
	return t.stages[stage]
}

// Sum returns the sum of durations across the provided stages.
func (t Timings) Sum(stages ...Stage) time.Duration {
	if t.stages == nil {
		return 0
	}
	var total time.Duration
	for _, stage := range stages {
		total += t.stages[stage]
	}
	return total
}

// Stages lists phases in execution order, for timing output.
func Stages() []Stage {
	return []Stage{
		StageDiscover, StageCompile, StageFlatten,
		StageCollect, StageInject, StageAnalyze, StageResolve,
	}
}
