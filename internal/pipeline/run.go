package pipeline

import (
	"errors"
	"fmt"

	"github.com/Lllllllleong/voicedocflow/internal/apperr"
	"github.com/Lllllllleong/voicedocflow/internal/models"
	"github.com/google/uuid"
)

// ErrInvalidTransition is returned for a stage change the state machine forbids.
var ErrInvalidTransition = errors.New("invalid pipeline transition")

var stageOrder = map[models.Stage]int{
	models.StageUploading:    0,
	models.StageTranscribing: 1,
	models.StageRendering:    2,
	models.StageStoring:      3,
	models.StageComplete:     4,
}

// Progress is the progressPercent reported when a run enters each stage.
var Progress = map[models.Stage]int{
	models.StageUploading:    10,
	models.StageTranscribing: 30,
	models.StageRendering:    60,
	models.StageStoring:      80,
	models.StageComplete:     100,
}

// Run is the state of one pipeline run. Stages only move forward, progress
// never decreases, and complete and failed are terminal. A Run is owned by a
// single goroutine.
type Run struct {
	state models.PipelineRun
}

// NewRun starts a run in the uploading stage.
func NewRun() *Run {
	return &Run{state: models.PipelineRun{
		ID:              uuid.NewString(),
		Stage:           models.StageUploading,
		ProgressPercent: Progress[models.StageUploading],
	}}
}

// Snapshot returns a copy of the current state.
func (r *Run) Snapshot() models.PipelineRun { return r.state }

func (r *Run) ID() string { return r.state.ID }

func (r *Run) Stage() models.Stage { return r.state.Stage }

// Terminal reports whether the run is complete or failed.
func (r *Run) Terminal() bool {
	return r.state.Stage == models.StageComplete || r.state.Stage == models.StageFailed
}

// Advance moves the run to stage, which must directly follow the current one.
func (r *Run) Advance(stage models.Stage) error {
	next, ok := stageOrder[stage]
	if !ok || r.Terminal() || next != stageOrder[r.state.Stage]+1 {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.state.Stage, stage)
	}
	r.state.Stage = stage
	if p := Progress[stage]; p > r.state.ProgressPercent {
		r.state.ProgressPercent = p
	}
	return nil
}

// Fail moves a non-terminal run to failed, keeping its progress.
func (r *Run) Fail(kind apperr.Kind, message string) error {
	if r.Terminal() {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.state.Stage, models.StageFailed)
	}
	r.state.Stage = models.StageFailed
	r.state.ErrorKind = string(kind)
	r.state.Message = message
	return nil
}
