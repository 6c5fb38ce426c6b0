package models

// Stage is a step of a pipeline run.
type Stage string

const (
	StageUploading    Stage = "uploading"
	StageTranscribing Stage = "transcribing"
	StageRendering    Stage = "rendering"
	StageStoring      Stage = "storing"
	StageComplete     Stage = "complete"
	StageFailed       Stage = "failed"
)

// PipelineRun is the transient, client-visible state of one submission.
type PipelineRun struct {
	ID              string `json:"id"`
	Stage           Stage  `json:"stage"`
	ProgressPercent int    `json:"progressPercent"`
	ErrorKind       string `json:"errorKind,omitempty"`
	Message         string `json:"message,omitempty"`
}
