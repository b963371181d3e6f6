package models

// JobStatus is the lifecycle of a backend transcription job.
type JobStatus string

const (
	JobQueued     JobStatus = "queued"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobError      JobStatus = "error"
)

func (s JobStatus) IsTerminal() bool {
	return s == JobCompleted || s == JobError
}

// TranscriptionJob is a snapshot of a job owned by an asynchronous
// transcription backend. It is discarded once terminal.
type TranscriptionJob struct {
	ID     string    `json:"id"`
	Status JobStatus `json:"status"`
	Text   string    `json:"text,omitempty"`
	Error  string    `json:"error,omitempty"`
}
