package domain

import "time"

// TranscodeJob is the ephemeral unit of work a pipeline worker holds while
// it owns a video's lease. It is never persisted; the catalog row's status
// and lease columns are the durable record.
type TranscodeJob struct {
	VideoID    int64
	Token      string
	SourcePath string
	Renditions []Rendition
	WorkDir    string
	Attempt    int
	LeaseUntil time.Time
}

func NewTranscodeJob(v *Video, renditions []Rendition, workDir string) *TranscodeJob {
	return &TranscodeJob{
		VideoID:    v.ID,
		Token:      v.Token,
		SourcePath: v.SourcePath,
		Renditions: renditions,
		WorkDir:    workDir,
		LeaseUntil: v.LeaseUntil,
	}
}
