package pipeline

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/alanbriolat/stream-archiver/media"
)

type Outcome string

const (
	OutcomeCompleted   Outcome = "completed"
	OutcomeAlreadyDone Outcome = "already_done"
	OutcomeFailed      Outcome = "failed"
)

// A Report is everything known about one video's download once it has finished. It replaces any shared counters:
// callers aggregate Reports themselves.
type Report struct {
	RunID      string
	VideoID    string
	Codec      media.Codec
	Variant    media.Variant
	Outcome    Outcome
	OutputPath string
	Planned    int
	Succeeded  int
	Failed     int
	Attempts   int
	Bytes      int64
	Duration   time.Duration
	Err        error
}

func NewReport(videoID string, outputPath string) *Report {
	return &Report{
		RunID:      newRunID(),
		VideoID:    videoID,
		OutputPath: outputPath,
		Outcome:    OutcomeFailed,
	}
}

// AlreadyDone is the Report for a video whose output already exists.
func AlreadyDone(videoID string, outputPath string) *Report {
	r := NewReport(videoID, outputPath)
	r.Outcome = OutcomeAlreadyDone
	return r
}

func (r *Report) AddResults(results []media.FetchResult) {
	for _, res := range results {
		r.AddResult(res)
	}
}

func (r *Report) AddResult(res media.FetchResult) {
	if res.OK {
		r.Succeeded++
	} else {
		r.Failed++
	}
	r.Attempts += res.Attempts
	r.Bytes += res.Bytes
}

func (r *Report) String() string {
	switch r.Outcome {
	case OutcomeAlreadyDone:
		return fmt.Sprintf("%s: already done (%s)", r.VideoID, r.OutputPath)
	case OutcomeCompleted:
		return fmt.Sprintf("%s: %s %s, %d/%d segments, %s in %s",
			r.VideoID, r.Codec, r.Variant, r.Succeeded, r.Planned, humanize.Bytes(uint64(r.Bytes)),
			r.Duration.Round(time.Millisecond))
	default:
		return fmt.Sprintf("%s: failed: %v", r.VideoID, r.Err)
	}
}
