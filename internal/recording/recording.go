// Package recording holds the durable data model: the Recording entity, its
// delivery metrics, and the pure factory/projection functions that move it
// between an in-memory capture and its persisted metadata shape. Nothing in
// this package performs I/O.
package recording

import (
	"time"

	"github.com/google/uuid"
)

// Status reflects how transcription resolved for a recording.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// MetricBundle is the derived speech-delivery measurement set produced per
// transcription.
type MetricBundle struct {
	Pace        int      `json:"pace"`        // words per minute
	Clarity     int      `json:"clarity"`     // 0-100
	FillerWords int      `json:"fillerWords"` // >= 0
	WordCount   int      `json:"wordCount"`   // >= 0
	Duration    int      `json:"duration"`    // seconds, >= 0
	Suggestions []string `json:"suggestions"`
}

// Recording is the sole persisted entity. It is immutable after
// construction; deletion removes it from the stores rather than mutating it.
type Recording struct {
	ID         string
	Transcript string
	Feedback   MetricBundle
	Timestamp  time.Time
	AudioSize  int
	Duration   int
	HasAudio   bool
	Status     Status
}

// Metadata is the persisted projection of a Recording. It excludes any
// in-memory payload reference; audio bytes live in the blob store keyed by ID.
type Metadata struct {
	ID         string       `json:"id"`
	Transcript string       `json:"transcript"`
	Feedback   MetricBundle `json:"feedback"`
	Timestamp  string       `json:"timestamp"`
	AudioSize  int          `json:"audioSize"`
	Duration   int          `json:"duration"`
	HasAudio   bool         `json:"hasAudio"`
	Status     Status       `json:"status"`
}

// newID returns a time-ordered UUIDv7, stable as a storage key and as the
// foreign key into the blob store.
func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// v7 generation only fails if the random source does, which is
		// unrecoverable anyway.
		panic(err)
	}
	return id.String()
}

// New builds a Recording from a transcript, its metric bundle, and the
// captured audio payload. The payload itself is not retained; only its size
// and presence are recorded.
func New(transcript string, metrics MetricBundle, payload []byte) Recording {
	status := StatusCompleted
	if transcript == "" {
		status = StatusPending
	}

	duration := metrics.Duration
	if duration == 0 && len(payload) > 0 {
		duration = estimateDuration(len(payload))
	}

	return Recording{
		ID:         newID(),
		Transcript: transcript,
		Feedback:   metrics,
		Timestamp:  time.Now().UTC(),
		AudioSize:  len(payload),
		Duration:   duration,
		HasAudio:   len(payload) > 0,
		Status:     status,
	}
}

// NewDegraded builds the fallback Recording used when transcription fails:
// the capture is kept, the transcript is a placeholder, and the metric
// bundle is zeroed apart from the measured duration and an explanatory
// suggestion list.
func NewDegraded(payload []byte, durationSeconds int) Recording {
	metrics := MetricBundle{
		Duration: durationSeconds,
		Suggestions: []string{
			"There was an error processing your audio. Please try recording again.",
			"Make sure your microphone is working properly",
			"Try speaking more clearly",
		},
	}
	rec := New("Transcription failed. Please try again.", metrics, payload)
	rec.Status = StatusError
	return rec
}

// estimateDuration is a size-based fallback used only when no measured
// duration is available. It is a crude placeholder, kept monotonic in
// payload size.
func estimateDuration(size int) int {
	return size / 1000
}

// FromMetadata reconstructs a Recording from its persisted projection. Pure
// reconstruction: no derivation, no payload. A recording rebuilt this way
// carries no audio bytes; playback requires a separate blob lookup by ID.
func FromMetadata(m Metadata) Recording {
	ts, err := time.Parse(time.RFC3339Nano, m.Timestamp)
	if err != nil {
		ts = time.Time{}
	}
	return Recording{
		ID:         m.ID,
		Transcript: m.Transcript,
		Feedback:   m.Feedback,
		Timestamp:  ts,
		AudioSize:  m.AudioSize,
		Duration:   m.Duration,
		HasAudio:   m.HasAudio,
		Status:     m.Status,
	}
}

// Metadata projects the Recording to its persisted shape.
func (r Recording) Metadata() Metadata {
	return Metadata{
		ID:         r.ID,
		Transcript: r.Transcript,
		Feedback:   r.Feedback,
		Timestamp:  r.Timestamp.Format(time.RFC3339Nano),
		AudioSize:  r.AudioSize,
		Duration:   r.Duration,
		HasAudio:   r.HasAudio,
		Status:     r.Status,
	}
}
