package app

import (
	"github.com/audienze/audienze/internal/recording"
)

// RecordingStartedMsg is sent when the capture device was acquired and the
// session began.
type RecordingStartedMsg struct{}

// CaptureErrorMsg is sent when the capture device could not be started.
type CaptureErrorMsg struct {
	Err error
}

// ElapsedTickMsg drives the once-per-second elapsed display while recording.
type ElapsedTickMsg struct{}

// TranscriptReadyMsg carries the recording assembled after a stop-and-save:
// either a completed entity from the analysis service or the degraded
// fallback when the service was unreachable.
type TranscriptReadyMsg struct {
	Rec      recording.Recording
	Payload  []byte
	Degraded bool
	Notice   string
}

// SavedMsg is sent when a recording has been persisted to both stores.
type SavedMsg struct {
	Rec recording.Recording
}

// SaveErrorMsg is sent when persistence failed and the session produced
// nothing durable.
type SaveErrorMsg struct {
	Err error
}

// ClearTransientErrorMsg clears a transient error after a timeout.
type ClearTransientErrorMsg struct{}
