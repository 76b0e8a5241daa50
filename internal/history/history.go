// Package history is the view-model over the persistence layer: the ordered
// recording list, the focused recording, and playback sourcing. It never
// writes the stores itself; all mutation goes through the persistence
// manager.
package history

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/audienze/audienze/internal/recording"
	"github.com/audienze/audienze/internal/store"
)

// Sink receives audio for playback.
type Sink interface {
	Play(id string, payload []byte) error
	Stop()
}

// Selection is the focused recording plus whether its audio could be
// sourced. A missing blob downgrades playback, not the focus itself.
type Selection struct {
	Recording           recording.Recording
	PlaybackUnavailable bool
}

// History maintains the in-memory list and selection state.
type History struct {
	manager *store.Manager
	sink    Sink
	log     *zap.SugaredLogger

	recordings []recording.Recording // oldest first, mirroring the store
	selected   *Selection
}

// New builds a History over the manager and sink. A nil logger is replaced
// with a nop logger.
func New(manager *store.Manager, sink Sink, log *zap.SugaredLogger) *History {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &History{manager: manager, sink: sink, log: log}
}

// Refresh re-reads the persisted list. Called after every mutating
// persistence operation.
func (h *History) Refresh() error {
	recs, err := h.manager.LoadAll()
	if err != nil {
		return fmt.Errorf("refresh history: %w", err)
	}
	h.recordings = recs
	return nil
}

// Recordings returns the list oldest first.
func (h *History) Recordings() []recording.Recording {
	return h.recordings
}

// NewestFirst returns a reversed copy for display.
func (h *History) NewestFirst() []recording.Recording {
	out := make([]recording.Recording, len(h.recordings))
	for i, r := range h.recordings {
		out[len(out)-1-i] = r
	}
	return out
}

// Selected returns the current selection, or nil.
func (h *History) Selected() *Selection {
	return h.selected
}

// Select focuses the recording with the given ID and starts playback of its
// audio. When the blob is missing the focus still succeeds with transcript
// and metrics visible, and playback is reported unavailable. An unknown ID
// is an error.
func (h *History) Select(id string) (*Selection, error) {
	var rec *recording.Recording
	for i := range h.recordings {
		if h.recordings[i].ID == id {
			rec = &h.recordings[i]
			break
		}
	}
	if rec == nil {
		return nil, store.ErrNotFound
	}

	sel := &Selection{Recording: *rec}

	payload, err := h.manager.LoadAudio(id)
	switch {
	case err == nil:
		h.sink.Stop()
		if perr := h.sink.Play(id, payload); perr != nil {
			h.log.Warnw("playback failed", "id", id, "error", perr)
			sel.PlaybackUnavailable = true
		}
	case errors.Is(err, store.ErrBlobMissing), errors.Is(err, store.ErrNotFound):
		sel.PlaybackUnavailable = true
	default:
		h.log.Warnw("audio load failed", "id", id, "error", err)
		sel.PlaybackUnavailable = true
	}

	h.selected = sel
	return sel, nil
}

// FocusNewest makes a freshly saved recording the active selection without
// a list reload round-trip. No playback is started.
func (h *History) FocusNewest(rec recording.Recording) *Selection {
	h.selected = &Selection{Recording: rec}
	return h.selected
}

// Delete removes the recording from both stores. If it was selected, the
// selection and any in-progress playback are cleared.
func (h *History) Delete(id string) error {
	if err := h.manager.DeleteOne(id); err != nil {
		return err
	}
	if h.selected != nil && h.selected.Recording.ID == id {
		h.sink.Stop()
		h.selected = nil
	}
	return h.Refresh()
}

// Clear drops every recording, both stores, the selection, and playback.
func (h *History) Clear() error {
	if err := h.manager.ClearAll(); err != nil {
		return err
	}
	h.sink.Stop()
	h.selected = nil
	return h.Refresh()
}

// StopPlayback stops the sink without touching the selection.
func (h *History) StopPlayback() {
	h.sink.Stop()
}
