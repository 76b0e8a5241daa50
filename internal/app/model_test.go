package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/audienze/audienze/internal/capture"
	"github.com/audienze/audienze/internal/gateway"
	"github.com/audienze/audienze/internal/history"
	"github.com/audienze/audienze/internal/recording"
	"github.com/audienze/audienze/internal/store"
)

type fakeStream struct {
	ch   chan []byte
	once sync.Once
}

func (s *fakeStream) Chunks() <-chan []byte { return s.ch }

func (s *fakeStream) Close() error {
	s.once.Do(func() { close(s.ch) })
	return nil
}

type fakeDevice struct{}

func (fakeDevice) Open(ctx context.Context) (capture.Stream, error) {
	ch := make(chan []byte, 4)
	ch <- []byte("chunk")
	return &fakeStream{ch: ch}, nil
}

type silentSink struct{}

func (silentSink) Play(id string, payload []byte) error { return nil }
func (silentSink) Stop()                                {}

func newTestModel(t *testing.T, gatewayURL string) Model {
	t.Helper()
	controller := capture.NewController(fakeDevice{}, nil)
	gw := gateway.NewClient(gatewayURL, 5*time.Second, nil)
	mgr := store.NewManager(store.NewMemoryMetadataStore(), store.NewMemoryBlobStore(), nil)
	hist := history.New(mgr, silentSink{}, nil)
	m := New(controller, gw, mgr, hist, nil)
	m.width = 80
	m.height = 24
	return m
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestNewModel(t *testing.T) {
	m := newTestModel(t, "http://localhost:0")
	if m.phase != PhaseIdle {
		t.Error("new model should be idle")
	}
	if m.activeTab != TabRecord {
		t.Error("new model should open on the record tab")
	}
}

func TestTabCyclesViews(t *testing.T) {
	m := newTestModel(t, "http://localhost:0")

	updated, _ := m.Update(keyMsg("tab"))
	model := updated.(Model)
	if model.activeTab != TabRecordings {
		t.Error("tab should switch to recordings")
	}

	updated, _ = model.Update(keyMsg("tab"))
	model = updated.(Model)
	if model.activeTab != TabFeedback {
		t.Error("tab should switch to feedback")
	}

	updated, _ = model.Update(keyMsg("tab"))
	model = updated.(Model)
	if model.activeTab != TabRecord {
		t.Error("tab should wrap back to record")
	}
}

func TestSpaceStartsRecording(t *testing.T) {
	m := newTestModel(t, "http://localhost:0")

	_, cmd := m.Update(keyMsg(" "))
	if cmd == nil {
		t.Fatal("space should produce a start command")
	}
	msg := cmd()
	if _, ok := msg.(RecordingStartedMsg); !ok {
		t.Fatalf("start command returned %T, want RecordingStartedMsg", msg)
	}

	updated, _ := m.Update(msg)
	model := updated.(Model)
	if model.phase != PhaseRecording {
		t.Error("model should be recording after RecordingStartedMsg")
	}
}

func TestStopAsksForConfirmation(t *testing.T) {
	m := newTestModel(t, "http://localhost:0")
	m.phase = PhaseRecording

	updated, _ := m.Update(keyMsg(" "))
	model := updated.(Model)
	if model.phase != PhaseConfirming {
		t.Error("stop should move to the confirmation prompt")
	}

	// Esc returns to recording with nothing lost.
	updated, _ = model.Update(keyMsg("esc"))
	model = updated.(Model)
	if model.phase != PhaseRecording {
		t.Error("esc should resume recording")
	}
}

func TestDiscardReturnsToIdle(t *testing.T) {
	m := newTestModel(t, "http://localhost:0")
	if err := m.controller.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	m.phase = PhaseConfirming

	updated, _ := m.Update(keyMsg("n"))
	model := updated.(Model)
	if model.phase != PhaseIdle {
		t.Error("discard should return to idle")
	}
	if model.elapsed != 0 {
		t.Error("discard should zero the elapsed display")
	}
	if len(model.history.Recordings()) != 0 {
		t.Error("discard must not persist anything")
	}
}

func TestSavePipeline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"transcript": "hello world, um, you know",
			"analysis": map[string]any{
				"pace": 5, "clarity": 90, "fillerWords": 2,
				"wordCount": 5, "duration": 60, "suggestions": []string{"tip"},
			},
			"timestamp": time.Now().Format(time.RFC3339),
		})
	}))
	defer srv.Close()

	m := newTestModel(t, srv.URL)
	if err := m.controller.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	m.phase = PhaseConfirming

	updated, cmd := m.Update(keyMsg("y"))
	model := updated.(Model)
	if model.phase != PhaseProcessing {
		t.Fatal("confirmed stop should enter processing")
	}
	if cmd == nil {
		t.Fatal("confirmed stop should produce a transcribe command")
	}

	msg := cmd()
	ready, ok := msg.(TranscriptReadyMsg)
	if !ok {
		t.Fatalf("got %T, want TranscriptReadyMsg", msg)
	}
	if ready.Degraded {
		t.Fatal("healthy gateway should not degrade")
	}
	if ready.Rec.Transcript != "hello world, um, you know" {
		t.Errorf("transcript = %q", ready.Rec.Transcript)
	}

	updated, cmd = model.Update(msg)
	model = updated.(Model)
	if cmd == nil {
		t.Fatal("transcript should produce a save command")
	}
	saved, ok := cmd().(SavedMsg)
	if !ok {
		t.Fatal("save command should return SavedMsg")
	}

	updated, _ = model.Update(saved)
	model = updated.(Model)
	if model.phase != PhaseIdle {
		t.Error("saved model should be idle")
	}
	if model.activeTab != TabFeedback {
		t.Error("save should land on the feedback tab")
	}
	if sel := model.history.Selected(); sel == nil || sel.Recording.ID != saved.Rec.ID {
		t.Error("saved recording should be focused")
	}
	if got := len(model.history.Recordings()); got != 1 {
		t.Errorf("history length = %d, want 1", got)
	}
}

func TestGatewayFailureDegrades(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"Transcription failed"}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	m := newTestModel(t, srv.URL)
	if err := m.controller.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	m.phase = PhaseConfirming

	_, cmd := m.Update(keyMsg("y"))
	ready, ok := cmd().(TranscriptReadyMsg)
	if !ok {
		t.Fatal("want TranscriptReadyMsg")
	}
	if !ready.Degraded {
		t.Fatal("gateway failure should degrade")
	}
	if ready.Rec.Status != recording.StatusError {
		t.Errorf("status = %q, want error", ready.Rec.Status)
	}
	if ready.Rec.Transcript != "Transcription failed. Please try again." {
		t.Errorf("placeholder transcript = %q", ready.Rec.Transcript)
	}
}

func TestHistoryNavigationAndDelete(t *testing.T) {
	m := newTestModel(t, "http://localhost:0")
	for _, text := range []string{"first", "second", "third"} {
		rec := recording.New(text, recording.MetricBundle{Duration: 30}, []byte("audio"))
		if _, err := m.manager.Save(rec, []byte("audio")); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	if err := m.history.Refresh(); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	m.activeTab = TabRecordings

	updated, _ := m.Update(keyMsg("j"))
	model := updated.(Model)
	if model.historyIndex != 1 {
		t.Errorf("after j, index = %d, want 1", model.historyIndex)
	}
	updated, _ = model.Update(keyMsg("k"))
	model = updated.(Model)
	if model.historyIndex != 0 {
		t.Errorf("after k, index = %d, want 0", model.historyIndex)
	}

	// Delete the newest entry (index 0 in the displayed order).
	updated, _ = model.Update(keyMsg("d"))
	model = updated.(Model)
	if got := len(model.history.Recordings()); got != 2 {
		t.Errorf("after delete, history = %d, want 2", got)
	}
	if model.history.NewestFirst()[0].Transcript != "second" {
		t.Error("newest entry should now be the second recording")
	}
}

func TestClearAllNeedsConfirmation(t *testing.T) {
	m := newTestModel(t, "http://localhost:0")
	rec := recording.New("only one", recording.MetricBundle{}, []byte("a"))
	if _, err := m.manager.Save(rec, []byte("a")); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := m.history.Refresh(); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	m.activeTab = TabRecordings

	updated, _ := m.Update(keyMsg("x"))
	model := updated.(Model)
	if !model.confirmingClear {
		t.Fatal("x should prompt before clearing")
	}

	updated, _ = model.Update(keyMsg("n"))
	model = updated.(Model)
	if model.confirmingClear {
		t.Error("n should dismiss the prompt")
	}
	if len(model.history.Recordings()) != 1 {
		t.Error("declined clear must not delete anything")
	}

	updated, _ = model.Update(keyMsg("x"))
	model = updated.(Model)
	updated, _ = model.Update(keyMsg("y"))
	model = updated.(Model)
	if len(model.history.Recordings()) != 0 {
		t.Error("confirmed clear should empty the history")
	}
}

func TestEnterSelectsAndShowsFeedback(t *testing.T) {
	m := newTestModel(t, "http://localhost:0")
	rec := recording.New("pick me", recording.MetricBundle{Pace: 150}, []byte("audio"))
	if _, err := m.manager.Save(rec, []byte("audio")); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := m.history.Refresh(); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	m.activeTab = TabRecordings

	updated, _ := m.Update(keyMsg("enter"))
	model := updated.(Model)
	if model.activeTab != TabFeedback {
		t.Error("enter should switch to the feedback tab")
	}
	if sel := model.history.Selected(); sel == nil || sel.Recording.Transcript != "pick me" {
		t.Error("enter should focus the recording under the cursor")
	}
}

func TestCaptureErrorIsTransient(t *testing.T) {
	m := newTestModel(t, "http://localhost:0")

	updated, cmd := m.Update(CaptureErrorMsg{Err: capture.ErrDeviceUnavailable})
	model := updated.(Model)
	if model.phase != PhaseIdle {
		t.Error("capture error should return to idle")
	}
	if model.errorMessage == "" {
		t.Error("capture error should surface a message")
	}
	if cmd == nil {
		t.Fatal("capture error should schedule a clear")
	}

	updated, _ = model.Update(ClearTransientErrorMsg{})
	model = updated.(Model)
	if model.errorMessage != "" {
		t.Error("transient error should clear")
	}
}

func TestWrapText(t *testing.T) {
	got := wrapText("one two three four", 9)
	want := []string{"one two", "three", "four"}
	if len(got) != len(want) {
		t.Fatalf("wrapText lines = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, got[i], want[i])
		}
	}

	if got := wrapText("a\n\nb", 10); len(got) != 3 || got[1] != "" {
		t.Errorf("blank paragraph should survive as a blank line: %v", got)
	}
}

func TestTruncateToWidth(t *testing.T) {
	if got := truncateToWidth("short", 10); got != "short" {
		t.Errorf("fitting string changed: %q", got)
	}
	if got := truncateToWidth("much too long", 8); got != "much to…" {
		t.Errorf("truncated = %q", got)
	}
}

func TestViewRendersWithSize(t *testing.T) {
	m := newTestModel(t, "http://localhost:0")
	view := m.View()
	if view == "" {
		t.Error("view should not be empty")
	}
	if view == "Initializing..." {
		t.Error("view should not show initializing with size set")
	}
	if !strings.Contains(view, "AUDIENZE") {
		t.Error("view should carry the header")
	}
}

func TestViewWithoutSize(t *testing.T) {
	m := newTestModel(t, "http://localhost:0")
	m.width = 0
	view := m.View()
	if view != "Initializing..." {
		t.Errorf("view without size = %q, want 'Initializing...'", view)
	}
}
