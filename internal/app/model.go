package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/audienze/audienze/internal/capture"
	"github.com/audienze/audienze/internal/gateway"
	"github.com/audienze/audienze/internal/history"
	"github.com/audienze/audienze/internal/recording"
	"github.com/audienze/audienze/internal/store"
	"github.com/audienze/audienze/internal/ui"

	tea "github.com/charmbracelet/bubbletea"
)

// Tab identifies the active top-level view.
type Tab int

const (
	TabRecord Tab = iota
	TabRecordings
	TabFeedback
)

// Phase tracks where the record tab is in the capture lifecycle.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseRecording
	PhaseConfirming // stop requested, waiting on the save/discard answer
	PhaseProcessing // clip sent for transcription
)

// Model is the root bubbletea model for the audienze TUI.
type Model struct {
	controller *capture.Controller
	gateway    *gateway.Client
	manager    *store.Manager
	history    *history.History
	log        *zap.SugaredLogger

	// Record tab
	activeTab Tab
	phase     Phase
	elapsed   int

	// Recordings tab
	historyIndex    int
	confirmingClear bool

	// Transient surface
	notice         string
	errorMessage   string
	errorTransient bool

	width  int
	height int
}

// New creates the root model. The history view-model is refreshed during
// Init.
func New(controller *capture.Controller, gw *gateway.Client, manager *store.Manager, hist *history.History, log *zap.SugaredLogger) Model {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return Model{
		controller: controller,
		gateway:    gw,
		manager:    manager,
		history:    hist,
		log:        log,
	}
}

// Init loads the persisted history before the first render.
func (m Model) Init() tea.Cmd {
	if err := m.history.Refresh(); err != nil {
		m.log.Warnw("initial history load failed", "error", err)
	}
	return nil
}

// startCmd acquires the capture device.
func startCmd(controller *capture.Controller) tea.Cmd {
	return func() tea.Msg {
		if err := controller.Start(context.Background()); err != nil {
			return CaptureErrorMsg{Err: err}
		}
		return RecordingStartedMsg{}
	}
}

// elapsedTickCmd re-renders the elapsed display once per second.
func elapsedTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return ElapsedTickMsg{}
	})
}

// transcribeCmd sends the clip to the analysis service. Every gateway
// failure degrades to a saved error recording rather than losing the
// capture.
func transcribeCmd(gw *gateway.Client, clip *capture.Clip) tea.Cmd {
	return func() tea.Msg {
		res, err := gw.Transcribe(context.Background(), clip.Payload, clip.Duration)
		if err != nil {
			return TranscriptReadyMsg{
				Rec:      recording.NewDegraded(clip.Payload, clip.Duration),
				Payload:  clip.Payload,
				Degraded: true,
				Notice:   err.Error(),
			}
		}
		metrics := res.Metrics
		if metrics.Duration == 0 {
			metrics.Duration = clip.Duration
		}
		return TranscriptReadyMsg{
			Rec:     recording.New(res.Transcript, metrics, clip.Payload),
			Payload: clip.Payload,
		}
	}
}

// saveCmd persists the recording to both stores.
func saveCmd(manager *store.Manager, rec recording.Recording, payload []byte) tea.Cmd {
	return func() tea.Msg {
		saved, err := manager.Save(rec, payload)
		if err != nil {
			return SaveErrorMsg{Err: err}
		}
		return SavedMsg{Rec: saved}
	}
}

// clearTransientErrorCmd fires after a delay to clear transient errors.
func clearTransientErrorCmd() tea.Cmd {
	return tea.Tick(5*time.Second, func(time.Time) tea.Msg {
		return ClearTransientErrorMsg{}
	})
}

// Update processes messages and returns the updated model and any commands.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case RecordingStartedMsg:
		m.phase = PhaseRecording
		m.elapsed = 0
		m.notice = ""
		return m, elapsedTickCmd()

	case CaptureErrorMsg:
		m.phase = PhaseIdle
		m.errorMessage = msg.Err.Error()
		m.errorTransient = true
		return m, clearTransientErrorCmd()

	case ElapsedTickMsg:
		if m.phase != PhaseRecording && m.phase != PhaseConfirming {
			return m, nil
		}
		m.elapsed = m.controller.Elapsed()
		return m, elapsedTickCmd()

	case TranscriptReadyMsg:
		if msg.Degraded {
			m.notice = "Transcription unavailable. Saving recording with placeholder feedback."
			m.log.Warnw("transcription degraded", "error", msg.Notice)
		}
		return m, saveCmd(m.manager, msg.Rec, msg.Payload)

	case SavedMsg:
		m.phase = PhaseIdle
		m.elapsed = 0
		if err := m.history.Refresh(); err != nil {
			m.log.Warnw("history refresh failed", "error", err)
		}
		m.history.FocusNewest(msg.Rec)
		m.historyIndex = 0
		m.activeTab = TabFeedback
		return m, nil

	case SaveErrorMsg:
		m.phase = PhaseIdle
		m.elapsed = 0
		m.errorMessage = "Could not save recording: " + msg.Err.Error()
		return m, nil

	case ClearTransientErrorMsg:
		if m.errorTransient {
			m.errorMessage = ""
			m.errorTransient = false
		}
		return m, nil
	}

	return m, nil
}

// handleKey processes key presses.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	// The clear-all prompt swallows everything except its answer.
	if m.confirmingClear {
		switch key {
		case KeyYes:
			m.confirmingClear = false
			if err := m.history.Clear(); err != nil {
				m.errorMessage = "Could not clear recordings: " + err.Error()
			}
			m.historyIndex = 0
		case KeyNo, KeyEsc:
			m.confirmingClear = false
		}
		return m, nil
	}

	// Save/discard answer. The decision is handed to Stop as a value; a
	// late answer cannot flip an earlier one.
	if m.phase == PhaseConfirming {
		switch key {
		case KeyYes:
			clip, err := m.controller.Stop(true)
			if err != nil {
				m.phase = PhaseIdle
				m.errorMessage = err.Error()
				return m, nil
			}
			m.phase = PhaseProcessing
			return m, transcribeCmd(m.gateway, clip)
		case KeyNo:
			if _, err := m.controller.Stop(false); err != nil {
				m.errorMessage = err.Error()
			}
			m.phase = PhaseIdle
			m.elapsed = 0
		case KeyEsc:
			m.phase = PhaseRecording
		}
		return m, nil
	}

	switch key {
	case KeyQuit, KeyQuitUpper, KeyCtrlC:
		if m.phase == PhaseRecording || m.phase == PhaseConfirming {
			m.controller.Cancel()
		}
		m.history.StopPlayback()
		return m, tea.Quit

	case KeySpace, KeyRecord, KeyRecordUpper:
		switch m.phase {
		case PhaseIdle:
			m.activeTab = TabRecord
			return m, startCmd(m.controller)
		case PhaseRecording:
			m.phase = PhaseConfirming
		}
		return m, nil

	case KeyEsc:
		if m.phase == PhaseRecording {
			// Abandon without the prompt; nothing is kept.
			m.controller.Cancel()
			m.phase = PhaseIdle
			m.elapsed = 0
		}
		return m, nil

	case KeyTab:
		m.activeTab = (m.activeTab + 1) % 3
		return m, nil

	case "1":
		m.activeTab = TabRecord
		return m, nil
	case "2":
		m.activeTab = TabRecordings
		return m, nil
	case "3":
		m.activeTab = TabFeedback
		return m, nil

	case KeyJ, KeyDown:
		if m.activeTab == TabRecordings {
			if m.historyIndex < len(m.history.Recordings())-1 {
				m.historyIndex++
			}
		}
		return m, nil

	case KeyK, KeyUp:
		if m.activeTab == TabRecordings && m.historyIndex > 0 {
			m.historyIndex--
		}
		return m, nil

	case KeyEnter:
		if m.activeTab != TabRecordings {
			return m, nil
		}
		recs := m.history.NewestFirst()
		if m.historyIndex >= len(recs) {
			return m, nil
		}
		sel, err := m.history.Select(recs[m.historyIndex].ID)
		if err != nil {
			m.errorMessage = err.Error()
			return m, nil
		}
		if sel.PlaybackUnavailable {
			m.notice = "Audio unavailable for this recording."
		} else {
			m.notice = ""
		}
		m.activeTab = TabFeedback
		return m, nil

	case KeyDelete:
		if m.activeTab != TabRecordings {
			return m, nil
		}
		recs := m.history.NewestFirst()
		if m.historyIndex >= len(recs) {
			return m, nil
		}
		if err := m.history.Delete(recs[m.historyIndex].ID); err != nil {
			m.errorMessage = "Could not delete recording: " + err.Error()
			return m, nil
		}
		if m.historyIndex >= len(m.history.Recordings()) {
			m.historyIndex = max(0, len(m.history.Recordings())-1)
		}
		return m, nil

	case KeyClearAll:
		if m.activeTab == TabRecordings && len(m.history.Recordings()) > 0 {
			m.confirmingClear = true
		}
		return m, nil
	}

	return m, nil
}

// View renders the full TUI.
func (m Model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	var sections []string

	sections = append(sections, m.renderHeader())
	sections = append(sections, ui.DividerStyle.Render(strings.Repeat("─", m.width)))

	switch m.activeTab {
	case TabRecord:
		sections = append(sections, m.renderRecordTab())
	case TabRecordings:
		sections = append(sections, m.renderRecordingsTab())
	case TabFeedback:
		sections = append(sections, m.renderFeedbackTab())
	}

	sections = append(sections, ui.DividerStyle.Render(strings.Repeat("─", m.width)))

	if m.errorMessage != "" {
		sections = append(sections, ui.ErrorStyle.Render("Error: ")+ui.ErrorTextStyle.Render(m.errorMessage))
	}
	if m.notice != "" {
		sections = append(sections, ui.NoticeStyle.Render(m.notice))
	}

	sections = append(sections, m.renderFooter())

	return strings.Join(sections, "\n")
}

func (m Model) renderHeader() string {
	title := ui.TitleStyle.Render("AUDIENZE")

	tabs := []string{"Record", "Recordings", "Feedback"}
	var rendered []string
	for i, name := range tabs {
		label := fmt.Sprintf("%d:%s", i+1, name)
		if Tab(i) == m.activeTab {
			rendered = append(rendered, ui.TabActiveStyle.Render(label))
		} else {
			rendered = append(rendered, ui.TabStyle.Render(label))
		}
	}

	return title + "  " + strings.Join(rendered, "  ")
}

func (m Model) renderRecordTab() string {
	var lines []string
	lines = append(lines, "")

	switch m.phase {
	case PhaseIdle:
		lines = append(lines, "  "+ui.IdleDotStyle.Render("○ IDLE"))
		lines = append(lines, "")
		lines = append(lines, ui.DimStyle.Render("  Press Space to start recording"))

	case PhaseRecording:
		lines = append(lines, "  "+ui.RecordingDotStyle.Render("● REC")+"  "+formatElapsed(m.elapsed))
		lines = append(lines, "")
		lines = append(lines, ui.DimStyle.Render("  Space to stop, Esc to abandon"))

	case PhaseConfirming:
		lines = append(lines, "  "+ui.RecordingDotStyle.Render("● REC")+"  "+formatElapsed(m.elapsed))
		lines = append(lines, "")
		lines = append(lines, "  "+ui.PromptStyle.Render("Save this recording? (y/n, Esc to keep going)"))

	case PhaseProcessing:
		lines = append(lines, "  "+ui.SpinnerStyle.Render("⟳ Processing..."))
		lines = append(lines, "")
		lines = append(lines, ui.DimStyle.Render("  Transcribing and analyzing your speech"))
	}

	return m.padContent(lines)
}

func (m Model) renderRecordingsTab() string {
	var lines []string
	recs := m.history.NewestFirst()

	header := ui.TitleStyle.Render(fmt.Sprintf("RECORDINGS (%d)", len(recs)))
	lines = append(lines, header)

	if m.confirmingClear {
		lines = append(lines, "  "+ui.PromptStyle.Render("Delete ALL recordings? (y/n)"))
	}

	if len(recs) == 0 {
		lines = append(lines, "")
		lines = append(lines, ui.DimStyle.Render("  No recordings yet. Press Space to make one."))
	} else {
		selected := m.history.Selected()
		for i, r := range recs {
			ts := ui.TimestampStyle.Render(r.Timestamp.Local().Format("Jan 02 15:04"))
			desc := fmt.Sprintf("%s  %s  %d wpm", ts, formatElapsed(r.Duration), r.Feedback.Pace)
			if r.Status == recording.StatusError {
				desc += "  " + ui.ErrorTextStyle.Render("transcription failed")
			}
			cursor := "  "
			if i == m.historyIndex {
				cursor = ui.SelectedStyle.Render("> ")
			}
			marker := "  "
			if selected != nil && selected.Recording.ID == r.ID {
				marker = ui.SelectedStyle.Render("♪ ")
			}
			lines = append(lines, truncateToWidth(cursor+marker+desc, m.width))
		}
	}

	return m.padContent(lines)
}

func (m Model) renderFeedbackTab() string {
	var lines []string
	lines = append(lines, ui.TitleStyle.Render("FEEDBACK"))

	sel := m.history.Selected()
	if sel == nil {
		lines = append(lines, "")
		lines = append(lines, ui.DimStyle.Render("  Record or select a recording to see feedback."))
		return m.padContent(lines)
	}

	r := sel.Recording
	lines = append(lines, "")
	lines = append(lines, "  "+ui.MetricLabelStyle.Render("Pace      ")+renderPace(r.Feedback.Pace))
	lines = append(lines, "  "+ui.MetricLabelStyle.Render("Clarity   ")+renderClarity(r.Feedback.Clarity))
	lines = append(lines, "  "+ui.MetricLabelStyle.Render("Fillers   ")+fmt.Sprintf("%d", r.Feedback.FillerWords))
	lines = append(lines, "  "+ui.MetricLabelStyle.Render("Words     ")+fmt.Sprintf("%d", r.Feedback.WordCount))
	lines = append(lines, "  "+ui.MetricLabelStyle.Render("Duration  ")+formatElapsed(r.Duration))

	if len(r.Feedback.Suggestions) > 0 {
		lines = append(lines, "")
		lines = append(lines, "  "+ui.TitleStyle.Render("Suggestions"))
		for _, s := range r.Feedback.Suggestions {
			for j, wl := range wrapText(s, max(10, m.width-8)) {
				if j == 0 {
					lines = append(lines, "   • "+ui.SuggestionStyle.Render(wl))
				} else {
					lines = append(lines, "     "+ui.SuggestionStyle.Render(wl))
				}
			}
		}
	}

	if r.Transcript != "" {
		lines = append(lines, "")
		lines = append(lines, "  "+ui.TitleStyle.Render("Transcript"))
		for _, wl := range wrapText(r.Transcript, max(10, m.width-6)) {
			lines = append(lines, "  "+wl)
		}
	}

	if sel.PlaybackUnavailable {
		lines = append(lines, "")
		lines = append(lines, "  "+ui.NoticeStyle.Render("Audio unavailable for playback."))
	}

	return m.padContent(lines)
}

func renderPace(pace int) string {
	label := fmt.Sprintf("%d wpm", pace)
	if pace >= 120 && pace <= 200 {
		return ui.MetricGoodStyle.Render(label)
	}
	return ui.MetricWarnStyle.Render(label)
}

func renderClarity(clarity int) string {
	label := fmt.Sprintf("%d/100", clarity)
	if clarity >= 90 {
		return ui.MetricGoodStyle.Render(label)
	}
	return ui.MetricWarnStyle.Render(label)
}

func (m Model) renderFooter() string {
	var parts []string

	switch m.phase {
	case PhaseIdle:
		parts = append(parts, ui.FooterKeyStyle.Render("Space")+ui.FooterDescStyle.Render(" Record"))
	case PhaseRecording:
		parts = append(parts, ui.FooterKeyStyle.Render("Space")+ui.FooterDescStyle.Render(" Stop"))
	}
	parts = append(parts, ui.FooterKeyStyle.Render("Tab")+ui.FooterDescStyle.Render(" View"))
	if m.activeTab == TabRecordings {
		parts = append(parts, ui.FooterKeyStyle.Render("j/k")+ui.FooterDescStyle.Render(" Nav"))
		parts = append(parts, ui.FooterKeyStyle.Render("Enter")+ui.FooterDescStyle.Render(" Play"))
		parts = append(parts, ui.FooterKeyStyle.Render("d")+ui.FooterDescStyle.Render(" Delete"))
		parts = append(parts, ui.FooterKeyStyle.Render("x")+ui.FooterDescStyle.Render(" Clear all"))
	}
	parts = append(parts, ui.FooterKeyStyle.Render("q")+ui.FooterDescStyle.Render(" Quit"))

	return strings.Join(parts, "  ")
}

// padContent pads tab content to a stable height so the footer does not
// jump between renders.
func (m Model) padContent(lines []string) string {
	height := m.contentHeight()
	for len(lines) < height {
		lines = append(lines, "")
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	return strings.Join(lines, "\n")
}

func (m Model) contentHeight() int {
	if m.height == 0 {
		return 20
	}
	// Reserve: header(1) + dividers(2) + error/notice(2) + footer(1)
	return max(5, m.height-6)
}

func formatElapsed(seconds int) string {
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// Helpers

// truncateToWidth clips s to the rendered width, marking the cut with an
// ellipsis. Width is measured in visible cells, so styled strings that
// already fit pass through untouched.
func truncateToWidth(s string, width int) string {
	if lipgloss.Width(s) <= width {
		return s
	}
	runes := []rune(s)
	if width < 2 {
		return string(runes[:max(0, width)])
	}
	return string(runes[:width-1]) + "…"
}

// wrapText greedily packs words into lines no wider than width. Blank
// paragraphs survive as blank lines.
func wrapText(text string, width int) []string {
	if width <= 0 {
		return []string{text}
	}

	var lines []string
	for _, paragraph := range strings.Split(text, "\n") {
		words := strings.Fields(paragraph)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		current := words[0]
		for _, word := range words[1:] {
			if len(current)+1+len(word) <= width {
				current += " " + word
				continue
			}
			lines = append(lines, current)
			current = word
		}
		lines = append(lines, current)
	}
	return lines
}
