package analysis

import (
	"strings"
	"testing"
)

func TestAnalyzeHelloWorldScenario(t *testing.T) {
	// 5 whitespace tokens over 60s: pace 5, two fillers ("um", "you know"),
	// clarity 90.
	m := Analyze("hello world, um, you know", 60)

	if m.WordCount != 5 {
		t.Errorf("wordCount = %d, want 5", m.WordCount)
	}
	if m.Pace != 5 {
		t.Errorf("pace = %d, want 5", m.Pace)
	}
	if m.FillerWords != 2 {
		t.Errorf("fillerWords = %d, want 2", m.FillerWords)
	}
	if m.Clarity != 90 {
		t.Errorf("clarity = %d, want 90", m.Clarity)
	}
	if m.Duration != 60 {
		t.Errorf("duration = %d, want 60", m.Duration)
	}

	joined := strings.Join(m.Suggestions, "\n")
	if !strings.Contains(joined, "speaking a bit faster") {
		t.Errorf("expected speed-up suggestion for pace 5, got %v", m.Suggestions)
	}
	if strings.Contains(joined, "reduce filler words") {
		t.Errorf("did not expect reduce-fillers tip for 2 fillers, got %v", m.Suggestions)
	}
	if !strings.Contains(joined, "Practice pausing") {
		t.Errorf("expected generic pausing tip, got %v", m.Suggestions)
	}
}

func TestFillerCount(t *testing.T) {
	tests := []struct {
		transcript string
		want       int
	}{
		{"", 0},
		{"clean speech with no hesitation", 0},
		{"um uh um", 3},
		{"Um, I think, UM, yes", 2}, // case-insensitive
		{"um, trailing punctuation", 1},
		{"you know what I mean", 1},       // multi-word phrase across boundaries
		{"I was, like, actually there", 2},
		{"summer plumber umbrella", 0},  // no partial-word matches
		{"so well so well", 4},
	}

	for _, tt := range tests {
		if got := FillerCount(tt.transcript); got != tt.want {
			t.Errorf("FillerCount(%q) = %d, want %d", tt.transcript, got, tt.want)
		}
	}
}

func TestPace(t *testing.T) {
	if got := Pace(150, 60); got != 150 {
		t.Errorf("Pace(150, 60) = %d, want 150", got)
	}
	if got := Pace(75, 30); got != 150 {
		t.Errorf("Pace(75, 30) = %d, want 150", got)
	}
	if got := Pace(10, 0); got != 0 {
		t.Errorf("Pace with zero duration = %d, want 0", got)
	}
	// round() rather than truncation: 7 words / 25s * 60 = 16.8 -> 17
	if got := Pace(7, 25); got != 17 {
		t.Errorf("Pace(7, 25) = %d, want 17", got)
	}
}

func TestClarityFloor(t *testing.T) {
	if got := Clarity(0); got != 100 {
		t.Errorf("Clarity(0) = %d, want 100", got)
	}
	if got := Clarity(4); got != 80 {
		t.Errorf("Clarity(4) = %d, want 80", got)
	}
	if got := Clarity(20); got != 60 {
		t.Errorf("Clarity(20) = %d, want 60 (floor)", got)
	}
}

func TestSuggestionThresholds(t *testing.T) {
	slow := strings.Join(Suggestions(100, 1), "\n")
	if !strings.Contains(slow, "speaking a bit faster") {
		t.Errorf("pace 100 should suggest speeding up: %q", slow)
	}

	fast := strings.Join(Suggestions(220, 1), "\n")
	if !strings.Contains(fast, "Slow down") {
		t.Errorf("pace 220 should suggest slowing down: %q", fast)
	}

	good := strings.Join(Suggestions(160, 1), "\n")
	if !strings.Contains(good, "Great pace") {
		t.Errorf("pace 160 should affirm: %q", good)
	}

	fillers := strings.Join(Suggestions(160, 4), "\n")
	if !strings.Contains(fillers, "reduce filler words") {
		t.Errorf("4 fillers should get the reduce tip: %q", fillers)
	}

	clean := strings.Join(Suggestions(160, 0), "\n")
	if !strings.Contains(clean, "No filler words detected") {
		t.Errorf("0 fillers should be praised: %q", clean)
	}

	for _, s := range [][]string{Suggestions(100, 0), Suggestions(220, 5), Suggestions(160, 2)} {
		if last := s[len(s)-1]; !strings.Contains(last, "Practice pausing") {
			t.Errorf("pausing tip must always be appended, got %v", s)
		}
	}
}
