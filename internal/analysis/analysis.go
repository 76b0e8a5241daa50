// Package analysis derives delivery metrics from a transcript: pace, a
// clarity score, filler-word counts, and coaching suggestions. The
// derivation is deterministic arithmetic over the transcript text, not
// acoustic analysis.
package analysis

import (
	"math"
	"regexp"
	"strings"

	"github.com/audienze/audienze/internal/recording"
)

// fillerVocabulary is the fixed set of filler words and phrases counted
// against the transcript. Multi-word phrases are matched against the full
// transcript text, not per token.
var fillerVocabulary = []string{"um", "uh", "like", "you know", "so", "well", "actually"}

// fillerPatterns are case-insensitive whole-word matchers, one per vocabulary
// entry. Word boundaries make trailing punctuation ("um,") still count.
var fillerPatterns = func() []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, len(fillerVocabulary))
	for i, f := range fillerVocabulary {
		patterns[i] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(f) + `\b`)
	}
	return patterns
}()

// WordCount counts whitespace-separated tokens.
func WordCount(transcript string) int {
	return len(strings.Fields(transcript))
}

// Pace returns words per minute for the given word count and duration.
func Pace(wordCount, durationSeconds int) int {
	if durationSeconds <= 0 {
		return 0
	}
	return int(math.Round(float64(wordCount) / float64(durationSeconds) * 60))
}

// FillerCount counts whole-word occurrences of the filler vocabulary across
// the transcript.
func FillerCount(transcript string) int {
	count := 0
	for _, p := range fillerPatterns {
		count += len(p.FindAllStringIndex(transcript, -1))
	}
	return count
}

// Clarity maps a filler count to a 60-100 score.
func Clarity(fillerCount int) int {
	c := 100 - fillerCount*5
	if c < 60 {
		return 60
	}
	return c
}

// Suggestions generates coaching tips from pace and filler count using fixed
// thresholds, always ending with a generic pausing tip.
func Suggestions(pace, fillerCount int) []string {
	var suggestions []string

	if pace < 120 {
		suggestions = append(suggestions, "Try speaking a bit faster - aim for 150-180 words per minute")
	} else if pace > 200 {
		suggestions = append(suggestions, "Slow down slightly - aim for 150-180 words per minute")
	} else {
		suggestions = append(suggestions, "Great pace! Keep it steady")
	}

	if fillerCount > 3 {
		suggestions = append(suggestions, "Try to reduce filler words like 'um' and 'uh'")
	} else if fillerCount == 0 {
		suggestions = append(suggestions, "Excellent! No filler words detected")
	}

	suggestions = append(suggestions, "Practice pausing between key points for better clarity")

	return suggestions
}

// Analyze bundles the full metric derivation for a transcript and its
// measured duration.
func Analyze(transcript string, durationSeconds int) recording.MetricBundle {
	words := WordCount(transcript)
	pace := Pace(words, durationSeconds)
	fillers := FillerCount(transcript)

	return recording.MetricBundle{
		Pace:        pace,
		Clarity:     Clarity(fillers),
		FillerWords: fillers,
		WordCount:   words,
		Duration:    durationSeconds,
		Suggestions: Suggestions(pace, fillers),
	}
}
