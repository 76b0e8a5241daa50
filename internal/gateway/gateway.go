// Package gateway is the client side of the transcription boundary: it
// ships a captured audio payload to the analysis service and returns the
// transcript plus derived metrics, or a typed failure. It never panics or
// leaks transport errors across the boundary, and it does not retry.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/audienze/audienze/internal/recording"
)

// Error is the discriminated failure for any gateway problem: network,
// remote error, malformed response. Timeouts look the same as any other
// failure to the caller.
type Error struct {
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// Result is a successful transcription: the transcript text and the metric
// bundle computed by the analysis service.
type Result struct {
	Transcript string
	Metrics    recording.MetricBundle
}

type transcribeResponse struct {
	Transcript string                 `json:"transcript"`
	Analysis   recording.MetricBundle `json:"analysis"`
	Timestamp  string                 `json:"timestamp"`
}

type errorResponse struct {
	Err     string `json:"error"`
	Message string `json:"message"`
}

// Client talks to the analysis service.
type Client struct {
	http *resty.Client
	log  *zap.SugaredLogger
}

// NewClient builds a gateway client for the given base URL. A nil logger is
// replaced with a nop logger.
func NewClient(baseURL string, timeout time.Duration, log *zap.SugaredLogger) *Client {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Client{
		http: resty.New().SetBaseURL(baseURL).SetTimeout(timeout),
		log:  log,
	}
}

// Transcribe posts the payload and measured duration as a multipart body and
// returns the transcript/metric result. Any failure comes back as *Error;
// the caller decides the degraded-recording fallback, not this client.
func (c *Client) Transcribe(ctx context.Context, payload []byte, durationSeconds int) (Result, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetMultipartField("audio", "recording.webm", "audio/webm", bytes.NewReader(payload)).
		SetMultipartFormData(map[string]string{
			"duration": strconv.Itoa(durationSeconds),
		}).
		Post("/api/speech/transcribe")
	if err != nil {
		return Result{}, &Error{Message: "transcription request failed", cause: err}
	}

	// Decode the raw body rather than trusting the Content-Type header; a
	// proxy or misconfigured server answering 200 with a non-JSON page must
	// surface as a failure, not a silent empty transcript.
	if resp.IsError() {
		msg := fmt.Sprintf("transcription service returned %s", resp.Status())
		var er errorResponse
		if jsonErr := json.Unmarshal(resp.Body(), &er); jsonErr == nil && er.Err != "" {
			msg = fmt.Sprintf("%s: %s", msg, er.Err)
			if er.Message != "" {
				msg = fmt.Sprintf("%s (%s)", msg, er.Message)
			}
		}
		return Result{}, &Error{Message: msg}
	}

	var body transcribeResponse
	if jsonErr := json.Unmarshal(resp.Body(), &body); jsonErr != nil {
		return Result{}, &Error{Message: "malformed transcription response", cause: jsonErr}
	}
	if body.Transcript == "" {
		return Result{}, &Error{Message: "malformed transcription response: empty transcript"}
	}

	c.log.Debugw("transcription complete",
		"words", body.Analysis.WordCount, "pace", body.Analysis.Pace)

	return Result{Transcript: body.Transcript, Metrics: body.Analysis}, nil
}
