// Package capture owns the recording state machine: opening an audio input
// device, accumulating captured bytes, and turning a confirmed stop into a
// single clip with a measured duration. The save/discard decision is a value
// passed into the stop transition, never a flag re-read by a late device
// callback.
package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// State of the capture controller.
type State string

const (
	StateIdle      State = "idle"
	StateRecording State = "recording"
	StateStopping  State = "stopping"
)

var (
	// ErrDeviceUnavailable means the input device was denied or could not be
	// opened. Fatal to the capture attempt; the controller stays Idle.
	ErrDeviceUnavailable = errors.New("audio input device unavailable")

	// ErrNotRecording is returned when stop/cancel is called outside the
	// Recording state.
	ErrNotRecording = errors.New("not recording")

	// ErrAlreadyRecording is returned when start is called outside Idle.
	ErrAlreadyRecording = errors.New("capture already in progress")
)

// Clip is an assembled capture: the raw audio payload plus its measured
// duration (floor of the wall-clock delta, minimum one second).
type Clip struct {
	Payload  []byte
	Duration int // seconds
}

// Controller drives a single capture at a time.
type Controller struct {
	device Device
	log    *zap.SugaredLogger

	// onTick receives the elapsed seconds on a 1s cadence while recording.
	// Display only; the final duration comes from wall-clock deltas at stop.
	onTick func(seconds int)

	// clock is injectable for testing; defaults to time.Now.
	clock func() time.Time

	mu          sync.Mutex
	state       State
	stream      Stream
	buf         bytes.Buffer
	startedAt   time.Time
	elapsed     int
	tickDone    chan struct{}
	collectDone chan struct{}
}

// NewController builds an Idle controller over the given device. A nil
// logger is replaced with a nop logger.
func NewController(device Device, log *zap.SugaredLogger) *Controller {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Controller{
		device: device,
		log:    log,
		clock:  time.Now,
		state:  StateIdle,
	}
}

// OnTick registers the elapsed-time callback. Must be set before Start.
func (c *Controller) OnTick(fn func(seconds int)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onTick = fn
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Elapsed returns the last ticked elapsed seconds.
func (c *Controller) Elapsed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.elapsed
}

// Start acquires the input device and transitions Idle -> Recording,
// resetting the accumulated buffer and beginning the display tick.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateIdle {
		return ErrAlreadyRecording
	}

	stream, err := c.device.Open(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	c.stream = stream
	c.buf.Reset()
	c.startedAt = c.clock()
	c.elapsed = 0
	c.state = StateRecording
	c.tickDone = make(chan struct{})
	c.collectDone = make(chan struct{})

	go c.collect(stream, c.collectDone)
	go c.tick(c.tickDone)

	return nil
}

// collect accumulates chunks until the stream's channel closes.
func (c *Controller) collect(stream Stream, done chan struct{}) {
	for chunk := range stream.Chunks() {
		c.mu.Lock()
		c.buf.Write(chunk)
		c.mu.Unlock()
	}
	close(done)
}

// tick updates elapsed seconds at 1-second granularity until stopped.
func (c *Controller) tick(done chan struct{}) {
	t := time.NewTicker(time.Second)
	defer t.Stop()
	for {
		select {
		case <-done:
			return
		case <-t.C:
			c.mu.Lock()
			e := int(c.clock().Sub(c.startedAt).Seconds())
			c.elapsed = e
			fn := c.onTick
			c.mu.Unlock()
			if fn != nil {
				fn(e)
			}
		}
	}
}

// Stop halts capture and releases the device. The confirmSave decision is
// fixed here: true assembles the buffer into a Clip with the measured
// duration; false discards the buffer, zeroes elapsed time, and returns a
// nil Clip. The device is released on every path.
func (c *Controller) Stop(confirmSave bool) (*Clip, error) {
	c.mu.Lock()
	if c.state != StateRecording {
		c.mu.Unlock()
		return nil, ErrNotRecording
	}
	c.state = StateStopping
	stream := c.stream
	c.stream = nil
	delta := c.clock().Sub(c.startedAt)
	close(c.tickDone)
	collectDone := c.collectDone
	c.mu.Unlock()

	if err := stream.Close(); err != nil {
		c.log.Warnw("close input device", "error", err)
	}
	// Wait for the final flush so a confirmed save keeps the whole capture.
	<-collectDone

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateIdle

	if !confirmSave {
		c.buf.Reset()
		c.elapsed = 0
		return nil, nil
	}

	duration := int(delta.Seconds())
	if duration < 1 {
		duration = 1
	}

	payload := make([]byte, c.buf.Len())
	copy(payload, c.buf.Bytes())
	c.buf.Reset()

	return &Clip{Payload: payload, Duration: duration}, nil
}

// Cancel discards the capture without a confirmation step.
func (c *Controller) Cancel() error {
	_, err := c.Stop(false)
	return err
}
