package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"sync"
)

// Stream delivers captured audio chunks. The channel closes after Close,
// once any final flush has been delivered.
type Stream interface {
	Chunks() <-chan []byte
	Close() error
}

// Device opens an exclusive audio input stream.
type Device interface {
	Open(ctx context.Context) (Stream, error)
}

// ExecDevice captures audio by running an external encoder process and
// reading its stdout. The default command records the system microphone
// with ffmpeg into a webm/opus stream.
type ExecDevice struct {
	Command string
	Args    []string
}

// DefaultDevice returns an ffmpeg-backed device for the current platform.
func DefaultDevice() *ExecDevice {
	var input []string
	switch runtime.GOOS {
	case "darwin":
		input = []string{"-f", "avfoundation", "-i", ":0"}
	default:
		input = []string{"-f", "pulse", "-i", "default"}
	}
	args := append([]string{"-hide_banner", "-loglevel", "error"}, input...)
	args = append(args, "-c:a", "libopus", "-f", "webm", "pipe:1")
	return &ExecDevice{Command: "ffmpeg", Args: args}
}

func (d *ExecDevice) Open(ctx context.Context) (Stream, error) {
	cmd := exec.CommandContext(ctx, d.Command, d.Args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("capture pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", d.Command, err)
	}

	s := &execStream{
		cmd:    cmd,
		chunks: make(chan []byte),
		closed: make(chan struct{}),
	}
	go s.read(stdout)
	return s, nil
}

type execStream struct {
	cmd       *exec.Cmd
	chunks    chan []byte
	closed    chan struct{}
	closeOnce sync.Once
	closeErr  error
}

func (s *execStream) Chunks() <-chan []byte {
	return s.chunks
}

func (s *execStream) read(r io.Reader) {
	defer close(s.chunks)
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case s.chunks <- chunk:
			case <-s.closed:
				return
			}
		}
		if err != nil {
			return
		}
	}
}

// Close releases the device by terminating the encoder process.
func (s *execStream) Close() error {
	s.closeOnce.Do(func() {
		close(s.closed)
		if s.cmd.Process != nil {
			s.cmd.Process.Kill()
		}
		// A kill-induced exit is the normal release path, not an error.
		var exitErr *exec.ExitError
		if err := s.cmd.Wait(); err != nil && !errors.As(err, &exitErr) {
			s.closeErr = err
		}
	})
	return s.closeErr
}
