package history

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"
)

// ExecSink plays audio by shelling out to a local player. Playback is
// fire-and-forget; Stop kills whatever is currently playing.
type ExecSink struct {
	mu   sync.Mutex
	cmd  *exec.Cmd
	path string
}

// NewExecSink returns a sink backed by ffplay on Linux and afplay on macOS.
func NewExecSink() *ExecSink {
	return &ExecSink{}
}

// Play writes the payload to a temp file and starts the player on it. Any
// previous playback is stopped first.
func (s *ExecSink) Play(id string, payload []byte) error {
	s.Stop()

	path := filepath.Join(os.TempDir(), "audienze-"+id+".webm")
	if err := os.WriteFile(path, payload, 0o600); err != nil {
		return fmt.Errorf("write playback file: %w", err)
	}

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("afplay", path)
	default:
		cmd = exec.Command("ffplay", "-nodisp", "-autoexit", "-loglevel", "quiet", path)
	}
	if err := cmd.Start(); err != nil {
		os.Remove(path)
		return fmt.Errorf("start player: %w", err)
	}

	s.mu.Lock()
	s.cmd = cmd
	s.path = path
	s.mu.Unlock()

	go func() {
		cmd.Wait()
		os.Remove(path)
	}()
	return nil
}

// Stop kills the current player, if any.
func (s *ExecSink) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cmd != nil && s.cmd.Process != nil {
		s.cmd.Process.Kill()
	}
	s.cmd = nil
	s.path = ""
}
