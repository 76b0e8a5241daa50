// Command audienzed is the analysis service: it accepts audio uploads,
// transcribes them with Whisper, and returns speech-delivery metrics.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/audienze/audienze/internal/analysis"
	"github.com/audienze/audienze/internal/config"
	"github.com/audienze/audienze/internal/logging"
	"github.com/audienze/audienze/internal/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "audienzed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logging.New(logging.Options{Path: cfg.LogPath, Level: cfg.LogLevel, Console: true})
	if err != nil {
		return err
	}
	defer log.Sync()

	if cfg.OpenAIAPIKey == "" {
		return errors.New("AUDIENZE_OPENAI_API_KEY is required")
	}
	transcriber := analysis.NewWhisperTranscriber(cfg.OpenAIAPIKey)

	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: server.New(transcriber, log).Handler(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	go func() {
		log.Infow("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("listen and serve", "error", err)
		}
	}()

	<-ctx.Done()
	log.Infow("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
