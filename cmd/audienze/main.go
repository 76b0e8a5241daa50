// Command audienze is the terminal client: record a practice session, send
// it for transcription and analysis, and browse saved recordings with their
// feedback.
package main

import (
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/audienze/audienze/internal/app"
	"github.com/audienze/audienze/internal/capture"
	"github.com/audienze/audienze/internal/config"
	"github.com/audienze/audienze/internal/gateway"
	"github.com/audienze/audienze/internal/history"
	"github.com/audienze/audienze/internal/logging"
	"github.com/audienze/audienze/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "audienze: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logging.New(logging.Options{Path: cfg.LogPath, Level: cfg.LogLevel})
	if err != nil {
		return err
	}
	defer log.Sync()

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	manager := store.NewManager(db.MetadataStore(), db.BlobStore(), log)
	manager.SetRetention(cfg.Retention)

	controller := capture.NewController(capture.DefaultDevice(), log)
	gw := gateway.NewClient(cfg.GatewayURL, time.Duration(cfg.GatewayTimeout)*time.Second, log)
	hist := history.New(manager, history.NewExecSink(), log)

	model := app.New(controller, gw, manager, hist, log)
	program := tea.NewProgram(model, tea.WithAltScreen())

	log.Infow("starting", "db", cfg.DBPath, "gateway", cfg.GatewayURL)
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}
