// Package server exposes the transcription/analysis HTTP boundary: a
// multipart endpoint that accepts one audio payload plus an optional
// duration and returns the transcript and derived delivery metrics.
package server

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/audienze/audienze/internal/analysis"
)

// MaxAudioBytes is the largest accepted payload (Whisper's limit).
const MaxAudioBytes = 25 << 20

// defaultDuration is assumed when the client sends no duration field.
const defaultDuration = 60

// Server hosts the analysis API.
type Server struct {
	engine      *gin.Engine
	transcriber analysis.Transcriber
	log         *zap.SugaredLogger
	started     time.Time
	maxBytes    int64
}

// New builds the server around a Transcriber. A nil logger is replaced with
// a nop logger.
func New(transcriber analysis.Transcriber, log *zap.SugaredLogger) *Server {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(log))

	s := &Server{
		engine:      engine,
		transcriber: transcriber,
		log:         log,
		started:     time.Now(),
		maxBytes:    MaxAudioBytes,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.engine.GET("/", s.handleWelcome)
	s.engine.GET("/api/health", s.handleHealth)
	s.engine.POST("/api/speech/transcribe", s.handleTranscribe)
}

// Handler exposes the underlying handler for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until the listener fails.
func (s *Server) Run(addr string) error {
	s.log.Infow("analysis server listening", "addr", addr)
	return s.engine.Run(addr)
}

func (s *Server) handleWelcome(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message":   "Welcome to Audienze API",
		"version":   "1.0.0",
		"status":    "running",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"uptime":    time.Since(s.started).Seconds(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleTranscribe(c *gin.Context) {
	file, header, err := c.Request.FormFile("audio")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No audio file provided"})
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "audio/") {
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "Only audio files are allowed"})
		return
	}
	if header.Size > s.maxBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"error": fmt.Sprintf("Audio payload exceeds %d bytes", s.maxBytes),
		})
		return
	}

	audio, err := io.ReadAll(io.LimitReader(file, s.maxBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Could not read audio payload"})
		return
	}
	if int64(len(audio)) > s.maxBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"error": fmt.Sprintf("Audio payload exceeds %d bytes", s.maxBytes),
		})
		return
	}

	duration := defaultDuration
	if raw := c.PostForm("duration"); raw != "" {
		if parsed, err := strconv.ParseFloat(raw, 64); err == nil && parsed > 0 {
			duration = int(parsed)
		}
	}

	transcript, err := s.transcriber.Transcribe(c.Request.Context(), audio, contentType)
	if err != nil {
		s.log.Errorw("transcription failed", "size", len(audio), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Transcription failed",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"transcript": transcript,
		"analysis":   analysis.Analyze(transcript, duration),
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	})
}

// requestLogger logs one line per request.
func requestLogger(log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Infow("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		)
	}
}
