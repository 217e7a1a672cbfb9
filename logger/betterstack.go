package logger

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Custom log level for NOTICE (below DebugLevel, non-error informational logs)
const NoticeLevel zapcore.Level = -2

// logEntry represents a single log entry for Better Stack
type logEntry struct {
	Timestamp  string         `json:"timestamp"`
	Level      string         `json:"level"`
	Message    string         `json:"message"`
	TraceID    string         `json:"traceID"` // job id
	Layer      string         `json:"layer"`   // component that emitted the entry
	Error      string         `json:"error,omitempty"`
	Attributes map[string]any `json:"attributes"`
}

// BetterStackLogStreamer streams job traces to a local file (development) or
// Better Stack (production). Every entry is mirrored to zap.
type BetterStackLogStreamer struct {
	sourceToken string
	environment string
	uploadURL   string
	logger      *zap.Logger
	client      *http.Client
	fileWriter  io.Writer
	fileMu      sync.Mutex
	wg          sync.WaitGroup
}

// NewBetterStackLogStreamer creates a new BetterStackLogStreamer instance.
// filePath is the development trace file; "" means app.log.
func NewBetterStackLogStreamer(sourceToken, environment, uploadURL, filePath string, logger *zap.Logger) *BetterStackLogStreamer {
	if logger == nil {
		logger = zap.NewNop()
	}
	streamer := &BetterStackLogStreamer{
		sourceToken: sourceToken,
		environment: environment,
		uploadURL:   uploadURL,
		logger:      logger,
	}

	if environment == "development" {
		if filePath == "" {
			filePath = "app.log"
		}
		f, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			logger.Error("Failed to open log file", zap.Error(err))
			streamer.fileWriter = os.Stderr
		} else {
			streamer.fileWriter = f
		}
	}

	if environment == "production" && uploadURL != "" {
		streamer.client = &http.Client{Timeout: 10 * time.Second}
	}

	return streamer
}

func levelName(level zapcore.Level) string {
	switch level {
	case zapcore.ErrorLevel:
		return "ERROR"
	case zapcore.WarnLevel:
		return "WARN"
	case zapcore.InfoLevel:
		return "INFO"
	case NoticeLevel:
		return "NOTICE"
	case zapcore.DebugLevel:
		return "DEBUG"
	default:
		return "UNKNOWN"
	}
}

// Log streams one trace entry. Entries without a trace id are dropped and
// only Info and above are uploaded to Better Stack. A nil streamer is valid
// and does nothing.
func (s *BetterStackLogStreamer) Log(level zapcore.Level, traceID string, message string, attributes map[string]any, layer string, err error) {
	if s == nil || traceID == "" {
		return
	}

	if attributes == nil {
		attributes = make(map[string]any)
	}

	entry := logEntry{
		Timestamp:  time.Now().UTC().Format(time.RFC3339Nano),
		Level:      levelName(level),
		Message:    message,
		TraceID:    traceID,
		Layer:      layer,
		Attributes: attributes,
	}
	if err != nil {
		entry.Error = err.Error()
	}

	body, marshalErr := json.Marshal(entry)
	if marshalErr != nil {
		s.logger.Error("Failed to marshal log", zap.Error(marshalErr))
		return
	}

	switch {
	case s.fileWriter != nil:
		s.fileMu.Lock()
		_, writeErr := s.fileWriter.Write(append(body, '\n'))
		s.fileMu.Unlock()
		if writeErr != nil {
			s.logger.Error("Failed to write log to file", zap.Error(writeErr))
		}
	case s.client != nil && level >= zapcore.InfoLevel:
		s.send(body)
	}

	fields := []zap.Field{
		zap.String("traceID", traceID),
		zap.String("layer", layer),
		zap.Any("attributes", attributes),
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	s.logger.Log(level, message, fields...)
}

func (s *BetterStackLogStreamer) send(body []byte) {
	req, err := http.NewRequest(http.MethodPost, s.uploadURL, bytes.NewReader(body))
	if err != nil {
		s.logger.Error("Failed to create HTTP request", zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.sourceToken)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		resp, err := s.client.Do(req)
		if err != nil {
			s.logger.Error("Failed to send log to Better Stack", zap.Error(err))
			return
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusAccepted {
			s.logger.Error("Unexpected response from Better Stack", zap.String("status", resp.Status))
		}
	}()
}

// Flush waits for pending uploads and closes the trace file.
func (s *BetterStackLogStreamer) Flush() {
	if s == nil {
		return
	}
	s.wg.Wait()
	if c, ok := s.fileWriter.(io.Closer); ok && s.fileWriter != os.Stderr {
		s.fileMu.Lock()
		c.Close()
		s.fileMu.Unlock()
	}
}
