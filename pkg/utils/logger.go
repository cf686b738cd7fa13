package utils

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger writes the engine's operational log. Nothing here prints to the
// terminal; command output is the caller's business.
type Logger struct {
	logger        *log.Logger
	closer        io.Closer
	jsonMode      bool
	correlationID string
}

var (
	globalLogger *Logger
	once         sync.Once
)

// GetLogger returns the process logger, rotating under the engine's home
// directory. UNICORN_JSON_LOGS=1 switches to JSON lines and
// UNICORN_CORRELATION_ID tags every record.
func GetLogger() *Logger {
	once.Do(func() {
		logFile := &lumberjack.Logger{
			Filename:   filepath.Join(HomeDir(), "engine.log"),
			MaxSize:    15, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}
		globalLogger = NewLogger(logFile)
		globalLogger.closer = logFile
	})
	if os.Getenv("UNICORN_JSON_LOGS") == "1" {
		globalLogger.jsonMode = true
	}
	if cid := os.Getenv("UNICORN_CORRELATION_ID"); cid != "" {
		globalLogger.correlationID = cid
	}
	return globalLogger
}

// NewLogger returns a logger writing to w, for tests and embedding.
func NewLogger(w io.Writer) *Logger {
	return &Logger{logger: log.New(w, "", log.LstdFlags)}
}

// SetJSON switches JSON output on or off.
func (w *Logger) SetJSON(on bool) {
	w.jsonMode = on
}

// HomeDir is where config, logs and the page database live.
func HomeDir() string {
	if dir := os.Getenv("UNICORN_HOME"); dir != "" {
		return dir
	}
	return ".unicorn"
}

// Close closes the rotating log file, if there is one.
func (w *Logger) Close() error {
	if w.closer != nil {
		return w.closer.Close()
	}
	return nil
}

// Log logs a general message.
func (w *Logger) Log(message string) {
	if w.jsonMode {
		w.encode(map[string]any{"level": "info", "msg": message, "cid": w.correlationID})
		return
	}
	w.logger.Print(message)
}

// Logf logs a formatted message.
func (w *Logger) Logf(format string, v ...interface{}) {
	if w.jsonMode {
		w.Log(fmt.Sprintf(format, v...))
		return
	}
	w.logger.Printf(format, v...)
}

func (w *Logger) LogError(err error) {
	if w.jsonMode {
		w.encode(map[string]any{"level": "error", "error": err.Error(), "cid": w.correlationID})
		return
	}
	w.logger.Printf("Error: %s", err)
}

// LogOperation records one engine operation, such as a parse or an apply.
func (w *Logger) LogOperation(operation, details string) {
	if w.jsonMode {
		w.encode(map[string]any{"level": "info", "op": operation, "msg": details, "cid": w.correlationID})
		return
	}
	w.logger.Printf("Operation: %s, Details: %s", operation, details)
}

func (w *Logger) encode(rec map[string]any) {
	_ = json.NewEncoder(w.logger.Writer()).Encode(rec)
}
