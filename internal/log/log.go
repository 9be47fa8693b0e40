// Package log provides centralized logging functionality using zap logger.
package log

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var log *zap.SugaredLogger
var baseLogger *zap.Logger
var logBuffer *LogBuffer

// LogBuffer is a thread-safe circular buffer for capturing log entries
type LogBuffer struct {
	mutex       sync.RWMutex
	entries     []LogEntry
	maxSize     int
	index       int
	subscribers []chan LogEntry
}

// LogEntry represents a single log entry
type LogEntry struct {
	Timestamp time.Time              `json:"timestamp"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Caller    string                 `json:"caller,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// NewLogBuffer creates a new log buffer with the specified maximum size
func NewLogBuffer(maxSize int) *LogBuffer {
	return &LogBuffer{
		entries: make([]LogEntry, maxSize),
		maxSize: maxSize,
	}
}

// Write implements zapcore.WriteSyncer
func (lb *LogBuffer) Write(data []byte) (int, error) {
	var logData map[string]interface{}
	if err := json.Unmarshal(data, &logData); err != nil {
		lb.AddEntry(LogEntry{Timestamp: time.Now(), Level: "unknown", Message: string(data)})
		return len(data), nil
	}

	entry := LogEntry{Timestamp: time.Now(), Fields: make(map[string]interface{})}

	for _, key := range []string{"ts", "time", "timestamp", "@timestamp"} {
		if ts, ok := logData[key]; ok {
			if parsed := parseTimestamp(ts); !parsed.IsZero() {
				entry.Timestamp = parsed
			}
			break
		}
	}

	if level, ok := logData["level"]; ok {
		entry.Level = fmt.Sprintf("%v", level)
	}
	if msg, ok := logData["msg"]; ok {
		entry.Message = fmt.Sprintf("%v", msg)
	} else if msg, ok := logData["message"]; ok {
		entry.Message = fmt.Sprintf("%v", msg)
	}
	if caller, ok := logData["caller"]; ok {
		entry.Caller = fmt.Sprintf("%v", caller)
	}

	excludeFields := map[string]bool{
		"ts": true, "time": true, "timestamp": true, "@timestamp": true,
		"level": true, "msg": true, "message": true, "caller": true,
	}
	for k, v := range logData {
		if !excludeFields[k] {
			entry.Fields[k] = v
		}
	}

	lb.AddEntry(entry)
	return len(data), nil
}

func parseTimestamp(ts interface{}) time.Time {
	switch v := ts.(type) {
	case float64:
		if v > 1e10 {
			return time.Unix(0, int64(v))
		}
		return time.Unix(int64(v), 0)
	case string:
		formats := []string{time.RFC3339, time.RFC3339Nano, "2006-01-02T15:04:05.000Z07:00", "2006-01-02 15:04:05"}
		for _, format := range formats {
			if parsed, err := time.Parse(format, v); err == nil {
				return parsed
			}
		}
	}
	return time.Time{}
}

// Sync implements zapcore.WriteSyncer
func (lb *LogBuffer) Sync() error { return nil }

// AddEntry adds a log entry to the circular buffer and fans it out to subscribers
func (lb *LogBuffer) AddEntry(entry LogEntry) {
	lb.mutex.Lock()
	defer lb.mutex.Unlock()

	lb.entries[lb.index] = entry
	lb.index = (lb.index + 1) % lb.maxSize

	for _, sub := range lb.subscribers {
		select {
		case sub <- entry:
		default:
		}
	}
}

// GetLogs returns all current log entries in chronological order
func (lb *LogBuffer) GetLogs(clear bool) []LogEntry {
	if clear {
		lb.mutex.Lock()
		defer lb.mutex.Unlock()
	} else {
		lb.mutex.RLock()
		defer lb.mutex.RUnlock()
	}

	var result []LogEntry
	for i := 0; i < lb.maxSize; i++ {
		idx := (lb.index + i) % lb.maxSize
		if !lb.entries[idx].Timestamp.IsZero() {
			result = append(result, lb.entries[idx])
		}
	}

	if clear {
		lb.entries = make([]LogEntry, lb.maxSize)
		lb.index = 0
	}
	return result
}

// Subscribe adds a channel to receive new log entries as they arrive
func (lb *LogBuffer) Subscribe() chan LogEntry {
	lb.mutex.Lock()
	defer lb.mutex.Unlock()

	ch := make(chan LogEntry, 10)
	lb.subscribers = append(lb.subscribers, ch)
	return ch
}

// Unsubscribe removes a channel from receiving log entries
func (lb *LogBuffer) Unsubscribe(ch chan LogEntry) {
	lb.mutex.Lock()
	defer lb.mutex.Unlock()

	for i, sub := range lb.subscribers {
		if sub == ch {
			lb.subscribers = append(lb.subscribers[:i], lb.subscribers[i+1:]...)
			close(ch)
			break
		}
	}
}

// Options controls Init behavior.
type Options struct {
	Debug      bool
	LogFile    string // if set, logs also rotate to this file via lumberjack
	MaxSizeMB  int
	MaxBackups int
}

// Init initializes the package-level logger with buffering, console output and
// optional rotating file output.
func Init(opts Options) error {
	logBuffer = NewLogBuffer(500)

	var encoderConfig zapcore.EncoderConfig
	if opts.Debug {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
	}
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.LevelKey = "level"
	encoderConfig.MessageKey = "message"
	encoderConfig.CallerKey = "caller"
	encoderConfig.EncodeTime = zapcore.RFC3339TimeEncoder
	encoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder

	jsonEncoder := zapcore.NewJSONEncoder(encoderConfig)

	consoleEncoderConfig := encoderConfig
	if isatty.IsTerminal(os.Stdout.Fd()) {
		consoleEncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	consoleEncoder := zapcore.NewConsoleEncoder(consoleEncoderConfig)

	level := zapcore.InfoLevel
	if opts.Debug {
		level = zapcore.DebugLevel
	}

	cores := []zapcore.Core{
		zapcore.NewCore(consoleEncoder, zapcore.AddSync(os.Stdout), level),
		zapcore.NewCore(jsonEncoder, zapcore.AddSync(logBuffer), level),
	}

	if opts.LogFile != "" {
		maxSize := opts.MaxSizeMB
		if maxSize == 0 {
			maxSize = 50
		}
		maxBackups := opts.MaxBackups
		if maxBackups == 0 {
			maxBackups = 5
		}
		rotator := &lumberjack.Logger{
			Filename:   opts.LogFile,
			MaxSize:    maxSize,
			MaxBackups: maxBackups,
			MaxAge:     28,
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(jsonEncoder, zapcore.AddSync(rotator), level))
	}

	core := zapcore.NewTee(cores...)
	baseLogger = zap.New(core, zap.AddCaller())
	log = baseLogger.Sugar()

	return nil
}

// GetLogBuffer returns the log buffer instance
func GetLogBuffer() *LogBuffer {
	return logBuffer
}

// GetSugaredLogger returns the sugared logger instance, initializing a
// fallback production logger if Init was never called.
func GetSugaredLogger() *zap.SugaredLogger {
	if log == nil {
		baseLogger, _ = zap.NewProduction()
		log = baseLogger.Sugar()
	}
	return log
}

// Sync flushes any buffered log entries
func Sync() {
	if log != nil {
		_ = log.Sync()
	}
}

// Package-level convenience functions mirror zap.SugaredLogger's API so call
// sites never need to thread a logger through unrelated code.
func Debug(args ...interface{}) { GetSugaredLogger().WithOptions(zap.AddCallerSkip(1)).Debug(args...) }
func Debugf(template string, args ...interface{}) {
	GetSugaredLogger().WithOptions(zap.AddCallerSkip(1)).Debugf(template, args...)
}
func Info(args ...interface{}) { GetSugaredLogger().WithOptions(zap.AddCallerSkip(1)).Info(args...) }
func Infof(template string, args ...interface{}) {
	GetSugaredLogger().WithOptions(zap.AddCallerSkip(1)).Infof(template, args...)
}
func Warn(args ...interface{}) { GetSugaredLogger().WithOptions(zap.AddCallerSkip(1)).Warn(args...) }
func Warnf(template string, args ...interface{}) {
	GetSugaredLogger().WithOptions(zap.AddCallerSkip(1)).Warnf(template, args...)
}
func Error(args ...interface{}) {
	GetSugaredLogger().WithOptions(zap.AddCallerSkip(1)).Error(args...)
}
func Errorf(template string, args ...interface{}) {
	GetSugaredLogger().WithOptions(zap.AddCallerSkip(1)).Errorf(template, args...)
}
func Fatal(args ...interface{}) {
	GetSugaredLogger().WithOptions(zap.AddCallerSkip(1)).Fatal(args...)
	os.Exit(1)
}
func Fatalf(template string, args ...interface{}) {
	GetSugaredLogger().WithOptions(zap.AddCallerSkip(1)).Fatalf(template, args...)
	os.Exit(1)
}
