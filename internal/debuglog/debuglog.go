// Package debuglog writes the opt-in bkit debug log: newline-delimited JSON
// records of {timestamp, category, message, data}. It is enabled only when
// BKIT_DEBUG=true and never writes to stdout, which belongs to the host.
package debuglog

import (
	"os"
	"path/filepath"

	"github.com/bkit-dev/bkit/internal/platform"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// FileName is the log file name inside the platform directory.
const FileName = "bkit-debug.log"

// Logger records hook diagnostics. The zero value is not usable;
// build one with New or Nop.
type Logger struct {
	z    *zap.Logger
	file *os.File
	path string
}

// Enabled reports whether BKIT_DEBUG asks for logging.
func Enabled() bool {
	return os.Getenv("BKIT_DEBUG") == "true"
}

// Path returns the debug log location for the given environment.
func Path(env platform.Env) string {
	switch env.Platform {
	case platform.Claude:
		return env.ProjectPath(".claude", FileName)
	case platform.Gemini:
		return env.ProjectPath(".gemini", FileName)
	default:
		return env.ProjectPath(FileName)
	}
}

// New opens the debug log for env. When logging is disabled, or the file
// cannot be opened, it returns a no-op logger.
func New(env platform.Env) *Logger {
	if !Enabled() {
		return Nop()
	}
	return open(Path(env))
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{z: zap.NewNop()}
}

func open(path string) *Logger {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Nop()
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return Nop()
	}

	encCfg := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		MessageKey:     "message",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeTime:     zapcore.RFC3339NanoTimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(f), zapcore.DebugLevel)
	return &Logger{z: zap.New(core), file: f, path: path}
}

// Log appends one record. data may be nil.
func (l *Logger) Log(category, message string, data map[string]any) {
	if l == nil {
		return
	}
	fields := []zap.Field{zap.String("category", category)}
	if data != nil {
		fields = append(fields, zap.Any("data", data))
	}
	l.z.Debug(message, fields...)
}

// Zap exposes the underlying logger for packages that log structured
// fields directly.
func (l *Logger) Zap() *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l.z
}

// Close flushes and releases the log file.
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	_ = l.z.Sync()
	return l.file.Close()
}
