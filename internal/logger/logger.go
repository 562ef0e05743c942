package logger

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	L       = zap.NewNop()
	S       = L.Sugar()
	logFile *os.File
)

// Init opens the log file and installs the process logger. Components get
// the logger passed in; the package variables exist for main and for the
// key/value helpers below.
func Init(debug bool) (*zap.Logger, error) {
	logPath, err := LogPath()
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return nil, err
	}

	// truncate on each run
	logFile, err = os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}

	L = New(zapcore.AddSync(logFile), debug)
	S = L.Sugar()

	S.Infow("logger initialized", "path", logPath, "debug", debug)
	return L, nil
}

// New builds a console-encoded logger writing to w. Debug builds also turn
// on development mode, so DPanic aborts.
func New(w zapcore.WriteSyncer, debug bool) *zap.Logger {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), w, level)

	opts := []zap.Option{zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)}
	if debug {
		opts = append(opts, zap.Development())
	}
	return zap.New(core, opts...)
}

// Close flushes and closes the logger
func Close() {
	_ = L.Sync()
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
}

// LogPath returns the path to the log file
func LogPath() (string, error) {
	if v := os.Getenv("QMAP_LOG_FILE"); v != "" {
		return v, nil
	}

	if v := os.Getenv("QMAP_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "qmap.log"), nil
	}
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "qmap", "qmap.log"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "qmap", "qmap.log"), nil
}

// Convenience functions for common logging patterns

func Debug(msg string, keysAndValues ...interface{}) {
	S.Debugw(msg, keysAndValues...)
}

func Info(msg string, keysAndValues ...interface{}) {
	S.Infow(msg, keysAndValues...)
}

func Warn(msg string, keysAndValues ...interface{}) {
	S.Warnw(msg, keysAndValues...)
}

func Error(msg string, keysAndValues ...interface{}) {
	S.Errorw(msg, keysAndValues...)
}
