package log

import (
	"os"
	"strings"
	"sync"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelError Level = "ERROR"
)

// Options controls where log lines go and how verbose they are.
type Options struct {
	Level Level

	// File, if set, receives a copy of every line in addition to stderr.
	// The file is rotated by lumberjack.
	File       string
	MaxSizeMB  int
	MaxBackups int
}

var (
	mu     sync.Mutex
	logger logr.Logger
	ready  bool
	atom   = zap.NewAtomicLevelAt(zapcore.InfoLevel)
)

// Init (re)builds the global logger. It is safe to call more than once;
// the last call wins.
func Init(opts Options) error {
	mu.Lock()
	defer mu.Unlock()

	atom.SetLevel(zapLevel(opts.Level))

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	encoder := zapcore.NewJSONEncoder(encCfg)

	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), atom),
	}
	if opts.File != "" {
		rotated := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
		}
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(rotated), atom))
	}

	logger = zapr.NewLogger(zap.New(zapcore.NewTee(cores...)))
	ready = true
	return nil
}

// initLogger installs a stderr-only INFO logger when Init was never called.
func initLogger() logr.Logger {
	mu.Lock()
	if ready {
		l := logger
		mu.Unlock()
		return l
	}
	mu.Unlock()
	_ = Init(Options{Level: LevelInfo})
	mu.Lock()
	defer mu.Unlock()
	return logger
}

// Logger returns the underlying logr.Logger so components can scope it
// with WithValues/WithName.
func Logger() logr.Logger {
	return initLogger()
}

func SetLevel(l Level) {
	initLogger()
	atom.SetLevel(zapLevel(l))
}

// ParseLevel maps a config string onto a Level. Unknown values map to INFO.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug
	case "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

func Debug(msg string, kv ...any) {
	initLogger().V(1).Info(msg, kv...)
}

func Info(msg string, kv ...any) {
	initLogger().Info(msg, kv...)
}

func Error(msg string, err error, kv ...any) {
	initLogger().Error(err, msg, kv...)
}

// zapLevel translates our levels; logr V(1) lines are emitted at zap's
// debug level, so DEBUG has to open that up.
func zapLevel(l Level) zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
