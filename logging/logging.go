package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	BackendSlog = "slog"
	BackendZap  = "zap"

	FormatJSON = "json"
	FormatText = "text"
)

// Logger is the leveled, structured logger handed to every component.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	// With returns a child logger that adds args to every record.
	With(args ...any) Logger
}

// Config selects the logging backend.
type Config struct {
	Backend string `yaml:"backend"`
	Level   string `yaml:"level"`
	// Format applies to the slog backend; zap always writes JSON.
	Format string `yaml:"format"`
	// Output defaults to stdout.
	Output io.Writer `yaml:"-"`
}

// New builds the root logger. The returned sync func flushes buffered
// output and is safe to call on every backend.
func New(cfg Config) (Logger, func() error, error) {
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	switch strings.ToLower(cfg.Backend) {
	case "", BackendSlog:
		l, err := NewSlog(cfg.Output, cfg.Level, cfg.Format)
		if err != nil {
			return nil, nil, err
		}
		return l, func() error { return nil }, nil
	case BackendZap:
		sugar, err := NewZap(cfg.Output, cfg.Level)
		if err != nil {
			return nil, nil, err
		}
		return &zapLogger{s: sugar}, sugar.Sync, nil
	default:
		return nil, nil, fmt.Errorf("unknown log backend %q", cfg.Backend)
	}
}

// NewSlog returns a slog-backed Logger writing JSON or text records.
func NewSlog(w io.Writer, level, format string) (Logger, error) {
	var lvl slog.Level
	if level != "" {
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return nil, fmt.Errorf("log level %q: %w", level, err)
		}
	}
	opts := &slog.HandlerOptions{Level: lvl}

	var h slog.Handler
	switch strings.ToLower(format) {
	case "", FormatJSON:
		h = slog.NewJSONHandler(w, opts)
	case FormatText:
		h = slog.NewTextHandler(w, opts)
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
	return &slogLogger{l: slog.New(h)}, nil
}

// NewZap returns a sugared zap logger writing JSON to w.
func NewZap(w io.Writer, level string) (*zap.SugaredLogger, error) {
	lvl := zapcore.InfoLevel
	if level != "" {
		parsed, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("log level %q: %w", level, err)
		}
		lvl = parsed
	}
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.MessageKey = "message"
	encCfg.LevelKey = "level"
	encCfg.EncodeLevel = zapcore.LowercaseLevelEncoder
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(w), lvl)
	return zap.New(core).Sugar(), nil
}

type slogLogger struct {
	l *slog.Logger
}

func (s *slogLogger) Debug(msg string, args ...any) { s.l.Debug(msg, args...) }
func (s *slogLogger) Info(msg string, args ...any)  { s.l.Info(msg, args...) }
func (s *slogLogger) Warn(msg string, args ...any)  { s.l.Warn(msg, args...) }
func (s *slogLogger) Error(msg string, args ...any) { s.l.Error(msg, args...) }
func (s *slogLogger) With(args ...any) Logger       { return &slogLogger{l: s.l.With(args...)} }

// zapLogger adapts the sugared key/value API to Logger.
type zapLogger struct {
	s *zap.SugaredLogger
}

func (z *zapLogger) Debug(msg string, args ...any) { z.s.Debugw(msg, args...) }
func (z *zapLogger) Info(msg string, args ...any)  { z.s.Infow(msg, args...) }
func (z *zapLogger) Warn(msg string, args ...any)  { z.s.Warnw(msg, args...) }
func (z *zapLogger) Error(msg string, args ...any) { z.s.Errorw(msg, args...) }
func (z *zapLogger) With(args ...any) Logger       { return &zapLogger{s: z.s.With(args...)} }
