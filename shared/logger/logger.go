package logger

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config содержит настройки для логгера.
type Config struct {
	Level      string // debug, info, warn, error
	Encoding   string // json или console
	OutputPath string // stdout, stderr или путь к файлу; пусто - stdout
	Service    string // поле service в каждой записи
}

// New создает zap.Logger, пишущий в cfg.OutputPath.
func New(cfg Config) (*zap.Logger, error) {
	outputPath := cfg.OutputPath
	if outputPath == "" {
		outputPath = "stdout"
	}
	sink, _, err := zap.Open(outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open log output %q: %w", outputPath, err)
	}
	return NewWithSink(cfg, sink), nil
}

// NewWithSink собирает логгер поверх произвольного WriteSyncer.
// Некорректный уровень заменяется на info с предупреждением в stderr.
func NewWithSink(cfg Config, sink zapcore.WriteSyncer) *zap.Logger {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid log level '%s', using 'info'. Error: %v\n", cfg.Level, err)
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "timestamp"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	var encoder zapcore.Encoder
	if strings.EqualFold(cfg.Encoding, "console") {
		encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(sink), zap.NewAtomicLevelAt(level))
	opts := []zap.Option{zap.ErrorOutput(zapcore.Lock(os.Stderr))}
	// Caller нужен только при отладке
	if level == zapcore.DebugLevel {
		opts = append(opts, zap.AddCaller())
	}

	logger := zap.New(core, opts...)
	if cfg.Service != "" {
		logger = logger.With(zap.String("service", cfg.Service))
	}
	return logger
}

// ParseLevel разбирает уровень логирования без учета регистра; пустая строка - info.
// При ошибке возвращает info вместе с ошибкой.
func ParseLevel(s string) (zapcore.Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return zapcore.InfoLevel, nil
	}
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return zapcore.InfoLevel, err
	}
	return level, nil
}
