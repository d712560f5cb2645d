// Package logger provides the process-wide zap logger used by aurkonsult.
//
// Libraries log through Logger(); commands print user-facing results to
// stdout themselves. The logger writes a console encoding to stderr and can
// optionally tee to a file.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config controls the logger level and the optional log file.
type Config struct {
	Level    string
	FilePath string
}

// lockedWriter lets tests swap the stderr destination without racing
// against in-flight writes.
type lockedWriter struct {
	mu     sync.RWMutex
	writer io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.writer == nil {
		return len(p), nil
	}
	return l.writer.Write(p)
}

func (l *lockedWriter) Sync() error {
	return nil
}

func (l *lockedWriter) set(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.writer = w
}

var (
	sugarLogger   *zap.SugaredLogger
	atomicLevel   zap.AtomicLevel
	once          sync.Once
	mu            sync.RWMutex
	logFile       *os.File
	currentConfig Config
	stderrSyncer  = &lockedWriter{writer: os.Stderr}
)

func initDefault() {
	if err := applyConfig(Config{Level: "info"}); err != nil {
		panic(fmt.Sprintf("logger initialization failed: %v", err))
	}
}

func applyConfig(cfg Config) error {
	mu.Lock()
	defer mu.Unlock()

	level := parseLevel(cfg.Level)

	if atomicLevel == (zap.AtomicLevel{}) {
		atomicLevel = zap.NewAtomicLevelAt(level)
	} else {
		atomicLevel.SetLevel(level)
	}

	encoderCfg := zap.NewDevelopmentConfig().EncoderConfig
	encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeCaller = zapcore.ShortCallerEncoder

	consoleCore := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg), zapcore.AddSync(stderrSyncer), atomicLevel)
	cores := []zapcore.Core{consoleCore}

	filePath := strings.TrimSpace(cfg.FilePath)
	if filePath != "" {
		fileCore, handle, err := buildFileCore(encoderCfg, filePath)
		if err != nil {
			return err
		}
		if logFile != nil && logFile != handle {
			_ = logFile.Close()
		}
		logFile = handle
		cores = append(cores, fileCore)
	} else if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}

	base := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	sugarLogger = base.Sugar()
	zap.ReplaceGlobals(base)

	currentConfig = Config{Level: level.String(), FilePath: filePath}
	return nil
}

func buildFileCore(encoderCfg zapcore.EncoderConfig, path string) (zapcore.Core, *os.File, error) {
	cleaned := filepath.Clean(path)
	if dir := filepath.Dir(cleaned); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory %q: %w", dir, err)
		}
	}

	file, err := os.OpenFile(cleaned, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file %q: %w", cleaned, err)
	}

	fileEncoderCfg := encoderCfg
	fileEncoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	return zapcore.NewCore(zapcore.NewConsoleEncoder(fileEncoderCfg), zapcore.AddSync(file), atomicLevel), file, nil
}

// Init configures the global logger. Calling it again with a different
// configuration reconfigures the logger in place. The returned cleanup
// flushes the logger and closes the log file.
func Init(cfg Config) (*zap.SugaredLogger, func(), error) {
	var initErr error
	initializedHere := false
	requested := Config{Level: parseLevel(cfg.Level).String(), FilePath: strings.TrimSpace(cfg.FilePath)}

	once.Do(func() {
		initErr = applyConfig(cfg)
		initializedHere = true
	})
	if initErr != nil {
		return nil, nil, fmt.Errorf("logger initialization failed: %w", initErr)
	}

	if !initializedHere {
		mu.RLock()
		same := currentConfig == requested
		mu.RUnlock()
		if !same {
			if err := applyConfig(cfg); err != nil {
				return nil, nil, fmt.Errorf("logger reconfiguration failed: %w", err)
			}
		}
	}

	return Logger(), cleanup, nil
}

// Logger returns the global sugared logger, initialising it at info level
// on first use.
func Logger() *zap.SugaredLogger {
	once.Do(initDefault)

	mu.RLock()
	defer mu.RUnlock()
	return sugarLogger
}

// SetLevel changes the level of the running logger.
func SetLevel(level string) {
	Logger()
	atomicLevel.SetLevel(parseLevel(level))
}

// SetOutput redirects console output. A nil writer discards it.
func SetOutput(w io.Writer) {
	stderrSyncer.set(w)
}

func cleanup() {
	mu.Lock()
	defer mu.Unlock()
	if sugarLogger != nil {
		_ = sugarLogger.Sync()
	}
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
	// Force the next Init to rebuild the cores.
	currentConfig = Config{}
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
