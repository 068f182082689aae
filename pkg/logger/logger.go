package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/natefinch/lumberjack"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu             sync.RWMutex
	current        *zap.Logger
	debugConsoleWS = zapcore.Lock(os.Stdout)
	errorConsoleWS = zapcore.Lock(os.Stderr)
)

func init() {
	current, _ = New(SetDevelopment(true), SetLevel(zapcore.InfoLevel))
	if current == nil {
		current = zap.NewNop()
	}
}

// GetLogger returns the logger installed by the last successful Init, or a
// development console logger before that.
func GetLogger() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// Init builds a logger from opts and installs it for GetLogger.
func Init(opts ...ModOptions) (*zap.Logger, error) {
	l, err := New(opts...)
	if err != nil {
		return nil, err
	}
	mu.Lock()
	current = l
	mu.Unlock()
	return l, nil
}

// New builds a logger. Development writes colored console output; otherwise
// JSON lines go to <LogDir>/<FileName>.log rotated by lumberjack.
func New(opts ...ModOptions) (*zap.Logger, error) {
	opt := new(Option)
	for _, item := range opts {
		item(opt)
	}
	opt.fixup()
	level := zap.NewAtomicLevelAt(opt.Level)

	var cores []zapcore.Core
	if opt.Development {
		encoderConfig := zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeTime = timeEncoder
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		consoleEncoder := zapcore.NewConsoleEncoder(encoderConfig)
		errPriority := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
			return lvl >= zapcore.ErrorLevel && level.Enabled(lvl)
		})
		outPriority := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
			return lvl < zapcore.ErrorLevel && level.Enabled(lvl)
		})
		cores = append(cores,
			zapcore.NewCore(consoleEncoder, errorConsoleWS, errPriority),
			zapcore.NewCore(consoleEncoder, debugConsoleWS, outPriority),
		)
	} else {
		if err := os.MkdirAll(opt.LogDir, 0755); err != nil {
			return nil, errors.Wrap(err, "create log dir")
		}
		encoderConfig := zap.NewProductionEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		encoderConfig.EncodeTime = timeEncoder
		fileWS := zapcore.AddSync(&lumberjack.Logger{
			Filename:   filepath.Join(opt.LogDir, fmt.Sprintf("%s.log", opt.FiLeName)),
			MaxSize:    opt.MaxSize,
			MaxAge:     opt.MaxAge,
			MaxBackups: opt.MaxBackups,
			LocalTime:  true,
			Compress:   false,
		})
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), fileWS, level))
		if opt.Console {
			cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), debugConsoleWS, level))
		}
	}
	return zap.New(zapcore.NewTee(cores...), zap.AddCaller()), nil
}

func timeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("2006-01-02 15:04:05"))
}
