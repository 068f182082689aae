package logger

import (
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap/zapcore"
)

type Option struct {
	LogDir      string
	FiLeName    string
	Level       zapcore.Level
	MaxSize     int // MB
	MaxBackups  int
	MaxAge      int // days
	Development bool
	// Console tees production logs to stdout as well as the log file.
	Console bool
}

func (i *Option) fixup() {
	if i.LogDir == "" {
		path, _ := os.Executable()
		i.LogDir = filepath.Join(filepath.Dir(path), "logs")
	}
	if i.FiLeName == "" {
		i.FiLeName = filepath.Base(os.Args[0])
	}
	if i.MaxBackups == 0 {
		i.MaxBackups = 5
	}
	if i.MaxSize == 0 {
		i.MaxSize = 500
	}
	if i.MaxAge == 0 {
		i.MaxAge = 5
	}
}

type ModOptions func(options *Option)

func SetMaxSize(MaxSize int) ModOptions {
	return func(option *Option) {
		option.MaxSize = MaxSize
	}
}

func SetMaxBackups(MaxBackups int) ModOptions {
	return func(option *Option) {
		option.MaxBackups = MaxBackups
	}
}

func SetMaxAge(MaxAge int) ModOptions {
	return func(option *Option) {
		option.MaxAge = MaxAge
	}
}

func SetLogFileDir(LogFileDir string) ModOptions {
	return func(option *Option) {
		option.LogDir = LogFileDir
	}
}

func SetFileName(FileName string) ModOptions {
	return func(option *Option) {
		option.FiLeName = FileName
	}
}

func SetLevel(Level zapcore.Level) ModOptions {
	return func(option *Option) {
		option.Level = Level
	}
}

// SetLevelName accepts debug, info, warn or error; anything else means info.
func SetLevelName(name string) ModOptions {
	return func(option *Option) {
		var lvl zapcore.Level
		if err := lvl.UnmarshalText([]byte(strings.ToLower(name))); err != nil {
			lvl = zapcore.InfoLevel
		}
		option.Level = lvl
	}
}

func SetDevelopment(Development bool) ModOptions {
	return func(option *Option) {
		option.Development = Development
	}
}

func SetConsole(Console bool) ModOptions {
	return func(option *Option) {
		option.Console = Console
	}
}
