package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewWritesRotatedFile(t *testing.T) {
	dir := t.TempDir()
	l, err := New(
		SetLogFileDir(dir),
		SetFileName("gateway"),
		SetLevelName("warn"),
	)
	require.NoError(t, err)
	l.Info("dropped below level")
	l.Warn("camera unreachable", zap.String("target", "rtsp://10.0.0.9/live"))
	_ = l.Sync()

	data, err := os.ReadFile(filepath.Join(dir, "gateway.log"))
	require.NoError(t, err)
	require.Contains(t, string(data), `"msg":"camera unreachable"`)
	require.Contains(t, string(data), `"target":"rtsp://10.0.0.9/live"`)
	require.NotContains(t, string(data), "dropped below level")
}

func TestInitReplacesGlobal(t *testing.T) {
	before := GetLogger()
	l, err := Init(SetDevelopment(true), SetLevel(zapcore.DebugLevel))
	require.NoError(t, err)
	require.Same(t, l, GetLogger())
	require.NotSame(t, before, GetLogger())
}

func TestSetLevelName(t *testing.T) {
	for name, want := range map[string]zapcore.Level{
		"debug": zapcore.DebugLevel,
		"WARN":  zapcore.WarnLevel,
		"bogus": zapcore.InfoLevel,
	} {
		opt := new(Option)
		SetLevelName(name)(opt)
		require.Equal(t, want, opt.Level, name)
	}
}
