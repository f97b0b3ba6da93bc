package logging

import (
	"bytes"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewWithLevelFallsBackToInfo(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("LOCALAPPDATA", t.TempDir())

	tests := []struct {
		level string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"warn", zerolog.WarnLevel},
		{"", zerolog.InfoLevel},
		{"chatty", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := NewWithLevel(tt.level).GetLevel(); got != tt.want {
			t.Errorf("NewWithLevel(%q) level = %s, want %s", tt.level, got, tt.want)
		}
	}
}

func TestNewLoggerWritesAllSinks(t *testing.T) {
	var a, b bytes.Buffer
	log := newLogger(&a, &b)

	log.Info().Str("device", "Mic1").Msg("Selected input")

	for _, buf := range []*bytes.Buffer{&a, &b} {
		if !strings.Contains(buf.String(), `"device":"Mic1"`) {
			t.Errorf("expected structured field in output, got %s", buf.String())
		}
	}
}

func TestPathHonorsXDGState(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG paths apply to linux only")
	}
	dir := t.TempDir()
	t.Setenv("XDG_STATE_HOME", dir)

	want := filepath.Join(dir, "streamvox", "streamvox.log")
	if got := Path(); got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}
