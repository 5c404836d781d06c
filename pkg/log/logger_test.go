package log

import (
	"bytes"
	"strings"
	"testing"

	"github.com/cytoprofile/cytoprofile/pkg/errors"
)

func TestZerologLoggerWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	Setup(&buf, LevelInfo)

	GetLogger().Info("cohort loaded", SamplesKey, 120, FeaturesKey, 54)

	out := buf.String()
	for _, want := range []string{`"cohort loaded"`, `"n_samples":120`, `"n_features":54`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s:\n%s", want, out)
		}
	}
}

func TestZerologLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	Setup(&buf, LevelWarn)

	GetLogger().Info("below threshold")
	GetLogger().Warn("at threshold")

	out := buf.String()
	if strings.Contains(out, "below threshold") {
		t.Error("info message leaked through warn-level filter")
	}
	if !strings.Contains(out, "at threshold") {
		t.Error("warn message missing")
	}
}

func TestZerologLoggerWith(t *testing.T) {
	var buf bytes.Buffer
	Setup(&buf, LevelInfo)

	GetLogger().With(StageKey, "split").Info("done")

	if !strings.Contains(buf.String(), `"stage":"split"`) {
		t.Errorf("contextual field missing:\n%s", buf.String())
	}
}

func TestErrorAttachesStacktrace(t *testing.T) {
	var buf bytes.Buffer
	Setup(&buf, LevelError)

	err := errors.NewValueError("Load", "bad input")
	GetLogger().Error("stage failed", err)

	out := buf.String()
	if !strings.Contains(out, "bad input") {
		t.Errorf("error message missing:\n%s", out)
	}
	if !strings.Contains(out, "stacktrace") {
		t.Errorf("stacktrace field missing:\n%s", out)
	}
}

func TestLevelString(t *testing.T) {
	tests := []struct {
		level Level
		want  string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{Level(99), "UNKNOWN"},
	}
	for _, tt := range tests {
		if got := tt.level.String(); got != tt.want {
			t.Errorf("Level(%d).String() = %s, want %s", tt.level, got, tt.want)
		}
	}
}

func TestTestLoggerCapture(t *testing.T) {
	tl, buf := NewTestLogger(LevelInfo)

	tl.Debug("hidden")
	tl.With("run", "abc").Info("visible", "n", 3)

	if tl.Contains("hidden") {
		t.Error("debug message should be filtered at info level")
	}
	if !tl.Contains("visible") || !strings.Contains(buf.String(), "run=abc") {
		t.Errorf("captured output = %q", buf.String())
	}
}
