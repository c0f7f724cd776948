package logging

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/go-gost/core/logger"
)

func newTestLogger(level logger.LogLevel) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	l := New(&buf, level)
	l.now = func() time.Time { return time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC) }
	return l, &buf
}

func TestLevelFiltering(t *testing.T) {
	l, buf := newTestLogger(logger.InfoLevel)

	l.Debugf("hidden %d", 1)
	l.Infof("shown %d", 2)
	l.Warn("also ", "shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug entry should be filtered: %q", out)
	}
	if !strings.Contains(out, "2020-01-02T03:04:05Z INFO shown 2\n") {
		t.Errorf("missing info entry: %q", out)
	}
	if !strings.Contains(out, "WARN also shown\n") {
		t.Errorf("missing warn entry: %q", out)
	}
}

func TestWithFields(t *testing.T) {
	l, buf := newTestLogger(logger.DebugLevel)

	child := l.WithFields(map[string]any{"song": "abc", "index": 3})
	child.Debug("segment sealed")
	l.Debug("parent")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), buf.String())
	}
	if !strings.HasSuffix(lines[0], "segment sealed index=3 song=abc") {
		t.Errorf("fields not rendered in sorted order: %q", lines[0])
	}
	if strings.Contains(lines[1], "song=") {
		t.Errorf("child fields leaked into parent: %q", lines[1])
	}
}

func TestFatalExits(t *testing.T) {
	l, buf := newTestLogger(logger.InfoLevel)
	code := -1
	l.exit = func(c int) { code = c }

	l.Fatalf("boom")
	if code != 1 {
		t.Errorf("exit code: got %d, want 1", code)
	}
	if !strings.Contains(buf.String(), "FATAL boom") {
		t.Errorf("missing fatal entry: %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    logger.LogLevel
		wantErr bool
	}{
		{"debug", logger.DebugLevel, false},
		{"WARN", logger.WarnLevel, false},
		{"info", logger.InfoLevel, false},
		{"verbose", logger.InfoLevel, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestOrDefault(t *testing.T) {
	l, _ := newTestLogger(logger.InfoLevel)
	if OrDefault(l) != logger.Logger(l) {
		t.Error("a non-nil logger should be returned as is")
	}
	if OrDefault(nil) == nil {
		t.Error("nil should fall back to a usable logger")
	}
}
