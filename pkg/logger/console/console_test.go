package console

import (
	"bytes"
	"strings"
	"testing"
)

func TestConsoleLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewConsoleLogger(ConsoleLoggerParams{JSON: true, Output: &buf})

	l.Info("ingested", "source", "a.txt")

	out := buf.String()
	if !strings.Contains(out, `"msg":"ingested"`) {
		t.Fatalf("expected msg key in %q", out)
	}
	if !strings.Contains(out, `"source":"a.txt"`) {
		t.Fatalf("expected source key in %q", out)
	}
}

func TestConsoleLogger_DebugLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewConsoleLogger(ConsoleLoggerParams{Output: &buf})
	l.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug output should be suppressed at info level, got %q", buf.String())
	}

	buf.Reset()
	l = NewConsoleLogger(ConsoleLoggerParams{Debug: true, Output: &buf})
	l.Debug("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Fatalf("expected debug output, got %q", buf.String())
	}
}
