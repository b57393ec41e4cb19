package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/keithlinneman/padfetch/internal/xerrors"
)

// newTestLogger returns a JSON logger writing into buf.
func newTestLogger(t *testing.T, buf *bytes.Buffer, lvl slog.Level) Logger {
	t.Helper()
	l, err := New(Options{
		App:        "padfetch-test",
		Version:    "test",
		Level:      lvl,
		JsonFormat: true,
		Writer:     buf,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return l
}

// lastLine decodes the last emitted JSON record.
func lastLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var m map[string]any
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &m); err != nil {
		t.Fatalf("unmarshal log line %q: %v", lines[len(lines)-1], err)
	}
	return m
}

// ParseLevel

func TestParseLevel_Valid(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"WARN":  slog.LevelWarn,
		" error ": slog.LevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil {
			t.Errorf("ParseLevel(%q): %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestParseLevel_Invalid(t *testing.T) {
	if _, err := ParseLevel("verbose"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

// basic emission

func TestInfo_EmitsMessageAndBaseAttrs(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(t, &buf, slog.LevelInfo)

	l.Info(context.Background(), "fetch complete", "bytes", 42)

	m := lastLine(t, &buf)
	if m["msg"] != "fetch complete" {
		t.Errorf("msg = %v", m["msg"])
	}
	if m["app"] != "padfetch-test" {
		t.Errorf("app = %v", m["app"])
	}
	if m["bytes"] != float64(42) {
		t.Errorf("bytes = %v", m["bytes"])
	}
}

func TestDebug_SuppressedAtInfoLevel(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(t, &buf, slog.LevelInfo)

	l.Debug(context.Background(), "should not appear")
	if buf.Len() != 0 {
		t.Fatalf("debug record emitted at info level: %s", buf.String())
	}
}

// With

func TestWith_AttrsPropagate(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(t, &buf, slog.LevelInfo).With("component", "client")

	l.Info(context.Background(), "hello")
	m := lastLine(t, &buf)
	if m["component"] != "client" {
		t.Errorf("component = %v", m["component"])
	}
}

func TestWith_DoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	parent := newTestLogger(t, &buf, slog.LevelInfo)
	_ = parent.With("child_only", true)

	parent.Info(context.Background(), "from parent")
	m := lastLine(t, &buf)
	if _, ok := m["child_only"]; ok {
		t.Fatal("child attr leaked into parent logger")
	}
}

// Error enrichment

func TestError_AddsErrorTypeAndChain(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(t, &buf, slog.LevelInfo)

	base := errors.New("dial tcp: connection refused")
	err := xerrors.Wrap(base, "load url")
	l.Error(context.Background(), err, "transfer failed", "url", "http://example.invalid/")

	m := lastLine(t, &buf)
	if m["err"] == nil {
		t.Fatal("err attr missing")
	}
	if m["error_type"] == "" || m["error_type"] == nil {
		t.Fatal("error_type attr missing")
	}
	chain, ok := m["error_chain"].([]any)
	if !ok || len(chain) < 2 {
		t.Fatalf("error_chain = %v, want at least 2 entries", m["error_chain"])
	}
	if chain[0] != "load url: dial tcp: connection refused" {
		t.Errorf("chain[0] = %v", chain[0])
	}
}

func TestError_StackFromXerrors(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(t, &buf, slog.LevelInfo)

	l.Error(context.Background(), xerrors.New("stacked failure"), "boom")
	m := lastLine(t, &buf)
	// frames inside this package are filtered from rendered stacks, so the
	// first visible frame is the test runner
	stack, _ := m["stack"].(string)
	if !strings.Contains(stack, "testing.tRunner") {
		t.Fatalf("stack missing or empty:\n%s", stack)
	}
}

func TestError_NilErrorStillLogs(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(t, &buf, slog.LevelInfo)

	l.Error(context.Background(), nil, "no error object")
	m := lastLine(t, &buf)
	if m["msg"] != "no error object" {
		t.Fatalf("msg = %v", m["msg"])
	}
	if _, ok := m["err"]; ok {
		t.Fatal("err attr present for nil error")
	}
}

// logfmt path

func TestTextFormat_Emits(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Options{App: "padfetch-test", Level: slog.LevelInfo, JsonFormat: false, Writer: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l.Info(context.Background(), "text mode")
	if !strings.Contains(buf.String(), "text mode") {
		t.Fatalf("output missing message: %s", buf.String())
	}
}
