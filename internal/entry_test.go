package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func siteRepo(t *testing.T) string {
	t.Helper()
	repo := t.TempDir()
	data := filepath.Join(repo, "assets", "data")
	if err := os.MkdirAll(data, 0o755); err != nil {
		t.Fatal(err)
	}
	content := `{"items":[{"id":"m2","title":"Second","date":"2024-02-01"},{"id":"m1","title":"First"}]}`
	if err := os.WriteFile(filepath.Join(data, "music.json"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return repo
}

func TestNewLogger_Formats(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(ApplicationConfig{LogLevel: slog.LevelInfo}, &buf, false).Info("hello", slog.String("k", "v"))
	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("non-tty default should be JSON: %v (%q)", err, buf.String())
	}
	if line["msg"] != "hello" || line["k"] != "v" {
		t.Errorf("line = %v", line)
	}

	buf.Reset()
	NewLogger(ApplicationConfig{LogLevel: slog.LevelInfo, LogFormat: LogFormatText}, &buf, false).Info("hello")
	if out := buf.String(); !strings.Contains(out, "hello") || strings.HasPrefix(out, "{") {
		t.Errorf("text output = %q", out)
	}

	buf.Reset()
	NewLogger(ApplicationConfig{LogLevel: slog.LevelWarn, LogFormat: LogFormatJSON}, &buf, true).Info("dropped")
	if buf.Len() != 0 {
		t.Errorf("info logged at warn level: %q", buf.String())
	}
}

func TestListRecords(t *testing.T) {
	repo := siteRepo(t)
	var out bytes.Buffer
	err := ListRecords(context.Background(), "music",
		WithConfig(NewDefaultConfig()),
		WithWorkDir(filepath.Join(repo, "assets")),
		WithLogger(quiet()),
		WithOutput(&out))
	if err != nil {
		t.Fatal(err)
	}
	s := out.String()
	for _, want := range []string{"TITLE", "m2", "m1", "First"} {
		if !strings.Contains(s, want) {
			t.Errorf("output missing %q:\n%s", want, s)
		}
	}
	if strings.Index(s, "m2") > strings.Index(s, "m1") {
		t.Errorf("records out of file order:\n%s", s)
	}
}

func TestListRecords_UnknownKind(t *testing.T) {
	err := ListRecords(context.Background(), "podcasts",
		WithConfig(NewDefaultConfig()),
		WithWorkDir(siteRepo(t)),
		WithLogger(quiet()),
		WithOutput(io.Discard))
	if err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestListKinds(t *testing.T) {
	repo := siteRepo(t)
	var out bytes.Buffer
	err := ListKinds(context.Background(),
		WithConfig(NewDefaultConfig()),
		WithWorkDir(repo),
		WithLogger(quiet()),
		WithOutput(&out))
	if err != nil {
		t.Fatal(err)
	}
	s := out.String()
	for _, want := range []string{"topics", "discography", "live", filepath.Join(repo, "assets", "data")} {
		if !strings.Contains(s, want) {
			t.Errorf("output missing %q:\n%s", want, s)
		}
	}
	for _, line := range strings.Split(s, "\n") {
		if strings.Contains(line, " music ") && !strings.Contains(line, "true") {
			t.Errorf("music should be present: %q", line)
		}
	}
}

func TestRunRequiresConfig(t *testing.T) {
	if err := Run(context.Background()); err == nil {
		t.Fatal("expected error without config")
	}
}
