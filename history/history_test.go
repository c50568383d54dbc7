package history_test

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lakshan-sameera/pdfcombiner"
	"github.com/lakshan-sameera/pdfcombiner/history"
)

func newStore(t *testing.T) *history.Store {
	t.Helper()
	return history.New(filepath.Join(t.TempDir(), "history.json"))
}

func TestLoadMissing(t *testing.T) {
	entries := newStore(t).Load()
	if entries == nil || len(entries) != 0 {
		t.Errorf("Load = %#v, want empty slice", entries)
	}
}

func TestRecordNewestFirst(t *testing.T) {
	s := newStore(t)
	at := time.Date(2024, 3, 9, 14, 5, 7, 0, time.Local)

	if err := s.Record("/out/first.pdf", at, map[string]string{"/Title": "First"}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := s.Record("/out/second.pdf", at.Add(time.Hour), nil); err != nil {
		t.Fatalf("Record: %v", err)
	}

	entries := s.Load()
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].FilePath != "/out/second.pdf" || entries[1].FilePath != "/out/first.pdf" {
		t.Errorf("order = %s, %s", entries[0].FilePath, entries[1].FilePath)
	}
	if entries[1].Timestamp != "2024-03-09 14:05:07" {
		t.Errorf("Timestamp = %q", entries[1].Timestamp)
	}
	if entries[1].Metadata["/Title"] != "First" {
		t.Errorf("Metadata = %v", entries[1].Metadata)
	}
	if tm, err := entries[1].Time(); err != nil || !tm.Equal(at) {
		t.Errorf("Time() = %v, %v", tm, err)
	}
}

func TestFileFormat(t *testing.T) {
	s := newStore(t)
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.Local)
	if err := s.Record("/out/a.pdf", at, nil); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatal(err)
	}
	want := `[
  {
    "file_path": "/out/a.pdf",
    "timestamp": "2024-01-02 03:04:05",
    "metadata": {}
  }
]
`
	if string(data) != want {
		t.Errorf("file =\n%s\nwant\n%s", data, want)
	}
}

func TestDeleteAndClear(t *testing.T) {
	s := newStore(t)
	for _, name := range []string{"a", "b", "c"} {
		if err := s.Add(history.Entry{FilePath: name}); err != nil {
			t.Fatal(err)
		}
	}

	if err := s.Delete(1); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	entries := s.Load()
	if len(entries) != 2 || entries[0].FilePath != "c" || entries[1].FilePath != "a" {
		t.Errorf("after delete: %+v", entries)
	}
	if err := s.Delete(5); !errors.Is(err, pdfcombiner.ErrNoSelection) {
		t.Errorf("Delete(5) = %v, want ErrNoSelection", err)
	}

	if err := s.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	data, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(string(data)) != "[]" {
		t.Errorf("after clear file = %q, want []", data)
	}
}

func TestCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	var logs bytes.Buffer
	s := history.New(path, history.WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))

	if entries := s.Load(); len(entries) != 0 {
		t.Errorf("Load = %v, want empty", entries)
	}
	if !strings.Contains(logs.String(), "corrupt") {
		t.Errorf("no warning logged: %q", logs.String())
	}

	// The next write replaces the corrupt file.
	if err := s.Add(history.Entry{FilePath: "x"}); err != nil {
		t.Fatal(err)
	}
	if entries := s.Load(); len(entries) != 1 {
		t.Errorf("after add: %v", entries)
	}
}

func TestWriteFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	// The parent of the history path is a regular file.
	s := history.New(filepath.Join(blocker, "history.json"))
	if err := s.Add(history.Entry{FilePath: "x"}); err == nil {
		t.Error("expected a write error")
	}
}
