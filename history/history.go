// Package history persists the log of combined documents as a JSON array,
// newest entry first.
//
// Every mutation rewrites the whole file. A file that is missing or cannot
// be parsed reads as an empty history.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/lakshan-sameera/pdfcombiner"
)

// TimeLayout is the format of Entry.Timestamp.
const TimeLayout = "2006-01-02 15:04:05"

// Entry records one produced document.
type Entry struct {
	FilePath  string            `json:"file_path"`
	Timestamp string            `json:"timestamp"`
	Metadata  map[string]string `json:"metadata"` // keyed "/Title", "/Author", ...
}

// Time parses the timestamp in local time.
func (e Entry) Time() (time.Time, error) {
	return time.ParseInLocation(TimeLayout, e.Timestamp, time.Local)
}

// Store reads and writes a history file.
type Store struct {
	path   string
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger that receives read and parse warnings.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New returns a store backed by the file at path. The file is created on
// the first write.
func New(path string, opts ...Option) *Store {
	s := &Store{path: path, logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the history file path.
func (s *Store) Path() string { return s.path }

// Load returns the entries, newest first.
func (s *Store) Load() []Entry {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []Entry{}
	}
	if err != nil {
		s.logger.Warn("cannot read history", "path", s.path, "error", err)
		return []Entry{}
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		s.logger.Warn("history file is corrupt, treating as empty", "path", s.path, "error", err)
		return []Entry{}
	}
	if entries == nil {
		entries = []Entry{}
	}
	return entries
}

// Add puts e at the front of the history.
func (s *Store) Add(e Entry) error {
	if e.Metadata == nil {
		e.Metadata = map[string]string{}
	}
	return s.save(append([]Entry{e}, s.Load()...))
}

// Record adds an entry for a document written to path at the given time.
func (s *Store) Record(path string, at time.Time, meta map[string]string) error {
	m := make(map[string]string, len(meta))
	for k, v := range meta {
		m[k] = v
	}
	return s.Add(Entry{FilePath: path, Timestamp: at.Format(TimeLayout), Metadata: m})
}

// Delete removes the entry at index i, counted from the newest.
func (s *Store) Delete(i int) error {
	entries := s.Load()
	if i < 0 || i >= len(entries) {
		return fmt.Errorf("history: %w: %d of %d", pdfcombiner.ErrNoSelection, i, len(entries))
	}
	return s.save(append(entries[:i], entries[i+1:]...))
}

// Clear removes every entry, leaving an empty array on disk.
func (s *Store) Clear() error {
	return s.save([]Entry{})
}

// save replaces the history file with entries.
func (s *Store) save(entries []Entry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("history: encoding: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("history: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".history-*.json")
	if err != nil {
		return fmt.Errorf("history: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("history: writing %s: %w", s.path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("history: writing %s: %w", s.path, err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("history: %w", err)
	}
	return nil
}
