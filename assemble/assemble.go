// Package assemble combines source documents into one output document.
//
// A combine either produces a complete, verified file at the output path or
// leaves the path untouched. The output is written to a staging file next to
// the destination and renamed into place once it has been read back.
package assemble

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/lakshan-sameera/pdfcombiner"
	"github.com/lakshan-sameera/pdfcombiner/access"
	"github.com/lakshan-sameera/pdfcombiner/pagerange"
	"github.com/lakshan-sameera/pdfcombiner/pageops"
	"github.com/lakshan-sameera/pdfcombiner/reader"
)

// Recorder receives a record of every document produced. history.Store
// implements it.
type Recorder interface {
	Record(path string, at time.Time, meta map[string]string) error
}

// ProgressFunc is called after each source with the number of sources
// processed so far and the total.
type ProgressFunc func(done, total int)

// Engine runs combines. It is not safe for concurrent use.
type Engine struct {
	opener   *access.Opener
	logger   *slog.Logger
	progress ProgressFunc
	recorder Recorder
	strict   bool
	now      func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithOpener sets the opener used for sources. The default opener has no
// password prompt, so encrypted sources cancel the combine.
func WithOpener(o *access.Opener) Option {
	return func(e *Engine) { e.opener = o }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithProgress sets the progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(e *Engine) { e.progress = fn }
}

// WithRecorder sets where successful combines are recorded.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithStrictVerify additionally validates the staged output with pdfcpu
// before it is committed.
func WithStrictVerify(strict bool) Option {
	return func(e *Engine) { e.strict = strict }
}

// WithClock sets the time source for history records.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New returns an engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		logger: slog.New(slog.DiscardHandler),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.opener == nil {
		e.opener = access.New(nil, access.WithLogger(e.logger))
	}
	return e
}

// Combine writes the selected pages of sources, in order, to outputPath
// with meta applied and, when password is not empty, encrypted with
// password. It returns outputPath.
//
// Sources are opened one at a time and closed before the next is opened.
// Rotations and page ranges are resolved against each document's actual
// page count. Any failure aborts the whole combine and leaves outputPath as
// it was.
func (e *Engine) Combine(sources []pdfcombiner.SourceEntry, meta pdfcombiner.Metadata, password, outputPath string) (string, error) {
	if len(sources) == 0 {
		return "", pdfcombiner.NewPDFError("combine", "", pdfcombiner.ErrEmptyInput)
	}
	if err := meta.Validate(); err != nil {
		return "", pdfcombiner.NewPDFError("combine", "", err)
	}

	e.logger.Info("combine started", "sources", len(sources), "output", outputPath, "encrypt", password != "")
	start := time.Now()

	asm := pageops.New(pageops.WithLogger(e.logger))
	for i, src := range sources {
		if err := e.addSource(asm, src); err != nil {
			e.logger.Warn("combine aborted", "source", src.Path, "error", err)
			return "", err
		}
		if e.progress != nil {
			e.progress(i+1, len(sources))
		}
	}

	applied := meta.Applied()
	if err := asm.SetMetadata(applied); err != nil {
		return "", pdfcombiner.NewPDFError("combine", "", err)
	}
	asm.Protect(password)

	if err := e.commit(asm, password, outputPath); err != nil {
		e.logger.Error("writing output failed", "output", outputPath, "error", err)
		return "", pdfcombiner.NewPDFError("write", outputPath, fmt.Errorf("%w: %w", pdfcombiner.ErrWrite, err))
	}
	e.logger.Info("combine finished", "output", outputPath, "pages", asm.PageCount(),
		"duration", time.Since(start).Round(time.Millisecond))

	if e.recorder != nil {
		if err := e.recorder.Record(outputPath, e.now(), applied); err != nil {
			e.logger.Warn("cannot record history", "error", err)
		}
	}
	return outputPath, nil
}

// addSource opens one source, applies its rotation and appends its selected
// pages. The document is closed before returning.
func (e *Engine) addSource(asm *pageops.Assembler, src pdfcombiner.SourceEntry) error {
	doc, err := e.opener.Open(src.Path)
	if err != nil {
		return err
	}
	defer doc.Close()

	n := doc.NumPages()
	if src.Rotation != nil {
		if err := rotate(doc, *src.Rotation); err != nil {
			return pdfcombiner.NewPDFError("rotate", src.Path, err)
		}
	}

	indices, err := pagerange.Parse(src.PageRange, n)
	if err != nil {
		return pdfcombiner.NewPDFError("pages", src.Path, err)
	}
	if err := asm.AddPages(doc, indices); err != nil {
		return pdfcombiner.NewPDFError("combine", src.Path, fmt.Errorf("%w: %w", pdfcombiner.ErrOpen, err))
	}
	e.logger.Debug("source added", "path", src.Path, "pages", len(indices), "of", n)
	return nil
}

// rotate turns the pages selected by spec by spec.Angle relative to their
// stored rotation.
func rotate(doc *reader.Document, spec pdfcombiner.RotationSpec) error {
	if err := spec.Validate(); err != nil {
		return err
	}
	targets, err := pagerange.Targets(spec, doc.NumPages())
	if err != nil {
		return err
	}
	for _, i := range targets {
		if err := doc.Rotate(i+1, spec.Angle); err != nil {
			return err
		}
	}
	return nil
}

// commit writes asm to a staging file in the destination directory,
// verifies it and renames it over outputPath.
func (e *Engine) commit(asm *pageops.Assembler, password, outputPath string) (err error) {
	dir, base := filepath.Split(outputPath)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, "."+base+"-*.partial")
	if err != nil {
		return err
	}
	staged := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(staged)
		}
	}()

	if err := asm.Output(tmp); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := verify(staged, password, asm.PageCount()); err != nil {
		return fmt.Errorf("verifying output: %w", err)
	}
	if e.strict {
		if err := validateStrict(staged, password); err != nil {
			return fmt.Errorf("validating output: %w", err)
		}
	}
	if err := os.Chmod(staged, 0o644); err != nil {
		return err
	}
	return os.Rename(staged, outputPath)
}
