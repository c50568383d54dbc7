// Package access opens source documents, running the password retry
// protocol for encrypted ones.
//
// A document moves through the states Unopened, Locked, and finally one of
// Unlocked, Cancelled or AuthFailed. Nothing is remembered between calls to
// Open: a document opened twice is prompted for twice.
package access

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/lakshan-sameera/pdfcombiner"
	"github.com/lakshan-sameera/pdfcombiner/reader"
)

// MaxAttempts is the number of passwords tried before giving up.
const MaxAttempts = 3

// State is the access state of a document being opened.
type State int

const (
	Unopened State = iota
	Locked
	Unlocked
	Cancelled
	AuthFailed
)

func (s State) String() string {
	switch s {
	case Unopened:
		return "unopened"
	case Locked:
		return "locked"
	case Unlocked:
		return "unlocked"
	case Cancelled:
		return "cancelled"
	case AuthFailed:
		return "auth-failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// PasswordPrompt asks the user for a document password. ok is false when
// the user gave no input, which cancels the open.
type PasswordPrompt interface {
	Password(prompt string) (password string, ok bool)
}

// PromptFunc adapts a function to PasswordPrompt.
type PromptFunc func(prompt string) (string, bool)

// Password calls f(prompt).
func (f PromptFunc) Password(prompt string) (string, bool) { return f(prompt) }

// Observer is notified of every state a document enters while it is opened.
type Observer func(path string, state State)

// Opener opens documents by path.
type Opener struct {
	prompt   PasswordPrompt
	observer Observer
	logger   *slog.Logger
}

// Option configures an Opener.
type Option func(*Opener)

// WithObserver registers fn to receive state transitions.
func WithObserver(fn Observer) Option {
	return func(o *Opener) { o.observer = fn }
}

// WithLogger sets the logger. Passwords are never logged.
func WithLogger(l *slog.Logger) Option {
	return func(o *Opener) { o.logger = l }
}

// New returns an Opener that asks prompt for passwords. A nil prompt
// behaves like a user who always cancels.
func New(prompt PasswordPrompt, opts ...Option) *Opener {
	o := &Opener{
		prompt: prompt,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Open opens the document at path and returns it unlocked. The caller must
// close it.
//
// Errors wrap pdfcombiner.ErrOpen when the file cannot be read, uses an
// unsupported encryption or turns out damaged once unlocked,
// pdfcombiner.ErrCancelled when the prompt gave no input and
// pdfcombiner.ErrAuthentication after MaxAttempts wrong passwords.
// All of them are *pdfcombiner.PDFError values carrying path.
func (o *Opener) Open(path string) (*reader.Document, error) {
	o.enter(path, Unopened)

	doc, err := reader.Open(path)
	if err != nil {
		return nil, pdfcombiner.NewPDFError("open", path, fmt.Errorf("%w: %w", pdfcombiner.ErrOpen, err))
	}

	if !doc.Locked() {
		if _, err := doc.Page(1); err != nil {
			doc.Close()
			return nil, pdfcombiner.NewPDFError("open", path, fmt.Errorf("%w: %w", pdfcombiner.ErrOpen, err))
		}
		o.enter(path, Unlocked)
		o.logger.Debug("document opened", "path", path, "pages", doc.NumPages(), "encrypted", doc.Encrypted())
		return doc, nil
	}

	o.enter(path, Locked)
	o.logger.Info("document is password protected", "path", path)

	text := fmt.Sprintf("Enter password for %s:", filepath.Base(path))
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		password, ok := o.ask(text)
		if !ok {
			doc.Close()
			o.enter(path, Cancelled)
			return nil, pdfcombiner.NewPDFError("open", path, pdfcombiner.ErrCancelled)
		}
		err := o.unlock(doc, password)
		if errors.Is(err, reader.ErrInvalidPassword) {
			o.logger.Warn("password attempt failed", "path", path, "attempt", attempt)
			continue
		}
		if err != nil {
			doc.Close()
			o.logger.Warn("unlocked document is unreadable", "path", path, "error", err)
			return nil, pdfcombiner.NewPDFError("open", path, fmt.Errorf("%w: %w", pdfcombiner.ErrOpen, err))
		}
		o.enter(path, Unlocked)
		o.logger.Debug("document unlocked", "path", path, "attempt", attempt, "pages", doc.NumPages())
		return doc, nil
	}

	doc.Close()
	o.enter(path, AuthFailed)
	return nil, pdfcombiner.NewPDFError("open", path,
		fmt.Errorf("%w after %d attempts", pdfcombiner.ErrAuthentication, MaxAttempts))
}

func (o *Opener) ask(text string) (string, bool) {
	if o.prompt == nil {
		return "", false
	}
	return o.prompt.Password(text)
}

// unlock decrypts doc. Errors other than reader.ErrInvalidPassword mean the
// password was right but the document cannot be used.
func (o *Opener) unlock(doc *reader.Document, password string) error {
	if err := doc.Decrypt(password); err != nil {
		return err
	}
	if _, err := doc.Page(1); err != nil {
		return fmt.Errorf("first page unreadable: %w", err)
	}
	return nil
}

func (o *Opener) enter(path string, s State) {
	if o.observer != nil {
		o.observer(path, s)
	}
}
