// Command pdfcombine combines PDF documents into one.
//
// Usage:
//
//	pdfcombine -o out.pdf [flags] a.pdf b.pdf ...
//	pdfcombine history [list | show N | delete N | clear]
//
// Pages are taken from each source in order. -range and -rotate refer to a
// source by its 1-based position on the command line:
//
//	pdfcombine -o out.pdf -range 1=1-3,7 -rotate 2=90:all report.pdf scan.pdf
//
// Encrypted sources are prompted for on the terminal; an empty answer
// cancels the combine.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/lakshan-sameera/pdfcombiner"
	"github.com/lakshan-sameera/pdfcombiner/access"
	"github.com/lakshan-sameera/pdfcombiner/assemble"
	"github.com/lakshan-sameera/pdfcombiner/config"
	"github.com/lakshan-sameera/pdfcombiner/history"
	"github.com/lakshan-sameera/pdfcombiner/session"
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: pdfcombine -o out.pdf [flags] file.pdf...\n")
	fmt.Fprintf(os.Stderr, "       pdfcombine history [list | show N | delete N | clear]\n\n")
	flag.PrintDefaults()
}

func main() {
	var (
		output     = flag.String("o", "", "output file (required)")
		password   = flag.String("password", "", "encrypt the output with this password")
		openOutput = flag.Bool("open", false, "open the output when done (default from config)")
		noOpen     = flag.Bool("no-open", false, "do not open the output when done")
		strict     = flag.Bool("strict", false, "validate the output with pdfcpu before writing it")
		configPath = flag.String("config", "", "configuration file (default: user config directory)")
		verbose    = flag.Bool("v", false, "verbose logging")
		ranges     = indexedFlag{}
		rotations  = indexedFlag{}
		meta       pdfcombiner.Metadata
	)
	flag.Var(ranges, "range", "page range for a source, `N=SPEC` (repeatable)")
	flag.Var(rotations, "rotate", "rotation for a source, `N=ANGLE[:PAGES]` (repeatable)")
	flag.StringVar(&meta.Title, "title", "", "output title")
	flag.StringVar(&meta.Author, "author", "", "output author")
	flag.StringVar(&meta.Subject, "subject", "", "output subject")
	flag.StringVar(&meta.Creator, "creator", "", "output creator")
	flag.StringVar(&meta.Producer, "producer", "", "output producer")
	flag.StringVar(&meta.Keywords, "keywords", "", "output keywords")
	flag.StringVar(&meta.CreationDate, "created", "", "output creation date, YYYYMMDDHHmmSS")
	flag.StringVar(&meta.ModDate, "modified", "", "output modification date, YYYYMMDDHHmmSS")
	flag.Usage = usage
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if *configPath == "" {
		*configPath, _ = config.DefaultPath()
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Warn("using default configuration", "error", err)
	}
	histPath, err := cfg.HistoryPath()
	if err != nil {
		fatal(err)
	}
	store := history.New(histPath, history.WithLogger(logger))

	args := flag.Args()
	if len(args) > 0 && args[0] == "history" {
		if err := runHistory(store, args[1:]); err != nil {
			fatal(err)
		}
		return
	}
	if *output == "" {
		usage()
		os.Exit(2)
	}

	opener := access.New(terminalPrompt{}, access.WithLogger(logger))
	sess := session.New(session.WithOpener(opener), session.WithLogger(logger))
	if n := sess.Add(args...); n != len(args) {
		logger.Warn("some arguments were skipped", "given", len(args), "added", n)
	}
	if err := configure(sess, ranges, rotations); err != nil {
		fatal(err)
	}

	engine := assemble.New(
		assemble.WithOpener(opener),
		assemble.WithLogger(logger),
		assemble.WithRecorder(store),
		assemble.WithStrictVerify(*strict || cfg.StrictVerify),
		assemble.WithProgress(func(done, total int) {
			fmt.Fprintf(os.Stderr, "processed %d/%d\n", done, total)
		}),
	)
	out, err := sess.Combine(engine, meta, *password, *output)
	if err != nil {
		fatal(err)
	}
	fmt.Println(out)

	if err := rememberOutput(cfg, *configPath, out); err != nil {
		logger.Warn("cannot save configuration", "error", err)
	}

	if (cfg.AutoOpen || *openOutput) && !*noOpen {
		if err := openFile(out); err != nil {
			logger.Warn("cannot open output", "error", err)
		}
	}
}

// rememberOutput stores the directory of the written output in the
// configuration at path.
func rememberOutput(cfg config.Config, path, out string) error {
	cfg.RememberDirectory(out)
	return cfg.Save(path)
}

// configure applies the -range and -rotate flags to the session entries.
func configure(sess *session.Session, ranges, rotations indexedFlag) error {
	for _, n := range ranges.positions() {
		spec := ranges[n]
		if n > sess.Len() {
			return fmt.Errorf("-range %d: only %d sources", n, sess.Len())
		}
		if err := sess.SetPageRange(n-1, spec); err != nil {
			return err
		}
	}
	for _, n := range rotations.positions() {
		value := rotations[n]
		if n > sess.Len() {
			return fmt.Errorf("-rotate %d: only %d sources", n, sess.Len())
		}
		angle, pages, err := parseRotation(value)
		if err != nil {
			return fmt.Errorf("-rotate %d: %w", n, err)
		}
		if err := sess.SetRotation(n-1, angle, pages); err != nil {
			return err
		}
	}
	return nil
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "pdfcombine: %v\n", err)
	switch {
	case errors.Is(err, pdfcombiner.ErrCancelled):
		os.Exit(3)
	case errors.Is(err, pdfcombiner.ErrAuthentication):
		os.Exit(4)
	}
	os.Exit(1)
}

// runHistory implements the history subcommand.
func runHistory(store *history.Store, args []string) error {
	cmd := "list"
	if len(args) > 0 {
		cmd = args[0]
	}
	switch cmd {
	case "list":
		for i, e := range store.Load() {
			fmt.Printf("%3d  %s  %s\n", i+1, e.Timestamp, e.FilePath)
		}
		return nil
	case "show", "delete":
		if len(args) != 2 {
			return fmt.Errorf("history %s: need an entry number", cmd)
		}
		var n int
		if _, err := fmt.Sscan(args[1], &n); err != nil {
			return fmt.Errorf("history %s: bad entry number %q", cmd, args[1])
		}
		if cmd == "delete" {
			return store.Delete(n - 1)
		}
		entries := store.Load()
		if n < 1 || n > len(entries) {
			return fmt.Errorf("history show: %w: %d", pdfcombiner.ErrNoSelection, n)
		}
		printEntry(entries[n-1])
		return nil
	case "clear":
		return store.Clear()
	}
	return fmt.Errorf("history: unknown command %q", cmd)
}

func printEntry(e history.Entry) {
	fmt.Printf("File:      %s\n", e.FilePath)
	fmt.Printf("Directory: %s\n", filepath.Dir(e.FilePath))
	fmt.Printf("Created:   %s\n", e.Timestamp)
	for _, key := range []string{
		pdfcombiner.KeyTitle, pdfcombiner.KeyAuthor, pdfcombiner.KeySubject, pdfcombiner.KeyCreator,
		pdfcombiner.KeyProducer, pdfcombiner.KeyKeywords, pdfcombiner.KeyCreationDate, pdfcombiner.KeyModDate,
	} {
		if v, ok := e.Metadata[key]; ok {
			fmt.Printf("%-10s %s\n", key[1:]+":", v)
		}
	}
}
