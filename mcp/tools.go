package mcp

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"

	"github.com/lakshan-sameera/pdfcombiner"
	"github.com/lakshan-sameera/pdfcombiner/access"
	"github.com/lakshan-sameera/pdfcombiner/assemble"
	"github.com/lakshan-sameera/pdfcombiner/history"
	"github.com/lakshan-sameera/pdfcombiner/session"
)

// App holds the combine session the tools operate on.
type App struct {
	session *session.Session
	history *history.Store
	prompt  *candidatePrompt
	opener  *access.Opener
	engine  []assemble.Option
	logger  *slog.Logger
}

// AppOption configures an App.
type AppOption func(*App)

// WithLogger sets the logger passed down to the session and engine.
func WithLogger(l *slog.Logger) AppOption {
	return func(a *App) { a.logger = l }
}

// WithEngineOptions adds options for every combine engine the app creates.
func WithEngineOptions(opts ...assemble.Option) AppOption {
	return func(a *App) { a.engine = append(a.engine, opts...) }
}

// NewApp returns an app with an empty session. Combines are recorded in
// hist when it is not nil.
func NewApp(hist *history.Store, opts ...AppOption) *App {
	a := &App{
		history: hist,
		prompt:  &candidatePrompt{},
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.opener = access.New(a.prompt, access.WithObserver(a.prompt.observe), access.WithLogger(a.logger))
	a.session = session.New(
		session.WithOpener(a.opener),
		session.WithLogger(a.logger),
		session.WithResetOnSuccess(true),
	)
	return a
}

// Session returns the app's session.
func (a *App) Session() *session.Session { return a.session }

// RegisterSessionTools adds the session commands to the server.
func RegisterSessionTools(s *Server, app *App) {
	s.AddTool(addSourcesTool(app))
	s.AddTool(listSourcesTool(app))
	s.AddTool(removeSourceTool(app))
	s.AddTool(undoRemoveTool(app))
	s.AddTool(moveSourceTool(app))
	s.AddTool(setPageRangeTool(app))
	s.AddTool(setRotationTool(app))
	s.AddTool(previewMetadataTool(app))
	s.AddTool(combineTool(app))
	s.AddTool(listHistoryTool(app))
	s.AddTool(deleteHistoryEntryTool(app))
	s.AddTool(clearHistoryTool(app))
}

var (
	indexProperty = map[string]any{
		"type":        "integer",
		"description": "1-based position of the source in the list",
	}
	passwordsProperty = map[string]any{
		"type":        "object",
		"description": "Passwords to try for encrypted documents, keyed by file path. Each value is a password or a list of up to 3 passwords tried in order.",
		"additionalProperties": map[string]any{
			"oneOf": []any{
				map[string]any{"type": "string"},
				map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			},
		},
	}
)

func objectSchema(properties map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func addSourcesTool(app *App) Tool {
	return Tool{
		Name:        "add_sources",
		Description: "Append PDF files to the source list. Files without a .pdf extension and files already in the list are skipped.",
		InputSchema: objectSchema(map[string]any{
			"paths": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Paths of the PDF files to add, in order",
			},
		}, "paths"),
		Handler: func(args map[string]any) (ToolResult, error) {
			paths, err := stringsArg(args, "paths")
			if err != nil {
				return ToolResult{}, err
			}
			n := app.session.Add(paths...)
			return textResult("Added %d file(s); %d in the list.", n, app.session.Len()), nil
		},
	}
}

func listSourcesTool(app *App) Tool {
	return Tool{
		Name:        "list_sources",
		Description: "List the source documents in combine order with their page ranges and rotations.",
		InputSchema: objectSchema(map[string]any{}),
		Handler: func(map[string]any) (ToolResult, error) {
			return jsonResult(sourceList(app.session))
		},
	}
}

func removeSourceTool(app *App) Tool {
	return Tool{
		Name:        "remove_source",
		Description: "Remove a source from the list. The removal can be undone with undo_remove until another command changes the list.",
		InputSchema: objectSchema(map[string]any{"index": indexProperty}, "index"),
		Handler: func(args map[string]any) (ToolResult, error) {
			i, err := indexArg(args, "index")
			if err != nil {
				return ToolResult{}, err
			}
			e, err := app.session.Remove(i)
			if err != nil {
				return ToolResult{}, err
			}
			return textResult("Removed %s.", e.Path), nil
		},
	}
}

func undoRemoveTool(app *App) Tool {
	return Tool{
		Name:        "undo_remove",
		Description: "Restore the most recently removed source at its previous position.",
		InputSchema: objectSchema(map[string]any{}),
		Handler: func(map[string]any) (ToolResult, error) {
			e, ok := app.session.Undo()
			if !ok {
				return ToolResult{}, fmt.Errorf("nothing to undo")
			}
			return textResult("Restored %s.", e.Path), nil
		},
	}
}

func moveSourceTool(app *App) Tool {
	return Tool{
		Name:        "move_source",
		Description: "Move a source one position up or down in the list.",
		InputSchema: objectSchema(map[string]any{
			"index": indexProperty,
			"direction": map[string]any{
				"type": "string",
				"enum": []string{"up", "down"},
			},
		}, "index", "direction"),
		Handler: func(args map[string]any) (ToolResult, error) {
			i, err := indexArg(args, "index")
			if err != nil {
				return ToolResult{}, err
			}
			switch dir := stringArg(args, "direction"); dir {
			case "up":
				err = app.session.MoveUp(i)
			case "down":
				err = app.session.MoveDown(i)
			default:
				return ToolResult{}, fmt.Errorf("direction must be \"up\" or \"down\", got %q", dir)
			}
			if err != nil {
				return ToolResult{}, err
			}
			return jsonResult(sourceList(app.session))
		},
	}
}

func setPageRangeTool(app *App) Tool {
	return Tool{
		Name:        "set_page_range",
		Description: "Select the pages of a source to include, e.g. \"1-5, 8, 10-12\". The range is checked against the document; an empty range selects every page.",
		InputSchema: objectSchema(map[string]any{
			"index":     indexProperty,
			"pages":     map[string]any{"type": "string", "description": "Page range, 1-based and inclusive"},
			"passwords": passwordsProperty,
		}, "index"),
		Handler: func(args map[string]any) (ToolResult, error) {
			i, err := indexArg(args, "index")
			if err != nil {
				return ToolResult{}, err
			}
			pages := stringArg(args, "pages")
			app.prompt.load(passwordsArg(args))
			if pages == "" {
				err = app.session.ClearPageRange(i)
			} else {
				err = app.session.SetPageRange(i, pages)
			}
			if err != nil {
				return ToolResult{}, err
			}
			return jsonResult(sourceList(app.session))
		},
	}
}

func setRotationTool(app *App) Tool {
	return Tool{
		Name:        "set_rotation",
		Description: "Rotate pages of a source clockwise by 90, 180 or 270 degrees relative to their stored orientation. An angle of 0 removes the rotation.",
		InputSchema: objectSchema(map[string]any{
			"index": indexProperty,
			"angle": map[string]any{"type": "integer", "enum": []int{0, 90, 180, 270}},
			"pages": map[string]any{
				"type":        "string",
				"description": "\"all\" (default) or a page range",
			},
			"passwords": passwordsProperty,
		}, "index", "angle"),
		Handler: func(args map[string]any) (ToolResult, error) {
			i, err := indexArg(args, "index")
			if err != nil {
				return ToolResult{}, err
			}
			angle, err := intArg(args, "angle")
			if err != nil {
				return ToolResult{}, err
			}
			if angle == 0 {
				if err := app.session.ClearRotation(i); err != nil {
					return ToolResult{}, err
				}
				return jsonResult(sourceList(app.session))
			}
			pages := stringArg(args, "pages")
			if pages == "" {
				pages = pdfcombiner.AllPages
			}
			app.prompt.load(passwordsArg(args))
			if err := app.session.SetRotation(i, angle, pages); err != nil {
				return ToolResult{}, err
			}
			return jsonResult(sourceList(app.session))
		},
	}
}

func previewMetadataTool(app *App) Tool {
	return Tool{
		Name:        "preview_metadata",
		Description: "Read the document information (title, author, dates, ...) of a source, in the form accepted by combine's metadata argument.",
		InputSchema: objectSchema(map[string]any{
			"index":     indexProperty,
			"passwords": passwordsProperty,
		}, "index"),
		Handler: func(args map[string]any) (ToolResult, error) {
			i, err := indexArg(args, "index")
			if err != nil {
				return ToolResult{}, err
			}
			app.prompt.load(passwordsArg(args))
			meta, err := app.session.Preview(i)
			if err != nil {
				return ToolResult{}, err
			}
			return jsonResult(meta)
		},
	}
}

func combineTool(app *App) Tool {
	return Tool{
		Name:        "combine",
		Description: "Combine the selected pages of every source, in list order, into one PDF. The output is written only if every source succeeds. The source list is cleared afterwards.",
		InputSchema: objectSchema(map[string]any{
			"output": map[string]any{"type": "string", "description": "Path of the combined PDF"},
			"metadata": map[string]any{
				"type":        "object",
				"description": "Document information: title, author, subject, creator, producer, keywords, creation_date, mod_date (dates as YYYYMMDDHHmmSS)",
			},
			"password":  map[string]any{"type": "string", "description": "Encrypt the output with this password"},
			"passwords": passwordsProperty,
		}, "output"),
		Handler: func(args map[string]any) (ToolResult, error) {
			output := stringArg(args, "output")
			if output == "" {
				return ToolResult{}, fmt.Errorf("missing 'output' argument")
			}
			var meta pdfcombiner.Metadata
			if raw, ok := args["metadata"]; ok {
				data, err := json.Marshal(raw)
				if err != nil {
					return ToolResult{}, fmt.Errorf("encoding metadata: %w", err)
				}
				if err := json.Unmarshal(data, &meta); err != nil {
					return ToolResult{}, fmt.Errorf("invalid metadata: %w", err)
				}
			}

			app.prompt.load(passwordsArg(args))
			opts := append(slices.Clone(app.engine), assemble.WithOpener(app.opener), assemble.WithLogger(app.logger))
			if app.history != nil {
				opts = append(opts, assemble.WithRecorder(app.history))
			}
			out, err := app.session.Combine(assemble.New(opts...), meta, stringArg(args, "password"), output)
			if err != nil {
				return ToolResult{}, err
			}
			return textResult("Combined PDF written to %s.", out), nil
		},
	}
}

func listHistoryTool(app *App) Tool {
	return Tool{
		Name:        "list_history",
		Description: "List previously combined documents, newest first.",
		InputSchema: objectSchema(map[string]any{}),
		Handler: func(map[string]any) (ToolResult, error) {
			if app.history == nil {
				return jsonResult([]history.Entry{})
			}
			return jsonResult(app.history.Load())
		},
	}
}

func deleteHistoryEntryTool(app *App) Tool {
	return Tool{
		Name:        "delete_history_entry",
		Description: "Delete one history entry. The output file itself is not touched.",
		InputSchema: objectSchema(map[string]any{
			"index": map[string]any{"type": "integer", "description": "1-based position in list_history"},
		}, "index"),
		Handler: func(args map[string]any) (ToolResult, error) {
			i, err := indexArg(args, "index")
			if err != nil {
				return ToolResult{}, err
			}
			if app.history == nil {
				return ToolResult{}, fmt.Errorf("no history store configured")
			}
			if err := app.history.Delete(i); err != nil {
				return ToolResult{}, err
			}
			return textResult("History entry %d deleted.", i+1), nil
		},
	}
}

func clearHistoryTool(app *App) Tool {
	return Tool{
		Name:        "clear_history",
		Description: "Delete every history entry.",
		InputSchema: objectSchema(map[string]any{}),
		Handler: func(map[string]any) (ToolResult, error) {
			if app.history == nil {
				return ToolResult{}, fmt.Errorf("no history store configured")
			}
			if err := app.history.Clear(); err != nil {
				return ToolResult{}, err
			}
			return textResult("History cleared."), nil
		},
	}
}

type listedSource struct {
	Index int `json:"index"`
	pdfcombiner.SourceEntry
}

func sourceList(s *session.Session) []listedSource {
	entries := s.Entries()
	out := make([]listedSource, len(entries))
	for i, e := range entries {
		out[i] = listedSource{Index: i + 1, SourceEntry: e}
	}
	return out
}

func textResult(format string, args ...any) ToolResult {
	return ToolResult{Content: []ContentBlock{{Type: "text", Text: fmt.Sprintf(format, args...)}}}
}

func jsonResult(v any) (ToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return ToolResult{}, fmt.Errorf("encoding result: %w", err)
	}
	return ToolResult{Content: []ContentBlock{{Type: "text", Text: string(data)}}}, nil
}

func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

func stringsArg(args map[string]any, key string) ([]string, error) {
	switch v := args[key].(type) {
	case string:
		return []string{v}, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("'%s' must contain strings, got %T", key, item)
			}
			out = append(out, s)
		}
		return out, nil
	case nil:
		return nil, fmt.Errorf("missing '%s' argument", key)
	default:
		return nil, fmt.Errorf("'%s' must be a list of strings, got %T", key, v)
	}
}

func intArg(args map[string]any, key string) (int, error) {
	switch v := args[key].(type) {
	case float64:
		if v != float64(int(v)) {
			return 0, fmt.Errorf("'%s' must be an integer, got %v", key, v)
		}
		return int(v), nil
	case nil:
		return 0, fmt.Errorf("missing '%s' argument", key)
	default:
		return 0, fmt.Errorf("'%s' must be an integer, got %T", key, v)
	}
}

// indexArg reads a 1-based position and returns it 0-based.
func indexArg(args map[string]any, key string) (int, error) {
	n, err := intArg(args, key)
	if err != nil {
		return 0, err
	}
	return n - 1, nil
}

func passwordsArg(args map[string]any) map[string][]string {
	raw, _ := args["passwords"].(map[string]any)
	out := make(map[string][]string, len(raw))
	for path := range raw {
		// Malformed values are dropped; the document then prompts with no input.
		if pws, err := stringsArg(raw, path); err == nil {
			out[path] = pws
		}
	}
	return out
}
