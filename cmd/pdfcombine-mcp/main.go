// Command pdfcombine-mcp is an MCP (Model Context Protocol) server that lets
// AI assistants build a list of PDF documents and combine them.
//
// # Installation
//
//	go install github.com/lakshan-sameera/pdfcombiner/cmd/pdfcombine-mcp@latest
//
// # Configuration for Claude Desktop
//
// Add to ~/.config/claude/claude_desktop_config.json:
//
//	{
//	  "mcpServers": {
//	    "pdfcombine": {
//	      "command": "pdfcombine-mcp"
//	    }
//	  }
//	}
//
// # Available Tools
//
//   - add_sources, list_sources, remove_source, undo_remove, move_source:
//     edit the source list
//   - set_page_range, set_rotation: choose and turn pages per source
//   - preview_metadata: read a source's document information
//   - combine: write the combined PDF, optionally encrypted
//   - list_history, delete_history_entry, clear_history: past combines
//
// # Available Resources
//
//   - pdfcombiner://sources : the current source list
//   - pdfcombiner://history?limit=N : past combines, newest first
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/lakshan-sameera/pdfcombiner/assemble"
	"github.com/lakshan-sameera/pdfcombiner/config"
	"github.com/lakshan-sameera/pdfcombiner/history"
	"github.com/lakshan-sameera/pdfcombiner/mcp"
)

func main() {
	var (
		configPath = flag.String("config", "", "configuration file (default: user config directory)")
		verbose    = flag.Bool("v", false, "log debug events to stderr")
	)
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	// Stdout carries the protocol.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if *configPath == "" {
		p, err := config.DefaultPath()
		if err != nil {
			logger.Warn("no configuration directory", "error", err)
		}
		*configPath = p
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Warn("using default configuration", "error", err)
	}

	var store *history.Store
	if path, err := cfg.HistoryPath(); err != nil {
		logger.Warn("history disabled", "error", err)
	} else {
		store = history.New(path, history.WithLogger(logger))
	}

	server := mcp.NewServer()
	server.SetLogger(logger)
	app := mcp.NewApp(store,
		mcp.WithLogger(logger),
		mcp.WithEngineOptions(assemble.WithStrictVerify(cfg.StrictVerify)),
	)
	mcp.RegisterSessionTools(server, app)
	mcp.RegisterSessionResources(server, app)

	if err := server.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "pdfcombine-mcp: %v\n", err)
		os.Exit(1)
	}
}
