package mcp

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/lakshan-sameera/pdfcombiner/history"
)

// Resource URIs.
const (
	SourcesURI = "pdfcombiner://sources"
	HistoryURI = "pdfcombiner://history"
)

// RegisterSessionResources adds the session's read-only views to the
// server.
func RegisterSessionResources(s *Server, app *App) {
	s.AddResource(Resource{
		URI:         SourcesURI,
		Name:        "Combine Sources",
		Description: "The source list in combine order with page ranges and rotations.",
		MIMEType:    "application/json",
		Handler: func(uri string) ([]ResourceContent, error) {
			return jsonContent(uri, sourceList(app.session))
		},
	})

	s.AddResource(Resource{
		URI:         HistoryURI,
		Name:        "Combine History",
		Description: "Previously combined documents, newest first. Limit the number of entries with a query: pdfcombiner://history?limit=10",
		MIMEType:    "application/json",
		Handler: func(uri string) ([]ResourceContent, error) {
			entries := []history.Entry{}
			if app.history != nil {
				entries = app.history.Load()
			}
			limit, err := limitFromURI(uri)
			if err != nil {
				return nil, err
			}
			if limit > 0 && limit < len(entries) {
				entries = entries[:limit]
			}
			return jsonContent(uri, entries)
		},
	})
}

func limitFromURI(uri string) (int, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return 0, fmt.Errorf("invalid URI %q: %w", uri, err)
	}
	v := u.Query().Get("limit")
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid limit %q", v)
	}
	return n, nil
}

func jsonContent(uri string, v any) ([]ResourceContent, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", uri, err)
	}
	return []ResourceContent{{
		URI:      uri,
		MIMEType: "application/json",
		Text:     string(data),
	}}, nil
}
