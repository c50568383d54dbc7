// Package mcp implements a Model Context Protocol (MCP) server that exposes
// a combine session as tools and resources for AI assistants.
//
// The server communicates via JSON-RPC 2.0 over stdio and implements the
// MCP specification (2024-11-05) for tools and resources.
//
// # Usage with Claude Desktop
//
// Add to your claude_desktop_config.json:
//
//	{
//	  "mcpServers": {
//	    "pdfcombine": {
//	      "command": "pdfcombine-mcp"
//	    }
//	  }
//	}
package mcp

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strings"
	"sync"
	"time"
)

// Reported in the initialize handshake.
const (
	ServerName    = "pdfcombine-mcp"
	ServerVersion = "1.0.0"
)

// Server is an MCP server that handles JSON-RPC 2.0 messages over stdio.
type Server struct {
	tools     map[string]Tool
	resources map[string]Resource
	input     io.Reader
	output    io.Writer
	logger    *slog.Logger
	mu        sync.Mutex
}

// Tool defines an MCP tool that can be called by the client.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
	Handler     ToolHandler    `json:"-"`
}

// ToolHandler is a function that executes a tool with the given arguments.
type ToolHandler func(args map[string]any) (ToolResult, error)

// ToolResult is the result returned by a tool execution.
type ToolResult struct {
	Content []ContentBlock `json:"content"`
	IsError bool           `json:"isError,omitempty"`
}

// ContentBlock is a piece of content in a tool result.
type ContentBlock struct {
	Type string `json:"type"` // always "text"
	Text string `json:"text,omitempty"`
}

// Resource defines an MCP resource.
type Resource struct {
	URI         string          `json:"uri"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	MIMEType    string          `json:"mimeType,omitempty"`
	Handler     ResourceHandler `json:"-"`
}

// ResourceHandler reads a resource and returns its content.
type ResourceHandler func(uri string) ([]ResourceContent, error)

// ResourceContent is the content of a read resource.
type ResourceContent struct {
	URI      string `json:"uri"`
	MIMEType string `json:"mimeType,omitempty"`
	Text     string `json:"text,omitempty"`
}

// JSON-RPC types
type jsonrpcRequest struct {
	JSONRPC string           `json:"jsonrpc"`
	ID      *json.RawMessage `json:"id,omitempty"`
	Method  string           `json:"method"`
	Params  json.RawMessage  `json:"params,omitempty"`
}

type jsonrpcResponse struct {
	JSONRPC string           `json:"jsonrpc"`
	ID      *json.RawMessage `json:"id"`
	Result  any              `json:"result,omitempty"`
	Error   *jsonrpcError    `json:"error,omitempty"`
}

// JSON-RPC 2.0 error codes.
const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternalError  = -32603
)

type jsonrpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// NewServer creates a new MCP server reading from stdin and writing to stdout.
func NewServer() *Server {
	return NewServerWithIO(os.Stdin, os.Stdout)
}

// NewServerWithIO creates a new MCP server with custom I/O for testing.
func NewServerWithIO(in io.Reader, out io.Writer) *Server {
	return &Server{
		tools:     make(map[string]Tool),
		resources: make(map[string]Resource),
		input:     in,
		output:    out,
		logger:    slog.New(slog.DiscardHandler),
	}
}

// SetLogger sets the logger for request and tool failures. Stdout carries
// the protocol, so l must write elsewhere.
func (s *Server) SetLogger(l *slog.Logger) {
	s.logger = l
}

// AddTool registers a tool with the server.
func (s *Server) AddTool(t Tool) {
	s.tools[t.Name] = t
}

// AddResource registers a resource with the server.
func (s *Server) AddResource(r Resource) {
	s.resources[r.URI] = r
}

// Run processes newline-delimited messages until EOF. A line holding a JSON
// array is a batch and is answered with one array.
func (s *Server) Run() error {
	scanner := bufio.NewScanner(s.input)
	scanner.Buffer(make([]byte, 0, 1024*1024), 10*1024*1024)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if line[0] == '[' {
			s.handleBatch(line)
			continue
		}
		if resp := s.handleMessage(line); resp != nil {
			s.send(resp)
		}
	}
	return scanner.Err()
}

func (s *Server) handleBatch(line []byte) {
	var msgs []json.RawMessage
	if err := json.Unmarshal(line, &msgs); err != nil {
		s.send(errorResponse(nil, codeParseError, "Parse error", err.Error()))
		return
	}
	if len(msgs) == 0 {
		s.send(errorResponse(nil, codeInvalidRequest, "Invalid Request", "empty batch"))
		return
	}
	var resps []*jsonrpcResponse
	for _, msg := range msgs {
		if resp := s.handleMessage(msg); resp != nil {
			resps = append(resps, resp)
		}
	}
	// A batch of notifications gets no reply.
	if len(resps) > 0 {
		s.send(resps)
	}
}

// handleMessage answers one request. Notifications return nil.
func (s *Server) handleMessage(msg []byte) *jsonrpcResponse {
	var req jsonrpcRequest
	if err := json.Unmarshal(msg, &req); err != nil {
		if len(msg) > 0 && msg[0] != '{' {
			return errorResponse(nil, codeInvalidRequest, "Invalid Request", err.Error())
		}
		return errorResponse(nil, codeParseError, "Parse error", err.Error())
	}
	if req.JSONRPC != "2.0" || req.Method == "" {
		return errorResponse(req.ID, codeInvalidRequest, "Invalid Request", `need "jsonrpc": "2.0" and a method`)
	}
	if req.ID == nil {
		s.logger.Debug("notification", "method", req.Method)
		return nil
	}

	start := time.Now()
	result, rpcErr := s.call(req)
	s.logger.Debug("request", "method", req.Method, "duration", time.Since(start), "failed", rpcErr != nil)
	if rpcErr != nil {
		return &jsonrpcResponse{JSONRPC: "2.0", ID: req.ID, Error: rpcErr}
	}
	return &jsonrpcResponse{JSONRPC: "2.0", ID: req.ID, Result: result}
}

func (s *Server) call(req jsonrpcRequest) (any, *jsonrpcError) {
	switch req.Method {
	case "initialize":
		return map[string]any{
			"protocolVersion": "2024-11-05",
			"capabilities": map[string]any{
				"tools":     map[string]any{},
				"resources": map[string]any{},
			},
			"serverInfo": map[string]any{
				"name":    ServerName,
				"version": ServerVersion,
			},
		}, nil
	case "ping":
		return map[string]any{}, nil
	case "tools/list":
		return map[string]any{"tools": s.toolList()}, nil
	case "tools/call":
		return s.callTool(req.Params)
	case "resources/list":
		return map[string]any{"resources": s.resourceList()}, nil
	case "resources/read":
		return s.readResource(req.Params)
	}
	return nil, &jsonrpcError{Code: codeMethodNotFound, Message: "Method not found", Data: req.Method}
}

func (s *Server) toolList() []map[string]any {
	tools := make([]map[string]any, 0, len(s.tools))
	for _, name := range slices.Sorted(maps.Keys(s.tools)) {
		t := s.tools[name]
		tools = append(tools, map[string]any{
			"name":        t.Name,
			"description": t.Description,
			"inputSchema": t.InputSchema,
		})
	}
	return tools
}

func (s *Server) callTool(raw json.RawMessage) (any, *jsonrpcError) {
	var params struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
	}
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, &jsonrpcError{Code: codeInvalidParams, Message: "Invalid params", Data: err.Error()}
	}
	tool, ok := s.tools[params.Name]
	if !ok {
		return nil, &jsonrpcError{Code: codeInvalidParams, Message: "Unknown tool", Data: params.Name}
	}

	err := missingArgument(tool.InputSchema, params.Arguments)
	var result ToolResult
	if err == nil {
		result, err = tool.Handler(params.Arguments)
	}
	if err != nil {
		s.logger.Warn("tool failed", "tool", params.Name, "error", err)
		return toolError(err), nil
	}
	return result, nil
}

// missingArgument checks the schema's required list against args.
func missingArgument(schema map[string]any, args map[string]any) error {
	var required []string
	switch v := schema["required"].(type) {
	case []string:
		required = v
	case []any:
		for _, r := range v {
			if name, ok := r.(string); ok {
				required = append(required, name)
			}
		}
	}
	for _, name := range required {
		if _, ok := args[name]; !ok {
			return fmt.Errorf("missing '%s' argument", name)
		}
	}
	return nil
}

func toolError(err error) ToolResult {
	return ToolResult{
		Content: []ContentBlock{{Type: "text", Text: fmt.Sprintf("Error: %v", err)}},
		IsError: true,
	}
}

func (s *Server) resourceList() []map[string]any {
	resources := make([]map[string]any, 0, len(s.resources))
	for _, uri := range slices.Sorted(maps.Keys(s.resources)) {
		r := s.resources[uri]
		res := map[string]any{
			"uri":  r.URI,
			"name": r.Name,
		}
		if r.Description != "" {
			res["description"] = r.Description
		}
		if r.MIMEType != "" {
			res["mimeType"] = r.MIMEType
		}
		resources = append(resources, res)
	}
	return resources
}

func (s *Server) readResource(raw json.RawMessage) (any, *jsonrpcError) {
	var params struct {
		URI string `json:"uri"`
	}
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, &jsonrpcError{Code: codeInvalidParams, Message: "Invalid params", Data: err.Error()}
	}

	// Resources may carry a query, as in pdfcombiner://history?limit=5.
	base, _, _ := strings.Cut(params.URI, "?")
	resource, ok := s.resources[base]
	if !ok {
		return nil, &jsonrpcError{Code: codeInvalidParams, Message: "Unknown resource", Data: params.URI}
	}
	contents, err := resource.Handler(params.URI)
	if err != nil {
		s.logger.Warn("resource failed", "uri", params.URI, "error", err)
		return nil, &jsonrpcError{Code: codeInternalError, Message: "Resource error", Data: err.Error()}
	}
	return map[string]any{"contents": contents}, nil
}

func errorResponse(id *json.RawMessage, code int, message string, data any) *jsonrpcResponse {
	return &jsonrpcResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &jsonrpcError{Code: code, Message: message, Data: data},
	}
}

// send writes v as one line.
func (s *Server) send(v any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("encoding response", "error", err)
		return
	}
	data = append(data, '\n')
	if _, err := s.output.Write(data); err != nil {
		s.logger.Error("writing response", "error", err)
	}
}
