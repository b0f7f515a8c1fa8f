package tools

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"msp-toolkit/internal/model"
)

// ProtocolVersion is the agent protocol revision announced on initialize.
const ProtocolVersion = "2024-11-05"

// JSON-RPC error codes.
const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
)

const maxLineSize = 4 * 1024 * 1024

type request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// A request without an id is a notification and gets no response.
func (r *request) isNotification() bool {
	return len(r.ID) == 0 || bytes.Equal(r.ID, []byte("null"))
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type callParams struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

// Content is one block of a tool result.
type Content struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// CallResult is the result of tools/call.
type CallResult struct {
	Content []Content `json:"content"`
	IsError bool      `json:"isError,omitempty"`
}

// Server serves a Dispatcher as newline-delimited JSON-RPC 2.0.
type Server struct {
	dispatcher *Dispatcher
	name       string
	version    string
	logger     zerolog.Logger

	mu sync.Mutex
}

// NewServer creates a Server announcing itself as name/version.
func NewServer(dispatcher *Dispatcher, name, version string, logger zerolog.Logger) *Server {
	return &Server{
		dispatcher: dispatcher,
		name:       name,
		version:    version,
		logger:     logger.With().Str("component", "tool-server").Str("session", uuid.NewString()).Logger(),
	}
}

// Serve reads requests from r until EOF or ctx is done and writes responses
// to w. Each line of r holds one request.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	enc := json.NewEncoder(w)

	s.logger.Info().Msg("tool server started")

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		resp := s.handleLine(ctx, line)
		if resp == nil {
			continue
		}
		if err := s.write(enc, resp); err != nil {
			return fmt.Errorf("failed to write response: %w", err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read request: %w", err)
	}
	s.logger.Info().Msg("tool server stopped")
	return nil
}

func (s *Server) write(enc *json.Encoder, resp *response) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return enc.Encode(resp)
}

func (s *Server) handleLine(ctx context.Context, line []byte) *response {
	var req request
	if err := json.Unmarshal(line, &req); err != nil {
		s.logger.Warn().Err(err).Msg("malformed request")
		return errorResponse(nil, codeParseError, "parse error: "+err.Error())
	}
	if req.JSONRPC != "2.0" || req.Method == "" {
		if req.isNotification() {
			return nil
		}
		return errorResponse(req.ID, codeInvalidRequest, "invalid request")
	}

	result, rpcErr := s.dispatch(ctx, &req)
	if req.isNotification() {
		return nil
	}
	if rpcErr != nil {
		return &response{JSONRPC: "2.0", ID: req.ID, Error: rpcErr}
	}
	return &response{JSONRPC: "2.0", ID: req.ID, Result: result}
}

func (s *Server) dispatch(ctx context.Context, req *request) (interface{}, *rpcError) {
	switch req.Method {
	case "initialize":
		return map[string]interface{}{
			"protocolVersion": ProtocolVersion,
			"capabilities": map[string]interface{}{
				"tools": map[string]interface{}{},
			},
			"serverInfo": map[string]string{
				"name":    s.name,
				"version": s.version,
			},
		}, nil
	case "notifications/initialized":
		s.logger.Debug().Msg("client initialized")
		return nil, nil
	case "ping":
		return map[string]interface{}{}, nil
	case "tools/list":
		return map[string]interface{}{"tools": s.dispatcher.Tools()}, nil
	case "tools/call":
		var params callParams
		if len(req.Params) == 0 {
			return nil, &rpcError{Code: codeInvalidParams, Message: "missing params"}
		}
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return nil, &rpcError{Code: codeInvalidParams, Message: "invalid params: " + err.Error()}
		}
		if params.Name == "" {
			return nil, &rpcError{Code: codeInvalidParams, Message: "missing tool name"}
		}
		return s.call(ctx, params), nil
	default:
		return nil, &rpcError{Code: codeMethodNotFound, Message: "method not found: " + req.Method}
	}
}

// call runs a tool. Tool failures are results with IsError set, not
// protocol errors.
func (s *Server) call(ctx context.Context, params callParams) *CallResult {
	text, err := s.dispatcher.Call(ctx, params.Name, params.Arguments)
	if err != nil {
		code := model.ErrorCode(err)
		if !model.IsNotFound(err) && !model.IsValidation(err) {
			s.logger.Error().Err(err).Str("tool", params.Name).Msg("tool execution failed")
		}
		return &CallResult{
			Content: []Content{{Type: "text", Text: fmt.Sprintf("Error [%s]: %s", code, err.Error())}},
			IsError: true,
		}
	}
	return &CallResult{Content: []Content{{Type: "text", Text: text}}}
}

func errorResponse(id json.RawMessage, code int, msg string) *response {
	if len(id) == 0 {
		id = json.RawMessage("null")
	}
	return &response{JSONRPC: "2.0", ID: id, Error: &rpcError{Code: code, Message: msg}}
}
