// Package server is a JSON-RPC 2.0 server for Go functions, reachable in-process, over the
// framed TCP protocol, over HTTP and over websockets.
//
// Request processing pipeline:
//
//	bytes ─► middleware chain ─► dispatch
//	                              ├─ parse JSON          (-32700)
//	                              ├─ validate envelope   (-32600)
//	                              ├─ look up method      (-32601)
//	                              ├─ decode params       (-32602)
//	                              └─ reflect call ─► result | *message.ErrorObject | -32603
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"mini-jsonrpc/message"
	"mini-jsonrpc/middleware"
	"mini-jsonrpc/protocol"
	"mini-jsonrpc/registry"
)

const defaultRegistryTTL = 10 // seconds, renewed by keepalive

// Server dispatches JSON-RPC requests to registered functions.
type Server struct {
	name   string
	logger *slog.Logger

	mu      sync.RWMutex
	methods map[string]*method

	middlewares []middleware.Middleware
	handler     middleware.HandlerFunc
	buildOnce   sync.Once

	lnMu          sync.Mutex // guards listener, registry and advertiseAddr
	listener      net.Listener
	wg            sync.WaitGroup // in-flight requests
	shutdown      atomic.Bool
	registry      registry.Registry
	advertiseAddr string
}

type Option func(*Server)

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a server. name is the service name used for registry entries.
func NewServer(name string, opts ...Option) *Server {
	s := &Server{
		name:    name,
		logger:  slog.Default(),
		methods: make(map[string]*method),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "server", "service", name)
	return s
}

// Register exposes fn under the wire name. See method for accepted signatures.
func (s *Server) Register(name string, fn any) error {
	m, err := newMethod(name, fn)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.methods[name]; dup {
		return fmt.Errorf("rpc: method %s already registered", name)
	}
	s.methods[name] = m
	return nil
}

// Methods returns the registered wire names, sorted.
func (s *Server) Methods() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.methods))
	for name := range s.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Use registers a middleware. Middlewares added after the first request are ignored.
func (s *Server) Use(mw middleware.Middleware) {
	s.middlewares = append(s.middlewares, mw)
}

func (s *Server) chain() middleware.HandlerFunc {
	s.buildOnce.Do(func() {
		s.handler = middleware.Chain(s.middlewares...)(s.dispatch)
	})
	return s.handler
}

// ServeJSONRPC answers one raw request with one raw response. It always returns a response.
func (s *Server) ServeJSONRPC(ctx context.Context, request []byte) []byte {
	resp, err := s.chain()(ctx, request)
	if err != nil {
		// A middleware refused the request (rate limit, timeout).
		return errorResponse(peekID(request), message.NewErrorObject(message.CodeServerError, err.Error(), nil))
	}
	return resp
}

// dispatch is the innermost handler. Protocol errors become error responses, never Go errors.
func (s *Server) dispatch(ctx context.Context, body []byte) ([]byte, error) {
	var probe json.RawMessage
	if err := json.Unmarshal(body, &probe); err != nil {
		return errorResponse(nil, message.NewErrorObject(message.CodeParseError, "Parse error", nil)), nil
	}
	trimmed := bytes.TrimSpace(probe)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return errorResponse(nil, message.NewErrorObject(message.CodeInvalidRequest, "request must be a single object", nil)), nil
	}

	var req message.ServerRequest
	if err := json.Unmarshal(trimmed, &req); err != nil {
		return errorResponse(nil, message.NewErrorObject(message.CodeInvalidRequest, err.Error(), nil)), nil
	}
	if !validID(req.ID) {
		return errorResponse(nil, message.NewErrorObject(message.CodeInvalidRequest, "missing or invalid id", nil)), nil
	}
	if req.JSONRPC != message.Version || req.Method == "" {
		return errorResponse(req.ID, message.NewErrorObject(message.CodeInvalidRequest, "Invalid request", nil)), nil
	}

	s.mu.RLock()
	m, ok := s.methods[req.Method]
	s.mu.RUnlock()
	if !ok {
		return errorResponse(req.ID, message.NewErrorObject(message.CodeMethodNotFound, "Method not found", req.Method)), nil
	}

	result, err := s.invoke(ctx, m, req.Params)
	if err != nil {
		var obj *message.ErrorObject
		if !errors.As(err, &obj) || obj == nil {
			obj = message.NewErrorObject(message.CodeInternalError, err.Error(), nil)
		}
		return errorResponse(req.ID, obj), nil
	}

	raw, err := json.Marshal(result)
	if err != nil {
		s.logger.Error("failed to marshal result", "method", req.Method, "error", err)
		return errorResponse(req.ID, message.NewErrorObject(message.CodeInternalError, "result is not serializable", nil)), nil
	}
	return encodeResponse(&message.Response{JSONRPC: message.Version, ID: req.ID, Result: raw}), nil
}

// invoke turns a handler panic into an internal error.
func (s *Server) invoke(ctx context.Context, m *method, params json.RawMessage) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("handler panic", "method", m.name, "panic", r)
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return m.call(ctx, params)
}

// validID accepts a JSON number, string or null. Missing ids (notifications) are refused.
func validID(id json.RawMessage) bool {
	trimmed := bytes.TrimSpace(id)
	if len(trimmed) == 0 {
		return false
	}
	switch c := trimmed[0]; {
	case c == '"', c == '-', c >= '0' && c <= '9':
		return true
	default:
		return string(trimmed) == "null"
	}
}

func peekID(request []byte) json.RawMessage {
	var env struct {
		ID json.RawMessage `json:"id"`
	}
	if json.Unmarshal(request, &env) != nil || !validID(env.ID) {
		return nil
	}
	return env.ID
}

func errorResponse(id json.RawMessage, obj *message.ErrorObject) []byte {
	if id == nil {
		id = message.NullID
	}
	return encodeResponse(&message.Response{JSONRPC: message.Version, ID: id, Error: obj})
}

func encodeResponse(resp *message.Response) []byte {
	data, err := json.Marshal(resp)
	if err != nil {
		// Only reachable with a broken id; answer with a null id instead.
		data, _ = json.Marshal(&message.Response{
			JSONRPC: message.Version,
			ID:      message.NullID,
			Error:   message.NewErrorObject(message.CodeInternalError, "Internal error", nil),
		})
	}
	return data
}

// Serve listens on address and serves framed TCP connections until Shutdown.
// When reg is non-nil the service is registered under advertiseAddr, which should be a
// routable address rather than the listen address (":8080" is not reachable from elsewhere).
func (s *Server) Serve(network, address string, advertiseAddr string, reg registry.Registry) error {
	ln, err := net.Listen(network, address)
	if err != nil {
		return err
	}
	return s.ServeListener(ln, advertiseAddr, reg)
}

// ServeListener is Serve on an existing listener.
func (s *Server) ServeListener(ln net.Listener, advertiseAddr string, reg registry.Registry) error {
	s.chain()
	if reg != nil && advertiseAddr == "" {
		advertiseAddr = ln.Addr().String()
	}
	s.lnMu.Lock()
	s.listener = ln
	if reg != nil {
		s.registry = reg
		s.advertiseAddr = advertiseAddr
	}
	s.lnMu.Unlock()

	if reg != nil {
		instance := registry.Instance{Addr: advertiseAddr, Scheme: "tcp"}
		if err := reg.Register(context.Background(), s.name, instance, defaultRegistryTTL); err != nil {
			ln.Close()
			return fmt.Errorf("register %s: %w", s.name, err)
		}
	}

	s.logger.Info("serving framed tcp", "addr", ln.Addr().String())
	for {
		conn, err := ln.Accept()
		if err != nil {
			// Shutdown closes the listener on purpose.
			if s.shutdown.Load() {
				return nil
			}
			return err
		}
		go s.handleConn(conn)
	}
}

// handleConn reads frames sequentially and handles each request in its own goroutine.
// Responses share the per-connection write lock so frames never interleave.
func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	connID := uuid.NewString()
	logger := s.logger.With("conn_id", connID, "remote", conn.RemoteAddr().String())
	logger.Debug("connection opened")

	writeMu := &sync.Mutex{}
	for {
		header, body, err := protocol.Decode(conn)
		if err != nil {
			logger.Debug("connection closed", "error", err)
			return
		}
		if header.MsgType != protocol.MsgTypeRequest {
			continue
		}
		s.wg.Add(1)
		go s.handleFrame(conn, header.Seq, body, writeMu, logger)
	}
}

func (s *Server) handleFrame(conn net.Conn, seq uint32, body []byte, writeMu *sync.Mutex, logger *slog.Logger) {
	defer s.wg.Done()

	resp := s.ServeJSONRPC(context.Background(), body)

	writeMu.Lock()
	defer writeMu.Unlock()
	reply := protocol.Header{
		CodecType: protocol.CodecTypeJSON,
		MsgType:   protocol.MsgTypeResponse,
		Seq:       seq,
	}
	if err := protocol.Encode(conn, &reply, resp); err != nil {
		logger.Warn("failed to write response frame", "seq", seq, "error", err)
	}
}

// Addr returns the TCP listen address once serving, or nil.
func (s *Server) Addr() net.Addr {
	s.lnMu.Lock()
	defer s.lnMu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Shutdown stops the framed TCP server:
//  1. deregister from the registry so clients stop picking this instance
//  2. close the listener
//  3. wait for in-flight requests, up to timeout
func (s *Server) Shutdown(timeout time.Duration) error {
	s.lnMu.Lock()
	ln, reg, addr := s.listener, s.registry, s.advertiseAddr
	s.lnMu.Unlock()

	if reg != nil {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		if err := reg.Deregister(ctx, s.name, addr); err != nil {
			s.logger.Warn("deregister failed", "error", err)
		}
		cancel()
	}

	// The flag must be set before Close so the Accept error reads as intentional.
	s.shutdown.Store(true)
	if ln != nil {
		ln.Close()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("timeout waiting for ongoing requests to finish")
	}
}
