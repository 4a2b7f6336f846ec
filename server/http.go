package server

import (
	"net"

	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"
)

// RPCPath and HealthPath are the routes served by HTTPHandler.
const (
	RPCPath    = "/rpc"
	HealthPath = "/healthz"
)

// HTTPHandler routes POST /rpc to the dispatcher and GET /healthz to a liveness probe.
// JSON-RPC errors are returned with status 200; the envelope carries the failure.
func (s *Server) HTTPHandler() fasthttp.RequestHandler {
	r := router.New()
	r.POST(RPCPath, s.handleHTTP)
	r.GET(HealthPath, func(ctx *fasthttp.RequestCtx) {
		ctx.SetContentType("text/plain; charset=utf-8")
		ctx.WriteString("ok")
	})
	return r.Handler
}

func (s *Server) handleHTTP(ctx *fasthttp.RequestCtx) {
	// fasthttp reuses the body buffer once the handler returns.
	body := append([]byte(nil), ctx.PostBody()...)
	resp := s.ServeJSONRPC(ctx, body)
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetContentType("application/json")
	ctx.Write(resp)
}

// ServeHTTPListener serves HTTPHandler on ln until the listener is closed.
func (s *Server) ServeHTTPListener(ln net.Listener) error {
	s.logger.Info("serving http", "addr", ln.Addr().String(), "path", RPCPath)
	srv := &fasthttp.Server{
		Handler: s.HTTPHandler(),
		Name:    "mini-jsonrpc",
	}
	return srv.Serve(ln)
}
