package transport

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

func startHTTPServer(t *testing.T, handler fasthttp.RequestHandler) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := &fasthttp.Server{Handler: handler}
	go srv.Serve(ln)
	t.Cleanup(func() { srv.Shutdown() })
	return "http://" + ln.Addr().String() + "/rpc"
}

func TestHTTPTransportPostsJSON(t *testing.T) {
	var method, contentType, auth string
	url := startHTTPServer(t, func(ctx *fasthttp.RequestCtx) {
		method = string(ctx.Method())
		contentType = string(ctx.Request.Header.ContentType())
		auth = string(ctx.Request.Header.Peek("Authorization"))
		ctx.SetContentType("application/json")
		ctx.Write(ctx.PostBody())
	})

	tr := NewHTTPTransport(url, WithHeader("Authorization", "Bearer t0k"))
	resp, err := tr.Send(context.Background(), []byte(pingRequest))
	require.NoError(t, err)

	assert.Equal(t, pingRequest, string(resp))
	assert.Equal(t, fasthttp.MethodPost, method)
	assert.Equal(t, "application/json", contentType)
	assert.Equal(t, "Bearer t0k", auth)
}

func TestHTTPTransportStatus(t *testing.T) {
	url := startHTTPServer(t, func(ctx *fasthttp.RequestCtx) {
		switch string(ctx.Path()) {
		case "/rpc":
			ctx.SetStatusCode(fasthttp.StatusBadGateway)
			ctx.WriteString("upstream down")
		default:
			ctx.SetStatusCode(fasthttp.StatusBadRequest)
			ctx.WriteString(`{"jsonrpc":"2.0","id":null,"error":{"code":-32700,"message":"Parse error"}}`)
		}
	})

	_, err := NewHTTPTransport(url).Send(context.Background(), []byte(pingRequest))
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, fasthttp.StatusBadGateway, statusErr.StatusCode)

	// A JSON error body on a 4xx is handed to the caller for envelope decoding.
	resp, err := NewHTTPTransport(url+"/json").Send(context.Background(), []byte(pingRequest))
	require.NoError(t, err)
	assert.Contains(t, string(resp), `"code":-32700`)
}

func TestHTTPTransportTimeout(t *testing.T) {
	url := startHTTPServer(t, func(ctx *fasthttp.RequestCtx) {
		time.Sleep(300 * time.Millisecond)
		ctx.WriteString("late")
	})

	_, err := NewHTTPTransport(url, WithHTTPTimeout(50*time.Millisecond)).Send(context.Background(), []byte("x"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = NewHTTPTransport(url).Send(ctx, []byte("x"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestHTTPTransportConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	_, err = NewHTTPTransport("http://"+addr+"/rpc", WithHTTPTimeout(time.Second)).Send(context.Background(), []byte("x"))
	assert.Error(t, err)
}
