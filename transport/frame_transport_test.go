package transport

import (
	"bytes"
	"context"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mini-jsonrpc/protocol"
)

// frameServer answers every request frame by calling reply. It counts heartbeats.
type frameServer struct {
	ln         net.Listener
	heartbeats atomic.Int32
}

func startFrameServer(t *testing.T, reply func(conn net.Conn, h *protocol.Header, body []byte)) *frameServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	s := &frameServer{ln: ln}
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close()
				for {
					h, body, err := protocol.Decode(conn)
					if err != nil {
						return
					}
					if h.MsgType == protocol.MsgTypeHeartbeat {
						s.heartbeats.Add(1)
						continue
					}
					reply(conn, h, body)
				}
			}()
		}
	}()
	return s
}

func echoFrame(conn net.Conn, h *protocol.Header, body []byte) {
	protocol.Encode(conn, &protocol.Header{MsgType: protocol.MsgTypeResponse, Seq: h.Seq}, body)
}

func TestFrameTransportRoundTrip(t *testing.T) {
	s := startFrameServer(t, echoFrame)

	tr, err := DialFrame(context.Background(), s.ln.Addr().String())
	require.NoError(t, err)
	defer tr.Close()

	for _, msg := range []string{`{"a":1}`, `{"b":2}`} {
		resp, err := tr.Send(context.Background(), []byte(msg))
		require.NoError(t, err)
		assert.Equal(t, msg, string(resp))
	}
}

func TestFrameTransportSkipsStaleFrames(t *testing.T) {
	s := startFrameServer(t, func(conn net.Conn, h *protocol.Header, body []byte) {
		// A leftover response and a heartbeat arrive before the real answer.
		protocol.Encode(conn, &protocol.Header{MsgType: protocol.MsgTypeResponse, Seq: h.Seq + 100}, []byte("stale"))
		protocol.Encode(conn, &protocol.Header{MsgType: protocol.MsgTypeHeartbeat}, nil)
		echoFrame(conn, h, body)
	})

	tr, err := DialFrame(context.Background(), s.ln.Addr().String())
	require.NoError(t, err)
	defer tr.Close()

	resp, err := tr.Send(context.Background(), []byte("fresh"))
	require.NoError(t, err)
	assert.Equal(t, "fresh", string(resp))
}

func TestFrameTransportContextDeadline(t *testing.T) {
	s := startFrameServer(t, func(net.Conn, *protocol.Header, []byte) {
		// never answers
	})

	tr, err := DialFrame(context.Background(), s.ln.Addr().String())
	require.NoError(t, err)
	defer tr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err = tr.Send(ctx, []byte("x"))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestFrameTransportClosesAfterPartialFrame(t *testing.T) {
	s := startFrameServer(t, func(conn net.Conn, h *protocol.Header, body []byte) {
		var frame bytes.Buffer
		protocol.Encode(&frame, &protocol.Header{MsgType: protocol.MsgTypeResponse, Seq: h.Seq}, []byte(`{"result":"late"}`))
		// Header and a few body bytes; the rest never comes.
		conn.Write(frame.Bytes()[:protocol.HeaderSize+3])
	})

	tr, err := DialFrame(context.Background(), s.ln.Addr().String())
	require.NoError(t, err)
	defer tr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = tr.Send(ctx, []byte("x"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// The stream is no longer at a frame boundary, so the transport refuses further calls.
	_, err = tr.Send(context.Background(), []byte("y"))
	assert.ErrorIs(t, err, ErrClosed)
}

func TestFrameTransportHeartbeat(t *testing.T) {
	s := startFrameServer(t, echoFrame)

	conn, err := net.Dial("tcp", s.ln.Addr().String())
	require.NoError(t, err)
	tr := NewFrameTransport(conn, 20*time.Millisecond)
	defer tr.Close()

	waitFor(t, func() bool { return s.heartbeats.Load() >= 2 })
}

func TestFrameTransportClosed(t *testing.T) {
	s := startFrameServer(t, echoFrame)

	tr, err := DialFrame(context.Background(), s.ln.Addr().String())
	require.NoError(t, err)
	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close())

	_, err = tr.Send(context.Background(), []byte("x"))
	assert.ErrorIs(t, err, ErrClosed)
}
