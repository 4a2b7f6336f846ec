package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"mini-jsonrpc/protocol"
)

// DefaultHeartbeatInterval keeps idle frame connections alive through NATs and idle timeouts.
const DefaultHeartbeatInterval = 30 * time.Second

var ErrClosed = errors.New("transport closed")

// FrameTransport sends JSON-RPC payloads over a TCP connection using the binary frame
// protocol. Calls are synchronous: one request frame goes out, then frames are read until
// the response carrying the same seq arrives. A failed exchange closes the transport.
//
//	Send ──lock──► write request(seq=n) ──► read frames ──► response(seq=n) ──unlock──► bytes
//	heartbeatLoop ──writeMu──► heartbeat frame every interval
type FrameTransport struct {
	conn    net.Conn
	mu      sync.Mutex // one exchange at a time; a second caller waits
	writeMu sync.Mutex // request and heartbeat frames must not interleave
	seq     uint32
	logger  *slog.Logger

	done      chan struct{}
	closeOnce sync.Once
}

// FrameOption customizes a FrameTransport.
type FrameOption func(*FrameTransport)

func WithFrameLogger(l *slog.Logger) FrameOption {
	return func(t *FrameTransport) {
		if l != nil {
			t.logger = l
		}
	}
}

// NewFrameTransport takes ownership of conn and starts the heartbeat goroutine.
// A non-positive interval disables heartbeats.
func NewFrameTransport(conn net.Conn, heartbeat time.Duration, opts ...FrameOption) *FrameTransport {
	t := &FrameTransport{
		conn:   conn,
		logger: slog.Default(),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	if heartbeat > 0 {
		go t.heartbeatLoop(heartbeat)
	}
	return t
}

// DialFrame connects to addr and wraps the connection in a FrameTransport.
func DialFrame(ctx context.Context, addr string, opts ...FrameOption) (*FrameTransport, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return NewFrameTransport(conn, DefaultHeartbeatInterval, opts...), nil
}

func (t *FrameTransport) Send(ctx context.Context, request []byte) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	select {
	case <-t.done:
		return nil, ErrClosed
	default:
	}

	// A cancelled ctx unblocks the pending read by expiring the connection deadline.
	defer t.conn.SetDeadline(time.Time{})
	if deadline, ok := ctx.Deadline(); ok {
		if err := t.conn.SetDeadline(deadline); err != nil {
			return nil, err
		}
	}
	stop := context.AfterFunc(ctx, func() {
		t.conn.SetDeadline(time.Now())
	})
	defer stop()

	t.seq++
	seq := t.seq

	header := protocol.Header{
		CodecType: protocol.CodecTypeJSON,
		MsgType:   protocol.MsgTypeRequest,
		Seq:       seq,
	}
	t.writeMu.Lock()
	err := protocol.Encode(t.conn, &header, request)
	t.writeMu.Unlock()
	if err != nil {
		t.abandon(err)
		return nil, contextError(ctx, fmt.Errorf("write frame: %w", err))
	}

	for {
		h, body, err := protocol.Decode(t.conn)
		if err != nil {
			t.abandon(err)
			return nil, contextError(ctx, fmt.Errorf("read frame: %w", err))
		}
		if h.MsgType != protocol.MsgTypeResponse {
			continue
		}
		// Late answer to an earlier call that gave up.
		if h.Seq != seq {
			t.logger.Debug("dropping stale frame", "seq", h.Seq, "want", seq)
			continue
		}
		return body, nil
	}
}

// abandon closes the connection after a failed exchange. A frame may be partly written or
// read, so the stream cannot be trusted to start at a frame boundary again.
func (t *FrameTransport) abandon(err error) {
	t.logger.Debug("closing frame connection", "remote", t.conn.RemoteAddr().String(), "error", err)
	t.Close()
}

// contextError reports err as the context's error when the context already ended or its
// deadline has passed. The connection deadline can fire a moment before ctx.Err is set.
func contextError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %v", ctxErr, err)
	}
	if d, ok := ctx.Deadline(); ok && !time.Now().Before(d) {
		return fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
	}
	return err
}

func (t *FrameTransport) heartbeatLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-t.done:
			return
		case <-ticker.C:
		}
		header := &protocol.Header{MsgType: protocol.MsgTypeHeartbeat}
		t.writeMu.Lock()
		err := protocol.Encode(t.conn, header, nil)
		t.writeMu.Unlock()
		if err != nil {
			t.logger.Debug("heartbeat failed", "remote", t.conn.RemoteAddr().String(), "error", err)
			return
		}
	}
}

// Close stops the heartbeat and closes the connection.
func (t *FrameTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.done)
		err = t.conn.Close()
	})
	return err
}
