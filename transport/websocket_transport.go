package transport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// DefaultReadWriteDeadline bounds each websocket write and read.
const DefaultReadWriteDeadline = 10 * time.Second

// WebsocketTransport exchanges one text message out and one text message in per call
// over a long-lived websocket connection.
type WebsocketTransport struct {
	mu       sync.Mutex // single request (write+read) per connection
	conn     *websocket.Conn
	deadline time.Duration
}

// DialWebsocket opens a websocket connection to url ("ws://host:port/path").
func DialWebsocket(ctx context.Context, url string, deadline time.Duration) (*WebsocketTransport, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return NewWebsocketTransport(conn, deadline), nil
}

// NewWebsocketTransport takes ownership of an established connection.
func NewWebsocketTransport(conn *websocket.Conn, deadline time.Duration) *WebsocketTransport {
	if deadline <= 0 {
		deadline = DefaultReadWriteDeadline
	}
	return &WebsocketTransport{conn: conn, deadline: deadline}
}

func (t *WebsocketTransport) Send(ctx context.Context, request []byte) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	deadline := time.Now().Add(t.deadline)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	stop := context.AfterFunc(ctx, func() {
		_ = t.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	_ = t.conn.SetWriteDeadline(deadline)
	if err := t.conn.WriteMessage(websocket.TextMessage, request); err != nil {
		return nil, fmt.Errorf("websocket write: %w", err)
	}

	_ = t.conn.SetReadDeadline(deadline)
	for {
		msgType, msg, err := t.conn.ReadMessage()
		if err != nil {
			return nil, contextError(ctx, fmt.Errorf("websocket read: %w", err))
		}
		if msgType == websocket.TextMessage || msgType == websocket.BinaryMessage {
			return msg, nil
		}
	}
}

func (t *WebsocketTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	_ = t.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	return t.conn.Close()
}
