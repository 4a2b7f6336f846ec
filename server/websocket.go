package server

import (
	"context"
	"net/http"

	"github.com/lxzan/gws"
)

// WebsocketHandler upgrades HTTP requests to websockets. Every text or binary message is
// one JSON-RPC request and is answered with one message of the same opcode.
func (s *Server) WebsocketHandler() http.Handler {
	upgrader := gws.NewUpgrader(&wsEvents{server: s}, &gws.ServerOption{
		ParallelEnabled: true,
	})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		socket, err := upgrader.Upgrade(w, r)
		if err != nil {
			s.logger.Debug("websocket upgrade failed", "error", err)
			return
		}
		go socket.ReadLoop()
	})
}

type wsEvents struct {
	gws.BuiltinEventHandler
	server *Server
}

func (e *wsEvents) OnMessage(socket *gws.Conn, msg *gws.Message) {
	body := append([]byte(nil), msg.Bytes()...)
	opcode := msg.Opcode
	msg.Close()

	resp := e.server.ServeJSONRPC(context.Background(), body)
	if err := socket.WriteMessage(opcode, resp); err != nil {
		e.server.logger.Debug("websocket write failed", "error", err)
	}
}
