package transport

import (
	"context"
	"encoding/json"
	"errors"
)

// InProcess hands requests straight to a Handler in the same process.
type InProcess struct {
	handler Handler
}

func NewInProcess(h Handler) *InProcess {
	return &InProcess{handler: h}
}

func (t *InProcess) Send(ctx context.Context, request []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resp := t.handler.ServeJSONRPC(ctx, request)
	if resp == nil {
		return nil, errors.New("handler returned no response")
	}
	return resp, nil
}

// Echo answers every request with a success response whose result is the request
// itself, under the request's own id. Handy for tests and for poking at a client.
func Echo() Transport {
	return Func(func(ctx context.Context, request []byte) ([]byte, error) {
		var envelope struct {
			ID json.RawMessage `json:"id"`
		}
		if err := json.Unmarshal(request, &envelope); err != nil {
			return nil, err
		}
		if envelope.ID == nil {
			envelope.ID = json.RawMessage("null")
		}
		return json.Marshal(map[string]json.RawMessage{
			"jsonrpc": json.RawMessage(`"2.0"`),
			"id":      envelope.ID,
			"result":  json.RawMessage(request),
		})
	})
}
