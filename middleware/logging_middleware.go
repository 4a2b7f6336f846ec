package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

type callIDKey struct{}

// CallID returns the correlation id Logging attached to ctx, or "".
func CallID(ctx context.Context) string {
	id, _ := ctx.Value(callIDKey{}).(string)
	return id
}

// Logging logs every exchange with its JSON-RPC method and id, its duration and its error.
// Each exchange gets a uuid correlation id, available downstream through CallID.
func Logging(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, request []byte) ([]byte, error) {
			callID := uuid.NewString()
			ctx = context.WithValue(ctx, callIDKey{}, callID)

			method, id := peekEnvelope(request)
			start := time.Now()
			resp, err := next(ctx, request)
			attrs := []any{
				"call_id", callID,
				"method", method,
				"id", id,
				"duration", time.Since(start),
			}
			if err != nil {
				logger.Warn("rpc exchange failed", append(attrs, "error", err)...)
				return resp, err
			}
			logger.Debug("rpc exchange", append(attrs, "response_bytes", len(resp))...)
			return resp, nil
		}
	}
}

// peekEnvelope extracts method and id for log lines. Unparseable payloads log as empty.
func peekEnvelope(payload []byte) (method string, id string) {
	var env struct {
		Method string          `json:"method"`
		ID     json.RawMessage `json:"id"`
	}
	if json.Unmarshal(payload, &env) != nil {
		return "", ""
	}
	return env.Method, string(env.ID)
}
