package middleware

import (
	"context"
	"encoding/json"
	"time"

	"mini-jsonrpc/metrics"
)

// Metrics records every exchange under the endpoint label. A response carrying an
// "error" member counts as remote_error, a failed exchange as failed.
func Metrics(m *metrics.CallMetrics, endpoint string) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, request []byte) ([]byte, error) {
			m.InFlight.Inc()
			defer m.InFlight.Dec()

			start := time.Now()
			resp, err := next(ctx, request)

			status := metrics.StatusOK
			switch {
			case err != nil:
				status = metrics.StatusFailed
			case hasErrorMember(resp):
				status = metrics.StatusRemoteError
			}
			m.Observe(endpoint, status, time.Since(start))
			return resp, err
		}
	}
}

func hasErrorMember(resp []byte) bool {
	var env struct {
		Error json.RawMessage `json:"error"`
	}
	return json.Unmarshal(resp, &env) == nil && env.Error != nil
}
