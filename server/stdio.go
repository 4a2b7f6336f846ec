package server

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
)

// ServeStream answers newline-delimited requests read from r, writing one response line to
// w per request, until r reaches EOF or ctx is done. Blank lines are skipped.
func (s *Server) ServeStream(ctx context.Context, r io.Reader, w io.Writer) error {
	reader := bufio.NewReader(r)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, err := reader.ReadBytes('\n')
		if len(bytes.TrimSpace(line)) > 0 {
			resp := s.ServeJSONRPC(ctx, line)
			if _, werr := w.Write(append(resp, '\n')); werr != nil {
				return werr
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.logger.Info("EOF received, stream closed")
				return nil
			}
			return err
		}
	}
}
