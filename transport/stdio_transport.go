package transport

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
)

// StdioTransport speaks newline-delimited JSON over a reader/writer pair, typically the
// pipes of a child process. Each request is compacted onto one line and the next line read
// back is its response.
type StdioTransport struct {
	mu     sync.Mutex
	reader *bufio.Reader
	writer io.Writer
	closer io.Closer
	broken error
}

func NewStdioTransport(r io.Reader, w io.Writer) *StdioTransport {
	t := &StdioTransport{
		reader: bufio.NewReader(r),
		writer: w,
	}
	if c, ok := w.(io.Closer); ok {
		t.closer = c
	}
	return t
}

type lineResult struct {
	line []byte
	err  error
}

func (t *StdioTransport) Send(ctx context.Context, request []byte) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.broken != nil {
		return nil, t.broken
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var line bytes.Buffer
	if err := json.Compact(&line, request); err != nil {
		return nil, fmt.Errorf("request is not a single json value: %w", err)
	}
	line.WriteByte('\n')

	done := make(chan lineResult, 1)
	go func() {
		if _, err := t.writer.Write(line.Bytes()); err != nil {
			done <- lineResult{err: fmt.Errorf("stdio write: %w", err)}
			return
		}
		resp, err := t.reader.ReadBytes('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			done <- lineResult{err: fmt.Errorf("stdio read: %w", err)}
			return
		}
		done <- lineResult{line: bytes.TrimRight(resp, "\r\n")}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			t.broken = r.err
		}
		return r.line, r.err
	case <-ctx.Done():
		// The pending read would pair the next request with this response, so the
		// stream cannot be used again.
		t.broken = fmt.Errorf("stdio stream abandoned: %w", ctx.Err())
		if t.closer != nil {
			_ = t.closer.Close()
		}
		return nil, ctx.Err()
	}
}

func (t *StdioTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.broken == nil {
		t.broken = ErrClosed
	}
	if t.closer != nil {
		return t.closer.Close()
	}
	return nil
}

// ProcessTransport is a StdioTransport bound to a child process.
type ProcessTransport struct {
	*StdioTransport
	cmd *exec.Cmd
}

// SpawnStdio starts name with args and talks JSON-RPC over its stdin and stdout.
// The child's stderr is inherited.
func SpawnStdio(ctx context.Context, name string, args ...string) (*ProcessTransport, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", name, err)
	}
	return &ProcessTransport{
		StdioTransport: NewStdioTransport(stdout, stdin),
		cmd:            cmd,
	}, nil
}

// Close closes the child's stdin and waits for it to exit.
func (p *ProcessTransport) Close() error {
	_ = p.StdioTransport.Close()
	return p.cmd.Wait()
}
