package util

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
)

// DefaultBufSize is the initial line buffer size for network I/O (32 KiB).
const DefaultBufSize = 32 * 1024

// MaxLineSize bounds a single line.  Longer lines end the read with
// bufio.ErrTooLong.
const MaxLineSize = 1024 * 1024

// ReadLines splits r into lines and sends each one, without its line
// terminator, on out.  A trailing carriage return is dropped so CRLF
// peers work unchanged.  out is closed when ReadLines returns.
//
// ReadLines returns nil on EOF or when r was closed underneath it.  It
// stops early when ctx is cancelled, but a blocked Read only returns
// once the caller closes r.
func ReadLines(ctx context.Context, r io.Reader, out chan<- string) error {
	defer close(out)

	buf := GetBuf()
	defer PutBuf(buf)

	sc := bufio.NewScanner(r)
	sc.Buffer(*buf, MaxLineSize)
	for sc.Scan() {
		line := strings.TrimSuffix(sc.Text(), "\r")
		select {
		case out <- line:
		case <-ctx.Done():
			return nil
		}
	}
	if err := sc.Err(); err != nil && !IsHarmless(err) {
		return err
	}
	return nil
}

// LineWriter writes whole lines to w.  It is safe for concurrent use;
// each line reaches w in a single Write.
type LineWriter struct {
	mu     sync.Mutex
	w      io.Writer
	ending string
	buf    []byte
	err    error
}

// NewLineWriter returns a LineWriter terminating every line with
// ending ("\n" when empty).
func NewLineWriter(w io.Writer, ending string) *LineWriter {
	if ending == "" {
		ending = "\n"
	}
	return &LineWriter{w: w, ending: ending}
}

// WriteLine writes line plus the line ending.  After the first failure
// every call returns that error without writing.
func (lw *LineWriter) WriteLine(line string) error {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	if lw.err != nil {
		return lw.err
	}
	lw.buf = append(lw.buf[:0], line...)
	lw.buf = append(lw.buf, lw.ending...)
	if _, err := lw.w.Write(lw.buf); err != nil {
		lw.err = err
	}
	return lw.err
}

// Err returns the first write error, if any.
func (lw *LineWriter) Err() error {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return lw.err
}

// IsHarmless returns true for errors that are expected during shutdown.
func IsHarmless(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
		return true
	}
	// net.OpError wrapping "use of closed network connection"
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return errors.Is(opErr.Err, net.ErrClosed)
	}
	return false
}
