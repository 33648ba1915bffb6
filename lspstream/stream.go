// Package lspstream frames JSON-RPC messages with LSP base protocol headers.
//
// Stylesheets are sent whole on every change, so the reader keeps a larger
// buffer than jsonrpc2's default stream and bounds message size instead.
package lspstream

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"go.lsp.dev/jsonrpc2"
)

const (
	// BufferSize is the read buffer of every stream.
	BufferSize = 64 * 1024
	// MaxMessageSize bounds the Content-Length a peer may announce.
	MaxMessageSize = 32 * 1024 * 1024
)

// ErrMissingLength is returned for a header block without Content-Length.
var ErrMissingLength = errors.New("missing Content-Length header")

// Pipe joins a reader and a writer into one connection. Closing it closes
// both halves that implement io.Closer.
type Pipe struct {
	io.Reader
	io.Writer
}

// Stdio is the connection of a server launched by its editor.
func Stdio() *Pipe {
	return &Pipe{Reader: os.Stdin, Writer: os.Stdout}
}

func (p *Pipe) Close() error {
	var errs []error
	if c, ok := p.Reader.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	if c, ok := p.Writer.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// Stream is a jsonrpc2.Stream over a byte connection.
type Stream struct {
	conn io.ReadWriteCloser
	in   *bufio.Reader

	// writes from the handler goroutines must not interleave
	mu sync.Mutex
}

var _ jsonrpc2.Stream = (*Stream)(nil)

func NewStream(conn io.ReadWriteCloser) *Stream {
	return &Stream{
		conn: conn,
		in:   bufio.NewReaderSize(conn, BufferSize),
	}
}

func (s *Stream) Read(ctx context.Context) (jsonrpc2.Message, int64, error) {
	select {
	case <-ctx.Done():
		return nil, 0, ctx.Err()
	default:
	}

	length, total, err := s.readHeader()
	if err != nil {
		return nil, total, err
	}

	data := make([]byte, length)
	n, err := io.ReadFull(s.in, data)
	total += int64(n)
	if err != nil {
		return nil, total, err
	}

	msg, err := jsonrpc2.DecodeMessage(data)
	return msg, total, err
}

// readHeader consumes one header block and returns its Content-Length.
// Other headers, Content-Type included, are ignored.
func (s *Stream) readHeader() (int64, int64, error) {
	var total, length int64
	for {
		line, err := s.in.ReadString('\n')
		total += int64(len(line))
		if err != nil {
			return 0, total, err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			break
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok || !strings.EqualFold(strings.TrimSpace(name), "Content-Length") {
			continue
		}
		length, err = strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			return 0, total, fmt.Errorf("failed parsing Content-Length: %w", err)
		}
		if length <= 0 || length > MaxMessageSize {
			return 0, total, fmt.Errorf("invalid Content-Length: %d", length)
		}
	}
	if length == 0 {
		return 0, total, ErrMissingLength
	}
	return length, total, nil
}

func (s *Stream) Write(ctx context.Context, msg jsonrpc2.Message) (int64, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return 0, fmt.Errorf("marshaling message: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := fmt.Fprintf(s.conn, "Content-Length: %d\r\n\r\n", len(data))
	total := int64(n)
	if err != nil {
		return total, err
	}
	n, err = s.conn.Write(data)
	return total + int64(n), err
}

func (s *Stream) Close() error {
	return s.conn.Close()
}
