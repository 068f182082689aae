package rtsp

import (
	"context"
	"io"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// RawConn is the subset of net.Conn a session needs from its transport.
type RawConn interface {
	io.ReadWriteCloser
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
}

var errPollTimeout = errors.New("rtsp: poll interval elapsed without data")

// ConnRich owns the camera connection for the lifetime of one session. Bytes
// read from the connection land in buf and stay there until a parser consumes
// them, so whatever follows a response (body, next response, first frame) is
// never lost between handshake and relay.
type ConnRich struct {
	PollInterval time.Duration
	WriteTimeout time.Duration

	conn  RawConn
	buf   []byte
	r     int
	chunk []byte

	closeOnce sync.Once
	closeErr  error
}

func NewConnRich(conn RawConn) *ConnRich {
	return &ConnRich{
		PollInterval: DefaultPollInterval,
		WriteTimeout: DefaultWriteTimeout,
		conn:         conn,
		chunk:        make([]byte, readChunkSize),
	}
}

// Buffered returns the bytes read from the connection but not yet consumed.
func (c *ConnRich) Buffered() []byte {
	return c.buf[c.r:]
}

func (c *ConnRich) consume(n int) {
	c.r += n
	if c.r >= len(c.buf) {
		c.buf = c.buf[:0]
		c.r = 0
	}
}

// fill performs one read bounded by PollInterval and appends the result to
// the buffer. errPollTimeout means the deadline passed with nothing read;
// io.EOF means the peer closed the connection, and so does a read of zero
// bytes without an error.
func (c *ConnRich) fill(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return contextError(err)
	}
	if c.r > 0 {
		n := copy(c.buf, c.buf[c.r:])
		c.buf = c.buf[:n]
		c.r = 0
	}
	if c.PollInterval > 0 {
		_ = c.conn.SetReadDeadline(time.Now().Add(c.PollInterval))
	} else {
		var t time.Time
		_ = c.conn.SetReadDeadline(t)
	}
	n, err := c.conn.Read(c.chunk)
	if n > 0 {
		c.buf = append(c.buf, c.chunk[:n]...)
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return contextError(ctxErr)
	}
	if err == nil {
		return io.EOF
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return errPollTimeout
	}
	if err == io.EOF {
		return io.EOF
	}
	return &TransportError{Op: "read", Err: err}
}

func (c *ConnRich) Write(p []byte) (n int, err error) {
	if c.WriteTimeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.WriteTimeout))
	} else {
		var t time.Time
		_ = c.conn.SetWriteDeadline(t)
	}
	n, err = c.conn.Write(p)
	if err != nil {
		return n, &TransportError{Op: "write", Err: err}
	}
	return n, nil
}

// Close closes the underlying connection. It is safe to call more than once.
func (c *ConnRich) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}
