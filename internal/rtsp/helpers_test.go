package rtsp

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

// scriptConn hands out one scripted chunk per Read. A nil chunk reads as a
// deadline expiry; once the script runs out the conn reports io.EOF, or a
// timeout forever when hang is set.
type scriptConn struct {
	mu      sync.Mutex
	chunks  [][]byte
	hang    bool
	written strings.Builder
	closed  bool
}

func newScriptConn(chunks ...[]byte) *scriptConn {
	return &scriptConn{chunks: chunks}
}

func (c *scriptConn) Read(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, net.ErrClosed
	}
	if len(c.chunks) == 0 {
		if c.hang {
			return 0, timeoutError{}
		}
		return 0, io.EOF
	}
	chunk := c.chunks[0]
	if chunk == nil {
		c.chunks = c.chunks[1:]
		return 0, timeoutError{}
	}
	n := copy(p, chunk)
	if n < len(chunk) {
		c.chunks[0] = chunk[n:]
	} else {
		c.chunks = c.chunks[1:]
	}
	return n, nil
}

func (c *scriptConn) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, net.ErrClosed
	}
	return c.written.Write(p)
}

func (c *scriptConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *scriptConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *scriptConn) SetReadDeadline(time.Time) error  { return nil }
func (c *scriptConn) SetWriteDeadline(time.Time) error { return nil }

func interleave(channel byte, payload string) []byte {
	b := make([]byte, frameHeaderLen+len(payload))
	b[0] = MagicChar
	b[1] = channel
	binary.BigEndian.PutUint16(b[2:], uint16(len(payload)))
	copy(b[frameHeaderLen:], payload)
	return b
}

type cameraRequest struct {
	method string
	url    string
	header map[string]string
}

// cameraConn is the server side of a fake camera.
type cameraConn struct {
	t    *testing.T
	base string
	conn net.Conn
	br   *bufio.Reader
}

func (c *cameraConn) readRequest() *cameraRequest {
	line, err := c.br.ReadString('\n')
	require.NoError(c.t, err)
	parts := strings.SplitN(strings.TrimSpace(line), " ", 3)
	require.Len(c.t, parts, 3)
	require.Equal(c.t, RTSP_VERSION, parts[2])
	req := &cameraRequest{method: parts[0], url: parts[1], header: map[string]string{}}
	for {
		line, err := c.br.ReadString('\n')
		require.NoError(c.t, err)
		line = strings.TrimSpace(line)
		if line == "" {
			return req
		}
		kv := strings.SplitN(line, ":", 2)
		require.Len(c.t, kv, 2)
		req.header[kv[0]] = strings.TrimSpace(kv[1])
	}
}

func (c *cameraConn) reply(req *cameraRequest, status string, header map[string]string, body string) {
	var b strings.Builder
	fmt.Fprintf(&b, "RTSP/1.0 %s\r\nCSeq: %s\r\n", status, req.header[CSeq])
	for k, v := range header {
		fmt.Fprintf(&b, "%s: %s\r\n", k, v)
	}
	if body != "" {
		fmt.Fprintf(&b, "Content-Length: %d\r\n", len(body))
	}
	b.WriteString("\r\n")
	b.WriteString(body)
	c.write(b.String())
}

func (c *cameraConn) write(s string) {
	_, err := c.conn.Write([]byte(s))
	require.NoError(c.t, err)
}

func (c *cameraConn) frame(channel byte, payload string) {
	c.write(string(interleave(channel, payload)))
}

// expectClosed asserts the client hangs up without sending anything else.
func (c *cameraConn) expectClosed() {
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, err := c.br.ReadByte()
	require.Equal(c.t, io.EOF, err)
}

// serveCamera accepts one connection and runs script against it. The
// returned target carries credentials; cameraConn.base is the same URL
// without them.
func serveCamera(t *testing.T, script func(c *cameraConn)) (string, <-chan struct{}) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })

	base := "rtsp://" + l.Addr().String() + "/Streaming/Channels/101"
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn, err := l.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		script(&cameraConn{t: t, base: base, conn: conn, br: bufio.NewReader(conn)})
	}()
	return "rtsp://admin:12345@" + l.Addr().String() + "/Streaming/Channels/101", done
}

const testSDP = "v=0\r\n" +
	"o=- 0 0 IN IP4 127.0.0.1\r\n" +
	"s=Stream\r\n" +
	"t=0 0\r\n" +
	"m=video 0 RTP/AVP 96\r\n" +
	"a=rtpmap:96 H264/90000\r\n" +
	"a=control:trackID=3\r\n"

// handshake answers OPTIONS through PLAY the way a well behaved camera does.
func (c *cameraConn) handshake(setupHeader map[string]string) {
	req := c.readRequest()
	require.Equal(c.t, OPTIONS, req.method)
	c.reply(req, "200 OK", map[string]string{"Public": "OPTIONS, DESCRIBE, SETUP, PLAY"}, "")

	req = c.readRequest()
	require.Equal(c.t, DESCRIBE, req.method)
	c.reply(req, "200 OK", map[string]string{"Content-Type": "application/sdp"}, testSDP)

	req = c.readRequest()
	require.Equal(c.t, SETUP, req.method)
	if setupHeader == nil {
		setupHeader = map[string]string{SessionID: "ab12CD;timeout=60", Transport: DefaultTransport}
	}
	c.reply(req, "200 OK", setupHeader, "")

	req = c.readRequest()
	require.Equal(c.t, PLAY, req.method)
	c.reply(req, "200 OK", nil, "")
}
