package rtsp

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type flushRecorder struct {
	bytes.Buffer
	flushes int
	closed  bool
}

func (r *flushRecorder) Flush() { r.flushes++ }

func (r *flushRecorder) Close() error {
	r.closed = true
	return nil
}

type brokenSink struct{}

func (brokenSink) Write([]byte) (int, error) {
	return 0, errors.New("client gone")
}

func relaySession(t *testing.T, conn *scriptConn, opts ...Option) *Session {
	t.Helper()
	s, err := NewSession(conn, "rtsp://127.0.0.1/live", opts...)
	require.NoError(t, err)
	s.SessionID = "ab12CD"
	return s
}

func TestRelayForwardsMediaChannel(t *testing.T) {
	conn := newScriptConn(
		interleave(0, "XXX"),
		cat(interleave(1, "rtcp"), interleave(0, "YYYYY")),
	)
	sink := new(flushRecorder)
	require.NoError(t, relaySession(t, conn).Relay(context.Background(), sink))
	require.Equal(t, "XXXYYYYY", sink.String())
	require.Equal(t, 2, sink.flushes)
	require.True(t, sink.closed)
	require.True(t, conn.isClosed())
}

func TestRelayNegotiatedChannel(t *testing.T) {
	conn := newScriptConn(cat(interleave(0, "no"), interleave(2, "yes"), interleave(3, "rtcp")))
	s := relaySession(t, conn)
	s.negotiate("RTP/AVP/TCP;unicast;interleaved=2-3")
	require.Equal(t, byte(2), s.MediaChannel)
	require.Equal(t, byte(3), s.ControlChannel)

	var sink bytes.Buffer
	require.NoError(t, s.Relay(context.Background(), &sink))
	require.Equal(t, "yes", sink.String())
}

func TestRelayObserver(t *testing.T) {
	conn := newScriptConn(cat(interleave(0, "ab"), interleave(1, "cd"), interleave(0, "ef")))
	var seen []string
	s := relaySession(t, conn, WithMediaObserver(func(p []byte) {
		seen = append(seen, string(p))
	}))
	var sink bytes.Buffer
	require.NoError(t, s.Relay(context.Background(), &sink))
	require.Equal(t, []string{"ab", "ef"}, seen)
}

func TestRelaySinkFailure(t *testing.T) {
	conn := newScriptConn(interleave(0, "XXX"), interleave(0, "YYY"))
	err := relaySession(t, conn).Relay(context.Background(), brokenSink{})
	require.True(t, IsTransportError(err))
	require.True(t, conn.isClosed())
}

func TestRelayCancelled(t *testing.T) {
	conn := newScriptConn()
	conn.hang = true
	ctx, cancel := context.WithCancel(context.Background())
	s := relaySession(t, conn, WithPollInterval(10*time.Millisecond))

	done := make(chan error, 1)
	go func() {
		var sink bytes.Buffer
		done <- s.Relay(ctx, &sink)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not stop after cancel")
	}
	require.True(t, conn.isClosed())
}

func TestRelayKeepAlive(t *testing.T) {
	conn := newScriptConn(nil, nil, nil, interleave(0, "data"))
	s := relaySession(t, conn, WithKeepAlive(time.Nanosecond))
	s.CSeq = 5
	var sink bytes.Buffer
	require.NoError(t, s.Relay(context.Background(), &sink))
	require.Equal(t, "data", sink.String())

	written := conn.written.String()
	require.Contains(t, written, "OPTIONS rtsp://127.0.0.1/live RTSP/1.0\r\nCSeq: 5\r\nSession: ab12CD\r\n")
	require.Greater(t, s.CSeq, 5)
}
