package rtsp

import (
	"context"
	"io"
	"time"

	"go.uber.org/zap"
)

// Flusher is implemented by sinks that buffer output, http.ResponseWriter
// among them.
type Flusher interface {
	Flush()
}

type errFlusher interface {
	Flush() error
}

// Relay writes every media-channel payload to sink, in order, flushing after
// each one. Frames on any other channel are dropped unread. It returns when
// the camera ends the stream, the sink fails or ctx is done; the first and
// last of those return nil. The camera connection, and sink when it is an
// io.Closer, are closed before Relay returns.
func (s *Session) Relay(ctx context.Context, sink io.Writer) (err error) {
	var frames, written int
	demux := NewDemuxer(s.conn, s.log)
	defer func() {
		_ = s.Close()
		if c, ok := sink.(io.Closer); ok {
			_ = c.Close()
		}
		fields := []zap.Field{
			zap.Int("frames", frames),
			zap.Int("bytes", written),
			zap.Int("skipped", demux.Skipped),
			zap.Int("responses", demux.Responses),
		}
		if err != nil {
			s.log.Warn("rtsp relay stop: "+err.Error(), fields...)
		} else {
			s.log.Info("rtsp relay stop", fields...)
		}
	}()
	stop := context.AfterFunc(ctx, func() {
		_ = s.conn.Close()
	})
	defer stop()

	lastKeepAlive := time.Now()
	var keepAliveErr error
	keepAlive := func() {
		if s.keepAlive <= 0 || keepAliveErr != nil || time.Since(lastKeepAlive) < s.keepAlive {
			return
		}
		lastKeepAlive = time.Now()
		keepAliveErr = s.RequestNoResp(OPTIONS, s.TargetURL, nil)
	}
	demux.OnIdle = keepAlive

	for {
		keepAlive()
		if keepAliveErr != nil {
			return keepAliveErr
		}
		frame, err := demux.Next(ctx)
		if err != nil {
			if err == io.EOF || ctx.Err() != nil {
				return nil
			}
			return err
		}
		if frame.Channel != s.MediaChannel {
			continue
		}
		frames++
		if s.observe != nil {
			s.observe(frame.Payload)
		}
		n, err := sink.Write(frame.Payload)
		written += n
		if err != nil {
			return &TransportError{Op: "sink write", Err: err}
		}
		switch f := sink.(type) {
		case errFlusher:
			if err := f.Flush(); err != nil {
				return &TransportError{Op: "sink flush", Err: err}
			}
		case Flusher:
			f.Flush()
		}
	}
}
