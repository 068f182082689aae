package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"git.hub.com/wangyl/camera-gateway/internal/rtsp"
	"git.hub.com/wangyl/camera-gateway/internal/sdp"
	"git.hub.com/wangyl/camera-gateway/internal/snapshot"
	"git.hub.com/wangyl/camera-gateway/pkg/snowflake"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

func (g *Gateway) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

// HandleLive answers with the camera's media payload as one unbounded body.
// A failed handshake is a 502; once the body has started, a failure just
// ends it.
func (g *Gateway) HandleLive(w http.ResponseWriter, r *http.Request) {
	logger := g.log.With(zap.String("stream_id", snowflake.GenerateString()))
	sess, stats, err := g.openSession(r.Context(), logger)
	if err == nil {
		err = g.handshake(r.Context(), sess.Start)
	}
	if rtsp.IsCancelled(err) {
		logger.Info("client left during handshake")
		return
	}
	if err != nil {
		logger.Warn("live handshake fail: " + err.Error())
		http.Error(w, "RTSP handshake with camera failed", http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "video/mp2t")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	if err := sess.Relay(r.Context(), w); err != nil {
		logger.Info("live stream aborted: "+err.Error(), stats.Fields()...)
		return
	}
	logger.Info("live stream closed", stats.Fields()...)
}

// HandleLiveWS relays the media payload as one binary websocket message per
// frame.
func (g *Gateway) HandleLiveWS(w http.ResponseWriter, r *http.Request) {
	logger := g.log.With(zap.String("stream_id", snowflake.GenerateString()))
	c, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade fail: " + err.Error())
		return
	}
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// The viewer never sends data; reading only notices it going away.
	go func() {
		defer cancel()
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()
	go func() {
		t := time.NewTicker(wsPingInterval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				_ = c.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout))
			}
		}
	}()

	sess, stats, err := g.openSession(ctx, logger)
	if err == nil {
		err = g.handshake(ctx, sess.Start)
	}
	if err != nil {
		logger.Warn("live ws handshake fail: " + err.Error())
		msg := websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "rtsp handshake failed")
		_ = c.WriteControl(websocket.CloseMessage, msg, time.Now().Add(wsWriteTimeout))
		_ = c.Close()
		return
	}
	if err := sess.Relay(ctx, &wsSink{conn: c}); err != nil {
		logger.Info("live ws stream aborted: "+err.Error(), stats.Fields()...)
		return
	}
	logger.Info("live ws stream closed", stats.Fields()...)
}

func (g *Gateway) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	body, err := g.snap.Fetch(r.Context())
	if err != nil {
		g.log.Warn("snapshot fail: " + err.Error())
		http.Error(w, "Failed to fetch snapshot from camera", http.StatusBadGateway)
		return
	}
	defer body.Close()
	w.Header().Set("Content-Type", snapshot.ContentTypeJPEG)
	w.WriteHeader(http.StatusOK)
	if _, err := io.CopyBuffer(w, body, make([]byte, 8192)); err != nil {
		g.log.Info("snapshot copy stop: " + err.Error())
	}
}

type describeResult struct {
	Target   string      `json:"target"`
	Track    string      `json:"track"`
	Media    []sdp.Media `json:"media,omitempty"`
	SDP      string      `json:"sdp"`
	SDPError string      `json:"sdp_error,omitempty"`
}

// HandleDescribe runs OPTIONS and DESCRIBE against the camera and reports
// what SETUP would be sent for.
func (g *Gateway) HandleDescribe(w http.ResponseWriter, r *http.Request) {
	logger := g.log.With(zap.String("stream_id", snowflake.GenerateString()))
	sess, _, err := g.openSession(r.Context(), logger)
	if err == nil {
		err = g.handshake(r.Context(), func(ctx context.Context) error {
			_, err := sess.Describe(ctx)
			return err
		})
	}
	if err != nil {
		logger.Warn("describe fail: " + err.Error())
		http.Error(w, "RTSP describe with camera failed", http.StatusBadGateway)
		return
	}
	_ = sess.Close()

	result := describeResult{
		Target: sess.TargetURL,
		Track:  sess.Track,
		SDP:    string(sess.SDP),
	}
	if medias, err := sdp.Describe(sess.SDP); err != nil {
		result.SDPError = err.Error()
	} else {
		result.Media = medias
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(result)
}

// wsSink adapts a websocket connection to the relay's io.Writer sink.
type wsSink struct {
	conn *websocket.Conn
}

func (s *wsSink) Write(p []byte) (int, error) {
	_ = s.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := s.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (s *wsSink) Close() error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "stream ended")
	_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(wsWriteTimeout))
	return s.conn.Close()
}
