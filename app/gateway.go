package app

import (
	"context"
	"net"
	"net/http"
	"time"

	"git.hub.com/wangyl/camera-gateway/internal/rtp"
	"git.hub.com/wangyl/camera-gateway/internal/rtsp"
	"git.hub.com/wangyl/camera-gateway/internal/snapshot"
	"git.hub.com/wangyl/camera-gateway/pkg/settings"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	wsWriteTimeout = 5 * time.Second
	wsPingInterval = 30 * time.Second
)

// Gateway serves camera media over plain HTTP. Every live request owns its
// own camera connection from handshake to the end of the response.
type Gateway struct {
	cfg      *settings.Config
	log      *zap.Logger
	snap     *snapshot.Client
	upgrader websocket.Upgrader

	listener net.Listener
	server   *http.Server
	cancel   context.CancelFunc
}

func NewGateway(cfg *settings.Config, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{
		cfg:  cfg,
		log:  logger,
		snap: snapshot.NewClient(cfg.SnapshotURL(), cfg.Camera.User, cfg.Camera.Pass, cfg.Camera.SnapshotTimeoutDuration()),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1 << 10,
			WriteBufferSize: 1 << 16,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/live", onlyGet(g.HandleLive))
	mux.HandleFunc("/live/ws", onlyGet(g.HandleLiveWS))
	mux.HandleFunc("/snap", onlyGet(g.HandleSnapshot))
	mux.HandleFunc("/describe", onlyGet(g.HandleDescribe))
	mux.HandleFunc("/healthz", onlyGet(g.HealthCheck))
	mux.HandleFunc("/", http.NotFound)
	return mux
}

// Serve starts listening on the configured address and returns once the
// listener is up.
func (g *Gateway) Serve() error {
	listener, err := net.Listen("tcp", g.cfg.HTTPAddr())
	if err != nil {
		return errors.Wrap(err, "listen http")
	}
	base, cancel := context.WithCancel(context.Background())
	g.listener = listener
	g.cancel = cancel
	g.server = &http.Server{
		Handler:           g.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return base
		},
	}
	go func() {
		if err := g.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			g.log.Error("http serve fail: " + err.Error())
		}
	}()
	g.log.Info("camera gateway listening", zap.String("addr", listener.Addr().String()))
	return nil
}

func (g *Gateway) Addr() net.Addr {
	if g.listener == nil {
		return nil
	}
	return g.listener.Addr()
}

// Stop ends every running stream and shuts the server down.
func (g *Gateway) Stop(ctx context.Context) error {
	if g.server == nil {
		return nil
	}
	g.cancel()
	return g.server.Shutdown(ctx)
}

// openSession dials the camera and prepares a session. The returned stats
// are fed by the relay.
func (g *Gateway) openSession(ctx context.Context, logger *zap.Logger) (*rtsp.Session, *rtp.Stats, error) {
	target := g.cfg.RTSPURL()
	conn, err := rtsp.Dial(ctx, target, g.cfg.RTSP.DialTimeoutDuration())
	if err != nil {
		return nil, nil, err
	}
	stats := new(rtp.Stats)
	sess, err := rtsp.NewSession(conn, target,
		rtsp.WithLogger(logger),
		rtsp.WithUserAgent(g.cfg.RTSP.UserAgent),
		rtsp.WithPollInterval(g.cfg.RTSP.PollIntervalDuration()),
		rtsp.WithKeepAlive(g.cfg.RTSP.KeepAliveDuration()),
		rtsp.WithMediaObserver(stats.Observe),
	)
	if err != nil {
		return nil, nil, err
	}
	return sess, stats, nil
}

// handshake bounds a session step by the configured handshake timeout
// without limiting the relay that follows.
func (g *Gateway) handshake(ctx context.Context, step func(context.Context) error) error {
	hctx, cancel := context.WithTimeout(ctx, g.cfg.RTSP.HandshakeTimeoutDuration())
	defer cancel()
	return step(hctx)
}

func onlyGet(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		h(w, r)
	}
}
