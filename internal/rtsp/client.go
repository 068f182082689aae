package rtsp

import (
	"context"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"git.hub.com/wangyl/camera-gateway/internal/sdp"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type Option func(s *Session)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.log = logger
		}
	}
}

func WithUserAgent(agent string) Option {
	return func(s *Session) {
		s.agent = agent
	}
}

// WithPollInterval bounds every read so cancellation is noticed at least
// that often.
func WithPollInterval(d time.Duration) Option {
	return func(s *Session) {
		s.conn.PollInterval = d
	}
}

func WithWriteTimeout(d time.Duration) Option {
	return func(s *Session) {
		s.conn.WriteTimeout = d
	}
}

// WithKeepAlive makes the relay send OPTIONS every d. Zero disables it.
func WithKeepAlive(d time.Duration) Option {
	return func(s *Session) {
		s.keepAlive = d
	}
}

// WithMediaObserver registers f to see every media payload before it is
// written to the sink. f must not retain the slice.
func WithMediaObserver(f func(payload []byte)) Option {
	return func(s *Session) {
		s.observe = f
	}
}

// Session drives one camera connection from OPTIONS through PLAY and then
// relays its media. A Session is used by a single goroutine.
type Session struct {
	CSeq           int
	SessionID      string
	TransportSpec  string
	TargetURL      string
	Track          string
	SDP            []byte
	MediaChannel   byte
	ControlChannel byte

	conn      *ConnRich
	log       *zap.Logger
	agent     string
	auth      *authenticator
	authReady bool
	keepAlive time.Duration
	observe   func(payload []byte)
}

// NewSession takes ownership of conn, which must already be connected to the
// camera named by target. Credentials in target are used to answer auth
// challenges and never appear in request lines.
func NewSession(conn RawConn, target string, opts ...Option) (*Session, error) {
	u, err := url.Parse(target)
	if err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "parse rtsp url")
	}
	if !strings.EqualFold(u.Scheme, "rtsp") {
		_ = conn.Close()
		return nil, errors.Errorf("unsupported url scheme %q", u.Scheme)
	}
	s := &Session{
		CSeq:           1,
		TransportSpec:  DefaultTransport,
		MediaChannel:   MediaChannel,
		ControlChannel: ControlChannel,
		conn:           NewConnRich(conn),
		log:            zap.NewNop(),
	}
	if u.User != nil {
		password, _ := u.User.Password()
		s.auth = &authenticator{username: u.User.Username(), password: password}
	}
	u.User = nil
	s.TargetURL = u.String()
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(zap.String("target", s.TargetURL))
	return s, nil
}

// Dial connects to the host of an rtsp:// URL. The port defaults to 554.
func Dial(ctx context.Context, target string, timeout time.Duration) (net.Conn, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, errors.Wrap(err, "parse rtsp url")
	}
	host := u.Host
	if u.Port() == "" {
		host = net.JoinHostPort(u.Hostname(), strconv.Itoa(DefaultPort))
	}
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", host)
	if err != nil {
		return nil, &TransportError{Op: "dial", Err: err}
	}
	return conn, nil
}

// Start runs OPTIONS, DESCRIBE, SETUP and PLAY. On failure the connection is
// closed and the error is a *ProtocolError or *TransportError.
func (s *Session) Start(ctx context.Context) error {
	return s.run(ctx, s.options, s.describe, s.setup, s.play)
}

// Describe runs OPTIONS and DESCRIBE only and returns the session
// description. The caller closes the session afterwards.
func (s *Session) Describe(ctx context.Context) ([]byte, error) {
	if err := s.run(ctx, s.options, s.describe); err != nil {
		return nil, err
	}
	return s.SDP, nil
}

func (s *Session) Close() error {
	return s.conn.Close()
}

func (s *Session) run(ctx context.Context, steps ...func(context.Context) error) (err error) {
	stop := context.AfterFunc(ctx, func() {
		_ = s.conn.Close()
	})
	defer func() {
		stop()
		if err == nil {
			return
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = contextError(ctxErr)
		}
		_ = s.Close()
		s.log.Warn("rtsp handshake fail: "+err.Error(), zap.Int("cseq", s.CSeq-1))
	}()
	for _, step := range steps {
		if err = step(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) options(ctx context.Context) error {
	resp, err := s.Request(ctx, OPTIONS, s.TargetURL, nil)
	if err != nil {
		return err
	}
	if resp.StatusCode != 200 {
		return newProtocolError(ReasonOptionsRejected, OPTIONS, resp.StatusCode)
	}
	return nil
}

func (s *Session) describe(ctx context.Context) error {
	header := make(Header)
	header[Accept] = "application/sdp"
	resp, err := s.Request(ctx, DESCRIBE, s.TargetURL, header)
	if err != nil {
		return err
	}
	if resp.StatusCode != 200 {
		return newProtocolError(ReasonDescribeRejected, DESCRIBE, resp.StatusCode)
	}
	s.SDP = resp.Body
	s.Track = sdp.ResolveTrack(resp.Body)
	s.log.Debug("rtsp track resolved", zap.String("track", s.Track), zap.Int("sdp_len", len(resp.Body)))
	return nil
}

func (s *Session) setup(ctx context.Context) error {
	header := make(Header)
	header[Transport] = s.TransportSpec
	resp, err := s.Request(ctx, SETUP, s.trackURL(), header)
	if err != nil {
		return err
	}
	if resp.StatusCode != 200 {
		return newProtocolError(ReasonSetupRejected, SETUP, resp.StatusCode)
	}
	val, ok := resp.Header.Get(SessionID)
	if !ok {
		return newProtocolError(ReasonMissingSession, SETUP, resp.StatusCode)
	}
	id := parseSessionID(val)
	if id == "" {
		return newProtocolError(ReasonMissingSession, SETUP, resp.StatusCode)
	}
	s.SessionID = id
	if ts, ok := resp.Header.Get(Transport); ok {
		s.negotiate(ts)
	}
	return nil
}

func (s *Session) play(ctx context.Context) error {
	resp, err := s.Request(ctx, PLAY, s.trackURL(), nil)
	if err != nil {
		return err
	}
	if resp.StatusCode != 200 {
		return newProtocolError(ReasonPlayRejected, PLAY, resp.StatusCode)
	}
	s.log.Info("rtsp session playing",
		zap.String("session", s.SessionID),
		zap.String("track", s.Track),
		zap.Uint8("media_channel", s.MediaChannel))
	return nil
}

// Request sends one request and reads its response. A 401 carrying a
// challenge is answered once when the target URL had credentials.
func (s *Session) Request(ctx context.Context, method, url string, header Header) (*Response, error) {
	for attempt := 0; ; attempt++ {
		if err := s.RequestNoResp(method, url, header); err != nil {
			return nil, err
		}
		resp, err := ReadResponse(ctx, s.conn)
		if err != nil {
			return nil, withMethod(err, method)
		}
		s.log.Debug("rtsp response",
			zap.String("method", method),
			zap.Int("status", resp.StatusCode))
		if resp.StatusCode != 401 || s.auth == nil {
			return resp, nil
		}
		if attempt > 0 {
			return nil, newProtocolError(ReasonAuthFailed, method, resp.StatusCode)
		}
		if len(resp.Challenges) == 0 {
			return nil, newProtocolError(ReasonAuthFailed, method, resp.StatusCode)
		}
		if err := s.auth.challenge(resp.Challenges); err != nil {
			pe := newProtocolError(ReasonAuthFailed, method, resp.StatusCode)
			pe.Err = err
			return nil, pe
		}
		s.authReady = true
	}
}

// RequestNoResp sends one request without waiting for the answer. CSeq
// advances by one per call.
func (s *Session) RequestNoResp(method, url string, header Header) error {
	req := NewRequest(method, url)
	for key, val := range header {
		req.Header[key] = val
	}
	req.Header[CSeq] = strconv.Itoa(s.CSeq)
	if s.SessionID != "" {
		req.Header[SessionID] = s.SessionID
	}
	if s.agent != "" {
		req.Header[UserAgent] = s.agent
	}
	if s.authReady {
		req.Header[Authorization] = s.auth.header(method, url)
	}
	s.log.Debug("rtsp request", zap.String("method", method), zap.Int("cseq", s.CSeq))
	s.CSeq++
	if _, err := s.conn.Write(req.Bytes()); err != nil {
		return err
	}
	return nil
}

func (s *Session) trackURL() string {
	return strings.TrimRight(s.TargetURL, "/") + "/" + s.Track
}

// negotiate adopts the channel pair the server put in its Transport answer.
func (s *Session) negotiate(transport string) {
	m := TcpRegexp.FindStringSubmatch(transport)
	if m == nil {
		return
	}
	media, err := strconv.Atoi(m[1])
	if err != nil || media > 255 {
		return
	}
	control := media + 1
	if m[3] != "" {
		if c, err := strconv.Atoi(m[3]); err == nil {
			control = c
		}
	}
	if control > 255 {
		return
	}
	s.TransportSpec = transport
	s.MediaChannel = byte(media)
	s.ControlChannel = byte(control)
}

// parseSessionID drops parameters such as ";timeout=60".
func parseSessionID(val string) string {
	return strings.TrimSpace(strings.SplitN(val, ";", 2)[0])
}

func withMethod(err error, method string) error {
	var pe *ProtocolError
	if errors.As(err, &pe) && pe.Method == "" {
		pe.Method = method
	}
	return err
}
