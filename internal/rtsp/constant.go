package rtsp

import (
	"regexp"
	"time"
)

const RTSP_VERSION = "RTSP/1.0"

const (
	OPTIONS = "OPTIONS"

	DESCRIBE = "DESCRIBE"

	SETUP = "SETUP"

	PLAY = "PLAY"
)

const (
	ContentLength    = "Content-Length"
	UserAgent        = "User-Agent"
	Authorization    = "Authorization"
	SessionID        = "Session"
	WWW_Authenticate = "WWW-Authenticate"
	Accept           = "Accept"
	Transport        = "Transport"
	CSeq             = "CSeq"
)

// MagicChar prefixes every interleaved binary frame (RFC 2326 10.12).
const MagicChar = 0x24

const (
	MediaChannel   = 0
	ControlChannel = 1
)

const DefaultTransport = "RTP/AVP/TCP;unicast;interleaved=0-1"

const (
	DefaultPort         = 554
	DefaultPollInterval = 10 * time.Second
	DefaultWriteTimeout = 10 * time.Second
)

const (
	frameHeaderLen = 4
	readChunkSize  = 4096
	// maxHeaderReads bounds the reads spent looking for an end of headers.
	maxHeaderReads = 64
	maxHeaderBytes = 64 * 1024
)

var TcpRegexp = regexp.MustCompile(`interleaved=(\d+)(-(\d+))?`)
