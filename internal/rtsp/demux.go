package rtsp

import (
	"bytes"
	"context"
	"encoding/binary"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

var responsePrefix = []byte("RTSP/")

// Frame is one interleaved binary chunk with the "$ channel length" header
// stripped.
type Frame struct {
	Channel byte
	Payload []byte
}

// Demuxer splits the post-PLAY byte stream into frames. Incomplete frames
// stay in the connection buffer until the rest arrives.
type Demuxer struct {
	conn *ConnRich
	log  *zap.Logger

	// OnIdle, when set, runs every time a poll interval passes with no data.
	OnIdle func()

	Skipped   int
	Responses int
}

func NewDemuxer(conn *ConnRich, logger *zap.Logger) *Demuxer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Demuxer{conn: conn, log: logger}
}

// Next blocks until a complete frame is available. It returns io.EOF once
// the camera closes the connection; a poll interval without data is not an
// error.
func (d *Demuxer) Next(ctx context.Context) (Frame, error) {
	for {
		if frame, ok := d.parse(); ok {
			return frame, nil
		}
		err := d.conn.fill(ctx)
		switch {
		case err == nil:
		case err == errPollTimeout:
			if d.OnIdle != nil {
				d.OnIdle()
			}
		default:
			return Frame{}, err
		}
	}
}

// parse consumes buffered bytes up to and including the first complete
// frame. Stray bytes are skipped one at a time; embedded RTSP responses
// (answers to keep-alives) are skipped whole.
func (d *Demuxer) parse() (Frame, bool) {
	buf := d.conn.Buffered()
	pos := 0
	defer func() {
		d.conn.consume(pos)
	}()
	for pos < len(buf) {
		rest := buf[pos:]
		if rest[0] == MagicChar {
			if len(rest) < frameHeaderLen {
				return Frame{}, false
			}
			length := int(binary.BigEndian.Uint16(rest[2:4]))
			if len(rest) < frameHeaderLen+length {
				return Frame{}, false
			}
			frame := Frame{
				Channel: rest[1],
				Payload: append([]byte(nil), rest[frameHeaderLen:frameHeaderLen+length]...),
			}
			pos += frameHeaderLen + length
			return frame, true
		}
		if rest[0] == responsePrefix[0] {
			n, complete := embeddedResponseLen(rest)
			if !complete {
				return Frame{}, false
			}
			if n > 0 {
				d.Responses++
				d.log.Debug("rtsp response in stream", zap.ByteString("status", firstLine(rest)))
				pos += n
				continue
			}
		}
		d.Skipped++
		pos++
	}
	return Frame{}, false
}

// embeddedResponseLen reports how many bytes the RTSP response at the start
// of buf occupies. complete is false while more bytes are needed to decide;
// n is zero when buf does not hold a response at all.
func embeddedResponseLen(buf []byte) (n int, complete bool) {
	if len(buf) < len(responsePrefix) {
		return 0, !bytes.HasPrefix(responsePrefix, buf)
	}
	if !bytes.HasPrefix(buf, responsePrefix) {
		return 0, true
	}
	end, next := headerEnd(buf)
	if end < 0 {
		if len(buf) > maxHeaderBytes {
			return 0, true
		}
		return 0, false
	}
	length := 0
	for _, line := range strings.Split(string(buf[:end]), "\n")[1:] {
		key, val, ok := parseHeaderLine(line)
		if ok && strings.EqualFold(key, ContentLength) {
			if v, err := strconv.Atoi(val); err == nil && v >= 0 && v <= maxBodyBytes {
				length = v
			}
		}
	}
	if len(buf) < next+length {
		return 0, false
	}
	return next + length, true
}

func firstLine(buf []byte) []byte {
	if idx := bytes.IndexByte(buf, '\n'); idx >= 0 {
		return bytes.TrimSpace(buf[:idx])
	}
	return buf
}
