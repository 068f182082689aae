package rtsp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const maxBodyBytes = 1 << 20

type Response struct {
	StatusLine string
	Version    string
	StatusCode int
	Status     string
	Header     Header
	// Challenges keeps every WWW-Authenticate value in order; cameras often
	// offer Digest and Basic on separate lines.
	Challenges []string
	Body       []byte
}

// ReadResponse reads one response off c. The header block and any
// Content-Length body may arrive over any number of reads; bytes past the
// body stay buffered in c for whoever reads next.
func ReadResponse(ctx context.Context, c *ConnRich) (*Response, error) {
	reads := 0
	end, next := headerEnd(c.Buffered())
	for end < 0 {
		if reads >= maxHeaderReads || len(c.Buffered()) > maxHeaderBytes {
			return nil, newProtocolError(ReasonMissingTerminator, "", 0)
		}
		if err := fillForResponse(ctx, c); err != nil {
			if err == errPollTimeout {
				continue
			}
			return nil, err
		}
		reads++
		end, next = headerEnd(c.Buffered())
	}
	resp, err := parseResponseHead(c.Buffered()[:end])
	c.consume(next)
	if err != nil {
		return nil, err
	}

	val, ok := resp.Header.Get(ContentLength)
	if !ok {
		return resp, nil
	}
	length, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil || length < 0 || length > maxBodyBytes {
		pe := newProtocolError(ReasonBadContentLength, "", resp.StatusCode)
		pe.Err = fmt.Errorf("content-length %q", val)
		return nil, pe
	}
	for len(c.Buffered()) < length {
		if err := fillForResponse(ctx, c); err != nil && err != errPollTimeout {
			return nil, err
		}
	}
	resp.Body = append([]byte(nil), c.Buffered()[:length]...)
	c.consume(length)
	return resp, nil
}

func fillForResponse(ctx context.Context, c *ConnRich) error {
	err := c.fill(ctx)
	if err == io.EOF {
		return newProtocolError(ReasonConnectionClosed, "", 0)
	}
	return err
}

// headerEnd locates the blank line closing a header block. end is where the
// block stops, next is the first byte after the blank line.
func headerEnd(buf []byte) (end, next int) {
	crlf := bytes.Index(buf, []byte("\r\n\r\n"))
	lf := bytes.Index(buf, []byte("\n\n"))
	switch {
	case crlf < 0 && lf < 0:
		return -1, -1
	case lf >= 0 && (crlf < 0 || lf < crlf):
		return lf, lf + 2
	default:
		return crlf, crlf + 4
	}
}

func parseResponseHead(head []byte) (*Response, error) {
	lines := strings.Split(string(head), "\n")
	resp := &Response{
		StatusLine: strings.TrimSpace(lines[0]),
		Header:     make(Header),
	}
	parts := strings.SplitN(resp.StatusLine, " ", 3)
	if len(parts) < 2 || !strings.HasPrefix(parts[0], "RTSP/1.") {
		pe := newProtocolError(ReasonMalformedStatus, "", 0)
		pe.Err = fmt.Errorf("status line %q", resp.StatusLine)
		return nil, pe
	}
	code, err := strconv.Atoi(parts[1])
	if err != nil {
		pe := newProtocolError(ReasonMalformedStatus, "", 0)
		pe.Err = err
		return nil, pe
	}
	resp.Version = parts[0]
	resp.StatusCode = code
	if len(parts) == 3 {
		resp.Status = parts[2]
	}
	for _, line := range lines[1:] {
		key, val, ok := parseHeaderLine(line)
		if !ok {
			continue
		}
		resp.Header.Set(key, val)
		if strings.EqualFold(key, WWW_Authenticate) {
			resp.Challenges = append(resp.Challenges, val)
		}
	}
	return resp, nil
}

func parseHeaderLine(line string) (key, val string, ok bool) {
	idx := strings.IndexByte(line, ':')
	if idx <= 0 {
		return "", "", false
	}
	key = strings.TrimSpace(line[:idx])
	if key == "" {
		return "", "", false
	}
	return key, strings.TrimSpace(line[idx+1:]), true
}

func (r *Response) String() string {
	str := fmt.Sprintf("%s %d %s\r\n", r.Version, r.StatusCode, r.Status)
	for key, value := range r.Header {
		str += fmt.Sprintf("%s: %s\r\n", key, value)
	}
	str += "\r\n"
	str += string(r.Body)
	return str
}
