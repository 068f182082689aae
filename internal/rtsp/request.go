package rtsp

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
)

// Header is an RTSP header block. Lookups through Get ignore key case since
// cameras are not consistent about it.
type Header map[string]string

// Set stores val under key, replacing any value held under another casing of
// the same key.
func (h Header) Set(key, val string) {
	for k := range h {
		if k != key && strings.EqualFold(k, key) {
			delete(h, k)
		}
	}
	h[key] = val
}

func (h Header) Get(key string) (string, bool) {
	if v, ok := h[key]; ok {
		return v, true
	}
	for k, v := range h {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return "", false
}

type Request struct {
	Method string
	URL    string
	Header Header
}

func NewRequest(method, url string) *Request {
	return &Request{
		Method: method,
		URL:    url,
		Header: make(Header),
	}
}

// Bytes renders the request. CSeq and Session lead the header block, the rest
// follow in key order so the output is stable.
func (r *Request) Bytes() []byte {
	var buff bytes.Buffer
	buff.WriteString(fmt.Sprintf("%s %s %s\r\n", r.Method, r.URL, RTSP_VERSION))
	if val, ok := r.Header[CSeq]; ok {
		buff.WriteString(fmt.Sprintf("%s: %s\r\n", CSeq, val))
	}
	if val, ok := r.Header[SessionID]; ok {
		buff.WriteString(fmt.Sprintf("%s: %s\r\n", SessionID, val))
	}
	keys := make([]string, 0, len(r.Header))
	for key := range r.Header {
		if key == CSeq || key == SessionID {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		buff.WriteString(fmt.Sprintf("%s: %s\r\n", key, r.Header[key]))
	}
	buff.WriteString("\r\n")
	return buff.Bytes()
}

func (r *Request) String() string {
	return string(r.Bytes())
}
