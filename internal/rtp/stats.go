package rtp

import (
	"fmt"

	"github.com/pion/rtp"
	"go.uber.org/zap"
)

// Stats watches the media payloads a relay forwards. Payloads that do not
// parse as RTP are counted as Invalid and otherwise ignored; Stats never
// alters or blocks the stream. It is not safe for concurrent use.
type Stats struct {
	Packets     int
	Bytes       int
	Invalid     int
	Markers     int
	SSRC        uint32
	PayloadType uint8
	FirstSeq    uint16
	LastSeq     uint16
	LastTs      uint32
}

// Observe has the signature rtsp.WithMediaObserver expects.
func (s *Stats) Observe(payload []byte) {
	s.Bytes += len(payload)
	var pkt rtp.Packet
	if err := pkt.Unmarshal(payload); err != nil {
		s.Invalid++
		return
	}
	if s.Packets == 0 {
		s.FirstSeq = pkt.SequenceNumber
	}
	s.Packets++
	if pkt.Marker {
		s.Markers++
	}
	s.SSRC = pkt.SSRC
	s.PayloadType = pkt.PayloadType
	s.LastSeq = pkt.SequenceNumber
	s.LastTs = pkt.Timestamp
}

func (s *Stats) Fields() []zap.Field {
	return []zap.Field{
		zap.Int("rtp_packets", s.Packets),
		zap.Int("rtp_bytes", s.Bytes),
		zap.Int("rtp_invalid", s.Invalid),
		zap.Uint32("ssrc", s.SSRC),
		zap.Uint8("payload_type", s.PayloadType),
	}
}

func (s Stats) String() string {
	return fmt.Sprintf("packets:%v bytes:%v invalid:%v markers:%v ssrc:%v pt:%v seq:%v-%v ts:%v",
		s.Packets, s.Bytes, s.Invalid, s.Markers, s.SSRC, s.PayloadType, s.FirstSeq, s.LastSeq, s.LastTs)
}
