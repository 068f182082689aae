package sdp

import (
	"regexp"
	"strconv"
	"strings"

	psdp "github.com/pion/sdp/v3"
	"github.com/pkg/errors"
)

const DefaultTrack = "trackID=1"

const controlPrefix = "a=control:"

var schemeRegexp = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.\-]*://`)

// ResolveTrack returns the track selector named by the first a=control line
// of body. Absolute URLs and absolute paths are reduced to their last path
// segment. Without a usable control line the selector is DefaultTrack.
func ResolveTrack(body []byte) string {
	for _, line := range strings.Split(string(body), "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, controlPrefix) {
			continue
		}
		val := strings.TrimSpace(line[len(controlPrefix):])
		if schemeRegexp.MatchString(val) || strings.HasPrefix(val, "/") {
			val = strings.TrimRight(val, "/")
			val = val[strings.LastIndex(val, "/")+1:]
		}
		if val == "" {
			return DefaultTrack
		}
		return val
	}
	return DefaultTrack
}

type Media struct {
	Kind      string   `json:"kind"`
	Protocol  string   `json:"protocol"`
	Formats   []string `json:"formats"`
	Codec     string   `json:"codec,omitempty"`
	ClockRate int      `json:"clock_rate,omitempty"`
	Control   string   `json:"control,omitempty"`
}

// Describe parses body as a session description and summarises its media
// sections.
func Describe(body []byte) ([]Media, error) {
	var desc psdp.SessionDescription
	if err := desc.Unmarshal(body); err != nil {
		return nil, errors.Wrap(err, "parse sdp")
	}
	medias := make([]Media, 0, len(desc.MediaDescriptions))
	for _, md := range desc.MediaDescriptions {
		m := Media{
			Kind:     md.MediaName.Media,
			Protocol: strings.Join(md.MediaName.Protos, "/"),
			Formats:  md.MediaName.Formats,
		}
		if control, ok := md.Attribute("control"); ok {
			m.Control = control
		}
		if rtpmap, ok := md.Attribute("rtpmap"); ok {
			m.Codec, m.ClockRate = parseRtpmap(rtpmap)
		}
		medias = append(medias, m)
	}
	if len(medias) == 0 {
		return nil, errors.New("Not Found Media Info")
	}
	return medias, nil
}

// parseRtpmap splits "96 H264/90000" into its encoding name and clock rate.
func parseRtpmap(val string) (codec string, clockRate int) {
	fields := strings.SplitN(val, " ", 2)
	if len(fields) != 2 {
		return "", 0
	}
	parts := strings.Split(fields[1], "/")
	codec = parts[0]
	if len(parts) >= 2 {
		clockRate, _ = strconv.Atoi(parts[1])
	}
	return codec, clockRate
}
