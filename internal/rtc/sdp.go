package rtc

import (
	"strings"

	"github.com/pion/sdp/v3"
)

// PreferVideoCodec restricts the video media section of raw to advertise
// only the first payload type mapped to codec (e.g. "H264"). If the codec is
// not advertised the SDP is returned unchanged. The rewrite is idempotent:
// applying it twice yields the same result.
func PreferVideoCodec(raw, codec string) (string, error) {
	if codec == "" {
		return raw, nil
	}

	var desc sdp.SessionDescription
	if err := desc.Unmarshal([]byte(raw)); err != nil {
		return "", err
	}

	rewritten := false
	for _, media := range desc.MediaDescriptions {
		if media.MediaName.Media != "video" {
			continue
		}
		pt, ok := findPayloadType(media, codec)
		if !ok {
			continue
		}
		media.MediaName.Formats = []string{pt}
		rewritten = true
	}

	if !rewritten {
		return raw, nil
	}

	out, err := desc.Marshal()
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// findPayloadType returns the first payload type whose rtpmap names codec.
func findPayloadType(media *sdp.MediaDescription, codec string) (string, bool) {
	for _, attr := range media.Attributes {
		if attr.Key != "rtpmap" {
			continue
		}
		fields := strings.Fields(attr.Value)
		if len(fields) < 2 {
			continue
		}
		name, _, _ := strings.Cut(fields[1], "/")
		if strings.EqualFold(name, codec) {
			return fields[0], true
		}
	}
	return "", false
}
