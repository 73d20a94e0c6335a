package rtc

import (
	"strings"
	"testing"

	"github.com/go-playground/assert/v2"
)

const sampleSDP = "v=0\r\n" +
	"o=- 1 1 IN IP4 127.0.0.1\r\n" +
	"s=-\r\n" +
	"t=0 0\r\n" +
	"m=audio 9 UDP/TLS/RTP/SAVPF 111\r\n" +
	"a=rtpmap:111 opus/48000/2\r\n" +
	"m=video 9 UDP/TLS/RTP/SAVPF 96 97 102\r\n" +
	"a=rtpmap:96 VP8/90000\r\n" +
	"a=rtpmap:97 VP9/90000\r\n" +
	"a=rtpmap:102 H264/90000\r\n"

func TestPreferVideoCodecRestrictsFormats(t *testing.T) {
	out, err := PreferVideoCodec(sampleSDP, "H264")
	assert.Equal(t, err, nil)

	if !strings.Contains(out, "m=video 9 UDP/TLS/RTP/SAVPF 102") {
		t.Fatalf("video media line not restricted to H264 payload:\n%s", out)
	}
	// Audio stays untouched.
	if !strings.Contains(out, "m=audio 9 UDP/TLS/RTP/SAVPF 111") {
		t.Fatalf("audio media line changed:\n%s", out)
	}
}

func TestPreferVideoCodecCaseInsensitive(t *testing.T) {
	out, err := PreferVideoCodec(sampleSDP, "h264")
	assert.Equal(t, err, nil)
	if !strings.Contains(out, "m=video 9 UDP/TLS/RTP/SAVPF 102") {
		t.Fatalf("lowercase codec name not matched:\n%s", out)
	}
}

func TestPreferVideoCodecIdempotent(t *testing.T) {
	once, err := PreferVideoCodec(sampleSDP, "VP9")
	assert.Equal(t, err, nil)
	twice, err := PreferVideoCodec(once, "VP9")
	assert.Equal(t, err, nil)
	assert.Equal(t, twice, once)
}

func TestPreferVideoCodecAbsentCodecUnchanged(t *testing.T) {
	out, err := PreferVideoCodec(sampleSDP, "AV1")
	assert.Equal(t, err, nil)
	assert.Equal(t, out, sampleSDP)
}

func TestPreferVideoCodecEmptyCodecUnchanged(t *testing.T) {
	out, err := PreferVideoCodec(sampleSDP, "")
	assert.Equal(t, err, nil)
	assert.Equal(t, out, sampleSDP)
}

func TestPreferVideoCodecBadSDP(t *testing.T) {
	_, err := PreferVideoCodec("not an sdp", "H264")
	assert.NotEqual(t, err, nil)
}
