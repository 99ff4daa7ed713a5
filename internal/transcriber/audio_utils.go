package transcriber

import (
	"bytes"
	"encoding/binary"
	"mime"
	"strconv"
	"strings"
)

// pcmFormat describes signed 16-bit little-endian PCM
type pcmFormat struct {
	SampleRate int
	Channels   int
}

var defaultPCM = pcmFormat{SampleRate: 16000, Channels: 1}

// parseRawPCM reports whether contentType names headerless PCM and reads the
// rate and channels parameters ("audio/L16;rate=48000;channels=2").
// Missing parameters fall back to 16 kHz mono.
func parseRawPCM(contentType string) (pcmFormat, bool) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	}
	if mediaType != "audio/pcm" && mediaType != "audio/l16" {
		return pcmFormat{}, false
	}

	f := defaultPCM
	if n, err := strconv.Atoi(params["rate"]); err == nil && n > 0 {
		f.SampleRate = n
	}
	if n, err := strconv.Atoi(params["channels"]); err == nil && n > 0 {
		f.Channels = n
	}
	return f, true
}

// pcmToWAV prepends a canonical 44-byte RIFF header
func pcmToWAV(raw []byte, f pcmFormat) []byte {
	const bitsPerSample = 16
	blockAlign := f.Channels * bitsPerSample / 8
	byteRate := f.SampleRate * blockAlign

	var buf bytes.Buffer
	buf.Grow(44 + len(raw))

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+len(raw)))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, struct {
		Size          uint32
		Format        uint16
		Channels      uint16
		SampleRate    uint32
		ByteRate      uint32
		BlockAlign    uint16
		BitsPerSample uint16
	}{16, 1, uint16(f.Channels), uint32(f.SampleRate), uint32(byteRate), uint16(blockAlign), bitsPerSample})

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(len(raw)))
	buf.Write(raw)
	return buf.Bytes()
}
