// Package audio handles the PCM/WAV formats produced by TTS backends and
// assembles per-turn segments into a single podcast track.
package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Format describes interleaved little-endian PCM.
type Format struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
}

// BytesPerFrame returns the size of one sample across all channels.
func (f Format) BytesPerFrame() int {
	return f.Channels * f.BitsPerSample / 8
}

// Check reports whether PCM in this format can be normalized: a positive
// rate and channel count and 8- or 16-bit samples.
func (f Format) Check() error {
	switch {
	case f.SampleRate <= 0:
		return fmt.Errorf("invalid sample rate %d", f.SampleRate)
	case f.Channels <= 0:
		return fmt.Errorf("invalid channel count %d", f.Channels)
	case f.BitsPerSample != 8 && f.BitsPerSample != 16:
		return fmt.Errorf("unsupported bit depth %d", f.BitsPerSample)
	}
	return nil
}

// WholeFrames drops a trailing partial frame from pcm.
func (f Format) WholeFrames(pcm []byte) []byte {
	bpf := f.BytesPerFrame()
	if bpf == 0 {
		return pcm[:0]
	}
	return pcm[:len(pcm)-len(pcm)%bpf]
}

// Duration returns the play time of n bytes of PCM in this format.
func (f Format) Duration(n int) time.Duration {
	bpf := f.BytesPerFrame()
	if bpf == 0 || f.SampleRate == 0 {
		return 0
	}
	frames := n / bpf
	return time.Duration(frames) * time.Second / time.Duration(f.SampleRate)
}

// EncodeWAV wraps raw PCM data in a WAV container.
func EncodeWAV(pcm []byte, f Format) []byte {
	dataLen := len(pcm)
	fileLen := 36 + dataLen // 44-byte header minus 8 bytes for RIFF header = 36

	buf := &bytes.Buffer{}
	buf.Grow(44 + dataLen)

	// RIFF header
	buf.WriteString("RIFF")
	_ = binary.Write(buf, binary.LittleEndian, uint32(fileLen))
	buf.WriteString("WAVE")

	// fmt subchunk
	buf.WriteString("fmt ")
	_ = binary.Write(buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(buf, binary.LittleEndian, uint16(1)) // PCM
	_ = binary.Write(buf, binary.LittleEndian, uint16(f.Channels))
	_ = binary.Write(buf, binary.LittleEndian, uint32(f.SampleRate))
	_ = binary.Write(buf, binary.LittleEndian, uint32(f.SampleRate*f.BytesPerFrame()))
	_ = binary.Write(buf, binary.LittleEndian, uint16(f.BytesPerFrame()))
	_ = binary.Write(buf, binary.LittleEndian, uint16(f.BitsPerSample))

	// data subchunk
	buf.WriteString("data")
	_ = binary.Write(buf, binary.LittleEndian, uint32(dataLen))
	buf.Write(pcm)

	return buf.Bytes()
}

// ErrNotWAV is returned by DecodeWAV for data without a RIFF/WAVE header.
var ErrNotWAV = errors.New("not a RIFF/WAVE stream")

// DecodeWAV extracts the PCM payload and its format from a WAV file. Chunks
// other than "fmt " and "data" are skipped. Only uncompressed PCM is accepted.
func DecodeWAV(b []byte) ([]byte, Format, error) {
	if len(b) < 12 || string(b[0:4]) != "RIFF" || string(b[8:12]) != "WAVE" {
		return nil, Format{}, ErrNotWAV
	}

	var (
		f      Format
		haveFm bool
	)
	pos := 12
	for pos+8 <= len(b) {
		id := string(b[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(b[pos+4 : pos+8]))
		body := pos + 8
		end := body + size
		if end > len(b) {
			// Streaming writers leave the data size unset; take what is there.
			if id != "data" {
				return nil, Format{}, fmt.Errorf("chunk %q overruns file (%d > %d)", id, end, len(b))
			}
			end = len(b)
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, Format{}, fmt.Errorf("fmt chunk too short (%d bytes)", size)
			}
			audioFormat := binary.LittleEndian.Uint16(b[body:])
			if audioFormat != 1 && audioFormat != 0xFFFE {
				return nil, Format{}, fmt.Errorf("unsupported wav encoding %d", audioFormat)
			}
			f.Channels = int(binary.LittleEndian.Uint16(b[body+2:]))
			f.SampleRate = int(binary.LittleEndian.Uint32(b[body+4:]))
			f.BitsPerSample = int(binary.LittleEndian.Uint16(b[body+14:]))
			haveFm = true
		case "data":
			if !haveFm {
				return nil, Format{}, fmt.Errorf("data chunk before fmt chunk")
			}
			return b[body:end], f, nil
		}

		pos = end
		if size%2 == 1 {
			pos++ // chunks are word aligned
		}
	}
	return nil, Format{}, fmt.Errorf("wav has no data chunk")
}

// ParseL16MimeType reads the sample rate and bit depth from a raw PCM MIME
// type such as "audio/L16;codec=pcm;rate=24000". Missing values default to
// 16-bit, 24 kHz mono.
func ParseL16MimeType(mime string) Format {
	f := Format{SampleRate: 24000, Channels: 1, BitsPerSample: 16}
	for _, param := range strings.Split(mime, ";") {
		param = strings.TrimSpace(param)
		lower := strings.ToLower(param)
		switch {
		case strings.HasPrefix(lower, "rate="):
			if rate, err := strconv.Atoi(param[len("rate="):]); err == nil && rate > 0 {
				f.SampleRate = rate
			}
		case strings.HasPrefix(lower, "channels="):
			if ch, err := strconv.Atoi(param[len("channels="):]); err == nil && ch > 0 {
				f.Channels = ch
			}
		case strings.HasPrefix(lower, "audio/l"):
			if bits, err := strconv.Atoi(param[len("audio/l"):]); err == nil && bits > 0 {
				f.BitsPerSample = bits
			}
		}
	}
	return f
}
