package audio

import (
	"encoding/binary"
	"fmt"
	"time"
)

// Normalize converts PCM in format from to 16-bit PCM with the target sample
// rate and channel count. Input already in the target format is returned
// unchanged.
func Normalize(pcm []byte, from Format, rate, channels int) ([]byte, error) {
	if from.SampleRate <= 0 || from.Channels <= 0 {
		return nil, fmt.Errorf("invalid source format %+v", from)
	}
	if rate <= 0 || channels <= 0 {
		return nil, fmt.Errorf("invalid target format rate=%d channels=%d", rate, channels)
	}
	if channels > 2 {
		return nil, fmt.Errorf("unsupported target channel count %d", channels)
	}
	if from.BitsPerSample == 16 && from.SampleRate == rate && from.Channels == channels {
		if len(pcm)%from.BytesPerFrame() != 0 {
			return nil, fmt.Errorf("pcm length %d is not a whole number of frames", len(pcm))
		}
		return pcm, nil
	}

	frames, err := toFrames(pcm, from)
	if err != nil {
		return nil, err
	}
	frames = remix(frames, from.Channels, channels)
	frames = resample(frames, channels, from.SampleRate, rate)
	return fromFrames(frames), nil
}

// toFrames decodes PCM into int16 samples, interleaved by channel.
func toFrames(pcm []byte, f Format) ([]int16, error) {
	switch f.BitsPerSample {
	case 8:
		if len(pcm)%f.Channels != 0 {
			return nil, fmt.Errorf("pcm length %d is not a whole number of frames", len(pcm))
		}
		out := make([]int16, len(pcm))
		for i, b := range pcm {
			out[i] = (int16(b) - 128) << 8 // 8-bit wav is unsigned
		}
		return out, nil
	case 16:
		if len(pcm)%(2*f.Channels) != 0 {
			return nil, fmt.Errorf("pcm length %d is not a whole number of frames", len(pcm))
		}
		out := make([]int16, len(pcm)/2)
		for i := range out {
			out[i] = int16(binary.LittleEndian.Uint16(pcm[2*i:]))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported bit depth %d", f.BitsPerSample)
	}
}

func fromFrames(samples []int16) []byte {
	out := make([]byte, 2*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(s))
	}
	return out
}

// remix converts between mono and stereo. Other source layouts keep their
// first channel(s).
func remix(samples []int16, from, to int) []int16 {
	if from == to {
		return samples
	}
	n := len(samples) / from
	out := make([]int16, n*to)
	for i := 0; i < n; i++ {
		frame := samples[i*from : (i+1)*from]
		if to == 1 {
			var sum int
			for _, s := range frame {
				sum += int(s)
			}
			out[i] = int16(sum / from)
			continue
		}
		for c := 0; c < to; c++ {
			if c < from {
				out[i*to+c] = frame[c]
			} else {
				out[i*to+c] = frame[0]
			}
		}
	}
	return out
}

// resample changes the sample rate by linear interpolation.
func resample(samples []int16, channels, from, to int) []int16 {
	if from == to || len(samples) == 0 {
		return samples
	}
	inFrames := len(samples) / channels
	outFrames := int(int64(inFrames) * int64(to) / int64(from))
	out := make([]int16, outFrames*channels)

	step := float64(from) / float64(to)
	for i := 0; i < outFrames; i++ {
		pos := float64(i) * step
		j := int(pos)
		frac := pos - float64(j)
		for c := 0; c < channels; c++ {
			a := float64(samples[j*channels+c])
			b := a
			if j+1 < inFrames {
				b = float64(samples[(j+1)*channels+c])
			}
			out[i*channels+c] = int16(a + (b-a)*frac)
		}
	}
	return out
}

// Silence returns d worth of zeroed 16-bit PCM.
func Silence(d time.Duration, rate, channels int) []byte {
	if d <= 0 {
		return nil
	}
	frames := int(int64(d) * int64(rate) / int64(time.Second))
	return make([]byte, frames*channels*2)
}
