package dawg

import (
	"bytes"
	"fmt"
	"io"
	"math"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Wav encodes the buffer as a 16-bit PCM RIFF/WAVE file at the given sample
// rate. The buffer is stereo; numChannels of the output follows the buffer.
func (b AudioBuffer) Wav(sampleRate int) ([]byte, error) {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	var seekBuf writeSeekBuffer
	enc := wav.NewEncoder(&seekBuf, sampleRate, 16, 2, 1)
	data := make([]int, len(b)*2)
	for i, frame := range b {
		data[i*2] = clampInt16(frame[0])
		data[i*2+1] = clampInt16(frame[1])
	}
	intBuf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 2, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(intBuf); err != nil {
		return nil, fmt.Errorf("encoding wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("closing wav encoder: %w", err)
	}
	return seekBuf.Bytes(), nil
}

// LoadWav decodes a RIFF/WAVE file into AudioData, upmixing mono to stereo.
func LoadWav(r io.ReadSeeker) (*AudioData, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("invalid wav file")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("reading wav data: %w", err)
	}
	if buf == nil || len(buf.Data) == 0 {
		return nil, fmt.Errorf("empty wav file")
	}
	scale := float32(1.0)
	if dec.BitDepth > 0 {
		scale = 1 / float32(int(1)<<(dec.BitDepth-1))
	}
	channels := buf.Format.NumChannels
	frames := len(buf.Data) / channels
	samples := make(AudioBuffer, frames)
	for i := 0; i < frames; i++ {
		l := float32(buf.Data[i*channels]) * scale
		r := l
		if channels > 1 {
			r = float32(buf.Data[i*channels+1]) * scale
		}
		samples[i] = [2]float32{l, r}
	}
	return &AudioData{SampleRate: buf.Format.SampleRate, Samples: samples}, nil
}

func clampInt16(v float32) int {
	s := int(v * math.MaxInt16)
	if s > math.MaxInt16 {
		return math.MaxInt16
	}
	if s < math.MinInt16 {
		return math.MinInt16
	}
	return s
}

// writeSeekBuffer adapts a bytes.Buffer-like in-memory byte slice to the
// io.WriteSeeker the wav encoder needs for patching chunk sizes.
type writeSeekBuffer struct {
	buf []byte
	pos int
}

func (w *writeSeekBuffer) Write(p []byte) (int, error) {
	if grow := w.pos + len(p) - len(w.buf); grow > 0 {
		w.buf = append(w.buf, make([]byte, grow)...)
	}
	copy(w.buf[w.pos:], p)
	w.pos += len(p)
	return len(p), nil
}

func (w *writeSeekBuffer) Seek(offset int64, whence int) (int64, error) {
	var pos int
	switch whence {
	case io.SeekStart:
		pos = int(offset)
	case io.SeekCurrent:
		pos = w.pos + int(offset)
	case io.SeekEnd:
		pos = len(w.buf) + int(offset)
	default:
		return 0, fmt.Errorf("invalid whence %d", whence)
	}
	if pos < 0 {
		return 0, fmt.Errorf("negative seek position")
	}
	w.pos = pos
	return int64(pos), nil
}

func (w *writeSeekBuffer) Bytes() []byte {
	return bytes.Clone(w.buf)
}
