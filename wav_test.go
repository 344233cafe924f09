package dawg

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWavRoundTrip(t *testing.T) {
	buf := make(AudioBuffer, 256)
	for i := range buf {
		v := float32(math.Sin(2 * math.Pi * float64(i) / 64))
		buf[i] = [2]float32{v, -v}
	}
	data, err := buf.Wav(44100)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("RIFF")))
	assert.Contains(t, string(data[:12]), "WAVE")

	decoded, err := LoadWav(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 44100, decoded.SampleRate)
	require.Len(t, decoded.Samples, 256)
	for i := range buf {
		assert.InDelta(t, float64(buf[i][0]), float64(decoded.Samples[i][0]), 1e-4)
		assert.InDelta(t, float64(buf[i][1]), float64(decoded.Samples[i][1]), 1e-4)
	}
}

func TestWavClipping(t *testing.T) {
	buf := AudioBuffer{{2.0, -2.0}}
	data, err := buf.Wav(48000)
	require.NoError(t, err)
	decoded, err := LoadWav(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, decoded.Samples, 1)
	assert.InDelta(t, 1.0, float64(decoded.Samples[0][0]), 1e-4)
	assert.InDelta(t, -1.0, float64(decoded.Samples[0][1]), 1e-4)
}

func TestLoadWavInvalid(t *testing.T) {
	_, err := LoadWav(bytes.NewReader([]byte("not a wav file at all")))
	require.Error(t, err)
}
