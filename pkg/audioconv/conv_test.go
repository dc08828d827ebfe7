package audioconv

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeWAV(t *testing.T, path string, rate, channels int, data []int) {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	enc := wav.NewEncoder(f, rate, 16, channels, 1)
	require.NoError(t, enc.Write(&audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: rate},
		Data:           data,
		SourceBitDepth: 16,
	}))
	require.NoError(t, enc.Close())
}

func TestConvertFileToPCM16k_WAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "note.wav")
	writeWAV(t, path, 8000, 1, []int{0, 16384, -16384, 0})

	pcm, err := ConvertFileToPCM16k(context.Background(), path, Options{})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float32{0, 0.25, 0.5, 0, -0.5, -0.25, 0, 0}, pcm, 1e-6)

	pcm, err = ConvertFileToPCM16k(context.Background(), path, Options{MaxSamples: 3})
	require.NoError(t, err)
	assert.Len(t, pcm, 3)
}

func TestConvertFileToPCM16k_SniffsUnknownExtension(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "note.bin")
	writeWAV(t, path, 16000, 2, []int{16384, 0, -16384, 0})

	pcm, err := ConvertFileToPCM16k(context.Background(), path, Options{})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float32{0.25, -0.25}, pcm, 1e-6)

	junk := filepath.Join(dir, "note.txt")
	require.NoError(t, os.WriteFile(junk, []byte("bonjour"), 0o600))
	_, err = ConvertFileToPCM16k(context.Background(), junk, Options{})
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestConvertFileToPCM16k_Missing(t *testing.T) {
	_, err := ConvertFileToPCM16k(context.Background(), filepath.Join(t.TempDir(), "none.wav"), Options{})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDownmixInterleaved(t *testing.T) {
	assert.Equal(t, []float32{0.5, -1}, downmixInterleaved([]float32{1, 0, -1, -1}, 2))

	mono := []float32{0.1, 0.2}
	assert.Equal(t, mono, downmixInterleaved(mono, 1))
}

func TestResampleLinear(t *testing.T) {
	in := []float32{0, 1, 0, -1}
	assert.Equal(t, in, resampleLinear(in, 16000, 16000))
	assert.Equal(t, []float32{0, -1}, resampleLinear(in, 48000, 16000))
	assert.Empty(t, resampleLinear(nil, 8000, 16000))
}
