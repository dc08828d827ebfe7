// Package audioconv decodes recorded voice notes into the mono 16 kHz float32
// PCM expected by the recognizer.
package audioconv

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
)

const TargetRate = 16000

var ErrUnsupported = errors.New("unsupported audio format")

type Options struct {
	// MaxSamples truncates the output; 0 keeps everything.
	MaxSamples int
}

// ConvertFileToPCM16k picks a decoder from the file extension, or from the
// magic bytes when the extension is unknown.
func ConvertFileToPCM16k(ctx context.Context, path string, opt Options) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if format != "wav" && format != "mp3" && format != "ogg" && format != "oga" && format != "opus" {
		magic, _ := bufio.NewReader(f).Peek(4)
		switch string(magic) {
		case "RIFF":
			format = "wav"
		case "OggS":
			format = "ogg"
		default:
			return nil, fmt.Errorf("%w: %s", ErrUnsupported, filepath.Base(path))
		}
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		pcm  []float32
		rate int
	)
	switch format {
	case "wav":
		pcm, rate, err = decodeWAV(f)
	case "mp3":
		pcm, rate, err = decodeMP3(f)
	case "opus":
		pcm, rate, err = decodeOpus(f)
	default:
		pcm, rate, err = decodeOgg(f)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", format, err)
	}

	pcm = resampleLinear(pcm, rate, TargetRate)
	if opt.MaxSamples > 0 && len(pcm) > opt.MaxSamples {
		pcm = pcm[:opt.MaxSamples]
	}
	return pcm, nil
}

// decodeOgg tries Vorbis first, then Opus.
func decodeOgg(r io.ReadSeeker) ([]float32, int, error) {
	pcm, rate, err := decodeVorbis(r)
	if err == nil {
		return pcm, rate, nil
	}

	if _, serr := r.Seek(0, io.SeekStart); serr != nil {
		return nil, 0, serr
	}

	pcm, rate, oerr := decodeOpus(r)
	if oerr != nil {
		return nil, 0, fmt.Errorf("neither vorbis (%v) nor opus (%w)", err, oerr)
	}
	return pcm, rate, nil
}

func decodeWAV(r io.ReadSeeker) ([]float32, int, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, 0, errors.New("invalid wav")
	}

	pb, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, err
	}
	if pb == nil || len(pb.Data) == 0 {
		return nil, 0, errors.New("empty wav")
	}

	bitDepth := int(dec.BitDepth)
	if bitDepth == 0 {
		bitDepth = 16
	}

	channels, rate := 1, int(dec.SampleRate)
	if pb.Format != nil {
		channels = max(pb.Format.NumChannels, 1)
		if pb.Format.SampleRate > 0 {
			rate = pb.Format.SampleRate
		}
	}
	if rate <= 0 {
		rate = 44100
	}

	return downmixInterleaved(intSliceToFloat32(pb.Data, bitDepth), channels), rate, nil
}

func decodeMP3(r io.Reader) ([]float32, int, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, 0, err
	}

	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, 0, err
	}

	ints := make([]int16, len(raw)/2)
	if err := binary.Read(bytes.NewReader(raw[:len(ints)*2]), binary.LittleEndian, ints); err != nil {
		return nil, 0, err
	}

	rate := dec.SampleRate()
	if rate <= 0 {
		rate = 44100
	}

	// go-mp3 always produces interleaved stereo.
	return downmixInterleaved(int16SliceToFloat32(ints), 2), rate, nil
}

func decodeVorbis(r io.Reader) ([]float32, int, error) {
	pcm, format, err := oggvorbis.ReadAll(r)
	if err != nil {
		return nil, 0, err
	}
	if format == nil || format.Channels <= 0 || format.SampleRate <= 0 {
		return nil, 0, errors.New("invalid ogg/vorbis stream")
	}
	return downmixInterleaved(pcm, format.Channels), format.SampleRate, nil
}

func intSliceToFloat32(data []int, bitDepth int) []float32 {
	out := make([]float32, len(data))
	scale := 1.0 / float64(int64(1)<<(bitDepth-1))
	for i, v := range data {
		out[i] = float32(clamp(float64(v)*scale, -1, 1))
	}
	return out
}

func int16SliceToFloat32(data []int16) []float32 {
	out := make([]float32, len(data))
	for i, v := range data {
		out[i] = float32(v) / 32768
	}
	return out
}

func downmixInterleaved(in []float32, channels int) []float32 {
	if channels <= 1 {
		return in
	}

	out := make([]float32, len(in)/channels)
	for i := range out {
		var sum float64
		for _, s := range in[i*channels : (i+1)*channels] {
			sum += float64(s)
		}
		out[i] = float32(sum / float64(channels))
	}
	return out
}

func resampleLinear(in []float32, inRate, outRate int) []float32 {
	if inRate == outRate || len(in) == 0 {
		return in
	}

	ratio := float64(outRate) / float64(inRate)
	out := make([]float32, int(math.Ceil(float64(len(in))*ratio)))
	for i := range out {
		src := float64(i) / ratio
		i0 := int(src)
		if i0 >= len(in)-1 {
			out[i] = in[len(in)-1]
			continue
		}
		a := float32(src - float64(i0))
		out[i] = in[i0]*(1-a) + in[i0+1]*a
	}
	return out
}

func clamp(x, lo, hi float64) float64 {
	return min(max(x, lo), hi)
}
