//go:build opus

package audioconv

import (
	"io"

	popus "github.com/pekim/opus"
)

// Opus always decodes at 48 kHz.
const opusRate = 48000

func decodeOpus(r io.ReadSeeker) ([]float32, int, error) {
	dec, err := popus.NewDecoder(r)
	if err != nil {
		return nil, 0, err
	}
	defer dec.Destroy()

	channels := max(dec.ChannelCount(), 1)

	var (
		pcm []float32
		buf = make([]int16, opusRate*channels/2)
	)
	for {
		n, err := dec.Read(buf)
		if n > 0 {
			pcm = append(pcm, int16SliceToFloat32(buf[:n*channels])...)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, err
		}
	}

	return downmixInterleaved(pcm, channels), opusRate, nil
}
