package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/hajimehoshi/go-mp3"
)

// clipChannels is fixed by the decoder; go-mp3 always emits 16-bit stereo.
const clipChannels = 2

// DecodeClip decodes one complete MP3 clip into interleaved PCM16 samples.
func DecodeClip(clip []byte) (samples []int16, sampleRate int, channels int, err error) {
	decoder, err := mp3.NewDecoder(bytes.NewReader(clip))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("decode clip: %w", err)
	}
	raw, err := io.ReadAll(decoder)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("decode clip: %w", err)
	}
	if len(raw)%2 != 0 {
		raw = raw[:len(raw)-1]
	}
	samples = make([]int16, len(raw)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(raw[i*2:]))
	}
	return samples, decoder.SampleRate(), clipChannels, nil
}
