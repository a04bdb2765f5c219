package protocol

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"strings"
)

// encodeWindowSamples bounds how many samples are converted and fed to the
// base64 encoder per pass, keeping allocations flat for large frames.
const encodeWindowSamples = 32768

// EncodePCM16 serializes samples as little-endian 16-bit PCM and encodes the
// result with standard base64.
func EncodePCM16(samples []int16) string {
	var sb strings.Builder
	sb.Grow(base64.StdEncoding.EncodedLen(len(samples) * 2))
	enc := base64.NewEncoder(base64.StdEncoding, &sb)
	window := make([]byte, encodeWindowSamples*2)
	for len(samples) > 0 {
		n := len(samples)
		if n > encodeWindowSamples {
			n = encodeWindowSamples
		}
		for i, sample := range samples[:n] {
			binary.LittleEndian.PutUint16(window[i*2:], uint16(sample))
		}
		enc.Write(window[:n*2])
		samples = samples[n:]
	}
	enc.Close()
	return sb.String()
}

// DecodePCM16 reverses EncodePCM16, returning the samples carried by one
// base64 audio payload.
func DecodePCM16(encoded string) ([]int16, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("invalid audio payload: %w", err)
	}
	if len(raw)%2 != 0 {
		return nil, fmt.Errorf("invalid audio payload: odd byte length %d", len(raw))
	}
	samples := make([]int16, len(raw)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(raw[i*2:]))
	}
	return samples, nil
}

// DecodeClipPayload decodes the base64 body of a complete audio clip.
func DecodeClipPayload(encoded string) ([]byte, error) {
	clip, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("invalid clip payload: %w", err)
	}
	return clip, nil
}
