// Package audioconv holds the sample-format plumbing between the capture
// stream (int16 @ 16 kHz) and whatever a consumer wants: raw little-endian
// bytes for the recognizer, float32 for whisper and level metering.
package audioconv

import (
	"encoding/binary"
	"math"
)

// Int16ToBytes encodes samples as little-endian PCM, the wire format the
// streaming recognizer consumes.
func Int16ToBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

func BytesToInt16(data []byte) []int16 {
	out := make([]int16, len(data)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return out
}

func Int16ToFloat32(samples []int16) []float32 {
	out := make([]float32, len(samples))
	const scale = 1.0 / 32768.0
	for i, s := range samples {
		out[i] = float32(float64(s) * scale)
	}
	return out
}

// BytesToFloat32 is the composed hop used by the whisper adapter, which
// receives capture frames already flattened to bytes.
func BytesToFloat32(data []byte) []float32 {
	return Int16ToFloat32(BytesToInt16(data))
}

// RMS reports the root-mean-square energy of a frame, used for speech
// endpointing and the microphone self-test.
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var s float64
	for _, x := range samples {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s / float64(len(samples)))
}
