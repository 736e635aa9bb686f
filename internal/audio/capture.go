// Package audio owns the microphone. One goroutine blocks on the input
// stream and hands fixed-duration frames to a sink; all recognizer state
// lives on the consumer side.
package audio

import (
	"context"
	"fmt"
	"time"

	"github.com/gordonklaus/portaudio"

	"voicebox/pkg/audioconv"
)

const (
	SampleRate = 16000
	// 2000 samples @ 16 kHz = 125 ms per frame.
	FrameSize = 2000
)

func Init() error { return portaudio.Initialize() }
func Terminate()  { portaudio.Terminate() }

// Capture reads mono int16 frames from the default input device. Frames
// are copied before hand-off; the sink owns its bytes.
type Capture struct {
	sink func([]byte)
}

func NewCapture(sink func([]byte)) *Capture {
	return &Capture{sink: sink}
}

// Run blocks until ctx is cancelled or the device fails. Open failure is
// the caller's startup problem; a read failure mid-run is returned so the
// owner can decide whether the kiosk survives without ears.
func (c *Capture) Run(ctx context.Context) error {
	buf := make([]int16, FrameSize)

	stream, err := portaudio.OpenDefaultStream(1, 0, float64(SampleRate), len(buf), buf)
	if err != nil {
		return fmt.Errorf("open input stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("start input stream: %w", err)
	}
	defer stream.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := stream.Read(); err != nil {
			// An overflow just loses one frame; anything else is the
			// device going away.
			if err == portaudio.InputOverflowed {
				continue
			}
			return fmt.Errorf("read input stream: %w", err)
		}
		c.sink(audioconv.Int16ToBytes(buf))
	}
}

// FrameDuration is how much wall-clock audio one frame carries.
const FrameDuration = time.Duration(FrameSize) * time.Second / SampleRate

// Verify opens and closes the default input stream. Called at startup so
// an unusable audio device fails the process instead of a goroutine.
func Verify() error {
	buf := make([]int16, FrameSize)
	stream, err := portaudio.OpenDefaultStream(1, 0, float64(SampleRate), len(buf), buf)
	if err != nil {
		return fmt.Errorf("open input stream: %w", err)
	}
	return stream.Close()
}
