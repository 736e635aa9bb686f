// voicebox-check is the hardware self-test: it meters microphone levels
// for a few seconds and can dump the capture to a wav file for offline
// inspection.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/gordonklaus/portaudio"
	cli "github.com/spf13/pflag"

	vbaudio "voicebox/internal/audio"
	"voicebox/pkg/audioconv"
)

func main() {
	seconds := cli.IntP("seconds", "n", 3, "How long to record")
	out := cli.StringP("out", "o", "", "Optional wav dump path")
	cli.Parse()

	if err := run(*seconds, *out); err != nil {
		fmt.Fprintln(os.Stderr, "check failed:", err)
		os.Exit(1)
	}
}

func run(seconds int, out string) error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("init portaudio: %w", err)
	}
	defer portaudio.Terminate()

	buf := make([]int16, vbaudio.FrameSize)
	stream, err := portaudio.OpenDefaultStream(1, 0, float64(vbaudio.SampleRate), len(buf), buf)
	if err != nil {
		return fmt.Errorf("open input stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("start input stream: %w", err)
	}
	defer stream.Stop()

	frames := seconds * vbaudio.SampleRate / vbaudio.FrameSize
	var recorded []int16

	fmt.Printf("recording %ds from the default input device...\n", seconds)
	for i := 0; i < frames; i++ {
		if err := stream.Read(); err != nil {
			if err == portaudio.InputOverflowed {
				continue
			}
			return fmt.Errorf("read input stream: %w", err)
		}

		rms := audioconv.RMS(audioconv.Int16ToFloat32(buf))
		elapsed := time.Duration(i) * vbaudio.FrameDuration
		fmt.Printf("  %5.2fs  level %.4f %s\n", elapsed.Seconds(), rms, bar(rms))

		if out != "" {
			recorded = append(recorded, buf...)
		}
	}

	if out == "" {
		return nil
	}
	return writeWav(out, recorded)
}

func bar(rms float64) string {
	n := int(rms * 400)
	if n > 40 {
		n = 40
	}
	b := make([]byte, n)
	for i := range b {
		b[i] = '#'
	}
	return string(b)
}

func writeWav(path string, samples []int16) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := wav.NewEncoder(f, vbaudio.SampleRate, 16, 1, 1)

	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(s)
	}
	if err := enc.Write(&audio.IntBuffer{
		Data:           data,
		Format:         &audio.Format{NumChannels: 1, SampleRate: vbaudio.SampleRate},
		SourceBitDepth: 16,
	}); err != nil {
		return fmt.Errorf("write wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("close wav: %w", err)
	}

	fmt.Println("wrote", path)
	return nil
}
