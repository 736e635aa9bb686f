package stt

import (
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"voicebox/pkg/audioconv"
)

// Whisper adapts the batch whisper.cpp transcriber to the streaming
// Recognizer interface: frames are buffered while speech energy is
// present and flushed to a one-shot transcription once the speaker goes
// quiet. It emits finals only, never partial hypotheses.
type Whisper struct {
	model whisper.Model
	lang  string

	buf          []float32
	speaking     bool
	silentFrames int
}

const (
	speechRMSThreshold = 0.015
	// A capture frame is 125 ms, so 5 silent frames ≈ 625 ms of
	// trailing silence before the utterance is considered done.
	endpointSilentFrames = 5
	maxUtteranceSamples  = 10 * SampleRate
)

func NewWhisper(modelPath, lang string) (*Whisper, error) {
	if modelPath == "" {
		return nil, errors.New("empty model path")
	}
	if lang == "" {
		lang = "en"
	}

	m, err := whisper.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	return &Whisper{model: m, lang: lang}, nil
}

func (w *Whisper) Accept(pcm []byte) (Result, bool, error) {
	samples := audioconv.BytesToFloat32(pcm)
	if len(samples) == 0 {
		return Result{}, false, nil
	}

	rms := audioconv.RMS(samples)
	switch {
	case rms > speechRMSThreshold:
		w.speaking = true
		w.silentFrames = 0
		w.buf = append(w.buf, samples...)
	case w.speaking:
		w.silentFrames++
		w.buf = append(w.buf, samples...)
	default:
		return Result{}, false, nil
	}

	if w.silentFrames < endpointSilentFrames && len(w.buf) < maxUtteranceSamples {
		return Result{}, false, nil
	}

	text, err := w.flush()
	if err != nil {
		return Result{}, false, err
	}
	if text == "" {
		return Result{}, false, nil
	}
	return Result{Text: text, Final: true}, true, nil
}

func (w *Whisper) flush() (string, error) {
	buf := w.buf
	w.Reset()

	wctx, err := w.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("new context: %w", err)
	}
	if err := wctx.SetLanguage(w.lang); err != nil {
		return "", fmt.Errorf("set language: %w", err)
	}
	wctx.SetThreads(uint(runtime.NumCPU()))

	if err := wctx.Process(buf, nil, nil, nil); err != nil {
		return "", fmt.Errorf("process: %w", err)
	}

	var parts []string
	for {
		seg, err := wctx.NextSegment()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("next segment: %w", err)
		}
		parts = append(parts, strings.TrimSpace(seg.Text))
	}
	return strings.TrimSpace(strings.Join(parts, " ")), nil
}

func (w *Whisper) Reset() {
	w.buf = nil
	w.speaking = false
	w.silentFrames = 0
}

func (w *Whisper) Close() error {
	if w.model == nil {
		return nil
	}
	err := w.model.Close()
	w.model = nil
	return err
}
