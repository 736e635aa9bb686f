package stt

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	vosk "github.com/alphacep/vosk-api/go"
)

// Vosk wraps a Kaldi streaming recognizer. It is the default engine: it
// produces partial hypotheses per frame and a final transcript at each
// detected utterance boundary.
type Vosk struct {
	model   *vosk.VoskModel
	rec     *vosk.VoskRecognizer
	minConf float64

	lastPartial string
}

type voskFinal struct {
	Text   string `json:"text"`
	Result []struct {
		Conf float64 `json:"conf"`
		Word string  `json:"word"`
	} `json:"result"`
}

type voskPartial struct {
	Partial string `json:"partial"`
}

// NewVosk loads the model from modelPath. minConf is the mean per-word
// confidence below which a final transcript is discarded.
func NewVosk(modelPath string, minConf float64) (*Vosk, error) {
	if modelPath == "" {
		return nil, errors.New("empty model path")
	}

	vosk.SetLogLevel(-1)

	model, err := vosk.NewModel(modelPath)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}

	rec, err := vosk.NewRecognizer(model, float64(SampleRate))
	if err != nil {
		model.Free()
		return nil, fmt.Errorf("new recognizer: %w", err)
	}
	rec.SetWords(1)

	return &Vosk{model: model, rec: rec, minConf: minConf}, nil
}

func (v *Vosk) Accept(pcm []byte) (Result, bool, error) {
	if len(pcm) == 0 {
		return Result{}, false, nil
	}

	if v.rec.AcceptWaveform(pcm) != 0 {
		var res voskFinal
		if err := json.Unmarshal([]byte(v.rec.Result()), &res); err != nil {
			return Result{}, false, fmt.Errorf("parse result: %w", err)
		}
		v.lastPartial = ""

		text := strings.TrimSpace(res.Text)
		if text == "" || v.confidence(res) < v.minConf {
			return Result{}, false, nil
		}
		return Result{Text: text, Final: true}, true, nil
	}

	var part voskPartial
	if err := json.Unmarshal([]byte(v.rec.PartialResult()), &part); err != nil {
		return Result{}, false, fmt.Errorf("parse partial: %w", err)
	}

	text := strings.TrimSpace(part.Partial)
	if text == "" || text == v.lastPartial {
		return Result{}, false, nil
	}
	v.lastPartial = text
	return Result{Text: text, Final: false}, true, nil
}

func (v *Vosk) confidence(res voskFinal) float64 {
	if len(res.Result) == 0 {
		// Older models omit per-word confidences; treat as acceptable.
		return 1
	}
	var sum float64
	for _, w := range res.Result {
		sum += w.Conf
	}
	return sum / float64(len(res.Result))
}

func (v *Vosk) Reset() {
	v.rec.Reset()
	v.lastPartial = ""
}

func (v *Vosk) Close() error {
	if v.rec != nil {
		v.rec.Free()
		v.rec = nil
	}
	if v.model != nil {
		v.model.Free()
		v.model = nil
	}
	return nil
}
