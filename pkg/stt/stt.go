// Package stt abstracts the speech-recognition engines behind a single
// streaming interface. The daemon feeds fixed-size mono 16 kHz 16-bit PCM
// frames and gets back partial hypotheses and committed transcripts.
package stt

// Result is one recognizer emission. Partial results are transient hints
// and may be revised; final results are committed parses.
type Result struct {
	Text  string
	Final bool
}

// Recognizer is a stateful streaming recognizer.
//
// Accept consumes exactly one PCM frame (little-endian int16, mono,
// 16 kHz). The second return value is false when the engine needs more
// audio before it has anything to say. Reset drops all internal utterance
// state so audio from before the reset can never influence later results.
type Recognizer interface {
	Accept(pcm []byte) (Result, bool, error)
	Reset()
	Close() error
}

// SampleRate is the only rate the engines are configured for.
const SampleRate = 16000
