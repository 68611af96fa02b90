// Package speech implements the STT Adapter (C3) and TTS Adapter (C4):
// thin, circuit-breaker-wrapped HTTP clients over configured
// speech-recognition and speech-synthesis endpoints.
package speech

// TranscriptionResult is the outcome of a successful Recognise call.
type TranscriptionResult struct {
	Text string
}

// SynthesisResult is the outcome of a successful Synthesise call.
type SynthesisResult struct {
	AudioContent []byte
}
