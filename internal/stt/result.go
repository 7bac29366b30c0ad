package stt

// Result represents the result of a batch transcription call.
type Result struct {
	Transcript string      // The full transcribed text
	Confidence float64     // Confidence score (0.0-1.0), may be 0 if not provided
	Provider   string      // The provider used (e.g., "whisper")
	Utterances []Utterance // Provider utterance boundaries, empty when not reported
}

// Utterance is one provider-reported utterance span within a batch result.
type Utterance struct {
	Text       string
	Speaker    int // diarization label, -1 when absent
	Confidence float64
	Start      float64 // seconds from the beginning of the audio
	End        float64
}
