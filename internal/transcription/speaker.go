package transcription

import (
	"strings"
	"sync"
)

// Speaker roles. Diarization labels are mapped to roles by first-seen
// order: whoever speaks first in a clinical encounter is taken to be the
// clinician. A content-pattern classifier overrides that mapping when its
// signal is unambiguous.
const (
	SpeakerClinician = "Clinician"
	SpeakerPatient   = "Patient"
	SpeakerUnknown   = "Unknown"
)

// speakerTracker maps provider diarization labels to fixed roles in the
// order the labels are first seen. One tracker lives per transcription
// session; the provider's read goroutine and the batch path may both reach
// it, hence the lock.
type speakerTracker struct {
	mu    sync.Mutex
	roles map[int]string
}

func newSpeakerTracker() *speakerTracker {
	return &speakerTracker{roles: make(map[int]string)}
}

func (t *speakerTracker) role(label int) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if label < 0 {
		return ""
	}
	if role, ok := t.roles[label]; ok {
		return role
	}
	var role string
	switch len(t.roles) {
	case 0:
		role = SpeakerClinician
	case 1:
		role = SpeakerPatient
	default:
		role = SpeakerUnknown
	}
	t.roles[label] = role
	return role
}

// Attribute resolves the speaker for one utterance. Diarization is the
// primary signal; the content classifier wins only when it is unambiguous
// and conflicts with (or substitutes for) the diarization label.
func (t *speakerTracker) Attribute(label int, text string) string {
	role := t.role(label)
	if byContent := classifySpeakerContent(text); byContent != "" {
		if role == "" || role != byContent {
			return byContent
		}
	}
	if role == "" {
		return SpeakerUnknown
	}
	return role
}

// Phrase heuristics for clinician vs. patient utterances. Matching is
// substring-based on the lowercased text.
var clinicianPhrases = []string{
	"let me examine",
	"let's take a look",
	"i'm going to prescribe",
	"i'll prescribe",
	"i recommend",
	"take this medication",
	"your blood pressure",
	"your test results",
	"the examination shows",
	"any allergies",
	"on a scale of",
	"how long have you",
	"does it hurt when",
	"follow up in",
	"we'll order",
}

var patientPhrases = []string{
	"i've been feeling",
	"i have been feeling",
	"it hurts when",
	"my pain",
	"i can't sleep",
	"i feel",
	"i've had",
	"i noticed",
	"i'm worried",
	"it started",
	"my symptoms",
	"i take",
	"it gets worse",
}

// classifySpeakerContent returns a role when the content signal is
// unambiguous: at least one phrase from exactly one side matches. Anything
// else returns "".
func classifySpeakerContent(text string) string {
	lower := strings.ToLower(text)
	clinician := countMatches(lower, clinicianPhrases)
	patient := countMatches(lower, patientPhrases)
	switch {
	case clinician > 0 && patient == 0:
		return SpeakerClinician
	case patient > 0 && clinician == 0:
		return SpeakerPatient
	default:
		return ""
	}
}

func countMatches(lower string, phrases []string) int {
	n := 0
	for _, p := range phrases {
		if strings.Contains(lower, p) {
			n++
		}
	}
	return n
}
