package transcription

import (
	"regexp"
	"strings"

	"scribe/internal/model"
)

// Heuristic clinical entity extraction: medications with dosage units,
// vital-sign mentions, symptom keywords. This is an annotation aid, not a
// clinical-grade NER system; returning nothing is never an error.

var (
	medicationPattern = regexp.MustCompile(`(?i)\b([a-z][a-z-]{2,})\s+(\d+(?:\.\d+)?)\s*(mg|mcg|g|ml|units?|milligrams?)\b`)
	bloodPressure     = regexp.MustCompile(`(?i)\b(?:blood pressure|bp)(?:\s+(?:is|was|of|reads?))?\s+(\d{2,3})\s*(?:/|over)\s*(\d{2,3})\b`)
	heartRate         = regexp.MustCompile(`(?i)\b(?:heart rate|pulse)(?:\s+(?:is|was|of))?\s+(\d{2,3})\b`)
	temperature       = regexp.MustCompile(`(?i)\b(?:temperature|temp)(?:\s+(?:is|was|of))?\s+(\d{2,3}(?:\.\d)?)\b`)
)

var symptomKeywords = []string{
	"headache", "nausea", "dizziness", "fatigue", "fever", "cough",
	"shortness of breath", "chest pain", "sore throat", "vomiting",
	"diarrhea", "rash", "swelling", "palpitations", "numbness",
	"blurred vision", "back pain", "abdominal pain", "insomnia",
}

// ExtractEntities runs the heuristic pass over one utterance.
func ExtractEntities(text string) []model.Entity {
	var entities []model.Entity

	for _, m := range medicationPattern.FindAllStringSubmatch(text, -1) {
		name, dose, unit := m[1], m[2], m[3]
		if isCommonWord(name) {
			continue
		}
		entities = append(entities, model.Entity{
			Type:  "medication",
			Text:  name,
			Value: &dose,
			Unit:  &unit,
		})
	}

	if m := bloodPressure.FindStringSubmatch(text); m != nil {
		value := m[1] + "/" + m[2]
		unit := "mmHg"
		entities = append(entities, model.Entity{
			Type:  "vital_sign",
			Text:  "blood pressure",
			Value: &value,
			Unit:  &unit,
		})
	}
	if m := heartRate.FindStringSubmatch(text); m != nil {
		value := m[1]
		unit := "bpm"
		entities = append(entities, model.Entity{
			Type:  "vital_sign",
			Text:  "heart rate",
			Value: &value,
			Unit:  &unit,
		})
	}
	if m := temperature.FindStringSubmatch(text); m != nil {
		value := m[1]
		unit := "degrees"
		entities = append(entities, model.Entity{
			Type:  "vital_sign",
			Text:  "temperature",
			Value: &value,
			Unit:  &unit,
		})
	}

	lower := strings.ToLower(text)
	for _, symptom := range symptomKeywords {
		if strings.Contains(lower, symptom) {
			entities = append(entities, model.Entity{
				Type: "symptom",
				Text: symptom,
			})
		}
	}

	return entities
}

// isCommonWord filters dose-like phrases that are not medications ("take 2
// ml", "another 5 mg").
func isCommonWord(word string) bool {
	switch strings.ToLower(word) {
	case "take", "takes", "taking", "took", "another", "about", "around",
		"than", "over", "under", "the", "give", "gave", "add", "was", "has":
		return true
	}
	return false
}
