package transcription

import "testing"

func findEntity(t *testing.T, text, entityType, entityText string) (value, unit string, ok bool) {
	t.Helper()
	for _, e := range ExtractEntities(text) {
		if e.Type == entityType && e.Text == entityText {
			if e.Value != nil {
				value = *e.Value
			}
			if e.Unit != nil {
				unit = *e.Unit
			}
			return value, unit, true
		}
	}
	return "", "", false
}

func TestExtractMedicationWithDose(t *testing.T) {
	value, unit, ok := findEntity(t, "I'll prescribe lisinopril 10 mg once daily.", "medication", "lisinopril")
	if !ok {
		t.Fatal("medication not extracted")
	}
	if value != "10" || unit != "mg" {
		t.Errorf("dose = %s %s, want 10 mg", value, unit)
	}

	value, unit, ok = findEntity(t, "She takes metformin 500mg with dinner.", "medication", "metformin")
	if !ok {
		t.Fatal("medication with attached unit not extracted")
	}
	if value != "500" || unit != "mg" {
		t.Errorf("dose = %s %s, want 500 mg", value, unit)
	}
}

func TestCommonWordsAreNotMedications(t *testing.T) {
	for _, text := range []string{
		"Take 2 ml after meals.",
		"Another 5 mg should do it.",
	} {
		for _, e := range ExtractEntities(text) {
			if e.Type == "medication" {
				t.Errorf("%q: extracted %q as a medication", text, e.Text)
			}
		}
	}
}

func TestExtractVitalSigns(t *testing.T) {
	value, unit, ok := findEntity(t, "Your blood pressure is 120 over 80 today.", "vital_sign", "blood pressure")
	if !ok {
		t.Fatal("blood pressure not extracted")
	}
	if value != "120/80" || unit != "mmHg" {
		t.Errorf("bp = %s %s, want 120/80 mmHg", value, unit)
	}

	if _, _, ok := findEntity(t, "BP 135/90 at rest.", "vital_sign", "blood pressure"); !ok {
		t.Error("slash form not extracted")
	}

	value, unit, ok = findEntity(t, "Heart rate was 72 and regular.", "vital_sign", "heart rate")
	if !ok {
		t.Fatal("heart rate not extracted")
	}
	if value != "72" || unit != "bpm" {
		t.Errorf("hr = %s %s, want 72 bpm", value, unit)
	}

	value, unit, ok = findEntity(t, "Temperature is 101.3 this morning.", "vital_sign", "temperature")
	if !ok {
		t.Fatal("temperature not extracted")
	}
	if value != "101.3" || unit != "degrees" {
		t.Errorf("temp = %s %s, want 101.3 degrees", value, unit)
	}
}

func TestExtractSymptoms(t *testing.T) {
	entities := ExtractEntities("I've had a headache and some nausea, plus shortness of breath climbing stairs.")

	want := map[string]bool{"headache": false, "nausea": false, "shortness of breath": false}
	for _, e := range entities {
		if e.Type == "symptom" {
			want[e.Text] = true
		}
	}
	for symptom, found := range want {
		if !found {
			t.Errorf("symptom %q not extracted", symptom)
		}
	}
}

func TestNoEntitiesInPlainText(t *testing.T) {
	if got := ExtractEntities("Thanks for coming in today, see you next month."); len(got) != 0 {
		t.Errorf("extracted %+v from plain text, want none", got)
	}
}
