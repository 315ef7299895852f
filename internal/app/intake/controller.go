// Package intake drives the fixed six-question patient interview.
//
// All functions are pure: they take a domain.SessionState and return a new
// one, so callers own where the state lives between turns.
package intake

import (
	"strings"

	"github.com/PabloGalante/medibot/internal/domain"
)

const (
	Greeting          = "Hello! I'll help analyze your health concern through a few key questions."
	CompletionMessage = "Thank you for providing all details. Generating analysis..."
)

var questions = map[domain.Field]string{
	domain.FieldAge:             "What is your age?",
	domain.FieldGender:          "What is your gender?",
	domain.FieldPrimarySymptom:  "What are your main symptoms? Please describe in detail.",
	domain.FieldSymptomDuration: "How long have you had these symptoms?",
	domain.FieldSeverity:        "On a scale of 1-10, how severe are your symptoms?",
	domain.FieldMedicalHistory:  "Do you have any existing medical conditions?",
}

// NewState returns the initial state: an empty record and the two seed
// System messages.
func NewState() domain.SessionState {
	first, _ := NextQuestion(domain.PatientRecord{})
	return domain.SessionState{
		Transcript: []domain.TranscriptEntry{
			{Role: domain.RoleSystem, Text: Greeting},
			{Role: domain.RoleSystem, Text: first},
		},
	}
}

// NextQuestion returns the question for the first unset field. When every
// field is set it returns CompletionMessage and done=true.
func NextQuestion(rec domain.PatientRecord) (question string, done bool) {
	f, ok := rec.NextUnset()
	if !ok {
		return CompletionMessage, true
	}
	return questions[f], false
}

// TranscriptLen is the number of transcript entries a session holding rec
// has: the two seed messages plus one question/answer pair per filled field.
func TranscriptLen(rec domain.PatientRecord) int {
	return 2 + 2*rec.Filled()
}

// Submit stores text as the answer to the next question.
//
// Blank text returns domain.ErrBlankInput and a complete state returns
// domain.ErrSessionComplete; in both cases state is returned unchanged.
// Otherwise one Patient entry and one System follow-up are appended.
func Submit(state domain.SessionState, text string) (domain.SessionState, string, error) {
	if strings.TrimSpace(text) == "" {
		return state, "", domain.ErrBlankInput
	}
	if state.Complete {
		return state, "", domain.ErrSessionComplete
	}

	rec, _, err := state.Record.Fill(text)
	if err != nil {
		return state, "", err
	}
	next, done := NextQuestion(rec)

	transcript := make([]domain.TranscriptEntry, len(state.Transcript), len(state.Transcript)+2)
	copy(transcript, state.Transcript)
	transcript = append(transcript,
		domain.TranscriptEntry{Role: domain.RolePatient, Text: text},
		domain.TranscriptEntry{Role: domain.RoleSystem, Text: next},
	)

	return domain.SessionState{
		Record:     rec,
		Transcript: transcript,
		Complete:   done,
	}, next, nil
}
