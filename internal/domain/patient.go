package domain

import "fmt"

// Field names one slot of the intake questionnaire.
type Field string

const (
	FieldAge             Field = "age"
	FieldGender          Field = "gender"
	FieldPrimarySymptom  Field = "primary_symptom"
	FieldSymptomDuration Field = "symptom_duration"
	FieldSeverity        Field = "severity"
	FieldMedicalHistory  Field = "medical_history"
)

// FieldOrder is the fixed order in which fields are asked and filled.
var FieldOrder = []Field{
	FieldAge,
	FieldGender,
	FieldPrimarySymptom,
	FieldSymptomDuration,
	FieldSeverity,
	FieldMedicalHistory,
}

var fieldLabels = map[Field]string{
	FieldAge:             "Age",
	FieldGender:          "Gender",
	FieldPrimarySymptom:  "Primary symptom",
	FieldSymptomDuration: "Symptom duration",
	FieldSeverity:        "Severity",
	FieldMedicalHistory:  "Medical history",
}

// Label is the human readable name of the field.
func (f Field) Label() string {
	if l, ok := fieldLabels[f]; ok {
		return l
	}
	return string(f)
}

// PatientRecord holds the six answers collected during a session.
// A nil field is unset. Fields are only ever set in FieldOrder and are
// never changed once set; use Fill to produce the next record.
type PatientRecord struct {
	Age             *string `json:"age"`
	Gender          *string `json:"gender"`
	PrimarySymptom  *string `json:"primary_symptom"`
	SymptomDuration *string `json:"symptom_duration"`
	Severity        *string `json:"severity"`
	MedicalHistory  *string `json:"medical_history"`
}

func (r *PatientRecord) slot(f Field) **string {
	switch f {
	case FieldAge:
		return &r.Age
	case FieldGender:
		return &r.Gender
	case FieldPrimarySymptom:
		return &r.PrimarySymptom
	case FieldSymptomDuration:
		return &r.SymptomDuration
	case FieldSeverity:
		return &r.Severity
	case FieldMedicalHistory:
		return &r.MedicalHistory
	}
	return nil
}

// Value returns the answer stored for f and whether it is set.
func (r PatientRecord) Value(f Field) (string, bool) {
	p := r.slot(f)
	if p == nil || *p == nil {
		return "", false
	}
	return **p, true
}

// NextUnset returns the first field in FieldOrder that has no value yet.
func (r PatientRecord) NextUnset() (Field, bool) {
	for _, f := range FieldOrder {
		if _, ok := r.Value(f); !ok {
			return f, true
		}
	}
	return "", false
}

// Filled counts the set fields.
func (r PatientRecord) Filled() int {
	n := 0
	for _, f := range FieldOrder {
		if _, ok := r.Value(f); ok {
			n++
		}
	}
	return n
}

func (r PatientRecord) Complete() bool {
	return r.Filled() == len(FieldOrder)
}

// Fill returns a copy of r with value written into the next unset field.
func (r PatientRecord) Fill(value string) (PatientRecord, Field, error) {
	f, ok := r.NextUnset()
	if !ok {
		return r, "", ErrSessionComplete
	}
	v := value
	*r.slot(f) = &v
	return r, f, nil
}

// Validate checks that the set fields form a prefix of FieldOrder.
// Records read back from storage go through it.
func (r PatientRecord) Validate() error {
	gap := false
	for _, f := range FieldOrder {
		_, ok := r.Value(f)
		if !ok {
			gap = true
			continue
		}
		if gap {
			return fmt.Errorf("%w: %s set after an unset field", ErrCorruptRecord, f)
		}
	}
	return nil
}
