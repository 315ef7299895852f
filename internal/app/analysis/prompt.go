package analysis

import (
	"fmt"

	"github.com/PabloGalante/medibot/internal/domain"
)

const reportTemplate = `Disease Analysis Report:

Patient Information:
- Age: %s years
- Gender: %s
- Main Symptoms: %s
- Duration: %s
- Severity: %s/10
- Medical History: %s

Provide a detailed analysis including:
1. Potential Conditions
2. Common Causes
3. Risk Factors
4. Prevention Methods
5. Recommended Treatments
6. When to Seek Medical Care
7. Lifestyle Recommendations`

// BuildPrompt renders the report request for a complete record.
func BuildPrompt(rec domain.PatientRecord) string {
	v := func(f domain.Field) string {
		s, _ := rec.Value(f)
		return s
	}
	return fmt.Sprintf(reportTemplate,
		v(domain.FieldAge),
		v(domain.FieldGender),
		v(domain.FieldPrimarySymptom),
		v(domain.FieldSymptomDuration),
		v(domain.FieldSeverity),
		v(domain.FieldMedicalHistory),
	)
}
