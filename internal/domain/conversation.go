package domain

// TranscriptEntry is one line of the conversation as shown to the patient.
type TranscriptEntry struct {
	Role Role
	Text string
}

// SessionState is everything the intake controller reads and writes.
// It is a plain value: controller operations take one and return a new one.
type SessionState struct {
	Record     PatientRecord
	Transcript []TranscriptEntry
	Complete   bool
}

// Message is a transcript entry as persisted by a MessageStore.
type Message struct {
	ID        MessageID
	SessionID SessionID
	Seq       int
	Author    Role
	Text      string
	CreatedAt Timestamp
}

// Session is the persisted envelope of one intake conversation.
// The transcript lives in the MessageStore.
type Session struct {
	ID        SessionID
	CreatedAt Timestamp
	UpdatedAt Timestamp

	Record   PatientRecord
	Complete bool

	// Analysis is set once, when the record completes.
	Analysis *AnalysisResult
}

// AnalysisResult is the text returned by the text-generation service, or
// the fallback text when generation failed (Available=false).
type AnalysisResult struct {
	Text        string    `json:"text"`
	Available   bool      `json:"available"`
	Model       string    `json:"model,omitempty"`
	GeneratedAt Timestamp `json:"generated_at"`
}
