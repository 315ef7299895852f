package domain

import "time"

type SessionID string
type MessageID string

type Role string

const (
	RoleSystem  Role = "System"
	RolePatient Role = "Patient"
)

type Timestamp = time.Time
