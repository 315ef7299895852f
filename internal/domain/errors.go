package domain

import "errors"

var (
	ErrSessionNotFound     = errors.New("session not found")
	ErrSessionExists       = errors.New("session already exists")
	ErrBlankInput          = errors.New("blank input")
	ErrSessionComplete     = errors.New("all fields already collected")
	ErrRecordIncomplete    = errors.New("patient record is incomplete")
	ErrAnalysisUnavailable = errors.New("content generation failed")
	ErrCorruptRecord       = errors.New("corrupt patient record")
)
