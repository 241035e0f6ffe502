package models

import "time"

// DuplicateAction records how the user resolved flagged duplicates.
type DuplicateAction string

const (
	DuplicateActionNone   DuplicateAction = ""
	DuplicateActionRemove DuplicateAction = "remove"
	DuplicateActionKeep   DuplicateAction = "keep"
)

// UploadRun records the outcome of saving one bulk upload.
type UploadRun struct {
	Base
	SessionID       string          `gorm:"type:varchar(36);not null;index" json:"session_id"`
	FileName        string          `json:"file_name"`
	Extracted       int             `gorm:"not null" json:"extracted"`
	Duplicates      int             `gorm:"not null" json:"duplicates"`
	DuplicateAction DuplicateAction `gorm:"type:varchar(16)" json:"duplicate_action,omitempty"`
	Saved           int             `gorm:"not null" json:"saved"`
	Failed          int             `gorm:"not null" json:"failed"`
	StartedAt       time.Time       `gorm:"not null" json:"started_at"`
	CompletedAt     time.Time       `gorm:"not null" json:"completed_at"`
}
