package model

import "time"

type PromptStatus string

const (
	PromptPending   PromptStatus = "pending"
	PromptCompleted PromptStatus = "completed"
)

// Prompt is one proposed unit of work in the daily generation pool. The pool
// is bounded and regenerated on a 24-hour cycle or on explicit refresh; rows
// are only ever mutated to flip their status.
type Prompt struct {
	ID          string       `gorm:"primaryKey;size:36" json:"id"`
	Topic       string       `gorm:"size:300;not null" json:"topic"`
	ContentType string       `gorm:"size:50" json:"content_type"`
	Tone        string       `gorm:"size:50" json:"tone"`
	Template    string       `gorm:"size:50" json:"template"`
	Status      PromptStatus `gorm:"size:20;index;default:pending" json:"status"`
	CreatedAt   time.Time    `json:"created_at"`
	UsedAt      *time.Time   `json:"used_at,omitempty"`
}
