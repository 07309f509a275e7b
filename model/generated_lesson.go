package model

import (
	"time"
)

// GenerationSignal classifies the weakness signal that triggered a
// supplemental lesson.
type GenerationSignal string

const (
	// SignalShortTime marks a lesson the learner rushed through (<5 minutes).
	SignalShortTime GenerationSignal = "short_time"
	// SignalTestErrors marks a quiz finished below a perfect score.
	SignalTestErrors GenerationSignal = "test_errors"
)

// GeneratedLesson is supplemental content produced by the LLM in response to
// a detected weakness signal. At most one row may exist per
// (user_id, topic, base_course_id); the unique index turns the
// check-then-insert race between concurrent trigger runs into a no-op.
type GeneratedLesson struct {
	ID           uint             `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time        `json:"created_at"`
	UserID       uint             `gorm:"not null;uniqueIndex:idx_generated_lesson_key" json:"user_id"`
	Topic        string           `gorm:"type:varchar(255);not null;uniqueIndex:idx_generated_lesson_key" json:"topic"`
	BaseCourseID uint             `gorm:"not null;uniqueIndex:idx_generated_lesson_key" json:"base_course_id"`
	LessonID     uint             `json:"lesson_id"`
	Signal       GenerationSignal `gorm:"type:varchar(20)" json:"signal"`
	Content      string           `gorm:"type:text;not null" json:"content"` // Markdown body

	// Relationships
	User   User   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Course Course `gorm:"foreignKey:BaseCourseID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for GeneratedLesson
func (GeneratedLesson) TableName() string {
	return "generated_lessons"
}
