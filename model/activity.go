package model

import (
	"time"

	"gorm.io/datatypes"
)

// LessonActivity records one completed attempt at a lesson, including the
// time the learner spent on it. Rows are insert-only: the analytics pipeline
// never updates or deletes them.
type LessonActivity struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	UserID      uint      `gorm:"not null;index:idx_lesson_activity_user" json:"user_id"`
	CourseID    uint      `gorm:"not null;index" json:"course_id"`
	LessonID    uint      `gorm:"not null" json:"lesson_id"`
	TimeSpent   int       `gorm:"not null;default:0" json:"time_spent"` // Minutes for this attempt
	Attempts    int       `gorm:"default:1" json:"attempts"`
	CompletedAt time.Time `gorm:"not null;index" json:"completed_at"`

	// Relationships
	User   User   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Course Course `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for LessonActivity
func (LessonActivity) TableName() string {
	return "lesson_activities"
}

// Valid reports whether the record may participate in aggregation.
// Records with a missing lesson or owner are excluded, never rejected loudly.
func (a LessonActivity) Valid() bool {
	return a.LessonID != 0 && a.UserID != 0
}

// QuizResult records the outcome of one quiz submission for a lesson.
// Rows are insert-only, same as LessonActivity.
type QuizResult struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	CreatedAt      time.Time      `json:"created_at"`
	UserID         uint           `gorm:"not null;index:idx_quiz_result_user" json:"user_id"`
	CourseID       uint           `gorm:"not null;index" json:"course_id"`
	LessonID       uint           `gorm:"not null" json:"lesson_id"`
	Score          int            `gorm:"not null;default:0" json:"score"` // Percentage in [0,100]
	CorrectAnswers int            `gorm:"not null;default:0" json:"correct_answers"`
	TotalQuestions int            `gorm:"not null;default:0" json:"total_questions"`
	TimeSpent      int            `gorm:"not null;default:0" json:"time_spent"` // Minutes
	CompletedAt    time.Time      `gorm:"not null;index" json:"completed_at"`
	Answers        datatypes.JSON `gorm:"type:jsonb" json:"answers,omitempty"` // Per-question answer payload

	// Relationships
	User   User   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Course Course `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for QuizResult
func (QuizResult) TableName() string {
	return "quiz_results"
}

// Valid reports whether the result may participate in aggregation.
func (r QuizResult) Valid() bool {
	return r.LessonID != 0 && r.UserID != 0
}
