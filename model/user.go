package model

import (
	"time"

	"gorm.io/gorm"
)

// User represents a registered learner or teacher
type User struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
	Email        string         `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string         `gorm:"not null" json:"-"` // Never expose password in JSON
	Name         string         `gorm:"not null" json:"name"`
	Role         string         `gorm:"type:varchar(20);default:'student'" json:"role"` // student, teacher, admin
	TokenVersion int            `gorm:"default:0" json:"-"`                             // Increment to invalidate all user tokens

	// Relationships
	Courses          []UserCourse      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"courses,omitempty"`
	LessonActivities []LessonActivity  `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	QuizResults      []QuizResult      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	GeneratedLessons []GeneratedLesson `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	ChatSessions     []ChatSession     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Notifications    []UserNotification `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// UserCourse represents a many-to-many enrollment between users and courses
type UserCourse struct {
	UserID     uint  `gorm:"primaryKey" json:"user_id"`
	CourseID   uint  `gorm:"primaryKey" json:"course_id"`
	EnrolledAt int64 `gorm:"autoCreateTime" json:"enrolled_at"`

	// Relationships
	User   User   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Course Course `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"course,omitempty"`
}
