package model

import (
	"time"

	"gorm.io/gorm"
)

// Course represents a published course in the catalog
type Course struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
	Title       string         `gorm:"not null" json:"title"`
	Slug        string         `gorm:"uniqueIndex;not null" json:"slug"`
	Description string         `gorm:"type:text" json:"description"`
	Category    string         `gorm:"type:varchar(100)" json:"category"`
	AuthorID    uint           `gorm:"index" json:"author_id"`

	// Relationships
	Author   User         `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Lessons  []Lesson     `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"lessons,omitempty"`
	Students []UserCourse `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"-"`
}

// Lesson represents a single lesson within a course
type Lesson struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	CourseID  uint           `gorm:"not null;index" json:"course_id"`
	Position  int            `gorm:"not null" json:"position"` // 1-based ordering within the course
	Title     string         `gorm:"not null" json:"title"`
	Topic     string         `gorm:"type:varchar(255)" json:"topic"`
	Content   string         `gorm:"type:text" json:"content"` // Markdown or HTML body
	HasQuiz   bool           `gorm:"default:false" json:"has_quiz"`

	// Relationships
	Course    Course           `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"course,omitempty"`
	Materials []LessonMaterial `gorm:"foreignKey:LessonID;constraint:OnDelete:CASCADE" json:"materials,omitempty"`
}
