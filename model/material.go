package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// LessonMaterial is an uploaded supporting document for a lesson (PDF notes,
// worksheets). The file lives in object storage; a text preview extracted at
// upload time feeds the AI tutor's context window.
type LessonMaterial struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
	LessonID    uint           `gorm:"not null;index" json:"lesson_id"`
	UploaderID  uint           `gorm:"not null;index" json:"uploader_id"`
	FileName    string         `gorm:"not null" json:"file_name"`
	StorageKey  string         `gorm:"type:varchar(512);not null" json:"storage_key"` // Key in Spaces
	URL         string         `gorm:"type:varchar(512)" json:"url"`
	FileSize    int64          `gorm:"default:0" json:"file_size"`
	PageCount   int            `gorm:"default:0" json:"page_count"`
	TextPreview string         `gorm:"type:text" json:"text_preview,omitempty"`
	Metadata    datatypes.JSON `gorm:"type:jsonb" json:"metadata,omitempty"`

	// Relationships
	Lesson   Lesson `gorm:"foreignKey:LessonID;constraint:OnDelete:CASCADE" json:"-"`
	Uploader User   `gorm:"foreignKey:UploaderID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for LessonMaterial
func (LessonMaterial) TableName() string {
	return "lesson_materials"
}
