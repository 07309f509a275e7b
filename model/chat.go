package model

import (
	"time"

	"gorm.io/gorm"
)

// MessageRole represents the role of the message sender
type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
	MessageRoleSystem    MessageRole = "system"
)

// ChatSession represents one AI-tutor conversation, optionally scoped to a
// course so lesson content can be fed into the prompt as context.
type ChatSession struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	PublicID  string         `gorm:"type:varchar(36);uniqueIndex;not null" json:"public_id"` // UUID exposed to clients
	UserID    uint           `gorm:"not null;index" json:"user_id"`
	CourseID  *uint          `gorm:"index" json:"course_id,omitempty"`
	Title     string         `gorm:"type:varchar(255)" json:"title"`

	// Relationships
	User     User          `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Course   *Course       `gorm:"foreignKey:CourseID;constraint:OnDelete:SET NULL" json:"course,omitempty"`
	Messages []ChatMessage `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE" json:"messages,omitempty"`
}

// TableName specifies the table name for ChatSession
func (ChatSession) TableName() string {
	return "chat_sessions"
}

// ChatMessage represents a single message in a tutor conversation
type ChatMessage struct {
	ID           uint        `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time   `json:"created_at"`
	SessionID    uint        `gorm:"not null;index" json:"session_id"`
	UserID       uint        `gorm:"not null;index" json:"user_id"`
	Role         MessageRole `gorm:"type:varchar(20);not null" json:"role"`
	Content      string      `gorm:"type:text;not null" json:"content"`
	TokensUsed   int         `gorm:"default:0" json:"tokens_used"`
	ModelUsed    string      `gorm:"type:varchar(100)" json:"model_used"`
	ResponseTime int         `gorm:"default:0" json:"response_time_ms"`

	// Relationships
	Session ChatSession `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE" json:"-"`
	User    User        `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for ChatMessage
func (ChatMessage) TableName() string {
	return "chat_messages"
}
