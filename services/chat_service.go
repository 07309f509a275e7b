package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/learnloop/api/model"
	"github.com/learnloop/api/services/openai"
	"github.com/learnloop/api/utils/htmltext"
)

const (
	// chatHistoryWindow is how many prior messages feed the completion
	chatHistoryWindow = 20
	// courseContextLimit caps the lesson text injected into the prompt
	courseContextLimit = 6000
)

const tutorSystemPrompt = "You are a friendly AI tutor for an online learning platform. " +
	"Answer the learner's questions clearly, with short explanations and concrete examples. " +
	"When course material is provided below, ground your answers in it. " +
	"If you do not know the answer, say so instead of guessing."

// ChatService handles AI tutor conversations
type ChatService struct {
	db     *gorm.DB
	client *openai.Client
}

// NewChatService creates a new chat service
func NewChatService(db *gorm.DB, client *openai.Client) *ChatService {
	return &ChatService{db: db, client: client}
}

// CreateSession starts a new tutor conversation, optionally scoped to a course
func (s *ChatService) CreateSession(ctx context.Context, userID uint, courseID *uint, title string) (*model.ChatSession, error) {
	if courseID != nil {
		var course model.Course
		if err := s.db.WithContext(ctx).First(&course, *courseID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil, fmt.Errorf("course not found")
			}
			return nil, fmt.Errorf("failed to load course: %w", err)
		}
		if title == "" {
			title = fmt.Sprintf("Tutor: %s", course.Title)
		}
	}
	if title == "" {
		title = "New conversation"
	}

	session := &model.ChatSession{
		PublicID: uuid.New().String(),
		UserID:   userID,
		CourseID: courseID,
		Title:    title,
	}

	if err := s.db.WithContext(ctx).Create(session).Error; err != nil {
		return nil, fmt.Errorf("failed to create chat session: %w", err)
	}

	return session, nil
}

// GetSessions lists a user's conversations, most recent first
func (s *ChatService) GetSessions(ctx context.Context, userID uint) ([]model.ChatSession, error) {
	var sessions []model.ChatSession

	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch chat sessions: %w", err)
	}

	return sessions, nil
}

// GetSession loads one conversation with its message history
func (s *ChatService) GetSession(ctx context.Context, userID uint, publicID string) (*model.ChatSession, error) {
	var session model.ChatSession

	err := s.db.WithContext(ctx).
		Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("public_id = ? AND user_id = ?", publicID, userID).
		First(&session).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("chat session not found")
		}
		return nil, fmt.Errorf("failed to load chat session: %w", err)
	}

	return &session, nil
}

// DeleteSession removes a conversation and its messages
func (s *ChatService) DeleteSession(ctx context.Context, userID uint, publicID string) error {
	result := s.db.WithContext(ctx).
		Where("public_id = ? AND user_id = ?", publicID, userID).
		Delete(&model.ChatSession{})

	if result.Error != nil {
		return fmt.Errorf("failed to delete chat session: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("chat session not found")
	}

	return nil
}

// SendMessage appends a learner message, asks the tutor backend for a reply
// and persists both sides of the exchange
func (s *ChatService) SendMessage(ctx context.Context, userID uint, publicID, content string) (*model.ChatMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("message cannot be empty")
	}

	session, err := s.GetSession(ctx, userID, publicID)
	if err != nil {
		return nil, err
	}

	messages, err := s.buildCompletionMessages(ctx, session, content)
	if err != nil {
		return nil, err
	}

	userMessage := &model.ChatMessage{
		SessionID: session.ID,
		UserID:    userID,
		Role:      model.MessageRoleUser,
		Content:   content,
	}
	if err := s.db.WithContext(ctx).Create(userMessage).Error; err != nil {
		return nil, fmt.Errorf("failed to save message: %w", err)
	}

	start := time.Now()
	resp, err := s.client.ChatCompletion(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("tutor request failed: %w", err)
	}

	reply := strings.TrimSpace(resp.ExtractContent())
	if reply == "" {
		return nil, fmt.Errorf("tutor returned empty reply")
	}

	assistantMessage := &model.ChatMessage{
		SessionID:    session.ID,
		UserID:       userID,
		Role:         model.MessageRoleAssistant,
		Content:      reply,
		TokensUsed:   resp.Usage.TotalTokens,
		ModelUsed:    resp.Model,
		ResponseTime: int(time.Since(start).Milliseconds()),
	}
	if err := s.db.WithContext(ctx).Create(assistantMessage).Error; err != nil {
		return nil, fmt.Errorf("failed to save reply: %w", err)
	}

	// Touch the session so it sorts to the top of the list
	s.db.WithContext(ctx).Model(session).Update("updated_at", time.Now())

	return assistantMessage, nil
}

// buildCompletionMessages assembles system prompt, optional course context
// and the trailing history window for the completion call
func (s *ChatService) buildCompletionMessages(ctx context.Context, session *model.ChatSession, newContent string) ([]openai.ChatMessage, error) {
	messages := []openai.ChatMessage{
		{Role: "system", Content: tutorSystemPrompt},
	}

	if session.CourseID != nil {
		courseContext, err := s.buildCourseContext(ctx, *session.CourseID)
		if err != nil {
			return nil, err
		}
		if courseContext != "" {
			messages = append(messages, openai.ChatMessage{
				Role:    "system",
				Content: "Course material for reference:\n\n" + courseContext,
			})
		}
	}

	history := session.Messages
	if len(history) > chatHistoryWindow {
		history = history[len(history)-chatHistoryWindow:]
	}
	for _, m := range history {
		messages = append(messages, openai.ChatMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}

	messages = append(messages, openai.ChatMessage{Role: "user", Content: newContent})
	return messages, nil
}

// buildCourseContext renders the course's lesson bodies as plain text.
// Lesson content is authored as HTML/Markdown; tags are stripped so the
// prompt budget is spent on the actual material.
func (s *ChatService) buildCourseContext(ctx context.Context, courseID uint) (string, error) {
	var lessons []model.Lesson

	err := s.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("position ASC").
		Find(&lessons).Error
	if err != nil {
		return "", fmt.Errorf("failed to load course lessons: %w", err)
	}

	var b strings.Builder
	for _, lesson := range lessons {
		text := htmltext.ExtractText(lesson.Content)
		if text == "" {
			continue
		}
		fmt.Fprintf(&b, "## %s\n%s\n\n", lesson.Title, text)
		if b.Len() > courseContextLimit {
			break
		}
	}

	return htmltext.Truncate(b.String(), courseContextLimit), nil
}
