package chat

import (
	"github.com/gofiber/fiber/v2"

	"github.com/learnloop/api/services"
	"github.com/learnloop/api/utils/middleware"
	"github.com/learnloop/api/utils/response"
)

// ChatHandler handles AI tutor conversation endpoints
type ChatHandler struct {
	chatService *services.ChatService
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chatService *services.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// CreateSessionRequest represents a new conversation request
type CreateSessionRequest struct {
	CourseID *uint  `json:"course_id,omitempty"`
	Title    string `json:"title,omitempty"`
}

// CreateSession handles POST /api/v1/chat/sessions
func (h *ChatHandler) CreateSession(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	var req CreateSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	session, err := h.chatService.CreateSession(c.Context(), userID, req.CourseID, req.Title)
	if err != nil {
		if err.Error() == "course not found" {
			return response.NotFound(c, "Course not found")
		}
		return response.InternalServerError(c, "Failed to create chat session")
	}

	return response.Created(c, session)
}

// ListSessions handles GET /api/v1/chat/sessions
func (h *ChatHandler) ListSessions(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	sessions, err := h.chatService.GetSessions(c.Context(), userID)
	if err != nil {
		return response.InternalServerError(c, "Failed to fetch chat sessions")
	}

	return response.Success(c, fiber.Map{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

// GetSession handles GET /api/v1/chat/sessions/:id
func (h *ChatHandler) GetSession(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	session, err := h.chatService.GetSession(c.Context(), userID, c.Params("id"))
	if err != nil {
		if err.Error() == "chat session not found" {
			return response.NotFound(c, "Chat session not found")
		}
		return response.InternalServerError(c, "Failed to fetch chat session")
	}

	return response.Success(c, session)
}

// SendMessageRequest represents a chat message from the learner
type SendMessageRequest struct {
	Content string `json:"content" validate:"required"`
}

// SendMessage handles POST /api/v1/chat/sessions/:id/messages
func (h *ChatHandler) SendMessage(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	var req SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	reply, err := h.chatService.SendMessage(c.Context(), userID, c.Params("id"), req.Content)
	if err != nil {
		switch err.Error() {
		case "chat session not found":
			return response.NotFound(c, "Chat session not found")
		case "message cannot be empty":
			return response.BadRequest(c, "Message cannot be empty")
		default:
			return response.InternalServerError(c, "Tutor is unavailable, please try again")
		}
	}

	return response.Success(c, reply)
}

// DeleteSession handles DELETE /api/v1/chat/sessions/:id
func (h *ChatHandler) DeleteSession(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	if err := h.chatService.DeleteSession(c.Context(), userID, c.Params("id")); err != nil {
		if err.Error() == "chat session not found" {
			return response.NotFound(c, "Chat session not found")
		}
		return response.InternalServerError(c, "Failed to delete chat session")
	}

	return response.Success(c, fiber.Map{"message": "Chat session deleted"})
}
