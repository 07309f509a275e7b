package activity

import (
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"

	"github.com/learnloop/api/database"
	"github.com/learnloop/api/model"
	"github.com/learnloop/api/services"
	"github.com/learnloop/api/utils/cache"
	"github.com/learnloop/api/utils/middleware"
	"github.com/learnloop/api/utils/response"
)

// ActivityHandler records learning events and serves the raw history
type ActivityHandler struct {
	recordStore *database.PostgreSQLStore
	cache       *cache.RedisCache // optional, invalidates metrics snapshots
}

// NewActivityHandler creates a new activity handler
func NewActivityHandler(recordStore *database.PostgreSQLStore, redisCache *cache.RedisCache) *ActivityHandler {
	return &ActivityHandler{recordStore: recordStore, cache: redisCache}
}

// invalidateMetrics drops the cached metrics snapshot after a new record.
// Best effort; the snapshot also expires on its own.
func (h *ActivityHandler) invalidateMetrics(c *fiber.Ctx, userID uint) {
	if h.cache != nil {
		_ = h.cache.Delete(c.Context(), services.MetricsCacheKey(userID))
	}
}

// RecordActivityRequest represents a lesson completion event
type RecordActivityRequest struct {
	CourseID  uint `json:"course_id" validate:"required"`
	LessonID  uint `json:"lesson_id" validate:"required"`
	TimeSpent int  `json:"time_spent"` // Minutes
	Attempts  int  `json:"attempts"`
}

// RecordActivity handles POST /api/v1/activity/lessons
func (h *ActivityHandler) RecordActivity(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	var req RecordActivityRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.CourseID == 0 || req.LessonID == 0 {
		return response.BadRequest(c, "Course ID and lesson ID are required")
	}
	if req.TimeSpent < 0 {
		return response.BadRequest(c, "Time spent cannot be negative")
	}
	if req.Attempts < 1 {
		req.Attempts = 1
	}

	record := model.LessonActivity{
		UserID:      userID,
		CourseID:    req.CourseID,
		LessonID:    req.LessonID,
		TimeSpent:   req.TimeSpent,
		Attempts:    req.Attempts,
		CompletedAt: time.Now().UTC(),
	}

	if err := h.recordStore.InsertLessonActivity(record); err != nil {
		return response.InternalServerError(c, "Failed to record activity")
	}

	h.invalidateMetrics(c, userID)

	return response.Created(c, fiber.Map{"message": "Activity recorded"})
}

// RecordQuizResultRequest represents a quiz submission event
type RecordQuizResultRequest struct {
	CourseID       uint            `json:"course_id" validate:"required"`
	LessonID       uint            `json:"lesson_id" validate:"required"`
	Score          int             `json:"score"`
	CorrectAnswers int             `json:"correct_answers"`
	TotalQuestions int             `json:"total_questions"`
	TimeSpent      int             `json:"time_spent"` // Minutes
	Answers        json.RawMessage `json:"answers,omitempty"`
}

// RecordQuizResult handles POST /api/v1/activity/quizzes
func (h *ActivityHandler) RecordQuizResult(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	var req RecordQuizResultRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.CourseID == 0 || req.LessonID == 0 {
		return response.BadRequest(c, "Course ID and lesson ID are required")
	}
	if req.Score < 0 || req.Score > 100 {
		return response.BadRequest(c, "Score must be between 0 and 100")
	}
	if req.CorrectAnswers < 0 || req.TotalQuestions < 0 || req.CorrectAnswers > req.TotalQuestions {
		return response.BadRequest(c, "Invalid answer counts")
	}
	if req.TimeSpent < 0 {
		return response.BadRequest(c, "Time spent cannot be negative")
	}

	record := model.QuizResult{
		UserID:         userID,
		CourseID:       req.CourseID,
		LessonID:       req.LessonID,
		Score:          req.Score,
		CorrectAnswers: req.CorrectAnswers,
		TotalQuestions: req.TotalQuestions,
		TimeSpent:      req.TimeSpent,
		CompletedAt:    time.Now().UTC(),
	}
	if len(req.Answers) > 0 {
		record.Answers = datatypes.JSON(req.Answers)
	}

	if err := h.recordStore.InsertQuizResult(record); err != nil {
		return response.InternalServerError(c, "Failed to record quiz result")
	}

	h.invalidateMetrics(c, userID)

	return response.Created(c, fiber.Map{"message": "Quiz result recorded"})
}

// GetHistory handles GET /api/v1/activity/history
// Returns the user's full learning history ordered by completion time
func (h *ActivityHandler) GetHistory(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	activities, err := h.recordStore.GetLessonActivities(userID)
	if err != nil {
		return response.InternalServerError(c, "Failed to fetch lesson activities")
	}

	results, err := h.recordStore.GetQuizResults(userID)
	if err != nil {
		return response.InternalServerError(c, "Failed to fetch quiz results")
	}

	return response.Success(c, fiber.Map{
		"lesson_activities": activities,
		"quiz_results":      results,
	})
}
