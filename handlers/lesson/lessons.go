package lesson

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/learnloop/api/model"
	"github.com/learnloop/api/services"
	"github.com/learnloop/api/utils/middleware"
	"github.com/learnloop/api/utils/response"
	"github.com/learnloop/api/utils/validation"
)

// LessonHandler handles lesson content and material endpoints
type LessonHandler struct {
	db              *gorm.DB
	materialService *services.MaterialService
	validator       *validation.Validator
}

// NewLessonHandler creates a new lesson handler
func NewLessonHandler(db *gorm.DB, materialService *services.MaterialService) *LessonHandler {
	return &LessonHandler{
		db:              db,
		materialService: materialService,
		validator:       validation.NewValidator(),
	}
}

// GetLesson handles GET /api/v1/lessons/:id
func (h *LessonHandler) GetLesson(c *fiber.Ctx) error {
	lessonID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid lesson ID")
	}

	var lesson model.Lesson
	err = h.db.Preload("Materials").First(&lesson, uint(lessonID)).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return response.NotFound(c, "Lesson not found")
		}
		return response.InternalServerError(c, "Failed to fetch lesson")
	}

	return response.Success(c, lesson)
}

// CreateLessonRequest represents a lesson creation request
type CreateLessonRequest struct {
	CourseID uint   `json:"course_id" validate:"required,min=1"`
	Title    string `json:"title" validate:"required,min=3,max=255"`
	Topic    string `json:"topic" validate:"omitempty,max=255"`
	Content  string `json:"content"`
	Position int    `json:"position" validate:"omitempty,min=1"`
	HasQuiz  bool   `json:"has_quiz"`
}

// CreateLesson handles POST /api/v1/lessons (course author or admin only)
func (h *LessonHandler) CreateLesson(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	var req CreateLessonRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	var course model.Course
	if err := h.db.First(&course, req.CourseID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return response.NotFound(c, "Course not found")
		}
		return response.InternalServerError(c, "Failed to fetch course")
	}
	if course.AuthorID != user.ID && user.Role != "admin" {
		return response.Forbidden(c, "Only the course author can add lessons")
	}

	if req.Position == 0 {
		var count int64
		h.db.Model(&model.Lesson{}).Where("course_id = ?", req.CourseID).Count(&count)
		req.Position = int(count) + 1
	}

	lesson := model.Lesson{
		CourseID: req.CourseID,
		Title:    req.Title,
		Topic:    req.Topic,
		Content:  req.Content,
		Position: req.Position,
		HasQuiz:  req.HasQuiz,
	}

	if err := h.db.Create(&lesson).Error; err != nil {
		return response.InternalServerError(c, "Failed to create lesson")
	}

	return response.Created(c, lesson)
}

// UploadMaterial handles POST /api/v1/lessons/:id/materials
func (h *LessonHandler) UploadMaterial(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	lessonID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid lesson ID")
	}

	file, err := c.FormFile("file")
	if err != nil {
		return response.BadRequest(c, "A file upload is required")
	}

	material, err := h.materialService.UploadMaterial(c.Context(), uint(lessonID), user.ID, file)
	if err != nil {
		if err.Error() == "lesson not found" {
			return response.NotFound(c, "Lesson not found")
		}
		return response.BadRequest(c, err.Error())
	}

	return response.Created(c, material)
}

// GetMaterials handles GET /api/v1/lessons/:id/materials
func (h *LessonHandler) GetMaterials(c *fiber.Ctx) error {
	lessonID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid lesson ID")
	}

	materials, err := h.materialService.GetMaterialsByLesson(c.Context(), uint(lessonID))
	if err != nil {
		return response.InternalServerError(c, "Failed to fetch materials")
	}

	return response.Success(c, fiber.Map{
		"materials": materials,
		"count":     len(materials),
	})
}

// DeleteMaterial handles DELETE /api/v1/materials/:id
func (h *LessonHandler) DeleteMaterial(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	materialID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid material ID")
	}

	err = h.materialService.DeleteMaterial(c.Context(), uint(materialID), user.ID, user.Role == "admin")
	if err != nil {
		switch err.Error() {
		case "material not found":
			return response.NotFound(c, "Material not found")
		case "not allowed to delete this material":
			return response.Forbidden(c, "Not allowed to delete this material")
		default:
			return response.InternalServerError(c, "Failed to delete material")
		}
	}

	return response.Success(c, fiber.Map{"message": "Material deleted"})
}
