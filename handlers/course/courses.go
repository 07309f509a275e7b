package course

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/learnloop/api/database"
	"github.com/learnloop/api/model"
	"github.com/learnloop/api/services"
	"github.com/learnloop/api/utils/middleware"
	"github.com/learnloop/api/utils/response"
	"github.com/learnloop/api/utils/validation"
)

// CourseHandler handles course catalog and enrollment endpoints
type CourseHandler struct {
	db              *gorm.DB
	recordStore     *database.PostgreSQLStore
	progressService *services.ProgressService
	validator       *validation.Validator
}

// NewCourseHandler creates a new course handler
func NewCourseHandler(db *gorm.DB, recordStore *database.PostgreSQLStore, progressService *services.ProgressService) *CourseHandler {
	return &CourseHandler{
		db:              db,
		recordStore:     recordStore,
		progressService: progressService,
		validator:       validation.NewValidator(),
	}
}

// ListCourses handles GET /api/v1/courses
func (h *CourseHandler) ListCourses(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	query := h.db.Model(&model.Course{})
	if category := c.Query("category"); category != "" {
		query = query.Where("category = ?", category)
	}
	if search := c.Query("search"); search != "" {
		query = query.Where("title ILIKE ?", "%"+search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return response.InternalServerError(c, "Failed to count courses")
	}

	var courses []model.Course
	err := query.Preload("Author").
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&courses).Error
	if err != nil {
		return response.InternalServerError(c, "Failed to fetch courses")
	}

	return response.Paginated(c, courses, response.CalculatePagination(page, limit, total))
}

// GetCourse handles GET /api/v1/courses/:id
func (h *CourseHandler) GetCourse(c *fiber.Ctx) error {
	courseID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid course ID")
	}

	var course model.Course
	err = h.db.Preload("Lessons", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	}).Preload("Author").First(&course, uint(courseID)).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return response.NotFound(c, "Course not found")
		}
		return response.InternalServerError(c, "Failed to fetch course")
	}

	return response.Success(c, course)
}

// GetCourseLessons handles GET /api/v1/courses/:id/lessons
// Lists the course's lessons in position order
func (h *CourseHandler) GetCourseLessons(c *fiber.Ctx) error {
	courseID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid course ID")
	}

	var count int64
	if err := h.db.Model(&model.Course{}).Where("id = ?", uint(courseID)).Count(&count).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch course")
	}
	if count == 0 {
		return response.NotFound(c, "Course not found")
	}

	var lessons []model.Lesson
	err = h.db.Where("course_id = ?", uint(courseID)).
		Order("position ASC").
		Find(&lessons).Error
	if err != nil {
		return response.InternalServerError(c, "Failed to fetch lessons")
	}

	return response.Success(c, lessons)
}

// CreateCourseRequest represents a course creation request
type CreateCourseRequest struct {
	Title       string `json:"title" validate:"required,min=3,max=255"`
	Description string `json:"description" validate:"omitempty,max=5000"`
	Category    string `json:"category" validate:"omitempty,max=100"`
}

// CreateCourse handles POST /api/v1/courses (teacher or admin only)
func (h *CourseHandler) CreateCourse(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	var req CreateCourseRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	course := model.Course{
		Title:       req.Title,
		Slug:        slugify(req.Title),
		Description: req.Description,
		Category:    req.Category,
		AuthorID:    user.ID,
	}

	if err := h.db.Create(&course).Error; err != nil {
		return response.InternalServerError(c, "Failed to create course")
	}

	return response.Created(c, course)
}

// Enroll handles POST /api/v1/courses/:id/enroll
func (h *CourseHandler) Enroll(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	courseID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid course ID")
	}

	var course model.Course
	if err := h.db.First(&course, uint(courseID)).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return response.NotFound(c, "Course not found")
		}
		return response.InternalServerError(c, "Failed to fetch course")
	}

	var existing model.UserCourse
	err = h.db.Where("user_id = ? AND course_id = ?", userID, uint(courseID)).First(&existing).Error
	if err == nil {
		return response.Conflict(c, "Already enrolled in this course")
	}

	enrollment := model.UserCourse{UserID: userID, CourseID: uint(courseID)}
	if err := h.db.Create(&enrollment).Error; err != nil {
		return response.InternalServerError(c, "Failed to enroll")
	}

	return response.Created(c, fiber.Map{
		"message":   "Enrolled successfully",
		"course_id": course.ID,
	})
}

// GetProgress handles GET /api/v1/courses/:id/progress
func (h *CourseHandler) GetProgress(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	courseID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid course ID")
	}

	progress, err := h.progressService.GetCourseProgress(c.Context(), userID, uint(courseID))
	if err != nil {
		if err.Error() == "course not found" {
			return response.NotFound(c, "Course not found")
		}
		return response.InternalServerError(c, "Failed to compute progress")
	}

	return response.Success(c, progress)
}

// GetAllProgress handles GET /api/v1/courses/progress
func (h *CourseHandler) GetAllProgress(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	progress, err := h.progressService.GetAllProgress(c.Context(), userID)
	if err != nil {
		return response.InternalServerError(c, "Failed to compute progress")
	}

	return response.Success(c, progress)
}

// GetGeneratedLessons handles GET /api/v1/courses/:id/generated-lessons
// Lists supplemental lessons produced for the authenticated user
func (h *CourseHandler) GetGeneratedLessons(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	courseID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid course ID")
	}

	lessons, err := h.recordStore.GetGeneratedLessons(userID, uint(courseID))
	if err != nil {
		return response.InternalServerError(c, "Failed to fetch generated lessons")
	}

	return response.Success(c, fiber.Map{
		"generated_lessons": lessons,
		"count":             len(lessons),
	})
}

func slugify(title string) string {
	slug := strings.ToLower(strings.TrimSpace(title))
	var b strings.Builder
	lastDash := false
	for _, r := range slug {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		case !lastDash:
			b.WriteByte('-')
			lastDash = true
		}
	}
	return strings.Trim(b.String(), "-")
}
