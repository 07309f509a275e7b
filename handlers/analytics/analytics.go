package analytics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/learnloop/api/model"
	"github.com/learnloop/api/services"
	"github.com/learnloop/api/utils/cache"
	"github.com/learnloop/api/utils/middleware"
	"github.com/learnloop/api/utils/response"
)

// metricsCacheTTL bounds staleness of the cached metrics snapshot.
// The activity handler invalidates the key on every new record anyway.
const metricsCacheTTL = 60 * time.Second

// AnalyticsHandler exposes the learning-analytics pipeline over HTTP
type AnalyticsHandler struct {
	db                *gorm.DB
	recordStore       services.ActivityReader
	metricsService    *services.MetricsService
	analysisService   *services.AnalysisService
	generationService *services.LessonGenerationService
	cache             *cache.RedisCache // optional snapshot cache, may be nil
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(db *gorm.DB, recordStore services.ActivityReader, metricsService *services.MetricsService, analysisService *services.AnalysisService, generationService *services.LessonGenerationService, redisCache *cache.RedisCache) *AnalyticsHandler {
	return &AnalyticsHandler{
		db:                db,
		recordStore:       recordStore,
		metricsService:    metricsService,
		analysisService:   analysisService,
		generationService: generationService,
		cache:             redisCache,
	}
}

// GetMetrics handles GET /api/v1/analytics/metrics
// Returns the aggregated summary metrics for the authenticated user
func (h *AnalyticsHandler) GetMetrics(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	if h.cache != nil {
		var cached services.LearningMetrics
		if err := h.cache.GetJSON(c.Context(), services.MetricsCacheKey(userID), &cached); err == nil {
			return response.Success(c, &cached)
		}
	}

	metrics, err := h.metricsService.ComputeForUser(userID)
	if err != nil {
		return response.InternalServerError(c, "Failed to compute metrics")
	}

	if h.cache != nil {
		// Best effort, a failed cache write never fails the request
		_ = h.cache.SetJSON(c.Context(), services.MetricsCacheKey(userID), metrics, metricsCacheTTL)
	}

	return response.Success(c, metrics)
}

// GetStrugglingTopics handles GET /api/v1/analytics/struggling-topics
// Optional ?threshold= overrides the default mastery threshold
func (h *AnalyticsHandler) GetStrugglingTopics(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	threshold := services.DefaultMasteryThreshold
	if raw := c.Query("threshold"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 || parsed > 100 {
			return response.BadRequest(c, "Threshold must be an integer between 0 and 100")
		}
		threshold = parsed
	}

	results, err := h.recordStore.GetQuizResults(userID)
	if err != nil {
		return response.InternalServerError(c, "Failed to fetch quiz results")
	}

	topics := services.DetectStrugglingTopics(results, threshold)

	return response.Success(c, fiber.Map{
		"struggling_topics": topics,
		"threshold":         threshold,
		"count":             len(topics),
	})
}

// GetPerformanceReport handles GET /api/v1/analytics/performance
// Returns the heuristic grade/trend assessment
func (h *AnalyticsHandler) GetPerformanceReport(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	report, err := h.analysisService.AnalyzePerformance(userID)
	if err != nil {
		return response.InternalServerError(c, "Failed to analyze performance")
	}

	return response.Success(c, report)
}

// Analyze handles POST /api/v1/analytics/analyze
// Asks the LLM advisor for free-form study recommendations
func (h *AnalyticsHandler) Analyze(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	analysis, err := h.analysisService.AnalyzeWithAdvisor(c.Context(), userID)
	if err != nil {
		return response.InternalServerError(c, "Analysis failed, please try again")
	}

	return response.Success(c, fiber.Map{"analysis": analysis})
}

// GenerateRequest scopes a manual trigger run to one course
type GenerateRequest struct {
	CourseID uint `json:"course_id" validate:"required"`
}

// Generate handles POST /api/v1/analytics/generate
// Runs the supplemental-lesson trigger over the user's history for a course
func (h *AnalyticsHandler) Generate(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	var req GenerateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.CourseID == 0 {
		return response.BadRequest(c, "Course ID is required")
	}

	var course model.Course
	if err := h.db.First(&course, req.CourseID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return response.NotFound(c, "Course not found")
		}
		return response.InternalServerError(c, "Failed to fetch course")
	}

	activities, err := h.recordStore.GetLessonActivities(userID)
	if err != nil {
		return response.InternalServerError(c, "Failed to fetch lesson activities")
	}
	results, err := h.recordStore.GetQuizResults(userID)
	if err != nil {
		return response.InternalServerError(c, "Failed to fetch quiz results")
	}

	// Scope the signals to the requested course
	courseActivities := make([]model.LessonActivity, 0, len(activities))
	for _, a := range activities {
		if a.CourseID == req.CourseID {
			courseActivities = append(courseActivities, a)
		}
	}
	courseResults := make([]model.QuizResult, 0, len(results))
	for _, r := range results {
		if r.CourseID == req.CourseID {
			courseResults = append(courseResults, r)
		}
	}

	report, err := h.generationService.Run(c.Context(), userID, course.Title, courseActivities, courseResults)
	if err != nil {
		return response.InternalServerError(c, "Generation run was interrupted")
	}

	return response.Success(c, report)
}
