package router

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/learnloop/api/config"
	"github.com/learnloop/api/database"
	"github.com/learnloop/api/handlers"
	activity_handlers "github.com/learnloop/api/handlers/activity"
	analytics_handlers "github.com/learnloop/api/handlers/analytics"
	auth_handlers "github.com/learnloop/api/handlers/auth"
	chat_handlers "github.com/learnloop/api/handlers/chat"
	course_handlers "github.com/learnloop/api/handlers/course"
	lesson_handlers "github.com/learnloop/api/handlers/lesson"
	notification_handlers "github.com/learnloop/api/handlers/notification"
	"github.com/learnloop/api/services"
	"github.com/learnloop/api/services/openai"
	"github.com/learnloop/api/services/storage"
	"github.com/learnloop/api/utils"
	"github.com/learnloop/api/utils/auth"
	"github.com/learnloop/api/utils/cache"
	"github.com/learnloop/api/utils/middleware"
	"gorm.io/gorm"
)

// Dependencies carries the shared infrastructure the route tree is built on.
// Everything here is constructed once in app.SetupAndRunServer and shared
// with the cron manager.
type Dependencies struct {
	Store         database.Storage
	RecordStore   *database.PostgreSQLStore
	Env           *config.EnvironmentVariable
	OpenAI        *openai.Client
	Spaces        *storage.SpacesClient
	Generation    *services.LessonGenerationService
	Notifications *services.NotificationService
}

func SetupRoutes(app *fiber.App, deps Dependencies) {
	env := deps.Env

	if env.JWT_SECRET == "" {
		log.Fatal("JWT_SECRET environment variable is not set")
	}

	jwtIssuer := env.JWT_ISSUER
	if jwtIssuer == "" {
		jwtIssuer = "learnloop-api"
	}

	jwtConfig := auth.JWTConfig{
		Secret:        env.JWT_SECRET,
		Expiry:        24 * time.Hour,     // Access token expires in 24 hours
		RefreshExpiry: 7 * 24 * time.Hour, // Refresh token expires in 7 days
		Issuer:        jwtIssuer,
	}
	jwtManager := auth.NewJWTManager(jwtConfig)

	// Get DB instance (type assert from interface)
	db, ok := deps.Store.GetDB().(*gorm.DB)
	if !ok {
		log.Fatal("Failed to get GORM DB instance")
	}

	// Redis cache backs brute force protection on login
	redisURL := env.REDIS_URL
	if redisURL == "" {
		redisURL = "redis://localhost:6379/0"
	}

	redisCache, err := cache.NewRedisCache(redisURL)
	if err != nil {
		log.Printf("Warning: Failed to connect to Redis: %v. Brute force protection will be disabled.", err)
	}

	var bruteForceProtection *middleware.BruteForceProtection
	if redisCache != nil {
		bruteForceProtection = middleware.NewBruteForceProtection(redisCache)
	}

	authMiddleware := middleware.NewAuthMiddleware(jwtManager, db)

	// Services for request-scoped work. The generation and notification
	// services come in through deps because the cron manager shares them.
	metricsService := services.NewMetricsService(deps.RecordStore)
	analysisService := services.NewAnalysisService(deps.RecordStore, deps.OpenAI)
	progressService := services.NewProgressService(db, deps.RecordStore)
	chatService := services.NewChatService(db, deps.OpenAI)
	materialService := services.NewMaterialService(db, deps.Spaces)

	authHandler := auth_handlers.NewAuthHandler(db, jwtManager, bruteForceProtection)
	courseHandler := course_handlers.NewCourseHandler(db, deps.RecordStore, progressService)
	lessonHandler := lesson_handlers.NewLessonHandler(db, materialService)
	activityHandler := activity_handlers.NewActivityHandler(deps.RecordStore, redisCache)
	analyticsHandler := analytics_handlers.NewAnalyticsHandler(db, deps.RecordStore, metricsService, analysisService, deps.Generation, redisCache)
	chatHandler := chat_handlers.NewChatHandler(chatService)
	notificationHandler := notification_handlers.NewNotificationHandler(deps.Notifications)

	allowedOrigins := env.ALLOWED_ORIGINS
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:3000,http://localhost:5173"
	}

	middleware.SetupSecurity(app, middleware.SecurityConfig{
		AllowedOrigins:    allowedOrigins,
		RateLimitRequests: 100,             // 100 requests
		RateLimitWindow:   1 * time.Minute, // per minute
	})

	// Health check endpoint (public)
	app.Get("/ping", utils.MakeHTTPHandleFunc(handlers.HandleCheckHealth, deps.Store))

	// API v1 group
	api := app.Group("/api/v1")

	// Auth routes (public)
	authGroup := api.Group("/auth")
	authGroup.Post("/register", authHandler.Register)

	// Login with brute force protection
	if bruteForceProtection != nil {
		authGroup.Post("/login", bruteForceProtection.CheckAndRecordAttempt(), authHandler.Login)
	} else {
		authGroup.Post("/login", authHandler.Login)
	}

	authGroup.Post("/refresh", authHandler.RefreshToken)
	authGroup.Post("/logout", authMiddleware.Required(), authHandler.Logout)
	authGroup.Get("/me", authMiddleware.Required(), authHandler.GetProfile)

	// Profile routes (protected)
	profileGroup := api.Group("/profile", authMiddleware.Required())
	profileGroup.Get("/", authHandler.GetProfile)
	profileGroup.Put("/", authHandler.UpdateProfile)

	// Courses
	courses := api.Group("/courses")
	courses.Get("/", courseHandler.ListCourses)                                                          // Public: List courses
	courses.Get("/:id", courseHandler.GetCourse)                                                         // Public: Course with ordered lessons
	courses.Get("/:id/lessons", courseHandler.GetCourseLessons)                                          // Public: Ordered lesson listing
	courses.Post("/", authMiddleware.RequireRole("teacher", "admin"), courseHandler.CreateCourse)        // Teacher/admin: Create course
	courses.Post("/:id/enroll", authMiddleware.Required(), courseHandler.Enroll)                         // Protected: Enroll current user
	courses.Get("/:id/progress", authMiddleware.Required(), courseHandler.GetProgress)                   // Protected: Per-course progress
	courses.Get("/:id/generated-lessons", authMiddleware.Required(), courseHandler.GetGeneratedLessons)  // Protected: Supplemental lessons
	api.Get("/progress", authMiddleware.Required(), courseHandler.GetAllProgress)                        // Protected: Progress across enrollments

	// Lessons and materials
	lessons := api.Group("/lessons")
	lessons.Get("/:id", lessonHandler.GetLesson)                                                                // Public: Lesson detail
	lessons.Post("/", authMiddleware.RequireRole("teacher", "admin"), lessonHandler.CreateLesson)               // Teacher/admin: Create lesson
	lessons.Get("/:id/materials", lessonHandler.GetMaterials)                                                   // Public: List lesson materials
	lessons.Post("/:id/materials", authMiddleware.RequireRole("teacher", "admin"), lessonHandler.UploadMaterial) // Teacher/admin: Upload PDF material
	api.Delete("/materials/:id", authMiddleware.Required(), lessonHandler.DeleteMaterial)                       // Uploader or admin

	// Learning activity ingest (all protected)
	activity := api.Group("/activity", authMiddleware.Required())
	activity.Post("/lessons", activityHandler.RecordActivity)   // Protected: Record lesson completion
	activity.Post("/quizzes", activityHandler.RecordQuizResult) // Protected: Record quiz result
	activity.Get("/history", activityHandler.GetHistory)        // Protected: Ordered learning history

	// Analytics (all protected, current user scope)
	analytics := api.Group("/analytics", authMiddleware.Required())
	analytics.Get("/metrics", analyticsHandler.GetMetrics)                   // Protected: Aggregated learning metrics
	analytics.Get("/struggling-topics", analyticsHandler.GetStrugglingTopics) // Protected: Below-threshold quiz topics
	analytics.Get("/performance", analyticsHandler.GetPerformanceReport)     // Protected: Grade, trend, recommendations
	analytics.Post("/analyze", analyticsHandler.Analyze)                     // Protected: LLM advisor analysis
	analytics.Post("/generate", analyticsHandler.Generate)                   // Protected: Trigger supplemental generation

	// Chat tutor (all protected)
	chat := api.Group("/chat", authMiddleware.Required())
	chat.Get("/sessions", chatHandler.ListSessions)
	chat.Post("/sessions", chatHandler.CreateSession)
	chat.Get("/sessions/:id", chatHandler.GetSession)
	chat.Delete("/sessions/:id", chatHandler.DeleteSession)
	chat.Post("/sessions/:id/messages", chatHandler.SendMessage)

	// Notifications (all protected)
	notifications := api.Group("/notifications", authMiddleware.Required())
	notifications.Get("/", notificationHandler.GetNotifications)
	notifications.Get("/unread-count", notificationHandler.GetUnreadCount)
	notifications.Post("/read-all", notificationHandler.MarkAllAsRead)
	notifications.Patch("/:id/read", notificationHandler.MarkAsRead)
	notifications.Delete("/:id", notificationHandler.DeleteNotification)
}
