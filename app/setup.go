package app

import (
	"fmt"
	"log"
	"os"

	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/learnloop/api/api"
	"github.com/learnloop/api/config"
	"github.com/learnloop/api/database"
	"github.com/learnloop/api/router"
	"github.com/learnloop/api/services"
	"github.com/learnloop/api/services/cron"
	"github.com/learnloop/api/services/openai"
	"github.com/learnloop/api/services/storage"
	"gorm.io/gorm"
)

func SetupAndRunServer() error {

	// Load ENV
	if err := config.LoadENV(); err != nil {
		return err
	}

	getEnv, err := config.Get()
	if err != nil {
		return err
	}

	// GORM connection for CRUD-style access
	store, err := database.StartGORM()
	if err != nil {
		print("Check whether the Postgres is running or not\n")
		return err
	}

	if err := store.Init(); err != nil {
		print("Failed to initialize database tables\n")
		return err
	}

	// Raw connection for the ordered learning-record queries and
	// generated-lesson inserts
	recordStore, err := database.Start()
	if err != nil {
		return err
	}

	if err := recordStore.Init(); err != nil {
		return err
	}

	db, ok := store.GetDB().(*gorm.DB)
	if !ok {
		return fmt.Errorf("failed to get GORM DB instance")
	}

	// LLM client, shared by analysis, chat and lesson generation
	openaiClient := openai.NewClient(openai.Config{
		APIKey:  getEnv.OPENAI_API_KEY,
		BaseURL: getEnv.OPENAI_BASE_URL,
		Model:   getEnv.OPENAI_MODEL,
	})

	// Object storage for lesson materials
	spacesClient, err := storage.NewSpacesClient(storage.SpacesConfigFromEnv(getEnv))
	if err != nil {
		return err
	}
	if getEnv.SPACES_BUCKET == "" {
		log.Println("Warning: SPACES_BUCKET is not set, material uploads will fail")
	}

	notificationService := services.NewNotificationService(db)
	generationService := services.NewLessonGenerationService(
		recordStore,
		services.NewChatLessonGenerator(openaiClient),
		notificationService,
	)

	// Cron jobs (enabled unless CRON_ENABLED=false)
	var cronManager *cron.CronManager
	if os.Getenv("CRON_ENABLED") != "false" {
		cronManager = cron.NewCronManager(db, recordStore, generationService, notificationService)
		if err := cronManager.Start(); err != nil {
			log.Printf("Warning: Failed to start cron jobs: %v", err)
			// Don't fail the app, just log the warning
		}
	}

	// Defer Closing DB and stopping cron jobs
	defer func() {
		if cronManager != nil {
			cronManager.Stop()
		}
		recordStore.Close()
		store.Close()
	}()

	// Init API
	var server *api.APIServer = api.NewAPIServer(fmt.Sprintf(":%d", getEnv.PORT))
	app := server.GetEngine()

	// Attach Middleware
	app.Use(logger.New())
	app.Use(recover.New())

	// Setup Routes
	router.SetupRoutes(app, router.Dependencies{
		Store:         store,
		RecordStore:   recordStore,
		Env:           getEnv,
		OpenAI:        openaiClient,
		Spaces:        spacesClient,
		Generation:    generationService,
		Notifications: notificationService,
	})

	// Get the PORT & Start the Server
	return server.Run()
}
