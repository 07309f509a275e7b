package database

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/learnloop/api/model"
	"github.com/learnloop/api/utils/auth"
	"gorm.io/gorm"
)

// Seeder handles database seeding operations
type Seeder struct {
	db *gorm.DB
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{db: db}
}

// RunSeeds seeds the database with demo data
func RunSeeds(db *gorm.DB) error {
	return NewSeeder(db).SeedAll()
}

// SeedAll runs all seed functions
func (s *Seeder) SeedAll() error {
	log.Println("🌱 Starting database seeding...")

	// Run seeds in order (respecting foreign key constraints)
	if err := s.SeedAdminUser(); err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}

	if err := s.SeedDemoCourse(); err != nil {
		return fmt.Errorf("failed to seed demo course: %w", err)
	}

	if err := s.SeedDemoLearningHistory(); err != nil {
		return fmt.Errorf("failed to seed demo learning history: %w", err)
	}

	log.Println("✅ Database seeding completed successfully!")
	return nil
}

// SeedAdminUser creates the default admin user from environment variables
func (s *Seeder) SeedAdminUser() error {
	var count int64
	if err := s.db.Model(&model.User{}).Where("role = ?", "admin").Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		log.Println("⏭️  Admin user already exists, skipping...")
		return nil
	}

	email := os.Getenv("ADMIN_EMAIL")
	password := os.Getenv("ADMIN_PASSWORD")
	if email == "" || password == "" {
		log.Println("⏭️  ADMIN_EMAIL/ADMIN_PASSWORD not set, skipping admin user...")
		return nil
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	admin := model.User{
		Email:        email,
		PasswordHash: hash,
		Name:         "Administrator",
		Role:         "admin",
	}
	if err := s.db.Create(&admin).Error; err != nil {
		return err
	}

	log.Printf("👤 Created admin user %s", email)
	return nil
}

// SeedDemoCourse creates a demo student, course and lessons
func (s *Seeder) SeedDemoCourse() error {
	var count int64
	if err := s.db.Model(&model.Course{}).Where("slug = ?", "go-foundations").Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		log.Println("⏭️  Demo course already exists, skipping...")
		return nil
	}

	hash, err := auth.HashPassword("demo-password")
	if err != nil {
		return err
	}

	student := model.User{
		Email:        "student@learnloop.dev",
		PasswordHash: hash,
		Name:         "Demo Student",
		Role:         "student",
	}
	if err := s.db.Where(model.User{Email: student.Email}).FirstOrCreate(&student).Error; err != nil {
		return err
	}

	course := model.Course{
		Title:       "Go Foundations",
		Slug:        "go-foundations",
		Description: "An introduction to the Go programming language.",
		Category:    "programming",
		AuthorID:    student.ID,
	}
	if err := s.db.Create(&course).Error; err != nil {
		return err
	}

	lessonTitles := []string{
		"Getting Started",
		"Types and Variables",
		"Control Flow",
		"Functions and Methods",
		"Slices and Maps",
		"Error Handling",
	}
	for i, title := range lessonTitles {
		lesson := model.Lesson{
			CourseID: course.ID,
			Position: i + 1,
			Title:    title,
			Topic:    title,
			Content:  fmt.Sprintf("# %s\n\nLesson content for %q.", title, title),
			HasQuiz:  i >= 3,
		}
		if err := s.db.Create(&lesson).Error; err != nil {
			return err
		}
	}

	enrollment := model.UserCourse{UserID: student.ID, CourseID: course.ID}
	if err := s.db.Create(&enrollment).Error; err != nil {
		return err
	}

	log.Printf("📚 Created demo course %q with %d lessons", course.Title, len(lessonTitles))
	return nil
}

// SeedDemoLearningHistory inserts a small activity/quiz history for the demo
// student so the analytics dashboard has something to show out of the box.
func (s *Seeder) SeedDemoLearningHistory() error {
	var student model.User
	if err := s.db.Where("email = ?", "student@learnloop.dev").First(&student).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			log.Println("⏭️  Demo student missing, skipping learning history...")
			return nil
		}
		return err
	}

	var count int64
	if err := s.db.Model(&model.LessonActivity{}).Where("user_id = ?", student.ID).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		log.Println("⏭️  Demo learning history already exists, skipping...")
		return nil
	}

	var course model.Course
	if err := s.db.Where("slug = ?", "go-foundations").First(&course).Error; err != nil {
		return err
	}
	var lessons []model.Lesson
	if err := s.db.Where("course_id = ?", course.ID).Order("position ASC").Find(&lessons).Error; err != nil {
		return err
	}
	if len(lessons) < 6 {
		return fmt.Errorf("expected at least 6 demo lessons, got %d", len(lessons))
	}

	base := time.Now().AddDate(0, 0, -14)
	timeSpent := []int{25, 30, 20, 35, 28}
	attempts := []int{1, 2, 1, 1, 3}
	for i, minutes := range timeSpent {
		activity := model.LessonActivity{
			UserID:      student.ID,
			CourseID:    course.ID,
			LessonID:    lessons[i].ID,
			TimeSpent:   minutes,
			Attempts:    attempts[i],
			CompletedAt: base.AddDate(0, 0, i),
		}
		if err := s.db.Create(&activity).Error; err != nil {
			return err
		}
	}

	quizzes := []model.QuizResult{
		{
			UserID: student.ID, CourseID: course.ID, LessonID: lessons[3].ID,
			Score: 80, CorrectAnswers: 4, TotalQuestions: 5, TimeSpent: 12,
			CompletedAt: base.AddDate(0, 0, 3),
		},
		{
			UserID: student.ID, CourseID: course.ID, LessonID: lessons[5].ID,
			Score: 66, CorrectAnswers: 2, TotalQuestions: 3, TimeSpent: 8,
			CompletedAt: base.AddDate(0, 0, 5),
		},
	}
	for i := range quizzes {
		if err := s.db.Create(&quizzes[i]).Error; err != nil {
			return err
		}
	}

	log.Printf("📈 Created demo learning history for %s", student.Email)
	return nil
}
