package services

import (
	"context"
	"fmt"
	"math"

	"gorm.io/gorm"

	"github.com/learnloop/api/model"
)

// CourseProgress summarizes a learner's position within one course
type CourseProgress struct {
	CourseID         uint    `json:"course_id"`
	CourseTitle      string  `json:"course_title"`
	TotalLessons     int     `json:"total_lessons"`
	CompletedLessons int     `json:"completed_lessons"`
	PercentComplete  float64 `json:"percent_complete"`
	TimeSpent        int     `json:"time_spent"` // Total minutes across attempts
	QuizzesTaken     int     `json:"quizzes_taken"`
	AverageQuizScore int     `json:"average_quiz_score"`
}

// ProgressService computes per-course completion summaries
type ProgressService struct {
	db     *gorm.DB
	reader ActivityReader
}

// NewProgressService creates a new progress service
func NewProgressService(db *gorm.DB, reader ActivityReader) *ProgressService {
	return &ProgressService{db: db, reader: reader}
}

// GetCourseProgress summarizes one enrollment
func (s *ProgressService) GetCourseProgress(ctx context.Context, userID, courseID uint) (*CourseProgress, error) {
	var course model.Course
	if err := s.db.WithContext(ctx).Preload("Lessons").First(&course, courseID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("course not found")
		}
		return nil, fmt.Errorf("failed to load course: %w", err)
	}

	activities, err := s.reader.GetLessonActivities(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch lesson activities: %w", err)
	}

	results, err := s.reader.GetQuizResults(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch quiz results: %w", err)
	}

	return buildCourseProgress(&course, activities, results), nil
}

// GetAllProgress summarizes every course the user is enrolled in
func (s *ProgressService) GetAllProgress(ctx context.Context, userID uint) ([]CourseProgress, error) {
	var enrollments []model.UserCourse
	err := s.db.WithContext(ctx).
		Preload("Course.Lessons").
		Where("user_id = ?", userID).
		Find(&enrollments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch enrollments: %w", err)
	}

	activities, err := s.reader.GetLessonActivities(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch lesson activities: %w", err)
	}

	results, err := s.reader.GetQuizResults(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch quiz results: %w", err)
	}

	progress := make([]CourseProgress, 0, len(enrollments))
	for i := range enrollments {
		progress = append(progress, *buildCourseProgress(&enrollments[i].Course, activities, results))
	}

	return progress, nil
}

// buildCourseProgress counts completed lessons from the activity log.
// A lesson counts as completed once it has at least one valid activity.
func buildCourseProgress(course *model.Course, activities []model.LessonActivity, results []model.QuizResult) *CourseProgress {
	completed := make(map[uint]struct{})
	timeSpent := 0
	for _, a := range activities {
		if !a.Valid() || a.CourseID != course.ID {
			continue
		}
		completed[a.LessonID] = struct{}{}
		if a.TimeSpent > 0 {
			timeSpent += a.TimeSpent
		}
	}

	courseResults := make([]model.QuizResult, 0)
	for _, r := range results {
		if r.Valid() && r.CourseID == course.ID {
			courseResults = append(courseResults, r)
		}
	}

	total := len(course.Lessons)
	percent := 0.0
	if total > 0 {
		percent = math.Round(float64(len(completed))/float64(total)*1000) / 10
		if percent > 100 {
			percent = 100
		}
	}

	return &CourseProgress{
		CourseID:         course.ID,
		CourseTitle:      course.Title,
		TotalLessons:     total,
		CompletedLessons: len(completed),
		PercentComplete:  percent,
		TimeSpent:        timeSpent,
		QuizzesTaken:     len(courseResults),
		AverageQuizScore: AverageQuizScore(courseResults),
	}
}
