package services

import (
	"fmt"
	"math"

	"github.com/learnloop/api/model"
)

// ActivityReader provides ordered, validity-filtered learning records for a user
type ActivityReader interface {
	GetLessonActivities(userID uint) ([]model.LessonActivity, error)
	GetQuizResults(userID uint) ([]model.QuizResult, error)
}

// LearningMetrics holds the derived summary statistics for one learner
type LearningMetrics struct {
	AverageTimePerLesson int `json:"average_time_per_lesson"` // Minutes, rounded
	AverageQuizScore     int `json:"average_quiz_score"`      // Percentage, rounded
	Efficiency           int `json:"efficiency"`              // Bounded composite in [0,100]
	LessonsCompleted     int `json:"lessons_completed"`       // Unique lessons with activity
	QuizzesTaken         int `json:"quizzes_taken"`
}

// MetricsService computes summary metrics from a user's learning history.
// All computation is pure; the only I/O is the initial record fetch.
type MetricsService struct {
	reader ActivityReader
}

// NewMetricsService creates a new metrics service
func NewMetricsService(reader ActivityReader) *MetricsService {
	return &MetricsService{reader: reader}
}

// MetricsCacheKey is the Redis key for a user's cached metrics snapshot.
// Writers of new learning records must invalidate it.
func MetricsCacheKey(userID uint) string {
	return fmt.Sprintf("metrics:user:%d", userID)
}

// ComputeForUser fetches the user's full history and aggregates it.
// A failed fetch is surfaced to the caller; it is retryable as a whole.
func (s *MetricsService) ComputeForUser(userID uint) (*LearningMetrics, error) {
	activities, err := s.reader.GetLessonActivities(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch lesson activities: %w", err)
	}

	results, err := s.reader.GetQuizResults(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch quiz results: %w", err)
	}

	return Compute(activities, results), nil
}

// Compute aggregates raw records into summary metrics. Malformed records
// degrade to zero-valued contributions instead of failing the computation.
func Compute(activities []model.LessonActivity, results []model.QuizResult) *LearningMetrics {
	avgTime := AverageTimePerLesson(activities)
	avgScore := AverageQuizScore(results)

	return &LearningMetrics{
		AverageTimePerLesson: avgTime,
		AverageQuizScore:     avgScore,
		Efficiency:           Efficiency(avgScore, avgTime),
		LessonsCompleted:     countUniqueLessons(activities),
		QuizzesTaken:         countValidResults(results),
	}
}

type lessonKey struct {
	courseID uint
	lessonID uint
}

// AverageTimePerLesson returns the mean time spent per unique lesson,
// rounded to the nearest minute. Repeated attempts at the same lesson are
// averaged into a single per-lesson value first, so a lesson with many
// retries cannot dominate the result. Returns 0 for an empty history.
func AverageTimePerLesson(activities []model.LessonActivity) int {
	sums := make(map[lessonKey]float64)
	counts := make(map[lessonKey]int)

	for _, a := range activities {
		if !a.Valid() {
			continue
		}
		key := lessonKey{courseID: a.CourseID, lessonID: a.LessonID}
		sums[key] += coerceMinutes(a.TimeSpent)
		counts[key]++
	}

	if len(sums) == 0 {
		return 0
	}

	var total float64
	for key, sum := range sums {
		total += sum / float64(counts[key])
	}

	return int(math.Round(total / float64(len(sums))))
}

// AverageQuizScore returns the mean quiz score across all valid results,
// rounded to the nearest integer. Returns 0 for an empty history.
func AverageQuizScore(results []model.QuizResult) int {
	var sum float64
	var count int

	for _, r := range results {
		if !r.Valid() {
			continue
		}
		sum += coerceScore(r.Score)
		count++
	}

	if count == 0 {
		return 0
	}

	return int(math.Round(sum / float64(count)))
}

// Efficiency relates quiz performance to time invested: higher scores in
// less time rank higher. Defined as min(100, round(score/(avgTime/10)*10));
// 0 when either input is 0.
func Efficiency(avgScore, avgTime int) int {
	if avgScore <= 0 || avgTime <= 0 {
		return 0
	}

	value := int(math.Round(float64(avgScore) / (float64(avgTime) / 10.0) * 10.0))
	if value > 100 {
		return 100
	}
	return value
}

func countUniqueLessons(activities []model.LessonActivity) int {
	seen := make(map[lessonKey]struct{})
	for _, a := range activities {
		if !a.Valid() {
			continue
		}
		seen[lessonKey{courseID: a.CourseID, lessonID: a.LessonID}] = struct{}{}
	}
	return len(seen)
}

func countValidResults(results []model.QuizResult) int {
	count := 0
	for _, r := range results {
		if r.Valid() {
			count++
		}
	}
	return count
}

// coerceMinutes clamps malformed time values to 0 rather than rejecting the record
func coerceMinutes(minutes int) float64 {
	if minutes < 0 {
		return 0
	}
	return float64(minutes)
}

// coerceScore clamps scores into [0,100]
func coerceScore(score int) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return float64(score)
}
