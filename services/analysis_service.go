package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/learnloop/api/model"
	"github.com/learnloop/api/services/openai"
)

// Grade is a coarse letter grade derived from the average quiz score
type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeF Grade = "F"
)

// ProgressTrend describes the direction of recent quiz performance
type ProgressTrend string

const (
	TrendImproving ProgressTrend = "improving"
	TrendDeclining ProgressTrend = "declining"
	TrendStable    ProgressTrend = "stable"
)

// PerformanceReport is the heuristic assessment of a learner's history
type PerformanceReport struct {
	OverallGrade    Grade           `json:"overall_grade"`
	Metrics         LearningMetrics `json:"metrics"`
	StrugglingAreas []string        `json:"struggling_areas"`
	Recommendations []string        `json:"recommendations"`
	ProgressTrend   ProgressTrend   `json:"progress_trend"`
}

// AnalysisService produces performance reports and LLM-backed study advice
type AnalysisService struct {
	reader ActivityReader
	client *openai.Client
}

// NewAnalysisService creates a new analysis service
func NewAnalysisService(reader ActivityReader, client *openai.Client) *AnalysisService {
	return &AnalysisService{reader: reader, client: client}
}

// AnalyzePerformance builds a heuristic performance report from stored history
func (s *AnalysisService) AnalyzePerformance(userID uint) (*PerformanceReport, error) {
	activities, err := s.reader.GetLessonActivities(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch lesson activities: %w", err)
	}

	results, err := s.reader.GetQuizResults(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch quiz results: %w", err)
	}

	return BuildPerformanceReport(activities, results), nil
}

// BuildPerformanceReport assesses a learning history with fixed heuristics.
// Pure computation; reproducible for the same inputs.
func BuildPerformanceReport(activities []model.LessonActivity, results []model.QuizResult) *PerformanceReport {
	metrics := Compute(activities, results)

	return &PerformanceReport{
		OverallGrade:    gradeFor(metrics.AverageQuizScore),
		Metrics:         *metrics,
		StrugglingAreas: strugglingAreas(metrics, results),
		Recommendations: recommendations(metrics),
		ProgressTrend:   progressTrend(results),
	}
}

func gradeFor(avgScore int) Grade {
	switch {
	case avgScore >= 90:
		return GradeA
	case avgScore >= 80:
		return GradeB
	case avgScore >= 70:
		return GradeC
	case avgScore >= 60:
		return GradeD
	default:
		return GradeF
	}
}

// strugglingAreas flags broad problem categories: frequent low quiz scores,
// slow lesson pace, and poor score-to-time efficiency
func strugglingAreas(metrics *LearningMetrics, results []model.QuizResult) []string {
	areas := make([]string, 0)

	lowScores := 0
	valid := 0
	for _, r := range results {
		if !r.Valid() {
			continue
		}
		valid++
		if r.Score < 70 {
			lowScores++
		}
	}
	if valid > 0 && float64(lowScores) > float64(valid)*0.3 {
		areas = append(areas, "Quiz performance")
	}

	if metrics.AverageTimePerLesson > 35 {
		areas = append(areas, "Learning pace")
	}

	if metrics.QuizzesTaken > 0 && metrics.Efficiency < 50 {
		areas = append(areas, "Learning efficiency")
	}

	return areas
}

func recommendations(metrics *LearningMetrics) []string {
	recs := make([]string, 0)

	if metrics.QuizzesTaken > 0 && metrics.AverageQuizScore < 70 {
		recs = append(recs, "Spend more time reviewing the material before taking quizzes")
	}

	if metrics.AverageTimePerLesson > 30 {
		recs = append(recs, "Try breaking lessons into smaller study sessions")
	}

	if metrics.QuizzesTaken > 0 && metrics.Efficiency < 60 {
		recs = append(recs, "Consider changing your study approach")
	}

	if len(recs) == 0 {
		recs = append(recs, "Great work! Keep it up")
	}

	return recs
}

// progressTrend compares the mean of the last three quiz scores against the
// previous three; a move of more than 5 points either way counts as a trend
func progressTrend(results []model.QuizResult) ProgressTrend {
	valid := make([]model.QuizResult, 0, len(results))
	for _, r := range results {
		if r.Valid() {
			valid = append(valid, r)
		}
	}

	if len(valid) < 6 {
		return TrendStable
	}

	n := len(valid)
	recent := meanScore(valid[n-3:])
	previous := meanScore(valid[n-6 : n-3])

	switch {
	case recent > previous+5:
		return TrendImproving
	case recent < previous-5:
		return TrendDeclining
	default:
		return TrendStable
	}
}

func meanScore(results []model.QuizResult) float64 {
	var sum float64
	for _, r := range results {
		sum += float64(r.Score)
	}
	return sum / float64(len(results))
}

// NotEnoughDataMessage is returned when there is no history to analyze
const NotEnoughDataMessage = "Not enough data for analysis. Complete more lessons and quizzes."

const analysisSystemPrompt = "You are a teaching assistant. Analyze learning data and give short, practical recommendations."

// AnalyzeWithAdvisor asks the LLM for free-form study advice based on a
// textual summary of the learner's history
func (s *AnalysisService) AnalyzeWithAdvisor(ctx context.Context, userID uint) (string, error) {
	activities, err := s.reader.GetLessonActivities(userID)
	if err != nil {
		return "", fmt.Errorf("failed to fetch lesson activities: %w", err)
	}

	results, err := s.reader.GetQuizResults(userID)
	if err != nil {
		return "", fmt.Errorf("failed to fetch quiz results: %w", err)
	}

	if len(activities) == 0 && len(results) == 0 {
		return NotEnoughDataMessage, nil
	}

	prompt := buildAnalysisPrompt(activities, results)

	analysis, err := s.client.SimpleCompletion(ctx, analysisSystemPrompt, prompt,
		openai.WithTemperature(0.7), openai.WithMaxTokens(300))
	if err != nil {
		return "", fmt.Errorf("analysis request failed: %w", err)
	}

	analysis = strings.TrimSpace(analysis)
	if analysis == "" {
		return "", fmt.Errorf("analysis request returned empty content")
	}

	return analysis, nil
}

// buildAnalysisPrompt renders the history as a compact per-record summary
func buildAnalysisPrompt(activities []model.LessonActivity, results []model.QuizResult) string {
	var b strings.Builder

	b.WriteString("Student learning analysis:\n\n")

	fmt.Fprintf(&b, "Lesson activity (%d):\n", len(activities))
	if len(activities) == 0 {
		b.WriteString("No data\n")
	}
	for _, a := range activities {
		attempts := a.Attempts
		if attempts < 1 {
			attempts = 1
		}
		fmt.Fprintf(&b, "- Lesson %d, Course %d, Time: %d min, Attempts: %d\n",
			a.LessonID, a.CourseID, a.TimeSpent, attempts)
	}

	fmt.Fprintf(&b, "\nQuiz results (%d):\n", len(results))
	if len(results) == 0 {
		b.WriteString("No data\n")
	}
	for _, r := range results {
		fmt.Fprintf(&b, "- Lesson %d, Course %d, Score: %d%%, Correct: %d/%d, Time: %d min\n",
			r.LessonID, r.CourseID, r.Score, r.CorrectAnswers, r.TotalQuestions, r.TimeSpent)
	}

	b.WriteString("\nAnalyze this learning data and give brief recommendations:\n")
	b.WriteString("1. Which topics need extra attention?\n")
	b.WriteString("2. How can the results be improved?\n\n")
	b.WriteString("Keep the answer under 150 words.")

	return b.String()
}
