package services

import (
	"strings"
	"testing"

	"github.com/learnloop/api/model"
)

func TestGradeThresholds(t *testing.T) {
	tests := []struct {
		score int
		want  Grade
	}{
		{95, GradeA},
		{90, GradeA},
		{89, GradeB},
		{80, GradeB},
		{79, GradeC},
		{70, GradeC},
		{69, GradeD},
		{60, GradeD},
		{59, GradeF},
		{0, GradeF},
	}

	for _, tt := range tests {
		if got := gradeFor(tt.score); got != tt.want {
			t.Errorf("gradeFor(%d) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestProgressTrend(t *testing.T) {
	scores := func(values ...int) []model.QuizResult {
		results := make([]model.QuizResult, 0, len(values))
		for i, v := range values {
			results = append(results, quiz(1, uint(i+1), v))
		}
		return results
	}

	tests := []struct {
		name    string
		results []model.QuizResult
		want    ProgressTrend
	}{
		{"too few results", scores(50, 60, 70, 80, 90), TrendStable},
		{"improving", scores(50, 50, 50, 80, 80, 80), TrendImproving},
		{"declining", scores(90, 90, 90, 60, 60, 60), TrendDeclining},
		{"within noise band", scores(70, 70, 70, 73, 73, 73), TrendStable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := progressTrend(tt.results); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestBuildPerformanceReportStrugglingAreas(t *testing.T) {
	// Half the quizzes below 70 and a slow lesson pace trip two flags.
	activities := []model.LessonActivity{
		activity(1, 1, 50),
		activity(1, 2, 40),
	}
	results := []model.QuizResult{
		quiz(1, 1, 50),
		quiz(1, 2, 90),
	}

	report := BuildPerformanceReport(activities, results)

	hasArea := func(name string) bool {
		for _, a := range report.StrugglingAreas {
			if a == name {
				return true
			}
		}
		return false
	}

	if !hasArea("Quiz performance") {
		t.Errorf("expected quiz performance flagged, got %v", report.StrugglingAreas)
	}
	if !hasArea("Learning pace") {
		t.Errorf("expected learning pace flagged, got %v", report.StrugglingAreas)
	}
}

func TestBuildPerformanceReportCleanHistory(t *testing.T) {
	activities := []model.LessonActivity{
		activity(1, 1, 20),
		activity(1, 2, 25),
	}
	results := []model.QuizResult{
		quiz(1, 1, 95),
		quiz(1, 2, 92),
	}

	report := BuildPerformanceReport(activities, results)

	if report.OverallGrade != GradeA {
		t.Errorf("expected grade A, got %s", report.OverallGrade)
	}
	if len(report.StrugglingAreas) != 0 {
		t.Errorf("expected no struggling areas, got %v", report.StrugglingAreas)
	}
	if len(report.Recommendations) != 1 {
		t.Fatalf("expected exactly the encouragement recommendation, got %v", report.Recommendations)
	}
	if report.ProgressTrend != TrendStable {
		t.Errorf("expected stable trend for short history, got %s", report.ProgressTrend)
	}
}

func TestBuildAnalysisPromptRendersHistory(t *testing.T) {
	activities := []model.LessonActivity{activity(2, 1, 25)}
	results := []model.QuizResult{
		{UserID: 1, CourseID: 2, LessonID: 4, Score: 80, CorrectAnswers: 4, TotalQuestions: 5, TimeSpent: 12},
	}

	prompt := buildAnalysisPrompt(activities, results)

	for _, want := range []string{
		"Lesson 1, Course 2, Time: 25 min",
		"Lesson 4, Course 2, Score: 80%, Correct: 4/5",
		"Lesson activity (1)",
		"Quiz results (1)",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestBuildAnalysisPromptEmptySections(t *testing.T) {
	prompt := buildAnalysisPrompt(nil, []model.QuizResult{quiz(1, 1, 70)})

	if !strings.Contains(prompt, "No data") {
		t.Errorf("expected empty activity section marked, got:\n%s", prompt)
	}
}
