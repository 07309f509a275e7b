package services

import (
	"math/rand"
	"testing"
	"time"

	"github.com/learnloop/api/model"
)

func activity(courseID, lessonID uint, timeSpent int) model.LessonActivity {
	return model.LessonActivity{
		UserID:      1,
		CourseID:    courseID,
		LessonID:    lessonID,
		TimeSpent:   timeSpent,
		CompletedAt: time.Now(),
	}
}

func quiz(courseID, lessonID uint, score int) model.QuizResult {
	return model.QuizResult{
		UserID:      1,
		CourseID:    courseID,
		LessonID:    lessonID,
		Score:       score,
		CompletedAt: time.Now(),
	}
}

func TestAverageTimePerLessonEmpty(t *testing.T) {
	if got := AverageTimePerLesson(nil); got != 0 {
		t.Errorf("expected 0 for empty input, got %d", got)
	}
	if got := AverageTimePerLesson([]model.LessonActivity{}); got != 0 {
		t.Errorf("expected 0 for empty slice, got %d", got)
	}
}

func TestAverageTimePerLessonRepeatedAttempts(t *testing.T) {
	// Two attempts at the same lesson average to 15 before the
	// cross-lesson average, so the result is 15, not a sum-based 15.
	activities := []model.LessonActivity{
		activity(1, 1, 10),
		activity(1, 1, 20),
	}

	if got := AverageTimePerLesson(activities); got != 15 {
		t.Errorf("expected 15, got %d", got)
	}
}

func TestAverageTimePerLessonRetriesDoNotDominate(t *testing.T) {
	// Lesson 1 has five attempts at 10 minutes, lesson 2 a single 30.
	// Per-lesson averages are 10 and 30, so the overall average is 20.
	activities := []model.LessonActivity{
		activity(1, 1, 10),
		activity(1, 1, 10),
		activity(1, 1, 10),
		activity(1, 1, 10),
		activity(1, 1, 10),
		activity(1, 2, 30),
	}

	if got := AverageTimePerLesson(activities); got != 20 {
		t.Errorf("expected 20, got %d", got)
	}
}

func TestAverageTimePerLessonOrderIndependent(t *testing.T) {
	activities := []model.LessonActivity{
		activity(1, 1, 25),
		activity(1, 2, 30),
		activity(1, 3, 20),
		activity(2, 1, 35),
		activity(2, 2, 28),
		activity(1, 1, 5),
	}

	want := AverageTimePerLesson(activities)

	r := rand.New(rand.NewSource(42))
	for i := 0; i < 10; i++ {
		shuffled := make([]model.LessonActivity, len(activities))
		copy(shuffled, activities)
		r.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})

		if got := AverageTimePerLesson(shuffled); got != want {
			t.Fatalf("shuffle %d: expected %d, got %d", i, want, got)
		}
	}
}

func TestAverageTimePerLessonSkipsInvalidRecords(t *testing.T) {
	activities := []model.LessonActivity{
		activity(1, 1, 10),
		{UserID: 1, CourseID: 1, LessonID: 0, TimeSpent: 500}, // no lesson
		{UserID: 0, CourseID: 1, LessonID: 2, TimeSpent: 500}, // no owner
	}

	if got := AverageTimePerLesson(activities); got != 10 {
		t.Errorf("expected invalid records to be excluded, got %d", got)
	}
}

func TestAverageTimePerLessonCoercesNegativeTime(t *testing.T) {
	activities := []model.LessonActivity{
		activity(1, 1, -30),
		activity(1, 2, 10),
	}

	// Negative time degrades to 0, so the lesson averages are 0 and 10.
	if got := AverageTimePerLesson(activities); got != 5 {
		t.Errorf("expected 5, got %d", got)
	}
}

func TestAverageQuizScore(t *testing.T) {
	tests := []struct {
		name    string
		results []model.QuizResult
		want    int
	}{
		{"empty", nil, 0},
		{"single", []model.QuizResult{quiz(1, 1, 85)}, 85},
		{"mean rounds", []model.QuizResult{quiz(1, 1, 100), quiz(1, 2, 80), quiz(1, 3, 60)}, 80},
		{"two scores", []model.QuizResult{quiz(1, 1, 80), quiz(1, 2, 66)}, 73},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AverageQuizScore(tt.results); got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestEfficiencyZeroInputs(t *testing.T) {
	if got := Efficiency(0, 28); got != 0 {
		t.Errorf("expected 0 when score is 0, got %d", got)
	}
	if got := Efficiency(73, 0); got != 0 {
		t.Errorf("expected 0 when time is 0, got %d", got)
	}
	if got := Efficiency(0, 0); got != 0 {
		t.Errorf("expected 0 when both are 0, got %d", got)
	}
}

func TestEfficiencyBounds(t *testing.T) {
	for score := 0; score <= 100; score += 5 {
		for avgTime := 0; avgTime <= 120; avgTime += 7 {
			got := Efficiency(score, avgTime)
			if got < 0 || got > 100 {
				t.Fatalf("Efficiency(%d, %d) = %d, out of [0,100]", score, avgTime, got)
			}
			// Same inputs must yield the same output.
			if again := Efficiency(score, avgTime); again != got {
				t.Fatalf("Efficiency(%d, %d) not deterministic: %d then %d", score, avgTime, got, again)
			}
		}
	}
}

func TestEfficiencyMonotonicInScore(t *testing.T) {
	prev := -1
	for score := 0; score <= 100; score++ {
		got := Efficiency(score, 60)
		if got < prev {
			t.Fatalf("efficiency decreased from %d to %d at score %d", prev, got, score)
		}
		prev = got
	}
}

func TestEfficiencyMonotonicInTime(t *testing.T) {
	prev := 101
	for avgTime := 1; avgTime <= 120; avgTime++ {
		got := Efficiency(70, avgTime)
		if got > prev {
			t.Fatalf("efficiency increased from %d to %d at time %d", prev, got, avgTime)
		}
		prev = got
	}
}

func TestComputeEndToEnd(t *testing.T) {
	activities := []model.LessonActivity{
		activity(1, 1, 25),
		activity(1, 2, 30),
		activity(1, 3, 20),
		activity(1, 4, 35),
		activity(1, 5, 28),
	}
	results := []model.QuizResult{
		quiz(1, 4, 80),
		quiz(1, 6, 66),
	}

	metrics := Compute(activities, results)

	if metrics.AverageTimePerLesson != 28 {
		t.Errorf("expected average time 28, got %d", metrics.AverageTimePerLesson)
	}
	if metrics.AverageQuizScore != 73 {
		t.Errorf("expected average score 73, got %d", metrics.AverageQuizScore)
	}
	if want := Efficiency(73, 28); metrics.Efficiency != want {
		t.Errorf("expected efficiency %d, got %d", want, metrics.Efficiency)
	}
	if metrics.LessonsCompleted != 5 {
		t.Errorf("expected 5 lessons completed, got %d", metrics.LessonsCompleted)
	}
	if metrics.QuizzesTaken != 2 {
		t.Errorf("expected 2 quizzes taken, got %d", metrics.QuizzesTaken)
	}

	// Deterministic across repeated runs.
	again := Compute(activities, results)
	if *again != *metrics {
		t.Errorf("metrics not reproducible: %+v vs %+v", metrics, again)
	}
}

func TestComputeEmptyInputs(t *testing.T) {
	metrics := Compute(nil, nil)

	if metrics.AverageTimePerLesson != 0 || metrics.AverageQuizScore != 0 || metrics.Efficiency != 0 {
		t.Errorf("expected zero-valued metrics for empty input, got %+v", metrics)
	}
}
