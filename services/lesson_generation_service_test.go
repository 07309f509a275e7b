package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/learnloop/api/model"
)

type fakeLessonStore struct {
	mu       sync.Mutex
	existing map[string]bool // topic -> exists
	inserted []model.GeneratedLesson
	findErr  error
	conflict bool // simulate a concurrent insert winning the race
}

func (s *fakeLessonStore) FindGeneratedLesson(userID uint, topic string, courseID uint) (*model.GeneratedLesson, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.findErr != nil {
		return nil, s.findErr
	}
	if s.existing[topic] {
		return &model.GeneratedLesson{UserID: userID, Topic: topic, BaseCourseID: courseID}, nil
	}
	return nil, nil
}

func (s *fakeLessonStore) InsertGeneratedLesson(lesson model.GeneratedLesson) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conflict {
		return false, nil
	}
	s.inserted = append(s.inserted, lesson)
	return true, nil
}

func (s *fakeLessonStore) insertedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inserted)
}

type fakeGenerator struct {
	mu      sync.Mutex
	calls   []GenerateLessonRequest
	content string
	err     error
	// failTopic makes exactly one topic fail while others succeed
	failTopic string
}

func (g *fakeGenerator) GenerateLesson(ctx context.Context, req GenerateLessonRequest) (string, error) {
	g.mu.Lock()
	g.calls = append(g.calls, req)
	g.mu.Unlock()

	if g.err != nil {
		return "", g.err
	}
	if g.failTopic != "" && req.Topic == g.failTopic {
		return "", errors.New("backend unavailable")
	}
	return g.content, nil
}

func (g *fakeGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

func TestBuildGenerationTasksSignalWindows(t *testing.T) {
	activities := []model.LessonActivity{
		activity(1, 1, 3),  // short time
		activity(1, 2, 0),  // zero time is not a signal
		activity(1, 3, 5),  // boundary, not a signal
		activity(1, 4, 30), // normal pace
	}
	results := []model.QuizResult{
		quiz(1, 5, 99),  // quiz errors
		quiz(1, 6, 100), // perfect, not a signal
	}

	tasks := BuildGenerationTasks(activities, results, "Go Foundations")

	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d: %+v", len(tasks), tasks)
	}
	if tasks[0].Signal != model.SignalTestErrors || tasks[0].LessonID != 5 {
		t.Errorf("expected quiz-error task first, got %+v", tasks[0])
	}
	if tasks[1].Signal != model.SignalShortTime || tasks[1].LessonID != 1 {
		t.Errorf("expected short-time task second, got %+v", tasks[1])
	}
	for _, task := range tasks {
		if task.BaseCourseTitle != "Go Foundations" {
			t.Errorf("expected course title threaded through, got %q", task.BaseCourseTitle)
		}
	}
}

func TestBuildGenerationTasksDeduplicates(t *testing.T) {
	// Two failing quizzes for the same lesson collapse to one task;
	// quiz-error tasks are collected before short-time ones.
	results := []model.QuizResult{
		quiz(1, 1, 50),
		quiz(1, 1, 70),
	}
	activities := []model.LessonActivity{
		activity(1, 1, 2),
		activity(1, 1, 3),
	}

	tasks := BuildGenerationTasks(activities, results, "Course")

	if len(tasks) != 2 {
		t.Fatalf("expected 2 deduplicated tasks, got %d", len(tasks))
	}
	if tasks[0].Signal != model.SignalTestErrors {
		t.Errorf("expected quiz-error precedence, got %+v", tasks[0])
	}
	if tasks[0].ErrorDetails == "" {
		t.Error("expected quiz-error task to carry error details")
	}
}

func TestBuildGenerationTasksErrorDetails(t *testing.T) {
	results := []model.QuizResult{
		{UserID: 1, CourseID: 1, LessonID: 1, Score: 66, CorrectAnswers: 2, TotalQuestions: 3},
	}

	tasks := BuildGenerationTasks(nil, results, "Course")

	if len(tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(tasks))
	}
	if want := "1 of 3 questions answered incorrectly"; tasks[0].ErrorDetails != want {
		t.Errorf("expected %q, got %q", want, tasks[0].ErrorDetails)
	}
}

func TestRunSkipsExistingLessons(t *testing.T) {
	results := []model.QuizResult{quiz(1, 1, 50)}
	tasks := BuildGenerationTasks(nil, results, "Course")
	if len(tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(tasks))
	}

	store := &fakeLessonStore{existing: map[string]bool{tasks[0].Topic: true}}
	generator := &fakeGenerator{content: "# Lesson"}
	svc := NewLessonGenerationService(store, generator, nil)

	report, err := svc.Run(context.Background(), 1, "Course", nil, results)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if generator.callCount() != 0 {
		t.Errorf("expected no generation call for existing lesson, got %d", generator.callCount())
	}
	if report.Skipped != 1 || report.Generated != 0 {
		t.Errorf("expected 1 skip, got %+v", report)
	}
}

func TestRunGenerationFailureDoesNotInsert(t *testing.T) {
	store := &fakeLessonStore{}
	generator := &fakeGenerator{err: errors.New("model overloaded")}
	svc := NewLessonGenerationService(store, generator, nil)

	results := []model.QuizResult{quiz(1, 1, 50)}
	report, err := svc.Run(context.Background(), 1, "Course", nil, results)
	if err != nil {
		t.Fatalf("failure must be absorbed, not returned: %v", err)
	}

	if store.insertedCount() != 0 {
		t.Errorf("expected no insert on generation failure, got %d", store.insertedCount())
	}
	if report.Failed != 1 {
		t.Errorf("expected 1 failure recorded, got %+v", report)
	}
}

func TestRunEmptyContentDoesNotInsert(t *testing.T) {
	store := &fakeLessonStore{}
	generator := &fakeGenerator{content: "   \n"}
	svc := NewLessonGenerationService(store, generator, nil)

	results := []model.QuizResult{quiz(1, 1, 50)}
	report, err := svc.Run(context.Background(), 1, "Course", nil, results)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if store.insertedCount() != 0 {
		t.Errorf("expected no insert for empty content, got %d", store.insertedCount())
	}
	if report.Failed != 1 {
		t.Errorf("expected 1 failure recorded, got %+v", report)
	}
}

func TestRunPartialFailureDoesNotBlockSiblings(t *testing.T) {
	results := []model.QuizResult{
		quiz(1, 1, 50),
		quiz(1, 2, 60),
		quiz(1, 3, 70),
	}
	tasks := BuildGenerationTasks(nil, results, "Course")

	store := &fakeLessonStore{}
	generator := &fakeGenerator{content: "# Lesson", failTopic: tasks[1].Topic}
	svc := NewLessonGenerationService(store, generator, nil)

	report, err := svc.Run(context.Background(), 1, "Course", nil, results)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.Generated != 2 || report.Failed != 1 {
		t.Errorf("expected 2 generated and 1 failed, got %+v", report)
	}
	if store.insertedCount() != 2 {
		t.Errorf("expected 2 inserts, got %d", store.insertedCount())
	}
}

func TestRunInsertConflictIsSkip(t *testing.T) {
	// A concurrent run winning the unique-index race is a skip, not an error.
	store := &fakeLessonStore{conflict: true}
	generator := &fakeGenerator{content: "# Lesson"}
	svc := NewLessonGenerationService(store, generator, nil)

	results := []model.QuizResult{quiz(1, 1, 50)}
	report, err := svc.Run(context.Background(), 1, "Course", nil, results)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.Skipped != 1 || report.Failed != 0 {
		t.Errorf("expected conflict counted as skip, got %+v", report)
	}
}

func TestRunExistenceCheckFailure(t *testing.T) {
	store := &fakeLessonStore{findErr: errors.New("connection reset")}
	generator := &fakeGenerator{content: "# Lesson"}
	svc := NewLessonGenerationService(store, generator, nil)

	results := []model.QuizResult{quiz(1, 1, 50)}
	report, err := svc.Run(context.Background(), 1, "Course", nil, results)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if generator.callCount() != 0 {
		t.Errorf("expected no generation call after failed existence check, got %d", generator.callCount())
	}
	if report.Failed != 1 {
		t.Errorf("expected 1 failure recorded, got %+v", report)
	}
}

func TestRunPersistsSignalMetadata(t *testing.T) {
	store := &fakeLessonStore{}
	generator := &fakeGenerator{content: "# Extra practice"}
	svc := NewLessonGenerationService(store, generator, nil)

	activities := []model.LessonActivity{activity(7, 3, 2)}
	report, err := svc.Run(context.Background(), 42, "Algebra", activities, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Generated != 1 {
		t.Fatalf("expected 1 generated lesson, got %+v", report)
	}

	got := store.inserted[0]
	if got.UserID != 42 || got.BaseCourseID != 7 || got.LessonID != 3 {
		t.Errorf("unexpected lesson keys: %+v", got)
	}
	if got.Signal != model.SignalShortTime {
		t.Errorf("expected short-time signal, got %q", got.Signal)
	}
	if got.Content != "# Extra practice" {
		t.Errorf("unexpected content: %q", got.Content)
	}

	// The prompt override should name the lesson and course.
	req := generator.calls[0]
	if req.PromptOverride == "" {
		t.Fatal("expected a prompt override")
	}
	if want := fmt.Sprintf("lesson %d", 3); !strings.Contains(req.PromptOverride, want) {
		t.Errorf("prompt %q does not mention %q", req.PromptOverride, want)
	}
	if !strings.Contains(req.PromptOverride, "Algebra") {
		t.Errorf("prompt %q does not mention the course", req.PromptOverride)
	}
}

func TestRunNoSignalsNoWork(t *testing.T) {
	store := &fakeLessonStore{}
	generator := &fakeGenerator{content: "# Lesson"}
	svc := NewLessonGenerationService(store, generator, nil)

	activities := []model.LessonActivity{activity(1, 1, 30)}
	results := []model.QuizResult{quiz(1, 1, 100)}

	report, err := svc.Run(context.Background(), 1, "Course", activities, results)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Tasks != 0 || generator.callCount() != 0 {
		t.Errorf("expected no work for a clean history, got %+v", report)
	}
}
