package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/learnloop/api/model"
	"github.com/learnloop/api/services/openai"
)

// maxConcurrentGenerations caps parallel calls to the generation backend
const maxConcurrentGenerations = 4

// GenerationTask is one weakness signal queued for supplemental content
type GenerationTask struct {
	Signal          model.GenerationSignal
	LessonID        uint
	CourseID        uint
	BaseCourseTitle string
	Topic           string
	ErrorDetails    string // Only set for quiz-error signals
}

// Key identifies a task for deduplication within a single run
func (t GenerationTask) Key() string {
	return fmt.Sprintf("%s-%d-%d", t.Signal, t.LessonID, t.CourseID)
}

// GeneratedLessonStore persists supplemental lessons with at-most-once
// semantics per (user, topic, course) enforced by a unique index
type GeneratedLessonStore interface {
	FindGeneratedLesson(userID uint, topic string, courseID uint) (*model.GeneratedLesson, error)
	InsertGeneratedLesson(lesson model.GeneratedLesson) (bool, error)
}

// GenerateLessonRequest carries everything the generation backend needs
type GenerateLessonRequest struct {
	Topic           string
	BaseCourseTitle string
	UserID          uint
	PromptOverride  string
}

// LessonGenerator produces supplemental lesson content for a weakness signal
type LessonGenerator interface {
	GenerateLesson(ctx context.Context, req GenerateLessonRequest) (string, error)
}

// GenerationReport summarizes one trigger run
type GenerationReport struct {
	Tasks     int   `json:"tasks"`
	Generated int64 `json:"generated"`
	Skipped   int64 `json:"skipped"`
	Failed    int64 `json:"failed"`
}

// LessonGenerationService turns weakness signals into at most one generated
// lesson per distinct signal. Each task runs in its own error boundary: one
// failed generation is logged and counted, never propagated to its siblings.
type LessonGenerationService struct {
	store         GeneratedLessonStore
	generator     LessonGenerator
	notifications *NotificationService // Optional; nil disables notifications
}

// NewLessonGenerationService creates a new lesson generation service
func NewLessonGenerationService(store GeneratedLessonStore, generator LessonGenerator, notifications *NotificationService) *LessonGenerationService {
	return &LessonGenerationService{
		store:         store,
		generator:     generator,
		notifications: notifications,
	}
}

// BuildGenerationTasks derives the deduplicated task list for one run.
// Two signal classes feed it: lessons rushed through in under 5 minutes,
// and quizzes finished below a perfect score. When both classes produce the
// same (signal, lesson, course) key, quiz-error tasks win: they carry the
// more specific prompt, so they are collected first and duplicates dropped.
func BuildGenerationTasks(activities []model.LessonActivity, results []model.QuizResult, baseCourseTitle string) []GenerationTask {
	tasks := make([]GenerationTask, 0)

	for _, r := range results {
		if !r.Valid() || r.Score >= 100 {
			continue
		}
		details := "some questions were answered incorrectly"
		if r.TotalQuestions > 0 {
			details = fmt.Sprintf("%d of %d questions answered incorrectly", r.TotalQuestions-r.CorrectAnswers, r.TotalQuestions)
		}
		tasks = append(tasks, GenerationTask{
			Signal:          model.SignalTestErrors,
			LessonID:        r.LessonID,
			CourseID:        r.CourseID,
			BaseCourseTitle: baseCourseTitle,
			Topic:           fmt.Sprintf("Explainer: lesson %d quiz", r.LessonID),
			ErrorDetails:    details,
		})
	}

	for _, a := range activities {
		if !a.Valid() || a.TimeSpent <= 0 || a.TimeSpent >= 5 {
			continue
		}
		tasks = append(tasks, GenerationTask{
			Signal:          model.SignalShortTime,
			LessonID:        a.LessonID,
			CourseID:        a.CourseID,
			BaseCourseTitle: baseCourseTitle,
			Topic:           fmt.Sprintf("Review: lesson %d", a.LessonID),
		})
	}

	deduped := make([]GenerationTask, 0, len(tasks))
	seen := make(map[string]struct{}, len(tasks))
	for _, task := range tasks {
		key := task.Key()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		deduped = append(deduped, task)
	}

	return deduped
}

// Run derives tasks from the user's history and fans them out concurrently.
// Returns a report of the run; the only error it can return is context
// cancellation. Per-task failures are counted in the report, not propagated.
func (s *LessonGenerationService) Run(ctx context.Context, userID uint, baseCourseTitle string, activities []model.LessonActivity, results []model.QuizResult) (*GenerationReport, error) {
	tasks := BuildGenerationTasks(activities, results, baseCourseTitle)

	report := &GenerationReport{Tasks: len(tasks)}
	if len(tasks) == 0 {
		return report, nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentGenerations)

	for _, task := range tasks {
		task := task
		g.Go(func() error {
			switch s.processTask(ctx, userID, task) {
			case taskGenerated:
				atomic.AddInt64(&report.Generated, 1)
			case taskSkipped:
				atomic.AddInt64(&report.Skipped, 1)
			case taskFailed:
				atomic.AddInt64(&report.Failed, 1)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return report, err
	}

	if report.Generated > 0 {
		s.notifyGenerated(ctx, userID, report)
	}

	return report, nil
}

type taskOutcome int

const (
	taskGenerated taskOutcome = iota
	taskSkipped
	taskFailed
)

// processTask walks one signal through its lifecycle:
// existence check -> generation -> insert. The conflict branch of the
// unique index is a skip, not a failure: a concurrent run got there first.
func (s *LessonGenerationService) processTask(ctx context.Context, userID uint, task GenerationTask) taskOutcome {
	existing, err := s.store.FindGeneratedLesson(userID, task.Topic, task.CourseID)
	if err != nil {
		log.Printf("Generation task %s for user %d: existence check failed: %v", task.Key(), userID, err)
		return taskFailed
	}
	if existing != nil {
		return taskSkipped
	}

	content, err := s.generator.GenerateLesson(ctx, GenerateLessonRequest{
		Topic:           task.Topic,
		BaseCourseTitle: task.BaseCourseTitle,
		UserID:          userID,
		PromptOverride:  buildGenerationPrompt(task),
	})
	if err != nil {
		log.Printf("Generation task %s for user %d: generation failed: %v", task.Key(), userID, err)
		return taskFailed
	}
	if strings.TrimSpace(content) == "" {
		log.Printf("Generation task %s for user %d: generation returned empty content", task.Key(), userID)
		return taskFailed
	}

	inserted, err := s.store.InsertGeneratedLesson(model.GeneratedLesson{
		UserID:       userID,
		Topic:        task.Topic,
		BaseCourseID: task.CourseID,
		LessonID:     task.LessonID,
		Signal:       task.Signal,
		Content:      content,
	})
	if err != nil {
		log.Printf("Generation task %s for user %d: insert failed: %v", task.Key(), userID, err)
		return taskFailed
	}
	if !inserted {
		return taskSkipped
	}

	return taskGenerated
}

// buildGenerationPrompt synthesizes the per-signal prompt for the backend
func buildGenerationPrompt(task GenerationTask) string {
	switch task.Signal {
	case model.SignalShortTime:
		return fmt.Sprintf(
			"You are a learning system. Generate a supplemental, practice-oriented and easy-to-follow lesson "+
				"on the same topic as lesson %d of the course %q, because the learner spent very little time on "+
				"the original lesson. Focus on explanations, worked examples and simple exercises that build "+
				"understanding of the material.\nReturn only the lesson body in Markdown.",
			task.LessonID, task.BaseCourseTitle)
	case model.SignalTestErrors:
		details := task.ErrorDetails
		if details == "" {
			details = "some questions were answered incorrectly"
		}
		return fmt.Sprintf(
			"You are a learning system. Generate a lesson that thoroughly explains the topics that caused "+
				"difficulty in the quiz for lesson %d of the course %q. The learner's mistakes: %s. Concentrate "+
				"on the points that most often cause errors. Include explanations, examples, guiding hints and a "+
				"short self-check quiz on the weak spots.\nReturn only the lesson body in Markdown.",
			task.LessonID, task.BaseCourseTitle, details)
	}
	return fmt.Sprintf("Generate a supplemental lesson on %q for the course %q. Return only the lesson body in Markdown.",
		task.Topic, task.BaseCourseTitle)
}

func (s *LessonGenerationService) notifyGenerated(ctx context.Context, userID uint, report *GenerationReport) {
	if s.notifications == nil {
		return
	}

	message := fmt.Sprintf("%d supplemental lessons were prepared based on your recent results.", report.Generated)
	if report.Generated == 1 {
		message = "A supplemental lesson was prepared based on your recent results."
	}

	if _, err := s.notifications.CreateNotification(ctx, CreateNotificationRequest{
		UserID:   userID,
		Type:     model.NotificationTypeSuccess,
		Category: model.NotificationCategoryLessonGeneration,
		Title:    "New supplemental lessons",
		Message:  message,
	}); err != nil {
		log.Printf("Failed to create generation notification for user %d: %v", userID, err)
	}
}

// ChatLessonGenerator adapts the chat completion client to the
// LessonGenerator contract
type ChatLessonGenerator struct {
	client *openai.Client
}

// NewChatLessonGenerator creates a generator backed by a chat completion API
func NewChatLessonGenerator(client *openai.Client) *ChatLessonGenerator {
	return &ChatLessonGenerator{client: client}
}

const lessonGeneratorSystemPrompt = "You are an expert tutor who writes focused supplemental lessons. " +
	"Write clear, encouraging study material in Markdown. Do not wrap the output in code fences."

// GenerateLesson requests supplemental lesson content from the backend
func (g *ChatLessonGenerator) GenerateLesson(ctx context.Context, req GenerateLessonRequest) (string, error) {
	prompt := req.PromptOverride
	if prompt == "" {
		prompt = fmt.Sprintf("Generate a supplemental lesson on %q for the course %q. Return only the lesson body in Markdown.",
			req.Topic, req.BaseCourseTitle)
	}

	content, err := g.client.SimpleCompletion(ctx, lessonGeneratorSystemPrompt, prompt,
		openai.WithTemperature(0.7), openai.WithMaxTokens(1400))
	if err != nil {
		return "", fmt.Errorf("lesson generation request failed: %w", err)
	}

	return content, nil
}
