package services

import (
	"testing"

	"github.com/learnloop/api/model"
)

func TestDetectStrugglingTopicsDefaultThreshold(t *testing.T) {
	results := []model.QuizResult{
		quiz(1, 1, 85),
		quiz(1, 2, 95),
	}

	topics := DetectStrugglingTopics(results, DefaultMasteryThreshold)

	if len(topics) != 1 {
		t.Fatalf("expected exactly one struggling topic, got %d", len(topics))
	}
	if topics[0].LessonID != 1 || topics[0].Score != 85 {
		t.Errorf("expected the score-85 record flagged, got %+v", topics[0])
	}
	if topics[0].Topic == "" {
		t.Error("expected a synthesized topic label")
	}
	if topics[0].CourseID != 1 {
		t.Errorf("expected course 1, got %d", topics[0].CourseID)
	}
}

func TestDetectStrugglingTopicsBoundaryThresholds(t *testing.T) {
	results := []model.QuizResult{
		quiz(1, 1, 0),
		quiz(1, 2, 50),
		quiz(1, 3, 99),
		quiz(1, 4, 100),
	}

	if got := DetectStrugglingTopics(results, 0); len(got) != 0 {
		t.Errorf("threshold 0 should flag nothing, got %d entries", len(got))
	}

	flagged := DetectStrugglingTopics(results, 100)
	if len(flagged) != 3 {
		t.Errorf("threshold 100 should flag every imperfect score, got %d entries", len(flagged))
	}
	for _, topic := range flagged {
		if topic.Score >= 100 {
			t.Errorf("perfect score flagged: %+v", topic)
		}
	}
}

func TestDetectStrugglingTopicsEmptyAndInvalid(t *testing.T) {
	if got := DetectStrugglingTopics(nil, DefaultMasteryThreshold); len(got) != 0 {
		t.Errorf("expected empty output for empty input, got %d", len(got))
	}

	results := []model.QuizResult{
		{UserID: 1, CourseID: 1, LessonID: 0, Score: 10}, // no lesson
		{UserID: 0, CourseID: 1, LessonID: 2, Score: 10}, // no owner
	}
	if got := DetectStrugglingTopics(results, DefaultMasteryThreshold); len(got) != 0 {
		t.Errorf("expected invalid records excluded, got %d", len(got))
	}
}

func TestDetectStrugglingTopicsKeepsDuplicateLessons(t *testing.T) {
	// Deduplication belongs to the generation trigger, not the detector.
	results := []model.QuizResult{
		quiz(1, 1, 40),
		quiz(1, 1, 60),
	}

	if got := DetectStrugglingTopics(results, DefaultMasteryThreshold); len(got) != 2 {
		t.Errorf("expected one entry per result, got %d", len(got))
	}
}
