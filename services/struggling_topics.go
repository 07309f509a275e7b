package services

import (
	"fmt"

	"github.com/learnloop/api/model"
)

// DefaultMasteryThreshold is the quiz score below which a topic counts as weak
const DefaultMasteryThreshold = 90

// StrugglingTopic marks a course topic where the learner scored below the
// mastery threshold. Derived fresh on every detection run, never persisted.
type StrugglingTopic struct {
	Topic    string `json:"topic"`
	CourseID uint   `json:"course_id"`
	LessonID uint   `json:"lesson_id"`
	Score    int    `json:"score"`
}

// DetectStrugglingTopics returns one entry per quiz result scoring below the
// threshold, labeled by its lesson. Duplicate lessons are not collapsed here:
// deduplication belongs to the generation trigger. A threshold of 0 flags
// nothing; a threshold of 100 flags every imperfect result.
func DetectStrugglingTopics(results []model.QuizResult, threshold int) []StrugglingTopic {
	topics := make([]StrugglingTopic, 0)

	for _, r := range results {
		if !r.Valid() {
			continue
		}
		if r.Score < threshold {
			topics = append(topics, StrugglingTopic{
				Topic:    fmt.Sprintf("Lesson %d topic", r.LessonID),
				CourseID: r.CourseID,
				LessonID: r.LessonID,
				Score:    r.Score,
			})
		}
	}

	return topics
}
