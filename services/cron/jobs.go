package cron

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/learnloop/api/model"
)

const (
	// sweepWindow is how far back the generation sweep looks for activity
	sweepWindow = time.Hour
	// sweepTimeout bounds one full sweep run
	sweepTimeout = 10 * time.Minute

	notificationRetention = 30 * 24 * time.Hour
	cronLogRetention      = 14 * 24 * time.Hour
)

// SweepGenerationSignals re-runs the supplemental-lesson trigger for every
// learner with recent activity. The trigger itself deduplicates against
// already-generated lessons, so re-sweeping the same history is a no-op.
func (m *CronManager) SweepGenerationSignals() {
	jobName := "generation_sweep"

	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	userIDs, err := m.recentlyActiveUsers(ctx)
	if err != nil {
		m.logJobError(jobName, err)
		return
	}

	if len(userIDs) == 0 {
		m.logJobComplete(jobName, "no recently active learners")
		return
	}

	var generated, failed int64
	for _, userID := range userIDs {
		report, err := m.sweepUser(ctx, userID)
		if err != nil {
			log.Printf("[CRON] Generation sweep failed for user %d: %v", userID, err)
			failed++
			continue
		}
		generated += report
	}

	m.logJobComplete(jobName, fmt.Sprintf("swept %d learners, generated %d lessons, %d failures",
		len(userIDs), generated, failed))
}

// sweepUser runs the trigger once per course the learner touched recently
func (m *CronManager) sweepUser(ctx context.Context, userID uint) (int64, error) {
	activities, err := m.reader.GetLessonActivities(userID)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch lesson activities: %w", err)
	}

	results, err := m.reader.GetQuizResults(userID)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch quiz results: %w", err)
	}

	courseIDs := make(map[uint]struct{})
	for _, a := range activities {
		courseIDs[a.CourseID] = struct{}{}
	}
	for _, r := range results {
		courseIDs[r.CourseID] = struct{}{}
	}

	var generated int64
	for courseID := range courseIDs {
		var course model.Course
		if err := m.db.WithContext(ctx).First(&course, courseID).Error; err != nil {
			log.Printf("[CRON] Skipping unknown course %d for user %d: %v", courseID, userID, err)
			continue
		}

		courseActivities := make([]model.LessonActivity, 0)
		for _, a := range activities {
			if a.CourseID == courseID {
				courseActivities = append(courseActivities, a)
			}
		}
		courseResults := make([]model.QuizResult, 0)
		for _, r := range results {
			if r.CourseID == courseID {
				courseResults = append(courseResults, r)
			}
		}

		report, err := m.generation.Run(ctx, userID, course.Title, courseActivities, courseResults)
		if err != nil {
			return generated, err
		}
		generated += report.Generated
	}

	return generated, nil
}

// recentlyActiveUsers returns distinct users with activity inside the sweep window
func (m *CronManager) recentlyActiveUsers(ctx context.Context) ([]uint, error) {
	cutoff := time.Now().Add(-sweepWindow)
	seen := make(map[uint]struct{})

	var activityUsers []uint
	err := m.db.WithContext(ctx).Model(&model.LessonActivity{}).
		Where("completed_at > ?", cutoff).
		Distinct("user_id").
		Pluck("user_id", &activityUsers).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query recent lesson activity: %w", err)
	}

	var quizUsers []uint
	err = m.db.WithContext(ctx).Model(&model.QuizResult{}).
		Where("completed_at > ?", cutoff).
		Distinct("user_id").
		Pluck("user_id", &quizUsers).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query recent quiz results: %w", err)
	}

	userIDs := make([]uint, 0, len(activityUsers)+len(quizUsers))
	for _, id := range append(activityUsers, quizUsers...) {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		userIDs = append(userIDs, id)
	}

	return userIDs, nil
}

// CleanupOldData removes read notifications and finished cron logs past retention
func (m *CronManager) CleanupOldData() {
	jobName := "cleanup_old_data"

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	removedNotifications, err := m.notifications.CleanupOldNotifications(ctx, notificationRetention)
	if err != nil {
		m.logJobError(jobName, err)
		return
	}

	cutoff := time.Now().Add(-cronLogRetention)
	result := m.db.WithContext(ctx).
		Where("started_at < ? AND status <> ?", cutoff, "running").
		Delete(&model.CronJobLog{})
	if result.Error != nil {
		m.logJobError(jobName, result.Error)
		return
	}

	m.logJobComplete(jobName, fmt.Sprintf("removed %d notifications, %d cron logs",
		removedNotifications, result.RowsAffected))
}
