package database

import (
	"log"
	"strings"
)

func (s *PostgreSQLStore) Initialize() error {
	// Ordered read path and the at-most-once generation guarantee both live
	// on indexes, so they are created here in plain SQL rather than trusted
	// to model tags.
	completed_at_indexes := `
	CREATE INDEX IF NOT EXISTS idx_lesson_activities_user_completed
		ON lesson_activities (user_id, completed_at);
	CREATE INDEX IF NOT EXISTS idx_quiz_results_user_completed
		ON quiz_results (user_id, completed_at);
	`

	// One supplemental lesson per (user, topic, course). Inserts race-safe
	// via ON CONFLICT DO NOTHING in the request layer.
	generated_lesson_unique := `
	CREATE UNIQUE INDEX IF NOT EXISTS idx_generated_lesson_key
		ON generated_lessons (user_id, topic, base_course_id);
	`

	all_statements := strings.Join([]string{completed_at_indexes, generated_lesson_unique}, "")

	if _, err := s.db.Exec(all_statements); err != nil {
		log.Println("Error creating record store indexes:", err)
		return err
	}

	return nil
}
