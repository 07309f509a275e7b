package database

import (
	"database/sql"

	"github.com/learnloop/api/model"
)

// GetLessonActivities returns a user's lesson activity history ordered by
// completion time. Rows with a zero lesson reference are filtered out at the
// query so malformed records never reach the aggregator.
func (s *PostgreSQLStore) GetLessonActivities(userID uint) ([]model.LessonActivity, error) {
	query := `
		SELECT id, user_id, course_id, lesson_id, time_spent, attempts, completed_at
		FROM lesson_activities
		WHERE user_id = $1 AND lesson_id <> 0
		ORDER BY completed_at ASC;
	`
	rows, err := s.db.Query(query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	activities := []model.LessonActivity{}
	for rows.Next() {
		activity, err := scanIntoLessonActivity(rows)
		if err != nil {
			return nil, err
		}
		activities = append(activities, *activity)
	}

	return activities, rows.Err()
}

// GetQuizResults returns a user's quiz results ordered by completion time,
// filtered the same way as lesson activities.
func (s *PostgreSQLStore) GetQuizResults(userID uint) ([]model.QuizResult, error) {
	query := `
		SELECT id, user_id, course_id, lesson_id, score, correct_answers,
		       total_questions, time_spent, completed_at
		FROM quiz_results
		WHERE user_id = $1 AND lesson_id <> 0
		ORDER BY completed_at ASC;
	`
	rows, err := s.db.Query(query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []model.QuizResult{}
	for rows.Next() {
		result, err := scanIntoQuizResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *result)
	}

	return results, rows.Err()
}

// InsertLessonActivity records one completed lesson attempt
func (s *PostgreSQLStore) InsertLessonActivity(activity model.LessonActivity) error {
	query := `
		INSERT INTO lesson_activities
			(created_at, user_id, course_id, lesson_id, time_spent, attempts, completed_at)
		VALUES (NOW(), $1, $2, $3, $4, $5, $6);
	`
	_, err := s.db.Exec(query,
		activity.UserID,
		activity.CourseID,
		activity.LessonID,
		activity.TimeSpent,
		activity.Attempts,
		activity.CompletedAt,
	)
	return err
}

// InsertQuizResult records one quiz submission
func (s *PostgreSQLStore) InsertQuizResult(result model.QuizResult) error {
	query := `
		INSERT INTO quiz_results
			(created_at, user_id, course_id, lesson_id, score, correct_answers,
			 total_questions, time_spent, completed_at, answers)
		VALUES (NOW(), $1, $2, $3, $4, $5, $6, $7, $8, COALESCE($9, '{}'::jsonb));
	`
	var answers interface{}
	if len(result.Answers) > 0 {
		answers = []byte(result.Answers)
	}
	_, err := s.db.Exec(query,
		result.UserID,
		result.CourseID,
		result.LessonID,
		result.Score,
		result.CorrectAnswers,
		result.TotalQuestions,
		result.TimeSpent,
		result.CompletedAt,
		answers,
	)
	return err
}

// FindGeneratedLesson looks up a supplemental lesson by its logical key.
// Returns nil without error when none exists.
func (s *PostgreSQLStore) FindGeneratedLesson(userID uint, topic string, courseID uint) (*model.GeneratedLesson, error) {
	query := `
		SELECT id, created_at, user_id, topic, base_course_id, lesson_id, signal, content
		FROM generated_lessons
		WHERE user_id = $1 AND topic = $2 AND base_course_id = $3;
	`
	row := s.db.QueryRow(query, userID, topic, courseID)

	lesson := new(model.GeneratedLesson)
	err := row.Scan(
		&lesson.ID,
		&lesson.CreatedAt,
		&lesson.UserID,
		&lesson.Topic,
		&lesson.BaseCourseID,
		&lesson.LessonID,
		&lesson.Signal,
		&lesson.Content,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return lesson, nil
}

// InsertGeneratedLesson persists a supplemental lesson. The unique index on
// (user_id, topic, base_course_id) plus ON CONFLICT DO NOTHING makes a lost
// race with a concurrent trigger run a silent skip; the bool reports whether
// this call actually inserted the row.
func (s *PostgreSQLStore) InsertGeneratedLesson(lesson model.GeneratedLesson) (bool, error) {
	query := `
		INSERT INTO generated_lessons
			(created_at, user_id, topic, base_course_id, lesson_id, signal, content)
		VALUES (NOW(), $1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, topic, base_course_id) DO NOTHING;
	`
	res, err := s.db.Exec(query,
		lesson.UserID,
		lesson.Topic,
		lesson.BaseCourseID,
		lesson.LessonID,
		lesson.Signal,
		lesson.Content,
	)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// GetGeneratedLessons lists a user's supplemental lessons for a course,
// newest first.
func (s *PostgreSQLStore) GetGeneratedLessons(userID uint, courseID uint) ([]model.GeneratedLesson, error) {
	query := `
		SELECT id, created_at, user_id, topic, base_course_id, lesson_id, signal, content
		FROM generated_lessons
		WHERE user_id = $1 AND base_course_id = $2
		ORDER BY created_at DESC;
	`
	rows, err := s.db.Query(query, userID, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lessons := []model.GeneratedLesson{}
	for rows.Next() {
		lesson := new(model.GeneratedLesson)
		err := rows.Scan(
			&lesson.ID,
			&lesson.CreatedAt,
			&lesson.UserID,
			&lesson.Topic,
			&lesson.BaseCourseID,
			&lesson.LessonID,
			&lesson.Signal,
			&lesson.Content,
		)
		if err != nil {
			return nil, err
		}
		lessons = append(lessons, *lesson)
	}

	return lessons, rows.Err()
}

func scanIntoLessonActivity(rows *sql.Rows) (*model.LessonActivity, error) {
	activity := new(model.LessonActivity)
	err := rows.Scan(
		&activity.ID,
		&activity.UserID,
		&activity.CourseID,
		&activity.LessonID,
		&activity.TimeSpent,
		&activity.Attempts,
		&activity.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return activity, nil
}

func scanIntoQuizResult(rows *sql.Rows) (*model.QuizResult, error) {
	result := new(model.QuizResult)
	err := rows.Scan(
		&result.ID,
		&result.UserID,
		&result.CourseID,
		&result.LessonID,
		&result.Score,
		&result.CorrectAnswers,
		&result.TotalQuestions,
		&result.TimeSpent,
		&result.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return result, nil
}
