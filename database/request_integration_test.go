package database

import (
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/learnloop/api/model"
)

// integrationStore connects to the database named by the DB_* environment.
// Tests using it are skipped unless INTEGRATION_TESTS is set; they expect a
// migrated database (run the server or cmd/seed once beforehand).
func integrationStore(t *testing.T) *PostgreSQLStore {
	t.Helper()

	if os.Getenv("INTEGRATION_TESTS") == "" {
		t.Skip("set INTEGRATION_TESTS=1 and the DB_* environment to run")
	}

	store, err := Start()
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	if err := store.HealthCheck(); err != nil {
		store.Close()
		t.Skipf("database not reachable: %v", err)
	}
	if err := store.Init(); err != nil {
		store.Close()
		t.Fatalf("failed to initialize indexes: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// seedFixtures inserts a throwaway user and course so the FK constraints on
// the record tables are satisfied. Rows are removed on cleanup; the cascades
// take the records inserted against them along.
func seedFixtures(t *testing.T, store *PostgreSQLStore) (userID, courseID uint) {
	t.Helper()

	suffix := time.Now().UnixNano()

	err := store.db.QueryRow(`
		INSERT INTO users (created_at, updated_at, email, password_hash, name, role, token_version)
		VALUES (NOW(), NOW(), $1, 'not-a-real-hash', 'Integration Test', 'student', 0)
		RETURNING id;
	`, fmt.Sprintf("it-%d@example.test", suffix)).Scan(&userID)
	if err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}

	err = store.db.QueryRow(`
		INSERT INTO courses (created_at, updated_at, title, slug, author_id)
		VALUES (NOW(), NOW(), 'Integration Course', $1, $2)
		RETURNING id;
	`, fmt.Sprintf("integration-course-%d", suffix), userID).Scan(&courseID)
	if err != nil {
		t.Fatalf("failed to seed course: %v", err)
	}

	t.Cleanup(func() {
		store.db.Exec(`DELETE FROM courses WHERE id = $1;`, courseID)
		store.db.Exec(`DELETE FROM users WHERE id = $1;`, userID)
	})
	return userID, courseID
}

func TestLessonActivityOrderingAndFiltering(t *testing.T) {
	store := integrationStore(t)
	userID, courseID := seedFixtures(t, store)

	base := time.Now().UTC().Truncate(time.Second)

	// Inserted newest first; reads must come back oldest first
	records := []model.LessonActivity{
		{UserID: userID, CourseID: courseID, LessonID: 2, TimeSpent: 30, Attempts: 1, CompletedAt: base},
		{UserID: userID, CourseID: courseID, LessonID: 1, TimeSpent: 25, Attempts: 1, CompletedAt: base.Add(-time.Hour)},
	}
	for _, r := range records {
		if err := store.InsertLessonActivity(r); err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}

	// A malformed row with no lesson reference must never be returned
	bad := model.LessonActivity{UserID: userID, CourseID: courseID, LessonID: 0, TimeSpent: 99, Attempts: 1, CompletedAt: base}
	if err := store.InsertLessonActivity(bad); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	got, err := store.GetLessonActivities(userID)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 activities, got %d", len(got))
	}
	if got[0].LessonID != 1 || got[1].LessonID != 2 {
		t.Errorf("expected ascending completed_at order, got lessons %d, %d", got[0].LessonID, got[1].LessonID)
	}
}

func TestInsertGeneratedLessonConflict(t *testing.T) {
	store := integrationStore(t)
	userID, courseID := seedFixtures(t, store)

	lesson := model.GeneratedLesson{
		UserID:       userID,
		Topic:        "Review: lesson 3",
		BaseCourseID: courseID,
		LessonID:     3,
		Signal:       model.SignalShortTime,
		Content:      "generated body",
	}

	inserted, err := store.InsertGeneratedLesson(lesson)
	if err != nil {
		t.Fatalf("first insert failed: %v", err)
	}
	if !inserted {
		t.Fatal("expected first insert to report inserted")
	}

	inserted, err = store.InsertGeneratedLesson(lesson)
	if err != nil {
		t.Fatalf("duplicate insert errored: %v", err)
	}
	if inserted {
		t.Error("expected duplicate insert to be a no-op")
	}

	found, err := store.FindGeneratedLesson(userID, lesson.Topic, courseID)
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if found == nil {
		t.Fatal("expected to find the generated lesson")
	}
	if found.Signal != model.SignalShortTime {
		t.Errorf("expected signal %q, got %q", model.SignalShortTime, found.Signal)
	}
}
