package studypath

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("OpenDB: %v", err)
	}
	t.Cleanup(func() { db.CloseDB() })
	if err := db.CreateTables(); err != nil {
		t.Fatalf("CreateTables: %v", err)
	}
	return db
}

func TestRecordAttempt_CountsAndEnforcesQuota(t *testing.T) {
	db := openTestDB(t)

	for i := 1; i <= MaxAttemptsPerDay; i++ {
		count, err := db.RecordAttempt("u1", "Algebra", "quiz-1", 80, true)
		if err != nil {
			t.Fatalf("attempt %d: %v", i, err)
		}
		if count != i {
			t.Errorf("attempt %d: count = %d, want %d", i, count, i)
		}
	}

	ok, err := db.CanAttempt("u1", "Algebra")
	if err != nil {
		t.Fatalf("CanAttempt: %v", err)
	}
	if ok {
		t.Error("CanAttempt = true after reaching the daily cap")
	}

	count, err := db.RecordAttempt("u1", "Algebra", "quiz-2", 50, false)
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("RecordAttempt past cap: err = %v, want ErrQuotaExceeded", err)
	}
	if count != MaxAttemptsPerDay {
		t.Errorf("count alongside quota error = %d, want %d", count, MaxAttemptsPerDay)
	}
}

func TestQuotaIsPerUserAndTopic(t *testing.T) {
	db := openTestDB(t)

	for i := 0; i < MaxAttemptsPerDay; i++ {
		if _, err := db.RecordAttempt("u1", "Algebra", "quiz-1", 70, true); err != nil {
			t.Fatalf("seed attempt: %v", err)
		}
	}

	if ok, _ := db.CanAttempt("u1", "Geometry"); !ok {
		t.Error("different topic should not share the quota")
	}
	if ok, _ := db.CanAttempt("u2", "Algebra"); !ok {
		t.Error("different user should not share the quota")
	}
}

func TestCountAttemptsToday_IgnoresOtherDays(t *testing.T) {
	db := openTestDB(t)

	yesterday := time.Now().AddDate(0, 0, -1)
	for i := 0; i < MaxAttemptsPerDay; i++ {
		err := db.insertAttempt(QuizAttempt{
			UserID: "u1", Topic: "Algebra", QuizID: "old-quiz",
			Score: 40, Passed: false, Timestamp: yesterday,
		})
		if err != nil {
			t.Fatalf("insertAttempt: %v", err)
		}
	}

	count, err := db.CountAttemptsToday("u1", "Algebra")
	if err != nil {
		t.Fatalf("CountAttemptsToday: %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0 (yesterday's attempts must not count)", count)
	}
	if ok, _ := db.CanAttempt("u1", "Algebra"); !ok {
		t.Error("quota should reset at the day boundary")
	}
}

func TestDayBounds(t *testing.T) {
	at := time.Date(2026, time.August, 31, 14, 30, 0, 0, time.Local)
	start, end := dayBounds(at)

	if start.Hour() != 0 || start.Minute() != 0 || start.Second() != 0 {
		t.Errorf("start = %v, want midnight", start)
	}
	if start.Day() != 31 || end.Day() != 31 {
		t.Errorf("bounds crossed the day: %v .. %v", start, end)
	}
	if end.Hour() != 23 || end.Minute() != 59 || end.Second() != 59 {
		t.Errorf("end = %v, want 23:59:59.999", end)
	}
}

func TestSavePrerequisiteSet_AppendsWithoutDeduplication(t *testing.T) {
	db := openTestDB(t)

	first := &PrerequisiteSet{Topic: "Databases", Prerequisites: []string{"Set Theory", "Logic"}}
	second := &PrerequisiteSet{Topic: "Databases", Prerequisites: []string{"Data Types"}}
	if err := db.SavePrerequisiteSet(first); err != nil {
		t.Fatalf("save first: %v", err)
	}
	if err := db.SavePrerequisiteSet(second); err != nil {
		t.Fatalf("save second: %v", err)
	}
	if first.ID == 0 || second.ID == 0 || first.ID == second.ID {
		t.Errorf("expected distinct nonzero ids, got %d and %d", first.ID, second.ID)
	}

	sets, err := db.GetPrerequisiteSets(0)
	if err != nil {
		t.Fatalf("GetPrerequisiteSets: %v", err)
	}
	if len(sets) != 2 {
		t.Fatalf("got %d sets, want 2 (same topic stored twice)", len(sets))
	}
	for _, set := range sets {
		if set.Topic != "Databases" || len(set.Prerequisites) == 0 {
			t.Errorf("round-tripped set malformed: %+v", set)
		}
	}
}
