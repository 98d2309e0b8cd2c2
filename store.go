package studypath

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// MaxAttemptsPerDay caps quiz attempts per (user, topic) per calendar day.
const MaxAttemptsPerDay = 3

// ErrQuotaExceeded is returned by RecordAttempt when the daily cap for the
// (user, topic) pair has already been reached.
var ErrQuotaExceeded = errors.New("daily quiz attempt quota exceeded")

// DB wraps the sqlite database holding the append-only quiz-attempt log and
// the prerequisite-set records.
type DB struct {
	db *sql.DB
}

// OpenDB opens (creating if needed) the database at the given path.
func OpenDB(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{db: db}, nil
}

// CloseDB closes the database connection.
func (db *DB) CloseDB() error {
	return db.db.Close()
}

// CreateTables creates the necessary tables if they don't exist.
func (db *DB) CreateTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS quiz_attempts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			topic TEXT NOT NULL,
			quiz_id TEXT NOT NULL,
			score REAL NOT NULL,
			passed BOOLEAN NOT NULL,
			timestamp DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_user_topic_time
			ON quiz_attempts (user_id, topic, timestamp)`,
		`CREATE TABLE IF NOT EXISTS prereq_sets (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			topic TEXT NOT NULL,
			prerequisites TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,
	}

	for _, query := range queries {
		if _, err := db.db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute %s: %w", query, err)
		}
	}
	return nil
}

// SavePrerequisiteSet appends one resolved prerequisite set. Sets are never
// deduplicated; every request leaves its own record.
func (db *DB) SavePrerequisiteSet(set *PrerequisiteSet) error {
	prereqJSON, err := json.Marshal(set.Prerequisites)
	if err != nil {
		return fmt.Errorf("failed to marshal prerequisites: %w", err)
	}

	if set.CreatedAt.IsZero() {
		set.CreatedAt = time.Now()
	}

	res, err := db.db.Exec(
		"INSERT INTO prereq_sets (topic, prerequisites, created_at) VALUES (?, ?, ?)",
		set.Topic, string(prereqJSON), set.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save prerequisite set: %w", err)
	}

	if id, err := res.LastInsertId(); err == nil {
		set.ID = id
	}
	return nil
}

// GetPrerequisiteSets retrieves stored sets, newest first, optionally
// limited by count (limit <= 0 returns all).
func (db *DB) GetPrerequisiteSets(limit int) ([]PrerequisiteSet, error) {
	query := "SELECT id, topic, prerequisites, created_at FROM prereq_sets ORDER BY created_at DESC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := db.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to get prerequisite sets: %w", err)
	}
	defer rows.Close()

	var sets []PrerequisiteSet
	for rows.Next() {
		var set PrerequisiteSet
		var prereqJSON string
		if err := rows.Scan(&set.ID, &set.Topic, &prereqJSON, &set.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan prerequisite set: %w", err)
		}
		if err := json.Unmarshal([]byte(prereqJSON), &set.Prerequisites); err != nil {
			return nil, fmt.Errorf("failed to unmarshal prerequisites: %w", err)
		}
		sets = append(sets, set)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating prerequisite sets: %w", err)
	}
	return sets, nil
}

// dayBounds returns the whole-day window containing t in t's location,
// 00:00:00.000 through 23:59:59.999.
func dayBounds(t time.Time) (start, end time.Time) {
	year, month, day := t.Date()
	start = time.Date(year, month, day, 0, 0, 0, 0, t.Location())
	end = start.Add(24*time.Hour - time.Millisecond)
	return start, end
}

// CountAttemptsToday counts attempts for the (user, topic) pair whose
// timestamps fall within the current server-local day.
func (db *DB) CountAttemptsToday(userID, topic string) (int, error) {
	return db.countAttemptsOn(userID, topic, time.Now())
}

func (db *DB) countAttemptsOn(userID, topic string, day time.Time) (int, error) {
	start, end := dayBounds(day)

	var count int
	err := db.db.QueryRow(
		"SELECT COUNT(*) FROM quiz_attempts WHERE user_id = ? AND topic = ? AND timestamp >= ? AND timestamp <= ?",
		userID, topic, start, end,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count attempts: %w", err)
	}
	return count, nil
}

// CanAttempt reports whether the user may take another quiz on the topic
// today.
func (db *DB) CanAttempt(userID, topic string) (bool, error) {
	count, err := db.CountAttemptsToday(userID, topic)
	if err != nil {
		return false, err
	}
	return count < MaxAttemptsPerDay, nil
}

// RecordAttempt inserts one attempt record and returns the updated count of
// attempts today. When the quota is already spent it returns the current
// count and ErrQuotaExceeded. The check and insert are not one transaction;
// concurrent submissions from the same user can overshoot the cap by the
// width of the race window, which is accepted for this domain.
func (db *DB) RecordAttempt(userID, topic, quizID string, score float64, passed bool) (int, error) {
	count, err := db.CountAttemptsToday(userID, topic)
	if err != nil {
		return 0, err
	}
	if count >= MaxAttemptsPerDay {
		return count, ErrQuotaExceeded
	}

	attempt := QuizAttempt{
		UserID:    userID,
		Topic:     topic,
		QuizID:    quizID,
		Score:     score,
		Passed:    passed,
		Timestamp: time.Now(),
	}
	if err := db.insertAttempt(attempt); err != nil {
		return count, err
	}
	return count + 1, nil
}

func (db *DB) insertAttempt(a QuizAttempt) error {
	_, err := db.db.Exec(
		"INSERT INTO quiz_attempts (user_id, topic, quiz_id, score, passed, timestamp) VALUES (?, ?, ?, ?, ?, ?)",
		a.UserID, a.Topic, a.QuizID, a.Score, a.Passed, a.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to record attempt: %w", err)
	}
	return nil
}
