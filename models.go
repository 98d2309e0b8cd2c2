package studypath

import "time"

// MCQ represents a single multiple-choice question. Options always holds
// exactly 4 entries and Answer matches one of them verbatim, except for
// placeholder questions (Topic == PlaceholderTopic) emitted when generation
// falls short of the target count.
type MCQ struct {
	ID       string   `json:"id"`
	Topic    string   `json:"topic"`
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Answer   string   `json:"answer"`
}

// PlaceholderTopic marks backfilled MCQs that carry no real content.
const PlaceholderTopic = "N/A"

// IsPlaceholder reports whether the question is a synthetic backfill entry.
func (q MCQ) IsPlaceholder() bool {
	return q.Topic == PlaceholderTopic
}

// PrerequisiteSet is one resolved list of foundational concepts for a topic.
// Sets are appended to storage as-is; the same topic may appear many times.
type PrerequisiteSet struct {
	ID            int64     `json:"id,omitempty"`
	Topic         string    `json:"topic"`
	Prerequisites []string  `json:"prerequisites"`
	CreatedAt     time.Time `json:"created_at,omitempty"`
}

// QuizAttempt is one immutable record of a submitted quiz.
type QuizAttempt struct {
	ID        int64     `json:"id,omitempty"`
	UserID    string    `json:"user_id"`
	Topic     string    `json:"topic"`
	QuizID    string    `json:"quiz_id"`
	Score     float64   `json:"score"`
	Passed    bool      `json:"passed"`
	Timestamp time.Time `json:"timestamp"`
}

// LearningPathWeek is one entry of a week-by-week study plan.
type LearningPathWeek struct {
	Week  int      `json:"week"`
	Tasks []string `json:"tasks"`
}
