package studypath

import (
	"strings"
	"sync"
)

// QuestionHistory tracks, per topic, the normalized text of every question
// handed out so far, so restarts of a quiz do not repeat questions within a
// server process. History is deliberately in-memory only: a restart forgets
// it, and uniqueness is best-effort rather than a correctness guarantee.
type QuestionHistory struct {
	mu     sync.RWMutex
	topics map[string]*topicHistory
}

// topicHistory keeps both an insertion-ordered list (for the recent-N prompt
// window) and a set (for O(1) duplicate checks).
type topicHistory struct {
	ordered []string
	seen    map[string]struct{}
}

// NewQuestionHistory creates an empty history.
func NewQuestionHistory() *QuestionHistory {
	return &QuestionHistory{
		topics: make(map[string]*topicHistory),
	}
}

// NormalizeQuestion maps question text to its uniqueness key.
func NormalizeQuestion(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// Seen reports whether the question text was already recorded for the topic.
func (h *QuestionHistory) Seen(topic, question string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	th, ok := h.topics[topic]
	if !ok {
		return false
	}
	_, dup := th.seen[NormalizeQuestion(question)]
	return dup
}

// Record stores the normalized question text for the topic. Recording the
// same text twice is a no-op, so concurrent writers cannot corrupt state.
func (h *QuestionHistory) Record(topic, question string) {
	key := NormalizeQuestion(question)

	h.mu.Lock()
	defer h.mu.Unlock()

	th, ok := h.topics[topic]
	if !ok {
		th = &topicHistory{seen: make(map[string]struct{})}
		h.topics[topic] = th
	}
	if _, dup := th.seen[key]; dup {
		return
	}
	th.seen[key] = struct{}{}
	th.ordered = append(th.ordered, key)
}

// Recent returns up to n most recently recorded question texts for the
// topic, oldest first within that window.
func (h *QuestionHistory) Recent(topic string, n int) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	th, ok := h.topics[topic]
	if !ok || n <= 0 {
		return nil
	}
	start := len(th.ordered) - n
	if start < 0 {
		start = 0
	}
	out := make([]string, len(th.ordered)-start)
	copy(out, th.ordered[start:])
	return out
}

// Size returns the number of recorded questions for the topic.
func (h *QuestionHistory) Size(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	th, ok := h.topics[topic]
	if !ok {
		return 0
	}
	return len(th.ordered)
}

// Reset clears history for exactly the given topics. With no arguments it
// clears everything.
func (h *QuestionHistory) Reset(topics ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(topics) == 0 {
		h.topics = make(map[string]*topicHistory)
		return
	}
	for _, topic := range topics {
		delete(h.topics, topic)
	}
}
