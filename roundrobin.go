package studypath

// topicRotation is the round-robin selection state used by the MCQ engine:
// an ordered candidate list, a cursor, and per-topic consecutive-failure
// counts. Transitions are plain methods so the selection policy can be
// tested without touching the generation gateway.
type topicRotation struct {
	candidates  []string
	cursor      int
	attempts    map[string]int
	maxAttempts int
}

func newTopicRotation(topics []string, maxAttempts int) *topicRotation {
	candidates := make([]string, len(topics))
	copy(candidates, topics)
	return &topicRotation{
		candidates:  candidates,
		attempts:    make(map[string]int),
		maxAttempts: maxAttempts,
	}
}

// Exhausted reports whether no candidate topics remain.
func (r *topicRotation) Exhausted() bool {
	return len(r.candidates) == 0
}

// Len returns the number of remaining candidate topics.
func (r *topicRotation) Len() int {
	return len(r.candidates)
}

// Current returns the topic under the cursor.
func (r *topicRotation) Current() string {
	return r.candidates[r.cursor%len(r.candidates)]
}

// Advance moves the cursor to the next candidate.
func (r *topicRotation) Advance() {
	if len(r.candidates) == 0 {
		return
	}
	r.cursor = (r.cursor + 1) % len(r.candidates)
}

// BeginAttempt bumps the consecutive-failure count for the current topic and
// reports whether the topic is still allowed to try. When the cap is passed
// the topic is evicted from the rotation permanently and the cursor stays
// valid against the shrunken list.
func (r *topicRotation) BeginAttempt() (topic string, ok bool) {
	topic = r.Current()
	r.attempts[topic]++
	if r.attempts[topic] > r.maxAttempts {
		r.evict(topic)
		return topic, false
	}
	return topic, true
}

// RecordSuccess clears the failure count for the topic and advances.
func (r *topicRotation) RecordSuccess(topic string) {
	r.attempts[topic] = 0
	r.Advance()
}

// RecordFailure advances past the current topic, leaving its count in place.
func (r *topicRotation) RecordFailure() {
	r.Advance()
}

func (r *topicRotation) evict(topic string) {
	kept := r.candidates[:0]
	for _, t := range r.candidates {
		if t != topic {
			kept = append(kept, t)
		}
	}
	r.candidates = kept
	if len(r.candidates) > 0 {
		r.cursor = r.cursor % len(r.candidates)
	} else {
		r.cursor = 0
	}
}
