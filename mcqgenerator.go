package studypath

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
)

const (
	// MaxAttemptsPerTopic caps consecutive attempts against one topic that
	// produce no usable unique question before the topic is dropped.
	MaxAttemptsPerTopic = 5

	// recentQuestionWindow is how many prior questions per topic are fed
	// back into the prompt as "do not repeat" context.
	recentQuestionWindow = 5

	mcqMaxTokens = 250
)

// MCQGenerator produces deduplicated multiple-choice quizzes over a set of
// prerequisite topics, spreading questions round-robin across the topics.
type MCQGenerator struct {
	llm     Completer
	history *QuestionHistory
	logger  *LLMLogger
}

// NewMCQGenerator creates an engine sharing the given question history.
func NewMCQGenerator(llm Completer, history *QuestionHistory) *MCQGenerator {
	return &MCQGenerator{
		llm:     llm,
		history: history,
	}
}

// SetLogger attaches a session logger that records every prompt, response,
// and accept/skip decision. A nil logger disables session logging.
func (g *MCQGenerator) SetLogger(logger *LLMLogger) {
	g.logger = logger
}

// Generate returns exactly targetCount MCQs for the given topics. Questions
// are generated one at a time, rotating across topics so no single topic is
// exhausted first. Topics that fail MaxAttemptsPerTopic times in a row are
// dropped from the rotation; if generation cannot reach the target, the
// remainder is backfilled with placeholder questions so the response shape
// is always stable. When resetTopics is set, history for exactly the given
// topics is cleared first.
func (g *MCQGenerator) Generate(ctx context.Context, topics []string, targetCount int, resetTopics bool) []MCQ {
	log.Printf("Generating %d MCQs across %d topics (reset=%v)", targetCount, len(topics), resetTopics)

	if resetTopics {
		g.history.Reset(topics...)
	}

	results := make([]MCQ, 0, targetCount)
	rotation := newTopicRotation(topics, MaxAttemptsPerTopic)
	originalTopicCount := len(topics)
	attemptsWithoutSuccess := 0

	for len(results) < targetCount && !rotation.Exhausted() {
		// Abort once a full first pass over the topic set yields nothing:
		// no topic is currently producing questions.
		if len(results) == 0 && attemptsWithoutSuccess >= originalTopicCount && originalTopicCount > 0 {
			log.Printf("No unique questions after a full pass over all %d topics, giving up", originalTopicCount)
			break
		}

		topic, ok := rotation.BeginAttempt()
		if !ok {
			log.Printf("Skipping topic %q after %d failed attempts", topic, MaxAttemptsPerTopic)
			g.logResult(topic, "evicted", "too many failed attempts")
			continue
		}

		mcq, err := g.generateOne(ctx, topic)
		if err != nil {
			VerboseLog("MCQ attempt for topic %q failed: %v", topic, err)
			g.logResult(topic, "skipped", err.Error())
			rotation.RecordFailure()
			attemptsWithoutSuccess++
			continue
		}

		g.history.Record(topic, mcq.Question)
		results = append(results, *mcq)
		rotation.RecordSuccess(topic)
		attemptsWithoutSuccess = 0
		g.logResult(topic, "accepted", mcq.Question)
	}

	// Keep the contract's fixed-length output even under total failure.
	for len(results) < targetCount {
		results = append(results, MCQ{
			ID:       uuid.NewString(),
			Topic:    PlaceholderTopic,
			Question: fmt.Sprintf("Could not generate enough unique questions. Question %d.", len(results)+1),
			Options:  []string{},
			Answer:   "",
		})
	}

	log.Printf("MCQ generation complete: %d questions", len(results))
	return results
}

// generateOne issues a single generation call for the topic and validates
// the response. Any transport, parse, shape, or duplicate failure is
// returned as an error; the caller decides whether to retry or move on.
func (g *MCQGenerator) generateOne(ctx context.Context, topic string) (*MCQ, error) {
	prompt := g.buildPrompt(topic)
	if g.logger != nil {
		g.logger.LogLLMRequest("MCQGenerator", prompt)
	}

	content, err := g.llm.Complete(ctx, prompt, mcqMaxTokens)
	if err != nil {
		return nil, fmt.Errorf("generation call failed: %w", err)
	}
	if g.logger != nil {
		g.logger.LogLLMResponse("MCQGenerator", content)
	}

	var parsed struct {
		Question string   `json:"question"`
		Options  []string `json:"options"`
		Answer   string   `json:"answer"`
	}
	if err := json.Unmarshal([]byte(StripCodeFence(content)), &parsed); err != nil {
		return nil, fmt.Errorf("unparsable response: %w", err)
	}

	if strings.TrimSpace(parsed.Question) == "" {
		return nil, fmt.Errorf("empty question text")
	}
	if len(parsed.Options) != 4 {
		return nil, fmt.Errorf("expected 4 options, got %d", len(parsed.Options))
	}
	answerFound := false
	for _, opt := range parsed.Options {
		if opt == parsed.Answer {
			answerFound = true
			break
		}
	}
	if !answerFound {
		return nil, fmt.Errorf("answer %q is not one of the options", parsed.Answer)
	}
	if g.history.Seen(topic, parsed.Question) {
		return nil, fmt.Errorf("duplicate question for topic %q", topic)
	}

	return &MCQ{
		ID:       uuid.NewString(),
		Topic:    topic,
		Question: parsed.Question,
		Options:  parsed.Options,
		Answer:   parsed.Answer,
	}, nil
}

func (g *MCQGenerator) buildPrompt(topic string) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Generate one unique beginner-level multiple-choice question (MCQ) on the topic %q that has not been generated before based on its content.\n", topic)
	sb.WriteString("If any programs or code snippets are included, format them using HTML so they are displayed properly and not as raw text.\n")
	sb.WriteString("Return the response in the following JSON format:\n")
	sb.WriteString("{\n")
	sb.WriteString("  \"question\": \"...\",\n")
	sb.WriteString("  \"options\": [\"...\", \"...\", \"...\", \"...\"],\n")
	sb.WriteString("  \"answer\": \"...\"\n")
	sb.WriteString("}\n")
	sb.WriteString("- The \"options\" array must contain exactly 4 options.\n")
	sb.WriteString("- The \"answer\" must be the exact text of the correct option (e.g., \"1/6\", not \"a. 1/6\").\n")
	sb.WriteString("- Do not include any prefixes (like \"a.\", \"b.\", etc.) in the options or answer.\n")
	sb.WriteString("- Ensure the question is distinct from any previously generated questions for this topic.\n")

	if recent := g.history.Recent(topic, recentQuestionWindow); len(recent) > 0 {
		quoted := make([]string, len(recent))
		for i, q := range recent {
			quoted[i] = fmt.Sprintf("%q", q)
		}
		fmt.Fprintf(&sb, "Do not repeat any of the following questions (based on their content): %s\n", strings.Join(quoted, ", "))
	}

	return sb.String()
}

func (g *MCQGenerator) logResult(topic, action, detail string) {
	if g.logger != nil {
		g.logger.LogQuestionResult(topic, action, detail)
	}
}
