package studypath

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	learningPathMaxTokens = 500

	// MinWeeks and MaxWeeks bound the accepted plan length.
	MinWeeks = 1
	MaxWeeks = 52
)

// LearningPathComposer turns a quiz result into a week-by-week study plan.
// Unlike the other generators it fails hard on a malformed plan: a plan with
// the wrong number of weeks is worse than no plan.
type LearningPathComposer struct {
	llm Completer
}

// NewLearningPathComposer creates a composer backed by the given gateway.
func NewLearningPathComposer(llm Completer) *LearningPathComposer {
	return &LearningPathComposer{llm: llm}
}

// Compose generates exactly weeks entries of 2-3 tasks each, with content
// difficulty keyed to the quiz score. Weeks outside [MinWeeks, MaxWeeks] are
// rejected before any gateway call.
func (c *LearningPathComposer) Compose(ctx context.Context, topic string, scorePercentage float64, weeks int) ([]LearningPathWeek, error) {
	if weeks < MinWeeks || weeks > MaxWeeks {
		return nil, fmt.Errorf("weeks must be between %d and %d, got %d", MinWeeks, MaxWeeks, weeks)
	}

	content, err := c.llm.Complete(ctx, buildLearningPathPrompt(topic, scorePercentage, weeks), learningPathMaxTokens)
	if err != nil {
		return nil, fmt.Errorf("learning path generation failed: %w", err)
	}

	var path []LearningPathWeek
	if err := json.Unmarshal([]byte(StripCodeFence(content)), &path); err != nil {
		return nil, fmt.Errorf("failed to parse learning path from model response: %w", err)
	}

	if len(path) != weeks {
		return nil, fmt.Errorf("expected %d weeks in learning path, got %d", weeks, len(path))
	}
	for i, week := range path {
		if week.Week <= 0 {
			return nil, fmt.Errorf("week entry %d has invalid week number %d", i+1, week.Week)
		}
		if len(week.Tasks) == 0 {
			return nil, fmt.Errorf("week %d has no tasks", week.Week)
		}
	}

	return path, nil
}

func buildLearningPathPrompt(topic string, scorePercentage float64, weeks int) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "You are an expert curriculum designer. A student wants to learn %q over %d weeks and scored %.0f%% on a prerequisite quiz. Generate a detailed week-by-week learning path to master %q. Rules:\n", topic, weeks, scorePercentage, topic)
	fmt.Fprintf(&sb, "- Provide exactly %d weeks of content.\n", weeks)
	sb.WriteString("- Adjust content difficulty based on the score: low score (0-50%) emphasizes basics, medium (51-75%) balances basics and intermediates, high (76-100%) includes advanced topics.\n")
	sb.WriteString("- Each week should have 2-3 clear, actionable tasks (e.g., study concepts, practice problems, watch tutorials).\n")
	sb.WriteString("- Format output as a JSON array where each element is an object with \"week\" (number) and \"tasks\" (array of strings).\n")
	sb.WriteString("- Output only the JSON array, without any Markdown code blocks, backticks, or additional text.\n")
	sb.WriteString("Example output:\n")
	sb.WriteString(`[
  {"week": 1, "tasks": ["Study concept A", "Solve 5 problems on A", "Watch tutorial on A"]},
  {"week": 2, "tasks": ["Study concept B", "Practice B with examples"]}
]`)

	return sb.String()
}

// StripCodeFence removes Markdown code-fence markup models sometimes wrap
// around JSON responses, leaving the bare payload.
func StripCodeFence(content string) string {
	s := strings.TrimSpace(content)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// Drop an optional language tag on the opening fence.
	if idx := strings.Index(s, "\n"); idx >= 0 && !strings.ContainsAny(s[:idx], "{}[]") {
		s = s[idx+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
