package studypath

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"
)

const (
	prereqMaxTokens  = 200
	summaryMaxTokens = 300

	// PrereqFallback is returned as the only list entry when the gateway
	// fails or yields nothing usable. Callers always get a non-empty list.
	PrereqFallback = "Unable to generate prerequisites. Try another topic."

	// SummaryFallback replaces a summary the gateway could not produce.
	SummaryFallback = "Failed to fetch summary."
)

var enumMarker = regexp.MustCompile(`^\d+\.?\s*`)

// PrereqResolver derives the foundational concepts a student should know
// before studying a topic, and produces short per-concept summaries.
type PrereqResolver struct {
	llm Completer
}

// NewPrereqResolver creates a resolver backed by the given gateway.
func NewPrereqResolver(llm Completer) *PrereqResolver {
	return &PrereqResolver{llm: llm}
}

// GeneratePrerequisites returns 4-7 prerequisite concept names for the
// topic. Upstream failures degrade to a single fallback entry instead of an
// error; no retry is attempted.
func (r *PrereqResolver) GeneratePrerequisites(ctx context.Context, topic string) []string {
	log.Printf("Resolving prerequisites for topic: %s", topic)

	content, err := r.llm.Complete(ctx, buildPrereqPrompt(topic), prereqMaxTokens)
	if err != nil {
		log.Printf("Prerequisite generation failed for %q: %v", topic, err)
		return []string{PrereqFallback}
	}

	list := ParseNumberedList(content)
	if len(list) == 0 {
		log.Printf("Prerequisite response for %q contained no usable lines", topic)
		return []string{PrereqFallback}
	}
	return list
}

// SummarizeTopic explains a prerequisite concept and how it supports the
// main topic. It never fails: upstream errors yield fallback text.
func (r *PrereqResolver) SummarizeTopic(ctx context.Context, topic, mainTopic string) string {
	prompt := fmt.Sprintf(`You are an educational assistant.

Explain the main concepts of %q and describe clearly how it helps a student understand %q.

Be concise, beginner-friendly, and avoid advanced jargon.
Output in 1-3 short paragraphs.`, topic, mainTopic)

	content, err := r.llm.Complete(ctx, prompt, summaryMaxTokens)
	if err != nil {
		log.Printf("Summary generation failed for %q: %v", topic, err)
		return SummaryFallback
	}
	if strings.TrimSpace(content) == "" {
		return "No response from model."
	}
	return content
}

// ParseNumberedList splits a model response into list items: one item per
// line, leading enumeration markers ("1.", "2." ...) and surrounding
// whitespace stripped, blank lines dropped.
func ParseNumberedList(content string) []string {
	var items []string
	for _, line := range strings.Split(content, "\n") {
		item := strings.TrimSpace(enumMarker.ReplaceAllString(strings.TrimSpace(line), ""))
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}

func buildPrereqPrompt(topic string) string {
	var sb strings.Builder

	sb.WriteString("You are an expert computer science curriculum designer.\n\n")
	fmt.Fprintf(&sb, "A student wants to learn the topic: %q.\n", topic)
	sb.WriteString("Your task is to return only the essential prerequisite concepts the student must clearly understand before learning it.\n\n")
	sb.WriteString("STRICT RULES:\n")
	fmt.Fprintf(&sb, "- DO NOT include the topic %q or any of its subtopics (e.g., SQL for DBMS, CNN for Deep Learning).\n", topic)
	sb.WriteString("- DO NOT include advanced or future concepts.\n")
	sb.WriteString("- DO NOT repeat vague/general concepts (like both \"Math\" and \"Set Theory\").\n")
	sb.WriteString("- DO NOT include explanations or descriptions, just topic names.\n")
	sb.WriteString("- DO NOT return fewer than 4 or more than 7 items.\n\n")
	fmt.Fprintf(&sb, "Focus only on foundational, truly required concepts that directly prepare a student to understand %q.\n\n", topic)
	sb.WriteString("Output format:\n")
	sb.WriteString("1. Topic A\n")
	sb.WriteString("2. Topic B\n")
	sb.WriteString("3. Topic C\n")
	sb.WriteString("...\n")
	sb.WriteString("(Maximum 7 topics, Minimum 4 if fewer are needed)\n")

	return sb.String()
}
