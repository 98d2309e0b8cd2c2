package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"studypath"
)

func main() {
	var (
		topic        = flag.String("topic", "", "Topic to build a prerequisite quiz for (required)")
		prereqList   = flag.String("prereqs", "", "Comma-separated prerequisites (skips prerequisite resolution)")
		numQuestions = flag.Int("questions", 15, "Number of questions to generate")
		restart      = flag.Bool("restart", false, "Clear question history for the topics before generating")
		outputFile   = flag.String("output", "", "Output file for quiz JSON (default: stdout)")
		apiKey       = flag.String("api-key", "", "API key (or set OPENROUTER_API_KEY / OPENAI_API_KEY)")
		baseURL      = flag.String("base-url", "https://openrouter.ai/api/v1", "OpenAI-compatible API base URL")
		model        = flag.String("model", "", "Model identifier override")
		verbose      = flag.Bool("verbose", false, "Enable verbose debugging output")
	)

	flag.Parse()

	studypath.SetVerbose(*verbose)

	if *topic == "" && *prereqList == "" {
		log.Fatal("A topic is required. Use -topic (or -prereqs to supply topics directly).")
	}

	if *apiKey == "" {
		*apiKey = os.Getenv("OPENROUTER_API_KEY")
		if *apiKey == "" {
			*apiKey = os.Getenv("OPENAI_API_KEY")
		}
		if *apiKey == "" {
			log.Fatal("An API key is required. Use -api-key or set OPENROUTER_API_KEY / OPENAI_API_KEY.")
		}
	}

	var opts []studypath.LLMOption
	if *model != "" {
		opts = append(opts, studypath.WithModel(*model))
	}
	llm := studypath.NewLLMClient(*apiKey, *baseURL, opts...)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	var prereqs []string
	if *prereqList != "" {
		for _, p := range strings.Split(*prereqList, ",") {
			if p = strings.TrimSpace(p); p != "" {
				prereqs = append(prereqs, p)
			}
		}
	} else {
		resolver := studypath.NewPrereqResolver(llm)
		prereqs = resolver.GeneratePrerequisites(ctx, *topic)
		log.Printf("Resolved %d prerequisites: %s", len(prereqs), strings.Join(prereqs, ", "))
	}

	generator := studypath.NewMCQGenerator(llm, studypath.NewQuestionHistory())
	mcqs := generator.Generate(ctx, prereqs, *numQuestions, *restart)

	output, err := json.MarshalIndent(map[string]interface{}{
		"topic":         *topic,
		"prerequisites": prereqs,
		"questions":     mcqs,
	}, "", "  ")
	if err != nil {
		log.Fatalf("Failed to marshal quiz: %v", err)
	}

	if *outputFile != "" {
		if err := os.WriteFile(*outputFile, output, 0644); err != nil {
			log.Fatalf("Failed to write output file: %v", err)
		}
		log.Printf("Quiz saved to: %s", *outputFile)
	} else {
		fmt.Println(string(output))
	}
}
