package studypath

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// LLMLogger records every gateway interaction of one MCQ generation session
// to its own file, independent of the skip/backfill decisions the engine
// makes, so failures can be diagnosed after the fact.
type LLMLogger struct {
	file      *os.File
	mu        sync.Mutex
	sessionID string
}

// NewLLMLogger creates a session log under log/ named after the session ID.
func NewLLMLogger(sessionID string, topics []string, targetCount int) (*LLMLogger, error) {
	if err := os.MkdirAll("log", 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	filename := filepath.Join("log", fmt.Sprintf("%s.log", sessionID))
	file, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}

	logger := &LLMLogger{
		file:      file,
		sessionID: sessionID,
	}

	logger.Logf("=== MCQ Generation Log ===\n")
	logger.Logf("Session ID: %s\n", sessionID)
	logger.Logf("Topics: %s\n", strings.Join(topics, ", "))
	logger.Logf("Target Questions: %d\n", targetCount)
	logger.Logf("Started: %s\n", time.Now().Format(time.RFC3339))
	logger.Logf("========================\n\n")

	return logger, nil
}

// Logf writes a formatted log entry with timestamp.
func (ll *LLMLogger) Logf(format string, args ...interface{}) {
	ll.mu.Lock()
	defer ll.mu.Unlock()

	timestamp := time.Now().Format("15:04:05.000")
	message := fmt.Sprintf(format, args...)

	fmt.Fprintf(ll.file, "[%s] %s", timestamp, message)
	ll.file.Sync()
}

// LogLLMRequest logs an outgoing prompt.
func (ll *LLMLogger) LogLLMRequest(module, prompt string) {
	ll.Logf("=== LLM REQUEST (%s) ===\n", module)
	ll.Logf("Prompt:\n%s\n", prompt)
	ll.Logf("=====================\n\n")
}

// LogLLMResponse logs a raw completion.
func (ll *LLMLogger) LogLLMResponse(module, response string) {
	ll.Logf("=== LLM RESPONSE (%s) ===\n", module)
	ll.Logf("Response:\n%s\n", response)
	ll.Logf("======================\n\n")
}

// LogQuestionResult logs what the engine decided about one attempt.
func (ll *LLMLogger) LogQuestionResult(topic, action, detail string) {
	ll.Logf("Topic %q: %s - %s\n", topic, action, detail)
}

// Close finalizes and closes the log file.
func (ll *LLMLogger) Close() error {
	ll.mu.Lock()
	defer ll.mu.Unlock()

	if ll.file != nil {
		timestamp := time.Now().Format("15:04:05.000")
		fmt.Fprintf(ll.file, "[%s] === MCQ Generation Complete ===\n", timestamp)
		fmt.Fprintf(ll.file, "[%s] Completed: %s\n", timestamp, time.Now().Format(time.RFC3339))
		return ll.file.Close()
	}
	return nil
}
