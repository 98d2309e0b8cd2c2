package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"studypath"

	"github.com/gorilla/sessions"
)

func newTestServer(t *testing.T, llm studypath.Completer) *Server {
	t.Helper()
	db, err := studypath.OpenDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("OpenDB: %v", err)
	}
	t.Cleanup(func() { db.CloseDB() })
	if err := db.CreateTables(); err != nil {
		t.Fatalf("CreateTables: %v", err)
	}
	return newServer(db, llm, sessions.NewCookieStore([]byte("test-key")))
}

func doJSON(t *testing.T, s *Server, method, path, body, userID string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, req)
	return rec
}

func TestHandlePrerequisites(t *testing.T) {
	s := newTestServer(t, studypath.NewMockCompleter("1. Data Types\n2. Set Theory\n3. Logic\n4. Functions"))

	rec := doJSON(t, s, http.MethodPost, "/api/prerequisites", `{"topic": "Databases"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		Topic         string   `json:"topic"`
		Prerequisites []string `json:"prerequisites"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Topic != "Databases" || len(resp.Prerequisites) != 4 {
		t.Errorf("response = %+v", resp)
	}

	sets, err := s.db.GetPrerequisiteSets(0)
	if err != nil {
		t.Fatalf("GetPrerequisiteSets: %v", err)
	}
	if len(sets) != 1 {
		t.Errorf("stored %d prerequisite sets, want 1", len(sets))
	}
}

func TestHandlePrerequisites_MissingTopic(t *testing.T) {
	s := newTestServer(t, studypath.NewMockCompleter(""))

	rec := doJSON(t, s, http.MethodPost, "/api/prerequisites", `{}`, "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleMCQ_FixedQuestionCount(t *testing.T) {
	// session logs land in ./log
	oldWD, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() { os.Chdir(oldWD) })

	s := newTestServer(t, &studypath.MockCompleter{Err: errors.New("upstream down")})

	rec := doJSON(t, s, http.MethodPost, "/api/prerequisites/mcq", `{"prerequisites": ["Recursion", "Pointers"]}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var mcqs []studypath.MCQ
	if err := json.Unmarshal(rec.Body.Bytes(), &mcqs); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(mcqs) != fixedQuestionCount {
		t.Errorf("got %d MCQs, want %d", len(mcqs), fixedQuestionCount)
	}
}

func TestHandleMCQ_EmptyPrerequisites(t *testing.T) {
	s := newTestServer(t, studypath.NewMockCompleter(""))

	for _, body := range []string{`{}`, `{"prerequisites": []}`} {
		rec := doJSON(t, s, http.MethodPost, "/api/prerequisites/mcq", body, "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %s: status = %d, want 400", body, rec.Code)
		}
	}
}

func TestHandleResetMCQCache(t *testing.T) {
	s := newTestServer(t, studypath.NewMockCompleter(""))
	s.history.Record("Recursion", "some question")

	rec := doJSON(t, s, http.MethodPost, "/api/prerequisites/reset-mcq-cache", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if s.history.Seen("Recursion", "some question") {
		t.Error("history should be empty after reset")
	}
}

func TestQuizAttempts_QuotaFlow(t *testing.T) {
	s := newTestServer(t, studypath.NewMockCompleter(""))
	body := `{"quizId": "q1", "score": 80, "passed": true, "topic": "Algebra"}`

	for i := 1; i <= studypath.MaxAttemptsPerDay; i++ {
		rec := doJSON(t, s, http.MethodPost, "/api/quiz-attempts", body, "u1")
		if rec.Code != http.StatusOK {
			t.Fatalf("attempt %d: status = %d, want 200", i, rec.Code)
		}
	}

	rec := doJSON(t, s, http.MethodPost, "/api/quiz-attempts", body, "u1")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("attempt past cap: status = %d, want 403", rec.Code)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/quiz-attempts?topic=Algebra", "", "u1")
	if rec.Code != http.StatusOK {
		t.Fatalf("check: status = %d, want 200", rec.Code)
	}
	var check struct {
		CanAttempt    bool   `json:"canAttempt"`
		AttemptsToday int    `json:"attemptsToday"`
		Message       string `json:"message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &check); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if check.CanAttempt || check.AttemptsToday != studypath.MaxAttemptsPerDay {
		t.Errorf("check after cap = %+v", check)
	}

	// A different user is unaffected.
	rec = doJSON(t, s, http.MethodGet, "/api/quiz-attempts?topic=Algebra", "", "u2")
	if err := json.Unmarshal(rec.Body.Bytes(), &check); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !check.CanAttempt || check.AttemptsToday != 0 {
		t.Errorf("check for fresh user = %+v", check)
	}
}

func TestQuizAttempts_MissingTopic(t *testing.T) {
	s := newTestServer(t, studypath.NewMockCompleter(""))

	if rec := doJSON(t, s, http.MethodGet, "/api/quiz-attempts", "", "u1"); rec.Code != http.StatusBadRequest {
		t.Errorf("GET without topic: status = %d, want 400", rec.Code)
	}
	if rec := doJSON(t, s, http.MethodPost, "/api/quiz-attempts", `{"quizId": "q1"}`, "u1"); rec.Code != http.StatusBadRequest {
		t.Errorf("POST without topic: status = %d, want 400", rec.Code)
	}
}

func TestHandleTopicSummary_AlwaysOK(t *testing.T) {
	s := newTestServer(t, &studypath.MockCompleter{Err: errors.New("upstream down")})

	rec := doJSON(t, s, http.MethodPost, "/api/topic-summary", `{"topic": "Set Theory", "mainTopic": "Databases"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 even on upstream failure", rec.Code)
	}
	var resp struct {
		Summary string `json:"summary"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Summary != studypath.SummaryFallback {
		t.Errorf("summary = %q, want fallback", resp.Summary)
	}
}

func TestHandleLearningPath(t *testing.T) {
	plan := `[{"week": 1, "tasks": ["Study basics", "Practice"]}, {"week": 2, "tasks": ["Review"]}]`
	s := newTestServer(t, studypath.NewMockCompleter(plan))

	rec := doJSON(t, s, http.MethodPost, "/api/learning-path", `{"topic": "Graphs", "scorePercentage": 80, "weeks": 2}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp struct {
		LearningPath []studypath.LearningPathWeek `json:"learningPath"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.LearningPath) != 2 {
		t.Errorf("got %d weeks, want 2", len(resp.LearningPath))
	}
}

func TestHandleLearningPath_Validation(t *testing.T) {
	s := newTestServer(t, studypath.NewMockCompleter("[]"))

	tests := []string{
		`{}`,
		`{"topic": "Graphs"}`,
		`{"topic": "Graphs", "scorePercentage": 80}`,
		`{"topic": "Graphs", "scorePercentage": 80, "weeks": 0}`,
		`{"topic": "Graphs", "scorePercentage": 80, "weeks": 53}`,
	}
	for _, body := range tests {
		rec := doJSON(t, s, http.MethodPost, "/api/learning-path", body, "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %s: status = %d, want 400", body, rec.Code)
		}
	}
}

func TestHandleLearningPath_GenerationFailure(t *testing.T) {
	s := newTestServer(t, studypath.NewMockCompleter("not a plan"))

	rec := doJSON(t, s, http.MethodPost, "/api/learning-path", `{"topic": "Graphs", "scorePercentage": 80, "weeks": 2}`, "")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestUserIDFromSessionWhenHeaderAbsent(t *testing.T) {
	s := newTestServer(t, studypath.NewMockCompleter(""))

	req := httptest.NewRequest(http.MethodGet, "/api/quiz-attempts?topic=Algebra", nil)
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(rec.Result().Cookies()) == 0 {
		t.Error("expected a session cookie carrying the generated user id")
	}
}
