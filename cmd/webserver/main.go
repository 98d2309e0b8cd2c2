package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"

	"studypath"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
)

// fixedQuestionCount is how many MCQs every quiz carries. The client never
// chooses: a stable quiz length keeps the proctored UI predictable.
const fixedQuestionCount = 15

const sessionName = "studypath-session"

type Server struct {
	db       *studypath.DB
	llm      studypath.Completer
	history  *studypath.QuestionHistory
	resolver *studypath.PrereqResolver
	composer *studypath.LearningPathComposer
	store    *sessions.CookieStore
}

func main() {
	studypath.SetVerbose(os.Getenv("VERBOSE") != "")

	apiKey := os.Getenv("OPENROUTER_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		log.Fatal("OPENROUTER_API_KEY or OPENAI_API_KEY environment variable is required")
	}

	baseURL := os.Getenv("LLM_BASE_URL")
	if baseURL == "" {
		baseURL = "https://openrouter.ai/api/v1"
	}

	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "./studypath.db"
	}

	db, err := studypath.OpenDB(dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.CloseDB()

	if err := db.CreateTables(); err != nil {
		log.Fatalf("Failed to create tables: %v", err)
	}

	sessionKey := os.Getenv("SESSION_KEY")
	if sessionKey == "" {
		sessionKey = "studypath-dev-session-key"
	}

	var opts []studypath.LLMOption
	if model := os.Getenv("LLM_MODEL"); model != "" {
		opts = append(opts, studypath.WithModel(model))
	}
	llm := studypath.NewLLMClient(apiKey, baseURL, opts...)

	server := newServer(db, llm, sessions.NewCookieStore([]byte(sessionKey)))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8180"
	}

	log.Printf("Starting server on port %s", port)
	log.Fatal(http.ListenAndServe(":"+port, withCORS(server.routes())))
}

func newServer(db *studypath.DB, llm studypath.Completer, store *sessions.CookieStore) *Server {
	return &Server{
		db:       db,
		llm:      llm,
		history:  studypath.NewQuestionHistory(),
		resolver: studypath.NewPrereqResolver(llm),
		composer: studypath.NewLearningPathComposer(llm),
		store:    store,
	}
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/prerequisites", s.handlePrerequisites)
	mux.HandleFunc("/api/prerequisites/mcq", s.handleMCQ)
	mux.HandleFunc("/api/prerequisites/reset-mcq-cache", s.handleResetMCQCache)
	mux.HandleFunc("/api/quiz-attempts", s.handleQuizAttempts)
	mux.HandleFunc("/api/topic-summary", s.handleTopicSummary)
	mux.HandleFunc("/api/learning-path", s.handleLearningPath)
	return mux
}

// withCORS allows the separately hosted frontend to call the API.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-User-ID")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// userID resolves the caller's identity: a trusted X-User-ID header wins,
// otherwise a uuid persisted in the cookie session is used (and minted on
// first contact).
func (s *Server) userID(w http.ResponseWriter, r *http.Request) string {
	if id := r.Header.Get("X-User-ID"); id != "" {
		return id
	}

	session, _ := s.store.Get(r, sessionName)
	if id, ok := session.Values["user_id"].(string); ok && id != "" {
		return id
	}

	id := uuid.NewString()
	session.Values["user_id"] = id
	if err := session.Save(r, w); err != nil {
		log.Printf("Session save error: %v", err)
	}
	return id
}

func (s *Server) handlePrerequisites(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req struct {
		Topic string `json:"topic"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Topic == "" {
		writeError(w, http.StatusBadRequest, "Topic is required")
		return
	}

	prereqs := s.resolver.GeneratePrerequisites(r.Context(), req.Topic)

	set := &studypath.PrerequisiteSet{Topic: req.Topic, Prerequisites: prereqs}
	if err := s.db.SavePrerequisiteSet(set); err != nil {
		log.Printf("Failed to save prerequisite set for %q: %v", req.Topic, err)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"topic":         req.Topic,
		"prerequisites": prereqs,
	})
}

func (s *Server) handleMCQ(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req struct {
		Prerequisites []string `json:"prerequisites"`
		Restart       bool     `json:"restart"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Prerequisites) == 0 {
		writeError(w, http.StatusBadRequest, "Prerequisites array is required and must not be empty")
		return
	}

	generator := studypath.NewMCQGenerator(s.llm, s.history)

	sessionID := uuid.NewString()
	logger, err := studypath.NewLLMLogger(sessionID, req.Prerequisites, fixedQuestionCount)
	if err != nil {
		log.Printf("Failed to create session logger %s: %v", sessionID, err)
	} else {
		generator.SetLogger(logger)
		defer logger.Close()
	}

	mcqs := generator.Generate(r.Context(), req.Prerequisites, fixedQuestionCount, req.Restart)
	writeJSON(w, http.StatusOK, mcqs)
}

func (s *Server) handleResetMCQCache(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	s.history.Reset()
	writeJSON(w, http.StatusOK, map[string]string{"message": "MCQ cache reset successfully."})
}

func (s *Server) handleQuizAttempts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleCheckAttempts(w, r)
	case http.MethodPost:
		s.handleRecordAttempt(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (s *Server) handleCheckAttempts(w http.ResponseWriter, r *http.Request) {
	topic := r.URL.Query().Get("topic")
	if topic == "" {
		writeError(w, http.StatusBadRequest, "Topic is required.")
		return
	}

	userID := s.userID(w, r)
	count, err := s.db.CountAttemptsToday(userID, topic)
	if err != nil {
		log.Printf("Failed to count attempts for %s/%s: %v", userID, topic, err)
		writeError(w, http.StatusInternalServerError, "Server error.")
		return
	}

	message := fmt.Sprintf("%d attempt(s) remaining today for %s.", studypath.MaxAttemptsPerDay-count, topic)
	if count >= studypath.MaxAttemptsPerDay {
		message = fmt.Sprintf("Max attempts reached for %s today. Please try again tomorrow.", topic)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"canAttempt":    count < studypath.MaxAttemptsPerDay,
		"attemptsToday": count,
		"message":       message,
	})
}

func (s *Server) handleRecordAttempt(w http.ResponseWriter, r *http.Request) {
	var req struct {
		QuizID string  `json:"quizId"`
		Score  float64 `json:"score"`
		Passed bool    `json:"passed"`
		Topic  string  `json:"topic"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Topic == "" {
		writeError(w, http.StatusBadRequest, "Topic is required.")
		return
	}

	userID := s.userID(w, r)
	count, err := s.db.RecordAttempt(userID, req.Topic, req.QuizID, req.Score, req.Passed)
	if err != nil {
		if errors.Is(err, studypath.ErrQuotaExceeded) {
			writeJSON(w, http.StatusForbidden, map[string]interface{}{
				"canAttempt":    false,
				"attemptsToday": count,
				"message":       fmt.Sprintf("Max attempts reached for %s today. Please try again tomorrow.", req.Topic),
			})
			return
		}
		log.Printf("Failed to record attempt for %s/%s: %v", userID, req.Topic, err)
		writeError(w, http.StatusInternalServerError, "Server error.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"canAttempt":    true,
		"attemptsToday": count,
		"message":       "Attempt recorded.",
	})
}

func (s *Server) handleTopicSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req struct {
		Topic     string `json:"topic"`
		MainTopic string `json:"mainTopic"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Topic == "" {
		writeError(w, http.StatusBadRequest, "Topic is required")
		return
	}

	// Summaries degrade to fallback text rather than failing the request.
	summary := s.resolver.SummarizeTopic(r.Context(), req.Topic, req.MainTopic)
	writeJSON(w, http.StatusOK, map[string]string{"summary": summary})
}

func (s *Server) handleLearningPath(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req struct {
		Topic           string   `json:"topic"`
		ScorePercentage *float64 `json:"scorePercentage"`
		Weeks           *int     `json:"weeks"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Topic == "" || req.ScorePercentage == nil || req.Weeks == nil {
		writeError(w, http.StatusBadRequest, "Topic, score percentage, and weeks are required.")
		return
	}
	if *req.Weeks < studypath.MinWeeks || *req.Weeks > studypath.MaxWeeks {
		writeError(w, http.StatusBadRequest, "Weeks must be between 1 and 52.")
		return
	}

	path, err := s.composer.Compose(r.Context(), req.Topic, *req.ScorePercentage, *req.Weeks)
	if err != nil {
		log.Printf("Learning path generation failed for %q: %v", req.Topic, err)
		writeError(w, http.StatusInternalServerError, "Failed to generate learning path.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"learningPath": path})
}
