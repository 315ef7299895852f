package httpadapter

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/PabloGalante/medibot/internal/app/conversation"
	"github.com/PabloGalante/medibot/internal/domain"
	"github.com/PabloGalante/medibot/internal/observability"
)

type Server struct {
	svc *conversation.Service
}

func NewServer(svc *conversation.Service) http.Handler {
	s := &Server{svc: svc}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(withRequestID)
	r.Use(withLogging)
	r.Use(withCORS)

	r.Get("/healthz", s.handleHealthz)

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", s.handleCreateSession)
		r.Get("/{id}", s.handleGetSession)
		r.Delete("/{id}", s.handleEndSession)
		r.Post("/{id}/messages", s.handleSendMessage)
		r.Get("/{id}/analysis", s.handleGetAnalysis)
	})

	r.Get("/", s.handleChatStart)
	r.Get("/chat/{id}", s.handleChatPage)
	r.Post("/chat/{id}", s.handleChatSubmit)

	return r
}

// ─────────────────────────────────────────────
// DTOs (request/response)
// ─────────────────────────────────────────────

type sessionResponse struct {
	ID        string            `json:"id"`
	Record    map[string]string `json:"record"`
	Filled    int               `json:"filled"`
	Complete  bool              `json:"complete"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

type messageResponse struct {
	ID        string    `json:"id"`
	Seq       int       `json:"seq"`
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

type analysisResponse struct {
	Text        string    `json:"text"`
	Available   bool      `json:"available"`
	Model       string    `json:"model,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
	Error       string    `json:"error,omitempty"`
}

type createSessionResponse struct {
	Session      sessionResponse   `json:"session"`
	Messages     []messageResponse `json:"messages"`
	NextQuestion string            `json:"next_question"`
}

type getSessionResponse struct {
	Session  sessionResponse   `json:"session"`
	Messages []messageResponse `json:"messages"`
	Analysis *analysisResponse `json:"analysis,omitempty"`
}

type sendMessageRequest struct {
	Text string `json:"text"`
}

type sendMessageResponse struct {
	Accepted     bool              `json:"accepted"`
	Session      sessionResponse   `json:"session"`
	Messages     []messageResponse `json:"messages"`
	NextQuestion string            `json:"next_question"`
	Analysis     *analysisResponse `json:"analysis,omitempty"`
}

// ─────────────────────────────────────────────
// Concrete handlers
// ─────────────────────────────────────────────

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	out, err := s.svc.StartSession(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, createSessionResponse{
		Session:      toSessionResponse(out.Session),
		Messages:     toMessagesResponse(out.Messages),
		NextQuestion: out.NextQuestion,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := domain.SessionID(chi.URLParam(r, "id"))

	session, msgs, err := s.svc.GetSessionTimeline(r.Context(), id, 0)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, getSessionResponse{
		Session:  toSessionResponse(session),
		Messages: toMessagesResponse(msgs),
		Analysis: toAnalysisResponse(session.Analysis, nil),
	})
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	id := domain.SessionID(chi.URLParam(r, "id"))

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	out, err := s.svc.SendMessage(r.Context(), conversation.SendMessageInput{
		SessionID: id,
		Text:      req.Text,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, sendMessageResponse{
		Accepted:     out.Accepted,
		Session:      toSessionResponse(out.Session),
		Messages:     toMessagesResponse(out.NewMessages),
		NextQuestion: out.NextQuestion,
		Analysis:     toAnalysisResponse(out.Analysis, out.AnalysisErr),
	})
}

func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	id := domain.SessionID(chi.URLParam(r, "id"))

	res, err := s.svc.GetAnalysis(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toAnalysisResponse(res, nil))
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	id := domain.SessionID(chi.URLParam(r, "id"))

	if err := s.svc.EndSession(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ─────────────────────────────────────────────
// Conversation Helpers
// ─────────────────────────────────────────────

func toSessionResponse(s *domain.Session) sessionResponse {
	rec := make(map[string]string, len(domain.FieldOrder))
	for _, f := range domain.FieldOrder {
		if v, ok := s.Record.Value(f); ok {
			rec[string(f)] = v
		}
	}
	return sessionResponse{
		ID:        string(s.ID),
		Record:    rec,
		Filled:    s.Record.Filled(),
		Complete:  s.Complete,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

func toMessageResponse(m *domain.Message) messageResponse {
	return messageResponse{
		ID:        string(m.ID),
		Seq:       m.Seq,
		Role:      string(m.Author),
		Text:      m.Text,
		CreatedAt: m.CreatedAt,
	}
}

func toMessagesResponse(msgs []*domain.Message) []messageResponse {
	out := make([]messageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, toMessageResponse(m))
	}
	return out
}

func toAnalysisResponse(a *domain.AnalysisResult, genErr error) *analysisResponse {
	if a == nil {
		return nil
	}
	resp := &analysisResponse{
		Text:        a.Text,
		Available:   a.Available,
		Model:       a.Model,
		GeneratedAt: a.GeneratedAt,
	}
	if genErr != nil {
		resp.Error = genErr.Error()
	}
	return resp
}

// ─────────────────────────────────────────────
// HTTP Helpers
// ─────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{
		"error": msg,
	})
}

// writeError maps domain errors onto status codes.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
	case errors.Is(err, domain.ErrSessionComplete):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "all questions already answered"})
	case errors.Is(err, domain.ErrRecordIncomplete):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "questionnaire not complete"})
	default:
		observability.LoggerFromContext(r.Context()).Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "internal server error",
		})
	}
}
