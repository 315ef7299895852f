package httpadapter

import (
	"embed"
	"errors"
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/PabloGalante/medibot/internal/app/conversation"
	"github.com/PabloGalante/medibot/internal/app/intake"
	"github.com/PabloGalante/medibot/internal/domain"
	"github.com/PabloGalante/medibot/internal/observability"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type recordRow struct {
	Label string
	Value string
}

type chatPage struct {
	Session      *domain.Session
	Messages     []*domain.Message
	NextQuestion string
	Rows         []recordRow
	Analysis     *domain.AnalysisResult
}

// handleChatStart opens a fresh session and sends the browser to its page.
func (s *Server) handleChatStart(w http.ResponseWriter, r *http.Request) {
	out, err := s.svc.StartSession(r.Context())
	if err != nil {
		pageError(w, r, err)
		return
	}
	http.Redirect(w, r, "/chat/"+string(out.Session.ID), http.StatusSeeOther)
}

func (s *Server) handleChatPage(w http.ResponseWriter, r *http.Request) {
	id := domain.SessionID(chi.URLParam(r, "id"))

	session, msgs, err := s.svc.GetSessionTimeline(r.Context(), id, 0)
	if err != nil {
		pageError(w, r, err)
		return
	}

	data := chatPage{
		Session:  session,
		Messages: msgs,
		Analysis: session.Analysis,
	}
	if session.Complete {
		for _, f := range domain.FieldOrder {
			v, _ := session.Record.Value(f)
			data.Rows = append(data.Rows, recordRow{Label: f.Label(), Value: v})
		}
	} else {
		data.NextQuestion, _ = intake.NextQuestion(session.Record)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pages.ExecuteTemplate(w, "chat.html", data); err != nil {
		observability.LoggerFromContext(r.Context()).Error("render chat page", "error", err)
	}
}

// handleChatSubmit takes the form post and redirects back to the page, so a
// browser refresh never resubmits an answer.
func (s *Server) handleChatSubmit(w http.ResponseWriter, r *http.Request) {
	id := domain.SessionID(chi.URLParam(r, "id"))

	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	_, err := s.svc.SendMessage(r.Context(), conversation.SendMessageInput{
		SessionID: id,
		Text:      r.PostFormValue("text"),
	})
	if err != nil && !errors.Is(err, domain.ErrSessionComplete) {
		pageError(w, r, err)
		return
	}

	http.Redirect(w, r, "/chat/"+string(id), http.StatusSeeOther)
}

func pageError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, domain.ErrSessionNotFound) {
		http.NotFound(w, r)
		return
	}
	observability.LoggerFromContext(r.Context()).Error("chat request failed", "error", err)
	http.Error(w, "internal server error", http.StatusInternalServerError)
}
