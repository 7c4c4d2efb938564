package chat

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	model "github.com/personachat/backend/internal/model/chat"
	"github.com/personachat/backend/internal/model/persona"
	"github.com/personachat/backend/internal/service/ai"
	chatservice "github.com/personachat/backend/internal/service/chat"
	"github.com/personachat/backend/pkg/utils"
)

// Handler forwards shell intents to the session state machine and shapes
// its snapshots into render-ready views. No business logic lives here.
type Handler struct {
	chatSvc  *chatservice.Service
	personas persona.Store
}

// New creates the chat handler.
func New(chatSvc *chatservice.Service, personas persona.Store) *Handler {
	return &Handler{chatSvc: chatSvc, personas: personas}
}

// RegisterRoutes mounts the chat intent routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/chat/state", h.handleState)
	r.Get("/chat/sessions", h.handleListSessions)
	r.Get("/chat/sessions/{title}/messages", h.handleTranscript)
	r.Post("/chat/new", h.handleNewChat)
	r.Post("/chat/select", h.handleSelect)
	r.Post("/chat/persona", h.handleChoosePersona)
	r.Post("/chat/messages", h.handleSubmit)
	r.Delete("/chat/sessions/{title}", h.handleDelete)
}

// stateView carries the shell's visibility rules: the persona picker
// shows exactly while no persona and no session is chosen, the input
// whenever a persona or a session is active.
type stateView struct {
	Phase             chatservice.Phase `json:"phase"`
	CurrentTitle      string            `json:"currentTitle,omitempty"`
	Persona           string            `json:"persona,omitempty"`
	ShowPersonaPicker bool              `json:"showPersonaPicker"`
	ShowInput         bool              `json:"showInput"`
}

type sessionView struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Display   string `json:"display"`
	Persona   string `json:"persona,omitempty"`
	Active    bool   `json:"active"`
	Deletable bool   `json:"deletable"`
}

type messageView struct {
	ID      string `json:"id"`
	Role    string `json:"role"`
	Content string `json:"content"`
	Emoji   string `json:"emoji"`
	Persona string `json:"persona,omitempty"`
}

func (h *Handler) handleState(w http.ResponseWriter, r *http.Request) {
	state := h.chatSvc.State()
	utils.RespondJSON(w, http.StatusOK, stateView{
		Phase:             state.Phase,
		CurrentTitle:      state.CurrentTitle,
		Persona:           state.Persona,
		ShowPersonaPicker: state.Phase == chatservice.PhasePersonaPending,
		ShowInput:         state.Phase != chatservice.PhasePersonaPending,
	})
}

func (h *Handler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	state := h.chatSvc.State()
	sessions := h.chatSvc.Sessions()

	views := make([]sessionView, 0, len(sessions))
	for _, s := range sessions {
		active := s.Title == state.CurrentTitle
		views = append(views, sessionView{
			ID:      s.ID,
			Title:   s.Title,
			Display: displayTitle(s.Title),
			Persona: s.Persona,
			Active:  active,
			// The delete affordance only appears on the displayed session.
			Deletable: active,
		})
	}
	utils.RespondJSON(w, http.StatusOK, views)
}

func (h *Handler) handleTranscript(w http.ResponseWriter, r *http.Request) {
	title := pathTitle(r)
	messages, err := h.chatSvc.Transcript(title)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}

	views := make([]messageView, 0, len(messages))
	for _, msg := range messages {
		views = append(views, messageView{
			ID:      msg.ID,
			Role:    msg.Role,
			Content: msg.Content,
			Emoji:   h.messageEmoji(msg),
			Persona: msg.Persona,
		})
	}
	utils.RespondJSON(w, http.StatusOK, views)
}

func (h *Handler) handleNewChat(w http.ResponseWriter, r *http.Request) {
	h.chatSvc.NewChat()
	utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleSelect(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.chatSvc.Select(payload.Title); err != nil {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleChoosePersona(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Persona string `json:"persona"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	switch err := h.chatSvc.ChoosePersona(payload.Persona); {
	case err == nil:
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	case errors.Is(err, chatservice.ErrPersonaChosen):
		utils.RespondError(w, http.StatusConflict, err.Error())
	default:
		utils.RespondError(w, http.StatusBadRequest, err.Error())
	}
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.chatSvc.Submit(r.Context(), payload.Text)
	if err == nil {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	var upstreamErr *ai.UpstreamError
	var networkErr *ai.NetworkError
	switch {
	case errors.As(err, &upstreamErr), errors.As(err, &networkErr):
		// The submission was not consumed; the shell keeps the input text.
		utils.RespondError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, chatservice.ErrEmptyMessage),
		errors.Is(err, chatservice.ErrPersonaRequired):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
	default:
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
	}
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.chatSvc.Delete(pathTitle(r)); err != nil {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// messageEmoji picks the feed emoji: the generic head for user rows, the
// persona's emoji for assistant rows when the session has one.
func (h *Handler) messageEmoji(msg model.Message) string {
	if msg.Role == model.RoleAssistant && msg.Persona != "" {
		if p, ok := h.personas.FindByName(msg.Persona); ok {
			return p.Emoji
		}
	}
	return "👤"
}

// displayTitle truncates sidebar labels past 18 characters; the full
// title stays the identity key.
func displayTitle(title string) string {
	runes := []rune(title)
	if len(runes) <= 18 {
		return title
	}
	return string(runes[:18]) + ".."
}

// pathTitle decodes the {title} route parameter. Titles are arbitrary
// user text, so the shell URL-escapes them.
func pathTitle(r *http.Request) string {
	raw := chi.URLParam(r, "title")
	if decoded, err := url.PathUnescape(raw); err == nil {
		return decoded
	}
	return raw
}
