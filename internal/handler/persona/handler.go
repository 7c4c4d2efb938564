package persona

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/personachat/backend/internal/model/persona"
	"github.com/personachat/backend/pkg/utils"
)

// Handler serves the persona picker.
type Handler struct {
	personas persona.Store
}

// New creates the persona handler.
func New(personas persona.Store) *Handler {
	return &Handler{personas: personas}
}

// RegisterRoutes mounts persona routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/personas", h.handleListPersonas)
}

func (h *Handler) handleListPersonas(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.personas.List())
}
