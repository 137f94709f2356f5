package handler

import (
	"courtkeeper/internal/tournaments/service"
	httputil "courtkeeper/pkg/http"
	"courtkeeper/pkg/logger"
	"courtkeeper/pkg/model"
	"net/http"

	"github.com/julienschmidt/httprouter"
)

type TournamentHandler struct {
	service service.TournamentService
	log     *logger.Logger
}

func NewTournamentHandler(service service.TournamentService, log *logger.Logger) *TournamentHandler {
	return &TournamentHandler{
		service: service,
		log:     log,
	}
}

func (h *TournamentHandler) Create(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	requester, err := httputil.ExtractRequester(r)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	var t model.Tournament
	if err := httputil.DecodeJSON(r, &t); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	tournament, err := h.service.Allocate(r.Context(), ps.ByName("club_id"), &t, requester)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, tournament); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *TournamentHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if _, err := httputil.ExtractRequester(r); err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	tournament, err := h.service.GetByID(r.Context(), ps.ByName("club_id"), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}
	h.writeSuccess(w, "GetByID", tournament)
}

func (h *TournamentHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	requester, err := httputil.ExtractRequester(r)
	if err != nil {
		h.writeError(w, "Cancel", err)
		return
	}

	tournament, err := h.service.Cancel(r.Context(), ps.ByName("club_id"), ps.ByName("id"), requester)
	if err != nil {
		h.writeError(w, "Cancel", err)
		return
	}
	h.writeSuccess(w, "Cancel", tournament)
}

func (h *TournamentHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *TournamentHandler) writeSuccess(w http.ResponseWriter, handler string, data any) {
	if err := httputil.WriteSuccess(w, data); err != nil {
		h.log.Error("failed to write success response", "handler", handler, "operation", "WriteSuccess", "error", err)
	}
}
