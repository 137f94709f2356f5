package handler

import (
	"courtkeeper/internal/seasonpasses/service"
	httputil "courtkeeper/pkg/http"
	"courtkeeper/pkg/logger"
	"courtkeeper/pkg/model"
	"net/http"

	"github.com/julienschmidt/httprouter"
)

type SeasonPassHandler struct {
	service service.SeasonPassService
	log     *logger.Logger
}

func NewSeasonPassHandler(service service.SeasonPassService, log *logger.Logger) *SeasonPassHandler {
	return &SeasonPassHandler{
		service: service,
		log:     log,
	}
}

func (h *SeasonPassHandler) Create(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	requester, err := httputil.ExtractRequester(r)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	var pass model.SeasonPass
	if err := httputil.DecodeJSON(r, &pass); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	issued, err := h.service.Issue(r.Context(), ps.ByName("club_id"), &pass, requester)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, issued); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *SeasonPassHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	requester, err := httputil.ExtractRequester(r)
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	pass, err := h.service.GetByID(r.Context(), ps.ByName("club_id"), ps.ByName("id"), requester)
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}
	h.writeSuccess(w, "GetByID", pass)
}

func (h *SeasonPassHandler) Revoke(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	requester, err := httputil.ExtractRequester(r)
	if err != nil {
		h.writeError(w, "Revoke", err)
		return
	}

	pass, err := h.service.Revoke(r.Context(), ps.ByName("club_id"), ps.ByName("id"), requester)
	if err != nil {
		h.writeError(w, "Revoke", err)
		return
	}
	h.writeSuccess(w, "Revoke", pass)
}

func (h *SeasonPassHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *SeasonPassHandler) writeSuccess(w http.ResponseWriter, handler string, data any) {
	if err := httputil.WriteSuccess(w, data); err != nil {
		h.log.Error("failed to write success response", "handler", handler, "operation", "WriteSuccess", "error", err)
	}
}
