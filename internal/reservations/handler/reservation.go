package handler

import (
	"context"
	"net/http"

	"courtkeeper/internal/reservations/service"
	httputil "courtkeeper/pkg/http"
	"courtkeeper/pkg/logger"
	"courtkeeper/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type ReservationHandler struct {
	service service.BookingService
	log     *logger.Logger
}

func NewReservationHandler(service service.BookingService, log *logger.Logger) *ReservationHandler {
	return &ReservationHandler{
		service: service,
		log:     log,
	}
}

// Create books a slot. A replayed Idempotency-Key answers 200 with the
// original reservation instead of 201.
func (h *ReservationHandler) Create(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	requester, err := httputil.ExtractRequester(r)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	var req model.BookingRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Create", err)
		return
	}
	req.RequestKey = r.Header.Get(httputil.HeaderIdempotency)

	reservation, created, err := h.service.RequestBooking(r.Context(), ps.ByName("club_id"), &req, requester)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if created {
		if err := httputil.WriteCreated(w, reservation); err != nil {
			h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
		}
		return
	}
	h.writeSuccess(w, "Create", reservation)
}

func (h *ReservationHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	requester, err := httputil.ExtractRequester(r)
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	reservation, err := h.service.GetByID(r.Context(), ps.ByName("club_id"), ps.ByName("id"), requester)
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}
	h.writeSuccess(w, "GetByID", reservation)
}

// List returns the caller's own reservations, newest first.
func (h *ReservationHandler) List(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	requester, err := httputil.ExtractRequester(r)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	page, err := httputil.ExtractPage(r)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	reservations, total, err := h.service.ListByRequester(r.Context(), ps.ByName("club_id"), requester, page.Limit, page.Offset)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	if err := httputil.WritePaginated(w, reservations, total, page.Limit, page.Offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "List", "operation", "WritePaginated", "error", err)
	}
}

func (h *ReservationHandler) Confirm(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.transition(w, r, ps, "Confirm", h.service.ConfirmBooking)
}

func (h *ReservationHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.transition(w, r, ps, "Cancel", h.service.CancelBooking)
}

func (h *ReservationHandler) MarkNoShow(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.transition(w, r, ps, "MarkNoShow", h.service.MarkNoShow)
}

func (h *ReservationHandler) transition(
	w http.ResponseWriter,
	r *http.Request,
	ps httprouter.Params,
	name string,
	op func(ctx context.Context, clubID, id string, requester model.Requester) (*model.Reservation, error),
) {
	requester, err := httputil.ExtractRequester(r)
	if err != nil {
		h.writeError(w, name, err)
		return
	}

	reservation, err := op(r.Context(), ps.ByName("club_id"), ps.ByName("id"), requester)
	if err != nil {
		h.writeError(w, name, err)
		return
	}
	h.writeSuccess(w, name, reservation)
}

func (h *ReservationHandler) Availability(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	availability, err := h.service.GetAvailability(r.Context(), ps.ByName("club_id"), ps.ByName("court_id"), r.URL.Query().Get("date"))
	if err != nil {
		h.writeError(w, "Availability", err)
		return
	}
	h.writeSuccess(w, "Availability", availability)
}

func (h *ReservationHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *ReservationHandler) writeSuccess(w http.ResponseWriter, handler string, data any) {
	if err := httputil.WriteSuccess(w, data); err != nil {
		h.log.Error("failed to write success response", "handler", handler, "operation", "WriteSuccess", "error", err)
	}
}
