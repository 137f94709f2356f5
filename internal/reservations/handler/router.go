package handler

import "github.com/julienschmidt/httprouter"

func (h *ReservationHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/clubs/:club_id/reservations", h.List)
	router.POST("/api/v1/clubs/:club_id/reservations", h.Create)
	router.GET("/api/v1/clubs/:club_id/reservations/:id", h.GetByID)
	router.POST("/api/v1/clubs/:club_id/reservations/:id/confirm", h.Confirm)
	router.POST("/api/v1/clubs/:club_id/reservations/:id/cancel", h.Cancel)
	router.POST("/api/v1/clubs/:club_id/reservations/:id/no-show", h.MarkNoShow)
	router.GET("/api/v1/clubs/:club_id/courts/:court_id/availability", h.Availability)
}
