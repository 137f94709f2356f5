package handler

import "github.com/julienschmidt/httprouter"

func (h *TournamentHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/clubs/:club_id/tournaments", h.Create)
	router.GET("/api/v1/clubs/:club_id/tournaments/:id", h.GetByID)
	router.DELETE("/api/v1/clubs/:club_id/tournaments/:id", h.Cancel)
}
