package handler

import "github.com/julienschmidt/httprouter"

func (h *SeasonPassHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/clubs/:club_id/season-passes", h.Create)
	router.GET("/api/v1/clubs/:club_id/season-passes/:id", h.GetByID)
	router.DELETE("/api/v1/clubs/:club_id/season-passes/:id", h.Revoke)
}
