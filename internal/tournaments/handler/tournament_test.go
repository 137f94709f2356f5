package handler

import (
	"context"
	apperrors "courtkeeper/pkg/errors"
	"courtkeeper/pkg/logger"
	"courtkeeper/pkg/model"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/julienschmidt/httprouter"
)

type mockTournamentService struct {
	allocateFunc func(ctx context.Context, clubID string, t *model.Tournament, requester model.Requester) (*model.Tournament, error)
	cancelFunc   func(ctx context.Context, clubID, id string, requester model.Requester) (*model.Tournament, error)
	getFunc      func(ctx context.Context, clubID, id string) (*model.Tournament, error)
}

func (m *mockTournamentService) Allocate(ctx context.Context, clubID string, t *model.Tournament, requester model.Requester) (*model.Tournament, error) {
	return m.allocateFunc(ctx, clubID, t, requester)
}

func (m *mockTournamentService) Cancel(ctx context.Context, clubID, id string, requester model.Requester) (*model.Tournament, error) {
	return m.cancelFunc(ctx, clubID, id, requester)
}

func (m *mockTournamentService) GetByID(ctx context.Context, clubID, id string) (*model.Tournament, error) {
	return m.getFunc(ctx, clubID, id)
}

func TestTournamentRoutes(t *testing.T) {
	svc := &mockTournamentService{
		allocateFunc: func(ctx context.Context, clubID string, tr *model.Tournament, requester model.Requester) (*model.Tournament, error) {
			if requester.Role != model.RoleStaff {
				return nil, apperrors.Forbidden("staff only")
			}
			if tr.Format.Kind != model.FormatRoundRobin || tr.Format.RoundRobin == nil || len(tr.Blocks) != 1 {
				return nil, apperrors.InvalidInput("unexpected body")
			}
			tr.ID = "t-1"
			return tr, nil
		},
		cancelFunc: func(ctx context.Context, clubID, id string, requester model.Requester) (*model.Tournament, error) {
			return nil, apperrors.NotFoundWithID("Tournament", id)
		},
		getFunc: func(ctx context.Context, clubID, id string) (*model.Tournament, error) {
			return &model.Tournament{ID: id, ClubID: clubID}, nil
		},
	}
	router := httprouter.New()
	NewTournamentHandler(svc, logger.Discard()).RegisterRoutes(router)

	body := `{"name":"Club Ladder","format":{"kind":"round_robin","round_robin":{"groups":2,"rounds":3}},
		"blocks":[{"resource_id":"court-1","date":"2026-05-06","start":"09:00","end":"11:00"}]}`

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		role       string
		wantStatus int
	}{
		{name: "create as staff", method: http.MethodPost, path: "/api/v1/clubs/riverside/tournaments", body: body, role: "staff", wantStatus: http.StatusCreated},
		{name: "create as member", method: http.MethodPost, path: "/api/v1/clubs/riverside/tournaments", body: body, wantStatus: http.StatusForbidden},
		{name: "create malformed", method: http.MethodPost, path: "/api/v1/clubs/riverside/tournaments", body: `{"name":`, role: "staff", wantStatus: http.StatusBadRequest},
		{name: "get", method: http.MethodGet, path: "/api/v1/clubs/riverside/tournaments/t-1", wantStatus: http.StatusOK},
		{name: "cancel missing", method: http.MethodDelete, path: "/api/v1/clubs/riverside/tournaments/t-9", role: "staff", wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			req.Header.Set("X-Requester-ID", "desk")
			if tt.role != "" {
				req.Header.Set("X-Requester-Role", tt.role)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
		})
	}
}
