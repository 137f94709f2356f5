package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apperrors "courtkeeper/pkg/errors"
	"courtkeeper/pkg/logger"
	"courtkeeper/pkg/model"

	"github.com/google/go-cmp/cmp"
	"github.com/julienschmidt/httprouter"
)

type mockBookingService struct {
	requestFunc func(ctx context.Context, clubID string, req *model.BookingRequest, requester model.Requester) (*model.Reservation, bool, error)
	confirmFunc func(ctx context.Context, clubID, id string, requester model.Requester) (*model.Reservation, error)
	cancelFunc  func(ctx context.Context, clubID, id string, requester model.Requester) (*model.Reservation, error)
	noShowFunc  func(ctx context.Context, clubID, id string, requester model.Requester) (*model.Reservation, error)
	getFunc     func(ctx context.Context, clubID, id string, requester model.Requester) (*model.Reservation, error)
	listFunc    func(ctx context.Context, clubID string, requester model.Requester, limit int, offset int64) ([]*model.Reservation, int64, error)
	availFunc   func(ctx context.Context, clubID, courtID, date string) (*model.Availability, error)
}

func (m *mockBookingService) RequestBooking(ctx context.Context, clubID string, req *model.BookingRequest, requester model.Requester) (*model.Reservation, bool, error) {
	return m.requestFunc(ctx, clubID, req, requester)
}

func (m *mockBookingService) ConfirmBooking(ctx context.Context, clubID, id string, requester model.Requester) (*model.Reservation, error) {
	return m.confirmFunc(ctx, clubID, id, requester)
}

func (m *mockBookingService) CancelBooking(ctx context.Context, clubID, id string, requester model.Requester) (*model.Reservation, error) {
	return m.cancelFunc(ctx, clubID, id, requester)
}

func (m *mockBookingService) MarkNoShow(ctx context.Context, clubID, id string, requester model.Requester) (*model.Reservation, error) {
	return m.noShowFunc(ctx, clubID, id, requester)
}

func (m *mockBookingService) GetByID(ctx context.Context, clubID, id string, requester model.Requester) (*model.Reservation, error) {
	return m.getFunc(ctx, clubID, id, requester)
}

func (m *mockBookingService) ListByRequester(ctx context.Context, clubID string, requester model.Requester, limit int, offset int64) ([]*model.Reservation, int64, error) {
	return m.listFunc(ctx, clubID, requester, limit, offset)
}

func (m *mockBookingService) GetAvailability(ctx context.Context, clubID, courtID, date string) (*model.Availability, error) {
	return m.availFunc(ctx, clubID, courtID, date)
}

func newRouter(svc *mockBookingService) *httprouter.Router {
	router := httprouter.New()
	NewReservationHandler(svc, logger.Discard()).RegisterRoutes(router)
	return router
}

func serve(router http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

var member = map[string]string{"X-Requester-ID": "member-1"}

func TestCreate(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		headers    map[string]string
		created    bool
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "created",
			body:       `{"resource_id":"court-1","date":"2026-05-05","start":"10:00","end":"11:00"}`,
			headers:    map[string]string{"X-Requester-ID": "member-1", "Idempotency-Key": "k-1"},
			created:    true,
			wantStatus: http.StatusCreated,
		},
		{
			name:       "replayed",
			body:       `{"resource_id":"court-1","date":"2026-05-05","start":"10:00","end":"11:00"}`,
			headers:    map[string]string{"X-Requester-ID": "member-1", "Idempotency-Key": "k-1"},
			wantStatus: http.StatusOK,
		},
		{
			name:       "overlap",
			body:       `{"resource_id":"court-1","date":"2026-05-05","start":"10:00","end":"11:00"}`,
			headers:    member,
			err:        apperrors.Overlap("court-1", "2026-05-05", "other"),
			wantStatus: http.StatusConflict,
			wantCode:   apperrors.CodeOverlap,
		},
		{
			name:       "store timeout is retryable",
			body:       `{"resource_id":"court-1","date":"2026-05-05","start":"10:00","end":"11:00"}`,
			headers:    member,
			err:        apperrors.StoreTimeout("reserve slot", context.DeadlineExceeded),
			wantStatus: http.StatusGatewayTimeout,
			wantCode:   apperrors.CodeStoreTimeout,
		},
		{
			name:       "malformed time",
			body:       `{"resource_id":"court-1","date":"2026-05-05","start":"10h","end":"11:00"}`,
			headers:    member,
			wantStatus: http.StatusBadRequest,
			wantCode:   apperrors.CodeInvalidInput,
		},
		{
			name:       "unknown field",
			body:       `{"resource_id":"court-1","court":"x"}`,
			headers:    member,
			wantStatus: http.StatusBadRequest,
			wantCode:   apperrors.CodeInvalidInput,
		},
		{
			name:       "anonymous",
			body:       `{"resource_id":"court-1","date":"2026-05-05","start":"10:00","end":"11:00"}`,
			wantStatus: http.StatusUnauthorized,
			wantCode:   apperrors.CodeUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotReq *model.BookingRequest
			svc := &mockBookingService{
				requestFunc: func(ctx context.Context, clubID string, req *model.BookingRequest, requester model.Requester) (*model.Reservation, bool, error) {
					gotReq = req
					if clubID != "club-1" {
						t.Errorf("club = %s, want club-1", clubID)
					}
					if tt.err != nil {
						return nil, false, tt.err
					}
					return &model.Reservation{ID: "res-1", TimeSlot: req.TimeSlot}, tt.created, nil
				},
			}

			rec := serve(newRouter(svc), http.MethodPost, "/api/v1/clubs/club-1/reservations", tt.body, tt.headers)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}

			if tt.wantCode != "" {
				var body apperrors.ErrorResponse
				if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
					t.Fatalf("decode: %v", err)
				}
				if body.Code != tt.wantCode {
					t.Errorf("code = %s, want %s", body.Code, tt.wantCode)
				}
				return
			}

			want := model.TimeSlot{ResourceID: "court-1", Date: "2026-05-05", Start: 600, End: 660}
			if diff := cmp.Diff(want, gotReq.TimeSlot); diff != "" {
				t.Errorf("slot mismatch (-want +got):\n%s", diff)
			}
			if gotReq.RequestKey != "k-1" {
				t.Errorf("request key = %q, want k-1", gotReq.RequestKey)
			}
		})
	}
}

func TestTransitions_RouteToService(t *testing.T) {
	var calls []string
	record := func(name string) func(ctx context.Context, clubID, id string, requester model.Requester) (*model.Reservation, error) {
		return func(ctx context.Context, clubID, id string, requester model.Requester) (*model.Reservation, error) {
			calls = append(calls, name+":"+clubID+":"+id+":"+string(requester.Role))
			return &model.Reservation{ID: id}, nil
		}
	}
	svc := &mockBookingService{
		confirmFunc: record("confirm"),
		cancelFunc:  record("cancel"),
		noShowFunc:  record("no-show"),
		getFunc:     record("get"),
	}
	router := newRouter(svc)
	staff := map[string]string{"X-Requester-ID": "desk", "X-Requester-Role": "staff"}

	for _, path := range []string{"confirm", "cancel", "no-show"} {
		rec := serve(router, http.MethodPost, "/api/v1/clubs/club-1/reservations/res-9/"+path, "", staff)
		if rec.Code != http.StatusOK {
			t.Errorf("%s status = %d", path, rec.Code)
		}
	}
	serve(router, http.MethodGet, "/api/v1/clubs/club-1/reservations/res-9", "", staff)

	want := []string{
		"confirm:club-1:res-9:staff",
		"cancel:club-1:res-9:staff",
		"no-show:club-1:res-9:staff",
		"get:club-1:res-9:staff",
	}
	if diff := cmp.Diff(want, calls); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
}

func TestList_Pagination(t *testing.T) {
	var gotLimit int
	var gotOffset int64
	svc := &mockBookingService{
		listFunc: func(ctx context.Context, clubID string, requester model.Requester, limit int, offset int64) ([]*model.Reservation, int64, error) {
			gotLimit, gotOffset = limit, offset
			return []*model.Reservation{{ID: "a"}}, 7, nil
		},
	}

	rec := serve(newRouter(svc), http.MethodGet, "/api/v1/clubs/club-1/reservations?limit=5&offset=5", "", member)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if gotLimit != 5 || gotOffset != 5 {
		t.Errorf("got limit=%d offset=%d", gotLimit, gotOffset)
	}

	var body struct {
		TotalCount int64 `json:"total_count"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil || body.TotalCount != 7 {
		t.Errorf("total_count = %d, %v", body.TotalCount, err)
	}

	rec = serve(newRouter(svc), http.MethodGet, "/api/v1/clubs/club-1/reservations?limit=abc", "", member)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid limit status = %d, want 400", rec.Code)
	}
}

func TestAvailability(t *testing.T) {
	svc := &mockBookingService{
		availFunc: func(ctx context.Context, clubID, courtID, date string) (*model.Availability, error) {
			if courtID != "court-2" || date != "2026-05-05" {
				return nil, errors.New("unexpected arguments")
			}
			return &model.Availability{ClubID: clubID, ResourceID: courtID, Date: date}, nil
		},
	}

	rec := serve(newRouter(svc), http.MethodGet, "/api/v1/clubs/club-1/courts/court-2/availability?date=2026-05-05", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = serve(newRouter(svc), http.MethodGet, "/api/v1/clubs/club-1/courts/court-9/availability?date=2026-05-05", "", nil)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("unexpected error should be 500, got %d", rec.Code)
	}
}

func TestReady(t *testing.T) {
	tests := []struct {
		name       string
		checks     []DependencyCheck
		wantStatus int
		wantDeps   map[string]string
	}{
		{
			name: "all healthy",
			checks: []DependencyCheck{
				{Name: "mongo", Ping: func(ctx context.Context) error { return nil }},
			},
			wantStatus: http.StatusOK,
			wantDeps:   map[string]string{"mongo": "ok"},
		},
		{
			name: "cache down is degraded",
			checks: []DependencyCheck{
				{Name: "mongo", Ping: func(ctx context.Context) error { return nil }},
				{Name: "redis", Optional: true, Ping: func(ctx context.Context) error { return errors.New("refused") }},
			},
			wantStatus: http.StatusOK,
			wantDeps:   map[string]string{"mongo": "ok", "redis": "degraded"},
		},
		{
			name: "store down",
			checks: []DependencyCheck{
				{Name: "postgres", Ping: func(ctx context.Context) error { return errors.New("refused") }},
			},
			wantStatus: http.StatusServiceUnavailable,
			wantDeps:   map[string]string{"postgres": "error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := httprouter.New()
			NewHealthHandler(logger.Discard(), tt.checks...).RegisterRoutes(router)

			rec := serve(router, http.MethodGet, "/ready", "", nil)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var body HealthResponse
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if diff := cmp.Diff(tt.wantDeps, body.Dependencies); diff != "" {
				t.Errorf("dependencies mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
