package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	apperrors "rentcar/pkg/errors"
	httputil "rentcar/pkg/http"
	"rentcar/pkg/logger"
	"rentcar/pkg/middleware"
	"rentcar/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type mockBookingService struct {
	createFunc   func(ctx context.Context, principal model.Principal, carID string, req *model.BookingRequest) (*model.Booking, error)
	getAllFunc   func(ctx context.Context, principal model.Principal, limit int, offset int64) ([]*model.Booking, int64, error)
	getByCarFunc func(ctx context.Context, principal model.Principal, carID string, limit int, offset int64) ([]*model.Booking, int64, error)
	deleteFunc   func(ctx context.Context, principal model.Principal, id string) error
}

func (m *mockBookingService) Create(ctx context.Context, principal model.Principal, carID string, req *model.BookingRequest) (*model.Booking, error) {
	return m.createFunc(ctx, principal, carID, req)
}

func (m *mockBookingService) GetByID(ctx context.Context, principal model.Principal, id string) (*model.Booking, error) {
	return &model.Booking{ID: id, UserID: principal.UserID}, nil
}

func (m *mockBookingService) GetAll(ctx context.Context, principal model.Principal, limit int, offset int64) ([]*model.Booking, int64, error) {
	return m.getAllFunc(ctx, principal, limit, offset)
}

func (m *mockBookingService) GetByCar(ctx context.Context, principal model.Principal, carID string, limit int, offset int64) ([]*model.Booking, int64, error) {
	return m.getByCarFunc(ctx, principal, carID, limit, offset)
}

func (m *mockBookingService) Update(ctx context.Context, principal model.Principal, id string, req *model.BookingRequest) (*model.Booking, error) {
	return &model.Booking{ID: id, UserID: principal.UserID}, nil
}

func (m *mockBookingService) Delete(ctx context.Context, principal model.Principal, id string) error {
	return m.deleteFunc(ctx, principal, id)
}

var caller = model.Principal{UserID: "65a000000000000000000001", Role: model.RoleUser}

func asCaller(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		next(w, r.WithContext(middleware.WithPrincipal(r.Context(), caller)), ps)
	}
}

func anonymous(next httprouter.Handle) httprouter.Handle {
	return next
}

func newTestRouter(svc *mockBookingService, authenticate func(httprouter.Handle) httprouter.Handle) *httprouter.Router {
	h := NewBookingHandler(svc, authenticate, logger.Discard())
	router := httprouter.New()
	h.RegisterRoutes(router)
	return router
}

func TestCreate_UsesPathCarAndPrincipal(t *testing.T) {
	var gotCar string
	var gotPrincipal model.Principal
	var gotReq *model.BookingRequest
	svc := &mockBookingService{
		createFunc: func(ctx context.Context, principal model.Principal, carID string, req *model.BookingRequest) (*model.Booking, error) {
			gotCar, gotPrincipal, gotReq = carID, principal, req
			return &model.Booking{
				ID:       "65a0000000000000000000b1",
				UserID:   principal.UserID,
				CarID:    carID,
				ApptDate: time.Date(2030, 1, 10, 0, 0, 0, 0, time.UTC),
			}, nil
		},
	}
	router := newTestRouter(svc, asCaller)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cars/c1/bookings", strings.NewReader(`{"apptDate":"2030-01-10"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotCar != "c1" || gotPrincipal != caller || gotReq.ApptDate != "2030-01-10" {
		t.Errorf("unexpected service call: car=%q principal=%+v req=%+v", gotCar, gotPrincipal, gotReq)
	}

	var resp struct {
		Success bool          `json:"success"`
		Data    model.Booking `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success || resp.Data.CarID != "c1" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestCreate_ErrorStatusCodes(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "quota", err: apperrors.QuotaExceeded("quota"), wantStatus: http.StatusUnauthorized},
		{name: "date", err: apperrors.InvalidDate("date"), wantStatus: http.StatusPaymentRequired},
		{name: "conflict", err: apperrors.Conflict("This car is already booked on 2030-01-10"), wantStatus: http.StatusBadRequest},
		{name: "unknown car", err: apperrors.NotFound("Car"), wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockBookingService{
				createFunc: func(ctx context.Context, principal model.Principal, carID string, req *model.BookingRequest) (*model.Booking, error) {
					return nil, tt.err
				},
			}
			router := newTestRouter(svc, asCaller)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/cars/c1/bookings", strings.NewReader(`{"apptDate":"2030-01-10"}`))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, rec.Code)
			}
			var resp httputil.ErrorResponse
			_ = json.NewDecoder(rec.Body).Decode(&resp)
			if resp.Success || resp.Error == "" {
				t.Errorf("unexpected error body: %+v", resp)
			}
		})
	}
}

func TestRoutes_RequirePrincipal(t *testing.T) {
	router := newTestRouter(&mockBookingService{}, anonymous)

	requests := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/v1/cars/c1/bookings"},
		{http.MethodGet, "/api/v1/cars/c1/bookings"},
		{http.MethodGet, "/api/v1/bookings"},
		{http.MethodGet, "/api/v1/bookings/b1"},
		{http.MethodPut, "/api/v1/bookings/b1"},
		{http.MethodDelete, "/api/v1/bookings/b1"},
	}

	for _, r := range requests {
		t.Run(r.method+" "+r.path, func(t *testing.T) {
			req := httptest.NewRequest(r.method, r.path, strings.NewReader(`{}`))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", rec.Code)
			}
		})
	}
}

func TestGetAll_Paginated(t *testing.T) {
	var gotLimit int
	var gotOffset int64
	svc := &mockBookingService{
		getAllFunc: func(ctx context.Context, principal model.Principal, limit int, offset int64) ([]*model.Booking, int64, error) {
			gotLimit, gotOffset = limit, offset
			return []*model.Booking{{ID: "b1"}, {ID: "b2"}}, 7, nil
		},
	}
	router := newTestRouter(svc, asCaller)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings?limit=2&offset=4", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if gotLimit != 2 || gotOffset != 4 {
		t.Errorf("expected limit 2 offset 4, got %d %d", gotLimit, gotOffset)
	}

	var resp httputil.PaginatedResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count != 2 || resp.TotalCount != 7 {
		t.Errorf("unexpected pagination: %+v", resp)
	}
}

func TestGetAll_InvalidLimit(t *testing.T) {
	router := newTestRouter(&mockBookingService{}, asCaller)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings?limit=abc", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestGetByCar_PassesCarID(t *testing.T) {
	var gotCar string
	svc := &mockBookingService{
		getByCarFunc: func(ctx context.Context, principal model.Principal, carID string, limit int, offset int64) ([]*model.Booking, int64, error) {
			gotCar = carID
			return []*model.Booking{}, 0, nil
		},
	}
	router := newTestRouter(svc, asCaller)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cars/c9/bookings", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || gotCar != "c9" {
		t.Errorf("expected 200 for car c9, got %d for %q", rec.Code, gotCar)
	}
}

func TestDelete_EmptyData(t *testing.T) {
	var gotID string
	svc := &mockBookingService{
		deleteFunc: func(ctx context.Context, principal model.Principal, id string) error {
			gotID = id
			return nil
		},
	}
	router := newTestRouter(svc, asCaller)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/bookings/b1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || gotID != "b1" {
		t.Fatalf("expected 200 for b1, got %d for %q", rec.Code, gotID)
	}
	if body := strings.TrimSpace(rec.Body.String()); body != `{"success":true,"data":{}}` {
		t.Errorf("unexpected body %s", body)
	}
}
