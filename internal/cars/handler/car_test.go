package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apperrors "rentcar/pkg/errors"
	httputil "rentcar/pkg/http"
	"rentcar/pkg/logger"
	"rentcar/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type mockCarService struct {
	createFunc func(ctx context.Context, car *model.Car) error
	getAllFunc func(ctx context.Context, limit int, offset int64) ([]*model.Car, int64, error)
	updateFunc func(ctx context.Context, id string, updates *model.CarUpdate) (*model.Car, error)
	deleteFunc func(ctx context.Context, id string) error
}

func (m *mockCarService) Create(ctx context.Context, car *model.Car) error {
	return m.createFunc(ctx, car)
}

func (m *mockCarService) GetByID(ctx context.Context, id string) (*model.Car, error) {
	if id == "missing" {
		return nil, apperrors.New(apperrors.CodeNotFound, "No car with the id of missing", http.StatusNotFound)
	}
	return &model.Car{ID: id, Name: "Toyota Yaris"}, nil
}

func (m *mockCarService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.Car, int64, error) {
	return m.getAllFunc(ctx, limit, offset)
}

func (m *mockCarService) Update(ctx context.Context, id string, updates *model.CarUpdate) (*model.Car, error) {
	return m.updateFunc(ctx, id, updates)
}

func (m *mockCarService) Delete(ctx context.Context, id string) error {
	return m.deleteFunc(ctx, id)
}

func allow(next httprouter.Handle) httprouter.Handle {
	return next
}

func deny(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		_ = httputil.WriteError(w, apperrors.Forbidden("User role user is not authorized to access this route"))
	}
}

func newTestRouter(svc *mockCarService, adminsOnly func(httprouter.Handle) httprouter.Handle) *httprouter.Router {
	h := NewCarHandler(svc, adminsOnly, logger.Discard())
	router := httprouter.New()
	h.RegisterRoutes(router)
	return router
}

func TestCreate_IgnoresClientID(t *testing.T) {
	var got *model.Car
	svc := &mockCarService{
		createFunc: func(ctx context.Context, car *model.Car) error {
			got = car
			car.ID = "65a0000000000000000000c1"
			return nil
		},
	}
	router := newTestRouter(svc, allow)

	body := `{"id":"65a0000000000000000000ff","name":"Toyota Yaris","address":"99 Sukhumvit Rd","district":"Watthana","province":"Bangkok","tel":"+6621234567","region":"Central"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cars", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if got == nil || got.Name != "Toyota Yaris" {
		t.Fatalf("unexpected service call: %+v", got)
	}

	var resp struct {
		Success bool      `json:"success"`
		Data    model.Car `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Data.ID != "65a0000000000000000000c1" {
		t.Errorf("expected server assigned id, got %q", resp.Data.ID)
	}
}

func TestCreate_MalformedBody(t *testing.T) {
	svc := &mockCarService{
		createFunc: func(ctx context.Context, car *model.Car) error {
			t.Fatal("service must not be called")
			return nil
		},
	}
	router := newTestRouter(svc, allow)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cars", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestWriteRoutes_RequireAdmin(t *testing.T) {
	svc := &mockCarService{}
	router := newTestRouter(svc, deny)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/v1/cars"},
		{http.MethodPut, "/api/v1/cars/c1"},
		{http.MethodDelete, "/api/v1/cars/c1"},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(`{}`))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != http.StatusForbidden {
				t.Errorf("expected 403, got %d", rec.Code)
			}
		})
	}
}

func TestReadRoutes_ArePublic(t *testing.T) {
	svc := &mockCarService{
		getAllFunc: func(ctx context.Context, limit int, offset int64) ([]*model.Car, int64, error) {
			return []*model.Car{{ID: "c1"}, {ID: "c2"}}, 7, nil
		},
	}
	router := newTestRouter(svc, deny)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cars?limit=2&offset=4", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp httputil.PaginatedResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count != 2 || resp.TotalCount != 7 || resp.Limit != 2 || resp.Offset != 4 {
		t.Errorf("unexpected pagination: %+v", resp)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/cars/c1", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 for GetByID, got %d", rec.Code)
	}
}

func TestGetByID_NotFoundMessage(t *testing.T) {
	router := newTestRouter(&mockCarService{}, allow)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cars/missing", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	var resp httputil.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Success || resp.Error != "No car with the id of missing" {
		t.Errorf("unexpected error body: %+v", resp)
	}
}

func TestUpdate_PassesIDAndFields(t *testing.T) {
	svc := &mockCarService{
		updateFunc: func(ctx context.Context, id string, updates *model.CarUpdate) (*model.Car, error) {
			return &model.Car{ID: id, Name: updates.Name}, nil
		},
	}
	router := newTestRouter(svc, allow)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/cars/c1", strings.NewReader(`{"name":"Honda City"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"name":"Honda City"`) || !strings.Contains(rec.Body.String(), `"id":"c1"`) {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestDelete(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "deleted", wantStatus: http.StatusOK},
		{name: "unknown", err: apperrors.New(apperrors.CodeNotFound, "No car with the id of c9", http.StatusNotFound), wantStatus: http.StatusNotFound},
		{name: "internal", err: apperrors.Internal("boom", nil), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockCarService{
				deleteFunc: func(ctx context.Context, id string) error { return tt.err },
			}
			router := newTestRouter(svc, allow)

			req := httptest.NewRequest(http.MethodDelete, "/api/v1/cars/c9", nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, rec.Code)
			}
			if tt.err == nil && strings.TrimSpace(rec.Body.String()) != `{"success":true,"data":{}}` {
				t.Errorf("unexpected body: %s", rec.Body.String())
			}
		})
	}
}
