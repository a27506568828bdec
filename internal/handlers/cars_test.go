package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Abdilito4-real/np/internal/models"
	"github.com/Abdilito4-real/np/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testAdminID = "11111111-1111-1111-1111-111111111111"
	testCarID   = "22222222-2222-2222-2222-222222222222"
)

func TestCarHandler_ListPublic(t *testing.T) {
	var gotLimit int
	h := NewCarHandler(&MockCarService{
		ListPublicFunc: func(ctx context.Context, limit, offset int) ([]*models.Car, error) {
			gotLimit = limit
			return []*models.Car{{ID: testCarID, Make: "Toyota", Model: "Corolla"}}, nil
		},
	}, testLogger())

	w := httptest.NewRecorder()
	h.ListPublic(w, httptest.NewRequest(http.MethodGet, "/cars?limit=5", nil))

	var resp CarListResponse
	AssertJSONResponse(t, w, http.StatusOK, &resp)
	assert.Equal(t, 5, gotLimit)
	require.Len(t, resp.Cars, 1)
	assert.Equal(t, "Toyota", resp.Cars[0].Make)
}

func TestCarHandler_Get(t *testing.T) {
	h := NewCarHandler(&MockCarService{
		GetFunc: func(ctx context.Context, id string) (*models.Car, error) {
			if id == testCarID {
				return &models.Car{ID: id, Make: "Honda"}, nil
			}
			return nil, models.ErrNotFound
		},
	}, testLogger())

	t.Run("found", func(t *testing.T) {
		req := WithChiRouteContext(httptest.NewRequest(http.MethodGet, "/cars/"+testCarID, nil), map[string]string{"carID": testCarID})
		w := httptest.NewRecorder()
		h.Get(w, req)

		var car models.Car
		AssertJSONResponse(t, w, http.StatusOK, &car)
		assert.Equal(t, "Honda", car.Make)
	})

	t.Run("missing", func(t *testing.T) {
		req := WithChiRouteContext(httptest.NewRequest(http.MethodGet, "/cars/nope", nil), map[string]string{"carID": "nope"})
		w := httptest.NewRecorder()
		h.Get(w, req)
		AssertErrorResponse(t, w, http.StatusNotFound, "not_found")
	})
}

func TestCarHandler_List(t *testing.T) {
	var got models.CarFilter
	h := NewCarHandler(&MockCarService{
		ListFunc: func(ctx context.Context, filter models.CarFilter) ([]*models.Car, error) {
			got = filter
			return []*models.Car{}, nil
		},
	}, testLogger())

	w := httptest.NewRecorder()
	h.List(w, httptest.NewRequest(http.MethodGet, "/admin/cars?status=sold&include_deleted=true&offset=40", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.CarFilter{Status: "sold", IncludeDeleted: true, Offset: 40}, got)
}

func TestCarHandler_Create(t *testing.T) {
	tests := []struct {
		name           string
		body           interface{}
		createFunc     func(ctx context.Context, adminID string, car *models.Car) (*models.Car, error)
		expectedStatus int
		expectedError  string
	}{
		{
			name: "created",
			body: CarRequest{Make: "Toyota", Model: "Corolla", Year: 2020, Price: 15000, Images: []string{"https://img/1.jpg"}},
			createFunc: func(ctx context.Context, adminID string, car *models.Car) (*models.Car, error) {
				car.ID = testCarID
				return car, nil
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "invalid status",
			body:           CarRequest{Make: "Toyota", Model: "Corolla", Status: "leased"},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "validation_failed",
		},
		{
			name: "domain validation",
			body: CarRequest{Make: "Toyota"},
			createFunc: func(ctx context.Context, adminID string, car *models.Car) (*models.Car, error) {
				return nil, &services.ValidationError{Fields: map[string]string{"model": "Model is required"}}
			},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "validation_failed",
		},
		{
			name:           "malformed body",
			body:           "not an object",
			expectedStatus: http.StatusBadRequest,
			expectedError:  "bad_request",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotAdmin string
			svc := &MockCarService{}
			if tt.createFunc != nil {
				svc.CreateFunc = func(ctx context.Context, adminID string, car *models.Car) (*models.Car, error) {
					gotAdmin = adminID
					return tt.createFunc(ctx, adminID, car)
				}
			}
			h := NewCarHandler(svc, testLogger())

			req := WithAuthContext(NewTestRequest(t, http.MethodPost, "/admin/cars", tt.body), testAdminID, "jti-1")
			w := httptest.NewRecorder()
			h.Create(w, req)

			if tt.expectedError != "" {
				AssertErrorResponse(t, w, tt.expectedStatus, tt.expectedError)
				return
			}

			var car models.Car
			AssertJSONResponse(t, w, tt.expectedStatus, &car)
			assert.Equal(t, testCarID, car.ID)
			assert.Equal(t, testAdminID, gotAdmin)
		})
	}
}

func TestCarHandler_Update_NotFound(t *testing.T) {
	h := NewCarHandler(&MockCarService{}, testLogger())

	req := NewTestRequest(t, http.MethodPut, "/admin/cars/"+testCarID, CarRequest{Make: "Toyota", Model: "Corolla"})
	req = WithChiRouteContext(WithAuthContext(req, testAdminID, "jti-1"), map[string]string{"carID": testCarID})
	w := httptest.NewRecorder()
	h.Update(w, req)

	AssertErrorResponse(t, w, http.StatusNotFound, "not_found")
}

func TestCarHandler_Delete(t *testing.T) {
	var gotID string
	h := NewCarHandler(&MockCarService{
		DeleteFunc: func(ctx context.Context, adminID, id string) error {
			gotID = id
			return nil
		},
	}, testLogger())

	req := httptest.NewRequest(http.MethodDelete, "/admin/cars/"+testCarID, nil)
	req = WithChiRouteContext(WithAuthContext(req, testAdminID, "jti-1"), map[string]string{"carID": testCarID})
	w := httptest.NewRecorder()
	h.Delete(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, testCarID, gotID)
}

func TestCarHandler_BulkStatus(t *testing.T) {
	t.Run("applies status", func(t *testing.T) {
		var gotStatus string
		h := NewCarHandler(&MockCarService{
			BulkSetStatusFunc: func(ctx context.Context, adminID string, ids []string, status string) (int64, error) {
				gotStatus = status
				return int64(len(ids)), nil
			},
		}, testLogger())

		body := BulkStatusRequest{IDs: []string{testCarID}, Status: models.CarStatusSold}
		w := httptest.NewRecorder()
		h.BulkStatus(w, WithAuthContext(NewTestRequest(t, http.MethodPost, "/admin/cars/bulk-status", body), testAdminID, "jti-1"))

		var resp BulkResponse
		AssertJSONResponse(t, w, http.StatusOK, &resp)
		assert.Equal(t, int64(1), resp.Affected)
		assert.Equal(t, models.CarStatusSold, gotStatus)
	})

	t.Run("rejects non-uuid ids", func(t *testing.T) {
		h := NewCarHandler(&MockCarService{}, testLogger())
		body := BulkStatusRequest{IDs: []string{"car-1"}, Status: models.CarStatusSold}
		w := httptest.NewRecorder()
		h.BulkStatus(w, NewTestRequest(t, http.MethodPost, "/admin/cars/bulk-status", body))

		resp := AssertErrorResponse(t, w, http.StatusBadRequest, "validation_failed")
		assert.NotNil(t, resp.Fields)
	})
}

func TestCarHandler_BulkDelete_RequiresIDs(t *testing.T) {
	h := NewCarHandler(&MockCarService{}, testLogger())
	w := httptest.NewRecorder()
	h.BulkDelete(w, NewTestRequest(t, http.MethodPost, "/admin/cars/bulk-delete", BulkDeleteRequest{}))

	AssertErrorResponse(t, w, http.StatusBadRequest, "validation_failed")
}
