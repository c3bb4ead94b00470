package handlers_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/maynagashev/shotbox/internal/handlers"
	"github.com/maynagashev/shotbox/internal/services"
	"github.com/maynagashev/shotbox/models"
)

func newAdminRouter(svc services.ScreenshotService) *chi.Mux {
	h := handlers.NewAdminHandler(svc, staticToken("tok-123"))
	home := handlers.NewHomeHandler(svc)
	r := chi.NewRouter()
	r.Get("/", home.Index)
	r.Get("/admin/", h.Index)
	r.Route("/admin/screenshot", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/new/", h.NewForm)
		r.Post("/new/", h.Create)
		r.Get("/edit/", h.EditForm)
		r.Post("/edit/", h.Update)
		r.Post("/delete/", h.Delete)
	})
	return r
}

func TestHomeHandler_Index(t *testing.T) {
	t.Run("renders records", func(t *testing.T) {
		svc := new(MockScreenshotService)
		svc.On("Records", mock.Anything).Return([]models.Screenshot{
			{ID: 2, Filename: "new.png", UploadTime: time.Now()},
			{ID: 1, Filename: "old one.jpg", UploadTime: time.Now().Add(-time.Hour)},
		}, nil)
		rr := httptest.NewRecorder()

		newAdminRouter(svc).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		body := rr.Body.String()
		assert.Contains(t, body, `src="/media/screenshots/new.png"`)
		assert.Contains(t, body, `src="/media/screenshots/old%20one.jpg"`)
		assert.Less(t, strings.Index(body, "new.png"), strings.Index(body, "old one.jpg"))
		assert.Contains(t, body, `action="/upload_screenshot"`)
		svc.AssertExpectations(t)
	})

	t.Run("empty", func(t *testing.T) {
		svc := new(MockScreenshotService)
		svc.On("Records", mock.Anything).Return([]models.Screenshot{}, nil)
		rr := httptest.NewRecorder()

		newAdminRouter(svc).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "No screenshots yet.")
	})

	t.Run("database failure", func(t *testing.T) {
		svc := new(MockScreenshotService)
		svc.On("Records", mock.Anything).Return(nil, errors.New("db down"))
		rr := httptest.NewRecorder()

		newAdminRouter(svc).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}

func TestAdminHandler_IndexRedirects(t *testing.T) {
	rr := httptest.NewRecorder()
	newAdminRouter(new(MockScreenshotService)).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/admin/", nil))

	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "/", rr.Header().Get("Location"))
}

func TestAdminHandler_List(t *testing.T) {
	uploaded := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name           string
		query          string
		mockSetup      func(m *MockScreenshotService)
		expectedStatus int
		expectedParts  []string
	}{
		{
			name:  "first page",
			query: "",
			mockSetup: func(m *MockScreenshotService) {
				m.On("RecordPage", mock.Anything, 1).Return(&services.RecordPage{
					Items:      []models.Screenshot{{ID: 7, Filename: "a.png", UploadTime: uploaded}},
					Page:       1,
					PerPage:    services.AdminRecordsPerPage,
					Total:      21,
					TotalPages: 2,
				}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedParts: []string{
				`<img src="/media/screenshots/a.png" style="width:100px; height:auto;">`,
				"2024-05-01 08:00:00",
				`href="/admin/screenshot/edit/?id=7"`,
				`name="csrf_token" value="tok-123"`,
				`href="/admin/screenshot/?page=2"`,
			},
		},
		{
			name:           "invalid page",
			query:          "?page=-1",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:  "database failure",
			query: "?page=2",
			mockSetup: func(m *MockScreenshotService) {
				m.On("RecordPage", mock.Anything, 2).Return(nil, errors.New("db down"))
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockScreenshotService)
			if tt.mockSetup != nil {
				tt.mockSetup(svc)
			}
			rr := httptest.NewRecorder()

			newAdminRouter(svc).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/admin/screenshot/"+tt.query, nil))

			assert.Equal(t, tt.expectedStatus, rr.Code)
			for _, part := range tt.expectedParts {
				assert.Contains(t, rr.Body.String(), part)
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestAdminHandler_Create(t *testing.T) {
	tests := []struct {
		name           string
		filename       string
		noFile         bool
		mockSetup      func(m *MockScreenshotService)
		expectedStatus int
		expectedText   string
	}{
		{
			name:     "created",
			filename: "a.png",
			mockSetup: func(m *MockScreenshotService) {
				m.On("Create", mock.Anything, "a.png", mock.Anything).Return(&models.Screenshot{ID: 3, Filename: "a.png"}, nil)
			},
			expectedStatus: http.StatusFound,
		},
		{
			name:     "images only",
			filename: "a.txt",
			mockSetup: func(m *MockScreenshotService) {
				m.On("Create", mock.Anything, "a.txt", mock.Anything).Return(nil, services.ErrExtensionNotAllowed)
			},
			expectedStatus: http.StatusBadRequest,
			expectedText:   "Images only!",
		},
		{
			name:     "already exists",
			filename: "a.png",
			mockSetup: func(m *MockScreenshotService) {
				m.On("Create", mock.Anything, "a.png", mock.Anything).Return(nil, services.ErrFileExists)
			},
			expectedStatus: http.StatusBadRequest,
			expectedText:   "File a.png already exists.",
		},
		{
			name:           "file required",
			noFile:         true,
			expectedStatus: http.StatusBadRequest,
			expectedText:   "A file is required.",
		},
		{
			name:     "internal error",
			filename: "a.png",
			mockSetup: func(m *MockScreenshotService) {
				m.On("Create", mock.Anything, "a.png", mock.Anything).Return(nil, errors.New("db down"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedText:   "Internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockScreenshotService)
			if tt.mockSetup != nil {
				tt.mockSetup(svc)
			}
			field := "file"
			if tt.noFile {
				field = ""
			}
			body, contentType := multipartBody(t, field, tt.filename, []byte("img"))
			req := httptest.NewRequest(http.MethodPost, "/admin/screenshot/new/", body)
			req.Header.Set("Content-Type", contentType)
			rr := httptest.NewRecorder()

			newAdminRouter(svc).ServeHTTP(rr, req)

			assert.Equal(t, tt.expectedStatus, rr.Code)
			if tt.expectedStatus == http.StatusFound {
				assert.Equal(t, "/admin/screenshot/", rr.Header().Get("Location"))
			} else {
				assert.Contains(t, rr.Body.String(), tt.expectedText)
				assert.Contains(t, rr.Body.String(), `value="tok-123"`)
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestAdminHandler_NewForm(t *testing.T) {
	rr := httptest.NewRecorder()
	newAdminRouter(new(MockScreenshotService)).ServeHTTP(rr,
		httptest.NewRequest(http.MethodGet, "/admin/screenshot/new/", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `action="/admin/screenshot/new/"`)
	assert.Contains(t, rr.Body.String(), "jpg, jpeg, png, gif")
}

func TestAdminHandler_Edit(t *testing.T) {
	rec := &models.Screenshot{ID: 5, Filename: "old.png", UploadTime: time.Now().UTC()}

	t.Run("form shows current file", func(t *testing.T) {
		svc := new(MockScreenshotService)
		svc.On("Get", mock.Anything, int64(5)).Return(rec, nil)
		rr := httptest.NewRecorder()

		newAdminRouter(svc).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/admin/screenshot/edit/?id=5", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "old.png")
		svc.AssertExpectations(t)
	})

	t.Run("unknown id", func(t *testing.T) {
		svc := new(MockScreenshotService)
		svc.On("Get", mock.Anything, int64(404)).Return(nil, services.ErrScreenshotNotFound)
		rr := httptest.NewRecorder()

		newAdminRouter(svc).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/admin/screenshot/edit/?id=404", nil))

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("non numeric id", func(t *testing.T) {
		rr := httptest.NewRecorder()
		newAdminRouter(new(MockScreenshotService)).ServeHTTP(rr,
			httptest.NewRequest(http.MethodGet, "/admin/screenshot/edit/?id=x", nil))

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("replace file", func(t *testing.T) {
		svc := new(MockScreenshotService)
		svc.On("Get", mock.Anything, int64(5)).Return(rec, nil)
		svc.On("Replace", mock.Anything, int64(5), "new.png", mock.Anything).
			Return(&models.Screenshot{ID: 5, Filename: "new.png"}, nil)
		body, contentType := multipartBody(t, "file", "new.png", []byte("img"))
		req := httptest.NewRequest(http.MethodPost, "/admin/screenshot/edit/?id=5", body)
		req.Header.Set("Content-Type", contentType)
		rr := httptest.NewRecorder()

		newAdminRouter(svc).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusFound, rr.Code)
		svc.AssertExpectations(t)
	})

	t.Run("no file keeps record", func(t *testing.T) {
		svc := new(MockScreenshotService)
		svc.On("Get", mock.Anything, int64(5)).Return(rec, nil)
		body, contentType := multipartBody(t, "file", "", nil)
		req := httptest.NewRequest(http.MethodPost, "/admin/screenshot/edit/?id=5", body)
		req.Header.Set("Content-Type", contentType)
		rr := httptest.NewRecorder()

		newAdminRouter(svc).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusFound, rr.Code)
		svc.AssertNotCalled(t, "Replace", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("replacement already exists", func(t *testing.T) {
		svc := new(MockScreenshotService)
		svc.On("Get", mock.Anything, int64(5)).Return(rec, nil)
		svc.On("Replace", mock.Anything, int64(5), "taken.png", mock.Anything).Return(nil, services.ErrFileExists)
		body, contentType := multipartBody(t, "file", "taken.png", []byte("img"))
		req := httptest.NewRequest(http.MethodPost, "/admin/screenshot/edit/?id=5", body)
		req.Header.Set("Content-Type", contentType)
		rr := httptest.NewRecorder()

		newAdminRouter(svc).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), "File taken.png already exists.")
	})
}

func TestAdminHandler_Delete(t *testing.T) {
	tests := []struct {
		name           string
		id             string
		mockSetup      func(m *MockScreenshotService)
		expectedStatus int
	}{
		{
			name: "deleted",
			id:   "9",
			mockSetup: func(m *MockScreenshotService) {
				m.On("Delete", mock.Anything, int64(9)).Return(nil)
			},
			expectedStatus: http.StatusFound,
		},
		{
			name: "unknown id",
			id:   "10",
			mockSetup: func(m *MockScreenshotService) {
				m.On("Delete", mock.Anything, int64(10)).Return(services.ErrScreenshotNotFound)
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "bad id",
			id:             "nine",
			expectedStatus: http.StatusNotFound,
		},
		{
			name: "row delete failed",
			id:   "11",
			mockSetup: func(m *MockScreenshotService) {
				m.On("Delete", mock.Anything, int64(11)).Return(errors.New("db down"))
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockScreenshotService)
			if tt.mockSetup != nil {
				tt.mockSetup(svc)
			}
			form := url.Values{"id": {tt.id}}
			req := httptest.NewRequest(http.MethodPost, "/admin/screenshot/delete/", strings.NewReader(form.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			rr := httptest.NewRecorder()

			newAdminRouter(svc).ServeHTTP(rr, req)

			assert.Equal(t, tt.expectedStatus, rr.Code)
			svc.AssertExpectations(t)
		})
	}
}
