package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/maynagashev/shotbox/internal/services"
	"github.com/maynagashev/shotbox/models"
)

// ScreenshotHandler обрабатывает публичные маршруты загрузки, листинга и раздачи файлов.
type ScreenshotHandler struct {
	service        services.ScreenshotService // Зависимость от сервиса скриншотов
	maxUploadBytes int64                      // Лимит размера тела запроса
}

// NewScreenshotHandler создает новый экземпляр ScreenshotHandler. Тела больше maxUploadBytes отклоняются.
func NewScreenshotHandler(s services.ScreenshotService, maxUploadBytes int64) *ScreenshotHandler {
	return &ScreenshotHandler{service: s, maxUploadBytes: maxUploadBytes}
}

// Upload обрабатывает POST /upload_screenshot.
func (h *ScreenshotHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	if err := r.ParseMultipartForm(multipartMaxInMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			log.Printf("[ScreenshotHandler:Upload] Тело запроса больше %d байт", tooLarge.Limit)
			writeMessage(w, http.StatusRequestEntityTooLarge, msgFileTooLarge)
			return
		}
		if errors.Is(err, http.ErrNotMultipart) {
			writeMessage(w, http.StatusBadRequest, msgNoFilePart)
			return
		}
		log.Printf("[ScreenshotHandler:Upload] Некорректное multipart-тело: %v", err)
		writeMessage(w, http.StatusBadRequest, msgInvalidMultipart)
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			log.Printf("[ScreenshotHandler:Upload] Ошибка очистки временных файлов multipart: %v", err)
		}
	}()

	file, header, err := r.FormFile(uploadFieldName)
	if err != nil {
		// Часть "file" с пустым именем файла попадает в обычные значения формы.
		if _, ok := r.MultipartForm.Value[uploadFieldName]; ok {
			writeMessage(w, http.StatusBadRequest, msgNoSelectedFile)
			return
		}
		writeMessage(w, http.StatusBadRequest, msgNoFilePart)
		return
	}
	defer closePart(file)

	filename := clientFilename(header.Filename)
	if filename == "" {
		writeMessage(w, http.StatusBadRequest, msgNoSelectedFile)
		return
	}

	rec, err := h.service.Upload(r.Context(), filename, file)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidFilename):
			writeMessage(w, http.StatusBadRequest, msgInvalidFilename)
		case errors.Is(err, services.ErrExtensionNotAllowed):
			writeMessage(w, http.StatusBadRequest, msgTypeNotAllowed)
		default:
			log.Printf("[ScreenshotHandler:Upload] Ошибка загрузки '%s': %v", filename, err)
			writeMessage(w, http.StatusInternalServerError, msgInternalError)
		}
		return
	}

	writeJSON(w, http.StatusOK, models.UploadResponse{Message: msgUploaded, URL: rec.URL()})
}

// List обрабатывает GET /list_screenshots.
func (h *ScreenshotHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	page, ok := positiveParam(query, "page", services.DefaultPage)
	if !ok {
		writeMessage(w, http.StatusBadRequest, msgInvalidPage)
		return
	}
	perPage, ok := positiveParam(query, "per_page", services.DefaultPerPage)
	if !ok {
		writeMessage(w, http.StatusBadRequest, msgInvalidPerPage)
		return
	}

	items, err := h.service.List(r.Context(), services.ListQuery{
		Search:  query.Get("search"),
		Page:    page,
		PerPage: perPage,
	})
	if err != nil {
		log.Printf("[ScreenshotHandler:List] Ошибка получения листинга: %v", err)
		writeMessage(w, http.StatusInternalServerError, msgInternalError)
		return
	}
	if items == nil {
		items = []models.ListedScreenshot{}
	}
	writeJSON(w, http.StatusOK, items)
}

// Serve обрабатывает GET /media/screenshots/{filename}.
func (h *ScreenshotHandler) Serve(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	if r.URL.RawPath != "" {
		// chi маршрутизировал по экранированному пути, параметр еще не декодирован.
		unescaped, err := url.PathUnescape(filename)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		filename = unescaped
	}

	f, info, err := h.service.OpenFile(filename)
	if err != nil {
		if !errors.Is(err, services.ErrFileNotFound) && !errors.Is(err, services.ErrInvalidFilename) {
			log.Printf("[ScreenshotHandler:Serve] Ошибка открытия '%s': %v", filename, err)
		}
		http.NotFound(w, r)
		return
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			log.Printf("[ScreenshotHandler:Serve] Ошибка закрытия '%s': %v", filename, closeErr)
		}
	}()

	http.ServeContent(w, r, info.Name(), info.ModTime(), f) // Content-Type, Range и If-Modified-Since
}

// positiveParam читает необязательный целый параметр запроса, не меньше 1.
func positiveParam(query url.Values, key string, fallback int) (int, bool) {
	raw := query.Get(key)
	if raw == "" {
		return fallback, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return 0, false
	}
	return v, true
}

// closePart закрывает загруженную часть формы.
func closePart(f multipart.File) {
	if err := f.Close(); err != nil {
		log.Printf("[handlers] Ошибка закрытия загруженной части: %v", err)
	}
}
