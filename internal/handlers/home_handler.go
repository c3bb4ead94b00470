package handlers

import (
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/maynagashev/shotbox/internal/services"
	"github.com/maynagashev/shotbox/models"
)

// HomeHandler отображает публичную галерею.
type HomeHandler struct {
	service services.ScreenshotService
}

// NewHomeHandler создает новый экземпляр HomeHandler.
func NewHomeHandler(s services.ScreenshotService) *HomeHandler {
	return &HomeHandler{service: s}
}

type homePage struct {
	Records []models.Screenshot
}

// Index обрабатывает GET /, выводит все записи, новые первыми.
func (h *HomeHandler) Index(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.Records(r.Context())
	if err != nil {
		log.Printf("[HomeHandler:Index] Ошибка получения записей: %v", err)
		http.Error(w, msgInternalError, http.StatusInternalServerError)
		return
	}
	render(w, http.StatusOK, "index.html", homePage{Records: records})
}
