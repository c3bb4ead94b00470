package handlers

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"

	log "github.com/sirupsen/logrus"

	"github.com/maynagashev/shotbox/internal/services"
	"github.com/maynagashev/shotbox/models"
)

const adminListPath = "/admin/screenshot/"

// TokenIssuer выдает CSRF-токены для форм админки.
type TokenIssuer interface {
	Token() (string, error)
}

// AdminHandler обрабатывает страницы управления записями под /admin/.
type AdminHandler struct {
	service services.ScreenshotService
	tokens  TokenIssuer
}

// NewAdminHandler создает новый экземпляр AdminHandler.
func NewAdminHandler(s services.ScreenshotService, tokens TokenIssuer) *AdminHandler {
	return &AdminHandler{service: s, tokens: tokens}
}

type adminListPage struct {
	Page     *services.RecordPage
	Token    string
	PrevPage int
	NextPage int
}

type adminFormPage struct {
	Title   string
	Action  string
	Token   string
	Error   string
	Allowed string
	Record  *models.Screenshot
}

// Index обрабатывает GET /admin/ и перенаправляет на галерею.
func (h *AdminHandler) Index(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusFound)
}

// List обрабатывает GET /admin/screenshot/.
func (h *AdminHandler) List(w http.ResponseWriter, r *http.Request) {
	page, ok := positiveParam(r.URL.Query(), "page", 1)
	if !ok {
		http.Error(w, msgInvalidPage, http.StatusBadRequest)
		return
	}

	records, err := h.service.RecordPage(r.Context(), page)
	if err != nil {
		log.Printf("[AdminHandler:List] Ошибка загрузки страницы %d: %v", page, err)
		http.Error(w, msgInternalError, http.StatusInternalServerError)
		return
	}

	token, ok := h.token(w)
	if !ok {
		return
	}
	render(w, http.StatusOK, "admin_list.html", adminListPage{
		Page:     records,
		Token:    token,
		PrevPage: page - 1,
		NextPage: page + 1,
	})
}

// NewForm обрабатывает GET /admin/screenshot/new/.
func (h *AdminHandler) NewForm(w http.ResponseWriter, _ *http.Request) {
	h.renderForm(w, http.StatusOK, h.createForm(""))
}

// Create обрабатывает POST /admin/screenshot/new/.
func (h *AdminHandler) Create(w http.ResponseWriter, r *http.Request) {
	file, filename, err := formFile(r)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			h.renderForm(w, http.StatusBadRequest, h.createForm("A file is required."))
			return
		}
		log.Printf("[AdminHandler:Create] Некорректная форма: %v", err)
		h.renderForm(w, http.StatusBadRequest, h.createForm(msgInvalidMultipart))
		return
	}
	defer closePart(file)

	rec, err := h.service.Create(r.Context(), filename, file)
	if err != nil {
		msg, status := adminFileError(err, filename)
		if status == http.StatusInternalServerError {
			log.Printf("[AdminHandler:Create] Ошибка создания '%s': %v", filename, err)
		}
		h.renderForm(w, status, h.createForm(msg))
		return
	}

	log.Printf("[AdminHandler:Create] Создана запись %d", rec.ID)
	http.Redirect(w, r, adminListPath, http.StatusFound)
}

// EditForm обрабатывает GET /admin/screenshot/edit/?id=N.
func (h *AdminHandler) EditForm(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.lookup(w, r, r.URL.Query().Get("id"))
	if !ok {
		return
	}
	h.renderForm(w, http.StatusOK, h.editForm(rec, ""))
}

// Update обрабатывает POST /admin/screenshot/edit/?id=N. Без файла запись не меняется.
func (h *AdminHandler) Update(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.lookup(w, r, r.URL.Query().Get("id"))
	if !ok {
		return
	}

	file, filename, err := formFile(r)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			http.Redirect(w, r, adminListPath, http.StatusFound)
			return
		}
		log.Printf("[AdminHandler:Update] Некорректная форма для записи %d: %v", rec.ID, err)
		h.renderForm(w, http.StatusBadRequest, h.editForm(rec, msgInvalidMultipart))
		return
	}
	defer closePart(file)

	if _, err = h.service.Replace(r.Context(), rec.ID, filename, file); err != nil {
		if errors.Is(err, services.ErrScreenshotNotFound) {
			http.NotFound(w, r)
			return
		}
		msg, status := adminFileError(err, filename)
		if status == http.StatusInternalServerError {
			log.Printf("[AdminHandler:Update] Ошибка замены файла записи %d: %v", rec.ID, err)
		}
		h.renderForm(w, status, h.editForm(rec, msg))
		return
	}

	http.Redirect(w, r, adminListPath, http.StatusFound)
}

// Delete обрабатывает POST /admin/screenshot/delete/, ID записи передается в форме.
func (h *AdminHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PostFormValue("id"), 10, 64)
	if err != nil || id < 1 {
		http.NotFound(w, r)
		return
	}

	if err = h.service.Delete(r.Context(), id); err != nil {
		if errors.Is(err, services.ErrScreenshotNotFound) {
			http.NotFound(w, r)
			return
		}
		log.Printf("[AdminHandler:Delete] Ошибка удаления записи %d: %v", id, err)
		http.Error(w, msgInternalError, http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, adminListPath, http.StatusFound)
}

func (h *AdminHandler) lookup(w http.ResponseWriter, r *http.Request, rawID string) (*models.Screenshot, bool) {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || id < 1 {
		http.NotFound(w, r)
		return nil, false
	}
	rec, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrScreenshotNotFound) {
			http.NotFound(w, r)
			return nil, false
		}
		log.Printf("[AdminHandler] Ошибка получения записи %d: %v", id, err)
		http.Error(w, msgInternalError, http.StatusInternalServerError)
		return nil, false
	}
	return rec, true
}

func (h *AdminHandler) createForm(errMsg string) adminFormPage {
	return adminFormPage{
		Title:   "Create Screenshot",
		Action:  adminListPath + "new/",
		Error:   errMsg,
		Allowed: services.AllowedExtensionList(),
	}
}

func (h *AdminHandler) editForm(rec *models.Screenshot, errMsg string) adminFormPage {
	return adminFormPage{
		Title:   "Edit Screenshot",
		Action:  adminListPath + "edit/?id=" + strconv.FormatInt(rec.ID, 10),
		Error:   errMsg,
		Allowed: services.AllowedExtensionList(),
		Record:  rec,
	}
}

func (h *AdminHandler) renderForm(w http.ResponseWriter, status int, page adminFormPage) {
	token, ok := h.token(w)
	if !ok {
		return
	}
	page.Token = token
	render(w, status, "admin_form.html", page)
}

func (h *AdminHandler) token(w http.ResponseWriter) (string, bool) {
	token, err := h.tokens.Token()
	if err != nil {
		log.Printf("[AdminHandler] Ошибка выдачи CSRF-токена: %v", err)
		http.Error(w, msgInternalError, http.StatusInternalServerError)
		return "", false
	}
	return token, true
}

// formFile возвращает загруженную часть "file". Часть без имени файла считается отсутствующей.
func formFile(r *http.Request) (multipart.File, string, error) {
	if r.MultipartForm == nil {
		if err := r.ParseMultipartForm(multipartMaxInMemory); err != nil {
			return nil, "", err
		}
	}
	file, header, err := r.FormFile(uploadFieldName)
	if err != nil {
		return nil, "", err
	}
	name := clientFilename(header.Filename)
	if name == "" {
		closePart(file)
		return nil, "", http.ErrMissingFile
	}
	return file, name, nil
}

// adminFileError переводит ошибку сервиса в сообщение формы и код ответа.
func adminFileError(err error, filename string) (string, int) {
	switch {
	case errors.Is(err, services.ErrExtensionNotAllowed):
		return "Images only!", http.StatusBadRequest
	case errors.Is(err, services.ErrFileExists):
		return fmt.Sprintf("File %s already exists.", filename), http.StatusBadRequest
	case errors.Is(err, services.ErrInvalidFilename):
		return msgInvalidFilename, http.StatusBadRequest
	default:
		return msgInternalError, http.StatusInternalServerError
	}
}
