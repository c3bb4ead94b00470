package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"path"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/maynagashev/shotbox/models"
)

// Сообщения, возвращаемые JSON API.
const (
	msgUploaded          = "File uploaded successfully"
	msgNoFilePart        = "No file part"
	msgNoSelectedFile    = "No selected file"
	msgInvalidMultipart  = "Invalid multipart form"
	msgInvalidFilename   = "Invalid filename"
	msgTypeNotAllowed    = "File type not allowed"
	msgFileTooLarge      = "File too large"
	msgInvalidPage       = "Invalid page parameter"
	msgInvalidPerPage    = "Invalid per_page parameter"
	msgInternalError     = "Internal server error"
	uploadFieldName      = "file"
	multipartMaxInMemory = 8 << 20
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[handlers] Ошибка кодирования JSON-ответа: %v", err)
	}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, models.MessageResponse{Message: msg})
}

// render сначала выполняет шаблон в буфер, чтобы при ошибке шаблона вернуть чистый 500.
func render(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := pageTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		log.Printf("[handlers] Ошибка рендеринга шаблона %s: %v", name, err)
		http.Error(w, msgInternalError, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// clientFilename оставляет от присланного браузером имени последний элемент пути.
// Некоторые клиенты присылают полные пути Windows.
func clientFilename(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	if name == "" {
		return ""
	}
	base := path.Base(name)
	if base == "/" || base == "." {
		return ""
	}
	return base
}
