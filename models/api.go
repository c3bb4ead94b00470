package models

// UploadResponse представляет тело ответа после успешной загрузки.
type UploadResponse struct {
	Message string `json:"message"`
	URL     string `json:"url"`
}

// MessageResponse содержит текстовое сообщение, используется для ошибок.
type MessageResponse struct {
	Message string `json:"message"`
}
