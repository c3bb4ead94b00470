// Package client реализует клиент HTTP API shotbox.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/maynagashev/shotbox/models"
)

const defaultTimeout = 30 * time.Second // Таймаут запроса по умолчанию

// Client определяет интерфейс для взаимодействия с API сервера.
type Client interface {
	// Upload отправляет r как файл с именем filename.
	Upload(ctx context.Context, filename string, r io.Reader) (*models.UploadResponse, error)
	// List получает одну страницу листинга.
	List(ctx context.Context, p ListParams) ([]models.ListedScreenshot, error)
	// Ping проверяет, что сервер отвечает.
	Ping(ctx context.Context) error
	// MediaURL возвращает абсолютный URL файла из листинга.
	MediaURL(path string) string
}

// ListParams - параметры листинга. Нулевые значения означают значения сервера по умолчанию.
type ListParams struct {
	Search  string
	Page    int
	PerPage int
}

// APIError представляет неуспешный ответ сервера.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("server returned status %d: %s", e.StatusCode, e.Message)
}

// Option настраивает клиент.
type Option func(*httpClient)

// WithHTTPClient подменяет используемый *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.httpClient = hc }
}

var _ Client = (*httpClient)(nil) // Проверка соответствия интерфейсу

type httpClient struct {
	baseURL    string       // Базовый URL сервера
	httpClient *http.Client // HTTP-клиент с таймаутом
}

// NewHTTPClient создает новый экземпляр клиента API для сервера baseURL, например "http://localhost:5000".
func NewHTTPClient(baseURL string, opts ...Option) Client {
	c := &httpClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Upload(ctx context.Context, filename string, r io.Reader) (*models.UploadResponse, error) {
	uploadURL, err := url.JoinPath(c.baseURL, "/upload_screenshot")
	if err != nil {
		return nil, fmt.Errorf("build upload URL: %w", err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("create form part: %w", err)
	}
	if _, err = io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("read upload data: %w", err)
	}
	if err = mw.Close(); err != nil {
		return nil, fmt.Errorf("finish multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, &body)
	if err != nil {
		return nil, fmt.Errorf("create upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out models.UploadResponse
	if err = c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *httpClient) List(ctx context.Context, p ListParams) ([]models.ListedScreenshot, error) {
	listURL, err := url.JoinPath(c.baseURL, "/list_screenshots")
	if err != nil {
		return nil, fmt.Errorf("build list URL: %w", err)
	}
	query := url.Values{}
	if p.Search != "" {
		query.Set("search", p.Search)
	}
	if p.Page > 0 {
		query.Set("page", strconv.Itoa(p.Page))
	}
	if p.PerPage > 0 {
		query.Set("per_page", strconv.Itoa(p.PerPage))
	}
	if len(query) > 0 {
		listURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, listURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create list request: %w", err)
	}

	items := []models.ListedScreenshot{}
	if err = c.do(req, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *httpClient) Ping(ctx context.Context) error {
	pingURL, err := url.JoinPath(c.baseURL, "/ping")
	if err != nil {
		return fmt.Errorf("build ping URL: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pingURL, nil)
	if err != nil {
		return fmt.Errorf("create ping request: %w", err)
	}
	return c.do(req, nil)
}

func (c *httpClient) MediaURL(path string) string {
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return path
	}
	ref, err := url.Parse(path)
	if err != nil {
		return path
	}
	return base.ResolveReference(ref).String()
}

// do выполняет req и декодирует JSON-тело в out, если out не nil.
func (c *httpClient) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var msg models.MessageResponse
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if json.Unmarshal(raw, &msg) == nil {
			apiErr.Message = msg.Message
		} else {
			apiErr.Message = string(bytes.TrimSpace(raw))
		}
		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err = json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", req.URL.Path, err)
	}
	return nil
}

// StatusCode извлекает HTTP-статус из APIError, иначе 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
