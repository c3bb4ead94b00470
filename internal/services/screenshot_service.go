package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/maynagashev/shotbox/internal/repository"
	"github.com/maynagashev/shotbox/internal/storage"
	"github.com/maynagashev/shotbox/models"
)

// Значения пагинации по умолчанию для листинга и админки.
const (
	DefaultPage          = 1
	DefaultPerPage       = 8
	AdminRecordsPerPage  = 20
	allowedExtensionList = "jpg, jpeg, png, gif"
)

//nolint:gochecknoglobals // Неизменяемая таблица допустимых расширений.
var allowedExtensions = map[string]struct{}{
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"gif":  {},
}

// ScreenshotService определяет интерфейс сервиса скриншотов для публичного API и админки.
type ScreenshotService interface {
	// Upload сохраняет файл (перезаписывая одноименный) и создает запись.
	Upload(ctx context.Context, filename string, r io.Reader) (*models.Screenshot, error)
	// List обходит директорию загрузок: новые первыми, с фильтром и пагинацией.
	List(ctx context.Context, q ListQuery) ([]models.ListedScreenshot, error)
	// Records возвращает все записи, новые первыми.
	Records(ctx context.Context) ([]models.Screenshot, error)
	// RecordPage возвращает одну страницу записей для админки.
	RecordPage(ctx context.Context, page int) (*RecordPage, error)
	Get(ctx context.Context, id int64) (*models.Screenshot, error)
	// Create сохраняет новый файл без перезаписи и создает запись.
	Create(ctx context.Context, filename string, r io.Reader) (*models.Screenshot, error)
	// Replace заменяет файл существующей записи.
	Replace(ctx context.Context, id int64, filename string, r io.Reader) (*models.Screenshot, error)
	// Delete удаляет файл (если он есть), затем запись.
	Delete(ctx context.Context, id int64) error
	OpenFile(filename string) (io.ReadSeekCloser, fs.FileInfo, error)
}

// ListQuery содержит параметры листинга. Страницы нумеруются с 1.
type ListQuery struct {
	Search  string // Подстрока имени без учета регистра
	Page    int
	PerPage int
}

// RecordPage представляет одну страницу таблицы записей в админке.
type RecordPage struct {
	Items      []models.Screenshot
	Page       int
	PerPage    int
	Total      int
	TotalPages int
}

// HasPrev сообщает, есть ли предыдущая страница.
func (p *RecordPage) HasPrev() bool { return p.Page > 1 }

// HasNext сообщает, есть ли следующая страница.
func (p *RecordPage) HasNext() bool { return p.Page < p.TotalPages }

// Option настраивает сервис скриншотов.
type Option func(*screenshotService)

// WithClock подменяет источник времени для меток загрузки.
func WithClock(now func() time.Time) Option {
	return func(s *screenshotService) { s.now = now }
}

var _ ScreenshotService = (*screenshotService)(nil) // Проверка соответствия интерфейсу

type screenshotService struct {
	repo  repository.ScreenshotRepository // Зависимость от репозитория записей
	files storage.FileStorage             // Зависимость от директории загрузок
	now   func() time.Time                // Источник времени
}

// NewScreenshotService создает новый экземпляр сервиса скриншотов.
func NewScreenshotService(
	repo repository.ScreenshotRepository,
	files storage.FileStorage,
	opts ...Option,
) ScreenshotService {
	s := &screenshotService{repo: repo, files: files, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Upload реализует ScreenshotService.
// Файл пишется до записи в БД: если вставка не удалась, файл остается без записи.
func (s *screenshotService) Upload(ctx context.Context, filename string, r io.Reader) (*models.Screenshot, error) {
	if err := checkFilename(filename); err != nil {
		return nil, err
	}

	if _, err := s.files.Save(ctx, filename, r); err != nil {
		log.Printf("[ScreenshotService:Upload] Ошибка сохранения '%s': %v", filename, err)
		return nil, mapStorageErr(err)
	}

	rec, err := s.record(ctx, filename)
	if err != nil {
		log.Printf("[ScreenshotService:Upload] Файл '%s' сохранен, но запись не создана: %v", filename, err)
		return nil, err
	}

	log.Printf("[ScreenshotService:Upload] Скриншот '%s' загружен, запись %d", filename, rec.ID)
	return rec, nil
}

// List реализует ScreenshotService.
func (s *screenshotService) List(ctx context.Context, q ListQuery) ([]models.ListedScreenshot, error) {
	if q.Page < 1 || q.PerPage < 1 {
		return nil, ErrInvalidPagination
	}

	files, err := s.files.Scan(ctx)
	if err != nil {
		log.Printf("[ScreenshotService:List] Ошибка обхода директории: %v", err)
		return nil, fmt.Errorf("scan upload directory: %w", err)
	}

	// Сначала новые, при равном времени - по имени
	sort.Slice(files, func(i, j int) bool {
		if !files[i].ModTime.Equal(files[j].ModTime) {
			return files[i].ModTime.After(files[j].ModTime)
		}
		return files[i].Name < files[j].Name
	})

	search := strings.ToLower(q.Search)
	matched := make([]models.ListedScreenshot, 0, len(files))
	for _, f := range files {
		if !AllowedExtension(f.Name) { // Только изображения
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(f.Name), search) {
			continue
		}
		matched = append(matched, models.ListedScreenshot{
			Filename:     f.Name,
			URL:          models.MediaURL(f.Name),
			LastModified: models.EpochSeconds(f.ModTime),
		})
	}

	start, end := pageBounds(q.Page, q.PerPage, len(matched))
	return matched[start:end], nil
}

// Records реализует ScreenshotService.
func (s *screenshotService) Records(ctx context.Context) ([]models.Screenshot, error) {
	records, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return records, nil
}

// RecordPage реализует ScreenshotService. Страницы за концом списка пусты.
func (s *screenshotService) RecordPage(ctx context.Context, page int) (*RecordPage, error) {
	if page < 1 {
		return nil, ErrInvalidPagination
	}
	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count records: %w", err)
	}
	items := []models.Screenshot{}
	// Проверяем до умножения, чтобы огромный номер страницы не переполнил смещение.
	if page-1 <= total/AdminRecordsPerPage {
		items, err = s.repo.ListPage(ctx, AdminRecordsPerPage, (page-1)*AdminRecordsPerPage)
		if err != nil {
			return nil, fmt.Errorf("list record page: %w", err)
		}
	}
	return &RecordPage{
		Items:      items,
		Page:       page,
		PerPage:    AdminRecordsPerPage,
		Total:      total,
		TotalPages: (total + AdminRecordsPerPage - 1) / AdminRecordsPerPage,
	}, nil
}

// Get реализует ScreenshotService.
func (s *screenshotService) Get(ctx context.Context, id int64) (*models.Screenshot, error) {
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrScreenshotNotFound) {
			return nil, ErrScreenshotNotFound // Ошибка сервисного слоя
		}
		return nil, fmt.Errorf("load record %d: %w", id, err)
	}
	return rec, nil
}

// Create реализует ScreenshotService. Если вставка не удалась, файл удаляется.
func (s *screenshotService) Create(ctx context.Context, filename string, r io.Reader) (*models.Screenshot, error) {
	if err := checkFilename(filename); err != nil {
		return nil, err
	}

	if _, err := s.files.Create(ctx, filename, r); err != nil {
		log.Printf("[ScreenshotService:Create] Ошибка сохранения '%s': %v", filename, err)
		return nil, mapStorageErr(err)
	}

	rec, err := s.record(ctx, filename)
	if err != nil {
		s.discard(filename) // Не оставляем файл без записи
		return nil, err
	}

	log.Printf("[ScreenshotService:Create] Создана запись %d для '%s'", rec.ID, filename)
	return rec, nil
}

// Replace реализует ScreenshotService.
// Порядок: новый файл, обновление записи, удаление старого файла. При частичной ошибке старый файл сохраняется.
func (s *screenshotService) Replace(
	ctx context.Context,
	id int64,
	filename string,
	r io.Reader,
) (*models.Screenshot, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err = checkFilename(filename); err != nil {
		return nil, err
	}

	if _, err = s.files.Create(ctx, filename, r); err != nil {
		log.Printf("[ScreenshotService:Replace] Ошибка сохранения '%s' для записи %d: %v", filename, id, err)
		return nil, mapStorageErr(err)
	}

	if err = s.repo.UpdateFilename(ctx, id, filename); err != nil {
		s.discard(filename)
		if errors.Is(err, repository.ErrScreenshotNotFound) {
			return nil, ErrScreenshotNotFound
		}
		return nil, fmt.Errorf("update record %d: %w", id, err)
	}

	s.removeFile(rec.Filename)
	log.Printf("[ScreenshotService:Replace] Запись %d теперь указывает на '%s' (было '%s')", id, filename, rec.Filename)

	rec.Filename = filename
	return rec, nil
}

// Delete реализует ScreenshotService.
// Отсутствие файла не считается ошибкой. Если запись не удалилась после удаления файла,
// она остается без файла, и возвращается ошибка.
func (s *screenshotService) Delete(ctx context.Context, id int64) error {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err = s.files.Remove(rec.Filename); err != nil &&
		!errors.Is(err, storage.ErrFileNotFound) && !errors.Is(err, storage.ErrInvalidFilename) {
		log.Printf("[ScreenshotService:Delete] Ошибка удаления файла '%s' записи %d: %v", rec.Filename, id, err)
		return fmt.Errorf("remove file of record %d: %w", id, err)
	}

	if err = s.repo.Delete(ctx, id); err != nil {
		log.Printf("[ScreenshotService:Delete] Файл '%s' удален, но запись %d не удалена: %v", rec.Filename, id, err)
		if errors.Is(err, repository.ErrScreenshotNotFound) {
			return ErrScreenshotNotFound
		}
		return fmt.Errorf("delete record %d: %w", id, err)
	}

	log.Printf("[ScreenshotService:Delete] Запись %d ('%s') удалена", id, rec.Filename)
	return nil
}

// OpenFile реализует ScreenshotService.
func (s *screenshotService) OpenFile(filename string) (io.ReadSeekCloser, fs.FileInfo, error) {
	f, info, err := s.files.Open(filename)
	if err != nil {
		return nil, nil, mapStorageErr(err)
	}
	return f, info, nil
}

// record создает запись с текущим временем UTC.
func (s *screenshotService) record(ctx context.Context, filename string) (*models.Screenshot, error) {
	rec := &models.Screenshot{Filename: filename, UploadTime: s.now().UTC()}
	id, err := s.repo.Create(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("insert record for %q: %w", filename, err)
	}
	rec.ID = id
	return rec, nil
}

// discard удаляет файл, только что созданный сервисом.
func (s *screenshotService) discard(filename string) {
	if err := s.files.Remove(filename); err != nil && !errors.Is(err, storage.ErrFileNotFound) {
		log.Printf("[ScreenshotService] Ошибка удаления '%s': %v", filename, err)
	}
}

// removeFile удаляет старый файл записи, ошибки только логируются.
func (s *screenshotService) removeFile(filename string) {
	if err := s.files.Remove(filename); err != nil &&
		!errors.Is(err, storage.ErrFileNotFound) && !errors.Is(err, storage.ErrInvalidFilename) {
		log.Printf("[ScreenshotService] Ошибка удаления старого файла '%s': %v", filename, err)
	}
}

// AllowedExtension сообщает, входит ли расширение файла в список допустимых.
func AllowedExtension(filename string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	_, ok := allowedExtensions[ext]
	return ok
}

// AllowedExtensionList возвращает список допустимых расширений для вывода.
func AllowedExtensionList() string {
	return allowedExtensionList
}

// checkFilename проверяет имя и расширение файла.
func checkFilename(filename string) error {
	if err := storage.ValidateName(filename); err != nil {
		return ErrInvalidFilename
	}
	if !AllowedExtension(filename) {
		return ErrExtensionNotAllowed
	}
	return nil
}

// mapStorageErr переводит ошибки хранилища в ошибки сервиса.
func mapStorageErr(err error) error {
	switch {
	case errors.Is(err, storage.ErrFileExists):
		return ErrFileExists
	case errors.Is(err, storage.ErrFileNotFound):
		return ErrFileNotFound
	case errors.Is(err, storage.ErrInvalidFilename):
		return ErrInvalidFilename
	default:
		return err
	}
}

// pageBounds ограничивает окно [start, end) страницы (с 1) количеством n.
// page и perPage должны быть не меньше 1.
func pageBounds(page, perPage, n int) (int, int) {
	if page < 1 || perPage < 1 || page-1 > n/perPage {
		return n, n
	}
	start := (page - 1) * perPage
	if start >= n {
		return n, n
	}
	if perPage > n-start {
		return start, n
	}
	return start, start + perPage
}

// Кастомные ошибки сервиса.
var (
	ErrScreenshotNotFound  = errors.New("screenshot not found")
	ErrFileNotFound        = errors.New("screenshot file not found")
	ErrFileExists          = errors.New("screenshot file already exists")
	ErrInvalidFilename     = errors.New("invalid filename")
	ErrExtensionNotAllowed = errors.New("file type not allowed")
	ErrInvalidPagination   = errors.New("page and per_page must be positive")
)
