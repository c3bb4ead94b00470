package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	log "github.com/sirupsen/logrus"

	"github.com/maynagashev/shotbox/models"
)

// ScreenshotRepository определяет интерфейс для работы с записями скриншотов.
type ScreenshotRepository interface {
	Create(ctx context.Context, s *models.Screenshot) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Screenshot, error)
	// ListAll возвращает все записи, новые первыми.
	ListAll(ctx context.Context) ([]models.Screenshot, error)
	// ListPage возвращает одну страницу записей, новые первыми.
	ListPage(ctx context.Context, limit, offset int) ([]models.Screenshot, error)
	Count(ctx context.Context) (int, error)
	UpdateFilename(ctx context.Context, id int64, filename string) error
	Delete(ctx context.Context, id int64) error
}

var _ ScreenshotRepository = (*sqlScreenshotRepository)(nil) // Проверка соответствия интерфейсу

// sqlScreenshotRepository реализует ScreenshotRepository поверх sqlx.
// Запросы пишутся с '?' и переводятся в плейсхолдеры текущего драйвера через Rebind.
type sqlScreenshotRepository struct {
	db *sqlx.DB // Пул соединений
}

// NewScreenshotRepository создает новый экземпляр репозитория.
func NewScreenshotRepository(db *sqlx.DB) ScreenshotRepository {
	return &sqlScreenshotRepository{db: db}
}

// Create вставляет запись и возвращает сгенерированный ID.
func (r *sqlScreenshotRepository) Create(ctx context.Context, s *models.Screenshot) (int64, error) {
	query := r.db.Rebind(`INSERT INTO screenshots (filename, upload_time) VALUES (?, ?) RETURNING id`)
	var id int64

	err := r.db.QueryRowxContext(ctx, query, s.Filename, s.UploadTime.UTC()).Scan(&id)
	if err != nil {
		log.Printf("[ScreenshotRepo] Ошибка вставки записи для '%s': %v", s.Filename, err)
		return 0, fmt.Errorf("insert query failed: %w", err)
	}

	log.Printf("[ScreenshotRepo] Создана запись %d для '%s'", id, s.Filename)
	return id, nil
}

// GetByID возвращает запись по ID или ErrScreenshotNotFound.
func (r *sqlScreenshotRepository) GetByID(ctx context.Context, id int64) (*models.Screenshot, error) {
	query := r.db.Rebind(`SELECT id, filename, upload_time FROM screenshots WHERE id=?`)
	var s models.Screenshot

	err := r.db.GetContext(ctx, &s, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrScreenshotNotFound // Запись не найдена
		}
		log.Printf("[ScreenshotRepo] Ошибка получения записи %d: %v", id, err)
		return nil, fmt.Errorf("select query failed: %w", err)
	}

	s.UploadTime = s.UploadTime.UTC() // Драйверы могут вернуть локальную зону
	return &s, nil
}

// ListAll возвращает все записи по убыванию upload_time.
func (r *sqlScreenshotRepository) ListAll(ctx context.Context) ([]models.Screenshot, error) {
	query := `SELECT id, filename, upload_time FROM screenshots ORDER BY upload_time DESC, id DESC`
	return r.selectRows(ctx, query)
}

// ListPage возвращает записи по убыванию upload_time с LIMIT/OFFSET.
func (r *sqlScreenshotRepository) ListPage(ctx context.Context, limit, offset int) ([]models.Screenshot, error) {
	query := r.db.Rebind(`SELECT id, filename, upload_time FROM screenshots
	          ORDER BY upload_time DESC, id DESC LIMIT ? OFFSET ?`)
	return r.selectRows(ctx, query, limit, offset)
}

func (r *sqlScreenshotRepository) selectRows(ctx context.Context, query string, args ...any) ([]models.Screenshot, error) {
	rows := []models.Screenshot{} // Пустой срез вместо nil
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		log.Printf("[ScreenshotRepo] Ошибка получения списка записей: %v", err)
		return nil, fmt.Errorf("select query failed: %w", err)
	}
	for i := range rows {
		rows[i].UploadTime = rows[i].UploadTime.UTC()
	}
	return rows, nil
}

// Count возвращает количество записей.
func (r *sqlScreenshotRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM screenshots`); err != nil {
		return 0, fmt.Errorf("count query failed: %w", err)
	}
	return n, nil
}

// UpdateFilename привязывает существующую запись к другому файлу.
func (r *sqlScreenshotRepository) UpdateFilename(ctx context.Context, id int64, filename string) error {
	query := r.db.Rebind(`UPDATE screenshots SET filename=? WHERE id=?`)
	result, err := r.db.ExecContext(ctx, query, filename, id)
	if err != nil {
		log.Printf("[ScreenshotRepo] Ошибка обновления записи %d: %v", id, err)
		return fmt.Errorf("update query failed: %w", err)
	}
	return checkAffected(result, id)
}

// Delete удаляет запись по ID.
func (r *sqlScreenshotRepository) Delete(ctx context.Context, id int64) error {
	query := r.db.Rebind(`DELETE FROM screenshots WHERE id=?`)
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		log.Printf("[ScreenshotRepo] Ошибка удаления записи %d: %v", id, err)
		return fmt.Errorf("delete query failed: %w", err)
	}
	if err = checkAffected(result, id); err != nil {
		return err
	}

	log.Printf("[ScreenshotRepo] Запись %d удалена", id)
	return nil
}

// checkAffected проверяет, что запрос затронул хотя бы одну строку.
func checkAffected(result sql.Result, id int64) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows failed: %w", err)
	}
	if affected == 0 {
		log.Printf("[ScreenshotRepo] Запись %d не найдена", id)
		return ErrScreenshotNotFound
	}
	return nil
}

// Кастомные ошибки репозитория.
var (
	ErrScreenshotNotFound = errors.New("screenshot record not found")
)
