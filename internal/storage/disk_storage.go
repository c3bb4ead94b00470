package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	dirPermissions  = 0o755
	filePermissions = 0o644
	tempPrefix      = ".upload-"
	tempSuffix      = ".tmp"
)

// FileStorage определяет интерфейс для работы с директорией загрузок.
// Каждое имя - один элемент пути внутри директории, см. ValidateName.
type FileStorage interface {
	// Save атомарно записывает файл, заменяя существующий файл с тем же именем.
	Save(ctx context.Context, name string, r io.Reader) (int64, error)
	// Create атомарно записывает файл и возвращает ErrFileExists, если имя занято.
	Create(ctx context.Context, name string, r io.Reader) (int64, error)
	// Open возвращает содержимое файла и его метаданные. Вызывающий закрывает reader.
	Open(name string) (io.ReadSeekCloser, fs.FileInfo, error)
	// Remove удаляет файл, возвращает ErrFileNotFound, если его нет.
	Remove(name string) error
	// Scan перечисляет обычные нескрытые файлы директории.
	Scan(ctx context.Context) ([]FileInfo, error)
}

// FileInfo описывает один сохраненный файл.
type FileInfo struct {
	Name    string
	Size    int64
	ModTime time.Time
}

var _ FileStorage = (*DiskStorage)(nil) // Проверка соответствия интерфейсу

// DiskStorage реализует FileStorage на локальной директории.
// Чтение и удаление идут через os.Root, поэтому симлинки не выводят за пределы директории.
type DiskStorage struct {
	dir  string   // Абсолютный путь
	root *os.Root // Дескриптор директории
}

// NewDiskStorage создает директорию при необходимости и открывает ее.
func NewDiskStorage(dir string) (*DiskStorage, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve upload directory %q: %w", dir, err)
	}
	if err = os.MkdirAll(absDir, dirPermissions); err != nil {
		return nil, fmt.Errorf("create upload directory %q: %w", absDir, err)
	}
	root, err := os.OpenRoot(absDir)
	if err != nil {
		return nil, fmt.Errorf("open upload directory %q: %w", absDir, err)
	}

	log.Printf("[DiskStorage] Директория загрузок: %s", absDir)
	return &DiskStorage{dir: absDir, root: root}, nil
}

// Dir возвращает абсолютный путь директории загрузок.
func (s *DiskStorage) Dir() string {
	return s.dir
}

// Close освобождает дескриптор директории.
func (s *DiskStorage) Close() error {
	return s.root.Close()
}

// Save реализует FileStorage. При одновременной записи побеждает последний.
func (s *DiskStorage) Save(ctx context.Context, name string, r io.Reader) (int64, error) {
	if err := ValidateName(name); err != nil {
		return 0, err
	}
	tmp, n, err := s.writeTemp(ctx, r)
	if err != nil {
		return 0, err
	}
	// Rename атомарен в пределах одной файловой системы
	if err = os.Rename(s.path(tmp), s.path(name)); err != nil {
		s.removeTemp(tmp)
		return 0, fmt.Errorf("move %q into place: %w", name, err)
	}

	log.Printf("[DiskStorage] Сохранен '%s' (%d байт)", name, n)
	return n, nil
}

// Create реализует FileStorage. Жесткая ссылка публикует файл,
// никогда не заменяя существующий.
func (s *DiskStorage) Create(ctx context.Context, name string, r io.Reader) (int64, error) {
	if err := ValidateName(name); err != nil {
		return 0, err
	}
	tmp, n, err := s.writeTemp(ctx, r)
	if err != nil {
		return 0, err
	}
	defer s.removeTemp(tmp) // Временный файл не нужен ни при успехе, ни при ошибке

	if err = os.Link(s.path(tmp), s.path(name)); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return 0, ErrFileExists
		}
		return 0, fmt.Errorf("publish %q: %w", name, err)
	}

	log.Printf("[DiskStorage] Создан '%s' (%d байт)", name, n)
	return n, nil
}

// Open реализует FileStorage. Для директорий возвращается ErrFileNotFound.
func (s *DiskStorage) Open(name string) (io.ReadSeekCloser, fs.FileInfo, error) {
	if err := ValidateName(name); err != nil {
		return nil, nil, err
	}
	f, err := s.root.Open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, ErrFileNotFound
		}
		return nil, nil, fmt.Errorf("open %q: %w", name, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, nil, fmt.Errorf("stat %q: %w", name, err)
	}
	if !info.Mode().IsRegular() {
		_ = f.Close()
		return nil, nil, ErrFileNotFound
	}
	return f, info, nil
}

// Remove реализует FileStorage.
func (s *DiskStorage) Remove(name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if err := s.root.Remove(name); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrFileNotFound
		}
		return fmt.Errorf("remove %q: %w", name, err)
	}

	log.Printf("[DiskStorage] Удален '%s'", name)
	return nil
}

// Scan реализует FileStorage. Файлы, исчезнувшие во время обхода, пропускаются.
func (s *DiskStorage) Scan(ctx context.Context) ([]FileInfo, error) {
	dir, err := s.root.Open(".")
	if err != nil {
		return nil, fmt.Errorf("open upload directory: %w", err)
	}
	defer dir.Close()

	entries, err := dir.ReadDir(-1)
	if err != nil {
		return nil, fmt.Errorf("read upload directory: %w", err)
	}

	files := make([]FileInfo, 0, len(entries))
	for _, entry := range entries {
		if err = ctx.Err(); err != nil {
			return nil, err
		}
		// Скрытые и временные файлы не показываем
		if !entry.Type().IsRegular() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		info, infoErr := entry.Info()
		if infoErr != nil {
			if !errors.Is(infoErr, fs.ErrNotExist) {
				log.Printf("[DiskStorage] Пропуск '%s': %v", entry.Name(), infoErr)
			}
			continue
		}
		files = append(files, FileInfo{Name: entry.Name(), Size: info.Size(), ModTime: info.ModTime()})
	}
	return files, nil
}

// writeTemp копирует r в новый скрытый файл и возвращает его имя.
func (s *DiskStorage) writeTemp(ctx context.Context, r io.Reader) (string, int64, error) {
	tmp := tempPrefix + uuid.NewString() + tempSuffix
	f, err := s.root.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, filePermissions)
	if err != nil {
		return "", 0, fmt.Errorf("create temp file: %w", err)
	}

	n, err := io.Copy(f, contextReader{ctx: ctx, r: r})
	if err == nil {
		err = f.Sync() // Данные на диске до публикации
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		s.removeTemp(tmp)
		return "", 0, fmt.Errorf("write temp file: %w", err)
	}
	return tmp, n, nil
}

func (s *DiskStorage) removeTemp(tmp string) {
	if err := s.root.Remove(tmp); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("[DiskStorage] Ошибка удаления временного файла '%s': %v", tmp, err)
	}
}

// path возвращает абсолютный путь файла в директории.
func (s *DiskStorage) path(name string) string {
	return filepath.Join(s.dir, name)
}

// ValidateName допускает только один видимый элемент пути.
func ValidateName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return ErrInvalidFilename
	case strings.ContainsAny(name, "/\\\x00"):
		return ErrInvalidFilename
	case strings.HasPrefix(name, "."):
		return ErrInvalidFilename
	}
	return nil
}

// contextReader прерывает копирование после отмены контекста.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// Кастомные ошибки хранилища.
var (
	ErrFileNotFound    = errors.New("file not found")
	ErrFileExists      = errors.New("file already exists")
	ErrInvalidFilename = errors.New("invalid filename")
)
