package models

import (
	"net/url"
	"time"
)

// MediaPrefix задает URL-путь, по которому раздаются сохраненные файлы.
const MediaPrefix = "/media/screenshots/"

// Screenshot представляет запись метаданных загруженного файла.
// Тэги `db` используются для маппинга с полями БД с помощью sqlx.
// Тэги `json` используются для (де)сериализации JSON.
type Screenshot struct {
	ID         int64     `db:"id" json:"id"`                   // Генерируется БД
	Filename   string    `db:"filename" json:"filename"`       // Имя файла в директории загрузок
	UploadTime time.Time `db:"upload_time" json:"upload_time"` // Всегда в UTC
}

// URL возвращает публичный адрес файла записи.
func (s Screenshot) URL() string {
	return MediaURL(s.Filename)
}

// ListedScreenshot представляет один элемент листинга директории.
type ListedScreenshot struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
	// LastModified - время изменения файла в секундах от начала эпохи Unix.
	LastModified float64 `json:"last_modified"`
}

// ModTime преобразует LastModified обратно в time.Time.
func (l ListedScreenshot) ModTime() time.Time {
	sec := int64(l.LastModified) // Целая часть
	nsec := int64((l.LastModified - float64(sec)) * float64(time.Second))
	return time.Unix(sec, nsec)
}

// EpochSeconds переводит t в дробные секунды от начала эпохи Unix.
func EpochSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

// MediaURL строит адрес файла по его имени.
// Имя экранируется, чтобы пробелы и '#' не ломали ссылки.
func MediaURL(filename string) string {
	return MediaPrefix + url.PathEscape(filename)
}
