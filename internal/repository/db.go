package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // Драйвер PostgreSQL
	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite" // Драйвер SQLite на чистом Go, регистрируется как "sqlite"
)

const (
	driverSQLite   = "sqlite"
	driverPostgres = "postgres"

	maxOpenConns    = 25
	maxIdleConns    = 25
	connMaxLifetime = 5 * time.Minute
	connMaxIdleTime = 5 * time.Minute

	sqlitePragmas = "_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_time_format=sqlite"
)

//nolint:gochecknoinits // sqlx не знает имя драйвера modernc.
func init() {
	sqlx.BindDriver(driverSQLite, sqlx.QUESTION)
}

// DriverForDSN выбирает драйвер БД по строке подключения.
// Для postgres:// и postgresql:// используется lib/pq, все остальное считается путем к файлу SQLite.
func DriverForDSN(dsn string) (driver, source string) {
	lower := strings.ToLower(dsn)
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return driverPostgres, dsn
	}
	path := strings.TrimPrefix(dsn, "sqlite://") // Префикс схемы необязателен
	if strings.Contains(path, "?") {
		// Параметры заданы явно, не трогаем
		return driverSQLite, path
	}
	return driverSQLite, path + "?" + sqlitePragmas
}

// NewDB открывает БД, проверяет соединение и создает схему.
func NewDB(ctx context.Context, dsn string) (*sqlx.DB, error) {
	driver, source := DriverForDSN(dsn)
	log.Printf("[DB] Подключение к %s...", driver)

	db, err := sqlx.ConnectContext(ctx, driver, source) // Connect = Open + Ping, ошибка при недоступной БД
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	if driver == driverSQLite {
		// Один писатель за раз: SQLite все равно сериализует запись, а так нет лавины SQLITE_BUSY.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	} else {
		// Настройки пула соединений для PostgreSQL
		db.SetMaxOpenConns(maxOpenConns)
		db.SetMaxIdleConns(maxIdleConns)
		db.SetConnMaxLifetime(connMaxLifetime)
		db.SetConnMaxIdleTime(connMaxIdleTime)
	}

	if err = Migrate(ctx, db); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			log.Printf("[DB] Ошибка закрытия БД после неудачной миграции: %v", closeErr)
		}
		return nil, err
	}

	log.Printf("[DB] Соединение с %s установлено, схема актуальна.", driver)
	return db, nil
}

// Migrate создает таблицу screenshots, если ее еще нет.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, schemaFor(db.DriverName())); err != nil {
		return fmt.Errorf("schema migration failed: %w", err)
	}
	return nil
}

func schemaFor(driver string) string {
	if driver == driverPostgres {
		return `
		CREATE TABLE IF NOT EXISTS screenshots (
			id BIGSERIAL PRIMARY KEY,
			filename VARCHAR(255) NOT NULL,
			upload_time TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_screenshots_upload_time ON screenshots(upload_time);`
	}
	return `
	CREATE TABLE IF NOT EXISTS screenshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		filename VARCHAR(255) NOT NULL,
		upload_time DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_screenshots_upload_time ON screenshots(upload_time);`
}
