package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/maynagashev/shotbox/internal/handlers"
	"github.com/maynagashev/shotbox/internal/logging"
	appmiddleware "github.com/maynagashev/shotbox/internal/middleware"
	"github.com/maynagashev/shotbox/internal/repository"
	"github.com/maynagashev/shotbox/internal/services"
	"github.com/maynagashev/shotbox/internal/storage"
)

const (
	defaultReadTimeout     = 15 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	secretKeySize          = 32
)

// dependencies содержит все зависимости роутера. Close освобождает их.
type dependencies struct {
	db                *sqlx.DB             // Пул соединений с БД
	files             *storage.DiskStorage // Директория загрузок
	secretKey         []byte               // Секретный ключ процесса, живет до перезапуска
	csrf              *appmiddleware.CSRF
	screenshotHandler *handlers.ScreenshotHandler
	homeHandler       *handlers.HomeHandler
	adminHandler      *handlers.AdminHandler
}

func (d *dependencies) Close() {
	if d.files != nil {
		if err := d.files.Close(); err != nil {
			log.Printf("[Server] Ошибка закрытия директории загрузок: %v", err)
		}
	}
	if d.db != nil {
		if err := d.db.Close(); err != nil {
			log.Printf("[Server] Ошибка закрытия соединения с БД: %v", err)
		}
	}
}

func main() {
	if err := run(); err != nil {
		log.Errorf("Ошибка выполнения сервера: %v", err)
		os.Exit(1)
	}
}

func run() error {
	// .env необязателен и не переопределяет уже заданные переменные окружения
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	cfg, err := parseFlags(os.Args[1:], os.LookupEnv)
	if err != nil {
		return err
	}

	logCloser, err := logging.Setup(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		return err
	}
	defer func() { _ = logCloser.Close() }()

	log.Println("Запуск сервера shotbox...")

	// Контекст отменяется по SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := setupDependencies(ctx, cfg)
	if err != nil {
		return fmt.Errorf("dependency setup failed: %w", err)
	}
	defer deps.Close()

	if !cfg.AdminAuthEnabled() {
		log.Warn("[Server] Админка без аутентификации, открывайте ее только в доверенной сети " +
			"или задайте ADMIN_USER и ADMIN_PASSWORD_HASH")
	}

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      setupRouter(deps, cfg),
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
		IdleTimeout:  defaultIdleTimeout,
	}
	return serve(ctx, server, cfg)
}

// serve запускает сервер до ошибки или отмены ctx и затем корректно его останавливает.
func serve(ctx context.Context, server *http.Server, cfg *config) error {
	errCh := make(chan error, 1)
	go func() {
		var err error
		if cfg.TLSEnabled() {
			log.Printf("Запуск HTTPS-сервера на %s (сертификат %s)...", server.Addr, cfg.CertFile)
			err = server.ListenAndServeTLS(cfg.CertFile, cfg.KeyFile)
		} else {
			log.Printf("Запуск HTTP-сервера на %s...", server.Addr)
			err = server.ListenAndServe()
		}
		errCh <- err // ErrServerClosed после Shutdown
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Println("Остановка сервера...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	log.Println("Сервер остановлен")
	return nil
}

// setupDependencies открывает хранилище и БД, создает сервисы и обработчики.
func setupDependencies(ctx context.Context, cfg *config) (*dependencies, error) {
	deps := &dependencies{}
	var err error

	deps.secretKey, err = newSecretKey()
	if err != nil {
		return nil, err
	}

	deps.files, err = storage.NewDiskStorage(cfg.UploadDir)
	if err != nil {
		return nil, fmt.Errorf("upload directory init failed: %w", err)
	}
	log.Printf("Директория загрузок: %s", deps.files.Dir())

	deps.db, err = repository.NewDB(ctx, cfg.DatabaseDSN)
	if err != nil {
		deps.Close() // Закрываем уже открытую директорию
		return nil, fmt.Errorf("database init failed: %w", err)
	}

	// Слои: репозиторий и хранилище -> сервис -> обработчики
	repo := repository.NewScreenshotRepository(deps.db)
	svc := services.NewScreenshotService(repo, deps.files)

	deps.csrf = appmiddleware.NewCSRF(deps.secretKey)
	deps.screenshotHandler = handlers.NewScreenshotHandler(svc, cfg.MaxUploadBytes)
	deps.homeHandler = handlers.NewHomeHandler(svc)
	deps.adminHandler = handlers.NewAdminHandler(svc, deps.csrf)

	return deps, nil
}

// setupRouter создает роутер chi со всеми публичными маршрутами и маршрутами админки.
func setupRouter(deps *dependencies, cfg *config) *chi.Mux {
	r := chi.NewRouter()
	// Базовые middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: log.StandardLogger(), NoColor: true}))
	r.Use(middleware.Recoverer)

	// Проверка доступности
	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("pong\n"))
	})

	// Публичные маршруты
	r.Get("/", deps.homeHandler.Index)
	r.Post("/upload_screenshot", deps.screenshotHandler.Upload)
	r.Get("/list_screenshots", deps.screenshotHandler.List)
	r.Get("/media/screenshots/{filename}", deps.screenshotHandler.Serve)

	// Админка
	r.Get("/admin", deps.adminHandler.Index)
	r.Get("/admin/", deps.adminHandler.Index)
	r.Route("/admin/screenshot", func(r chi.Router) {
		r.Use(appmiddleware.AdminAuth(cfg.AdminUser, cfg.AdminPasswordHash))
		r.Use(middleware.RequestSize(cfg.MaxUploadBytes))
		r.Use(deps.csrf.Protect) // После RequestSize, чтобы большое тело давало 413

		r.Get("/", deps.adminHandler.List)
		r.Get("/new/", deps.adminHandler.NewForm)
		r.Post("/new/", deps.adminHandler.Create)
		r.Get("/edit/", deps.adminHandler.EditForm)
		r.Post("/edit/", deps.adminHandler.Update)
		r.Post("/delete/", deps.adminHandler.Delete)
	})
	return r
}

// newSecretKey генерирует ключ подписи процесса. Токены не переживают перезапуск.
func newSecretKey() ([]byte, error) {
	key := make([]byte, secretKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate secret key: %w", err)
	}
	return key, nil
}
