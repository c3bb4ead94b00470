// Package logging настраивает общий для процесса логгер logrus.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Лимиты ротации лог-файла.
const (
	maxSizeMB  = 10 // Размер файла до ротации
	maxBackups = 3  // Сколько старых файлов хранить
	maxAgeDays = 28 // Сколько дней хранить старые файлы
)

// Options задает, куда и насколько подробно писать логи.
type Options struct {
	Level string
	// File включает ротируемый лог-файл помимо вывода в консоль.
	File string
	// Quiet отключает вывод в консоль, остается только File.
	Quiet bool
}

// Setup применяет opts к стандартному логгеру logrus.
// Возвращаемый closer закрывает лог-файл, его можно вызывать и без файла.
func Setup(opts Options) (io.Closer, error) {
	level := log.InfoLevel // Уровень по умолчанию
	if opts.Level != "" {
		parsed, err := log.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = parsed
	}

	log.SetLevel(level)
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	var writers []io.Writer
	if !opts.Quiet {
		writers = append(writers, os.Stdout)
	}

	var closer io.Closer = nopCloser{}
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		rotating := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    maxSizeMB,
			MaxBackups: maxBackups,
			MaxAge:     maxAgeDays,
		}
		writers = append(writers, rotating)
		closer = rotating
	}

	switch len(writers) {
	case 0:
		log.SetOutput(io.Discard) // Консоль отключена и файла нет
	case 1:
		log.SetOutput(writers[0])
	default:
		log.SetOutput(io.MultiWriter(writers...))
	}
	return closer, nil
}

// nopCloser используется, когда лог-файл не задан.
type nopCloser struct{}

func (nopCloser) Close() error { return nil }
