package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

const (
	defaultServerPort     = "5000"
	defaultUploadDir      = "media/screenshots"
	defaultDatabaseDSN    = "files.db"
	defaultMaxUploadBytes = 5 << 20

	envConfigFile = "SHOTBOX_CONFIG"
)

// config содержит конфигурацию сервера.
// Источники по возрастанию приоритета: значения по умолчанию, YAML-файл, окружение, флаги.
type config struct {
	Port              string `yaml:"port"`
	UploadDir         string `yaml:"upload_dir"`
	DatabaseDSN       string `yaml:"database_dsn"`
	MaxUploadBytes    int64  `yaml:"max_upload_bytes"`
	LogLevel          string `yaml:"log_level"`
	LogFile           string `yaml:"log_file"`
	AdminUser         string `yaml:"admin_user"`
	AdminPasswordHash string `yaml:"admin_password_hash"`
	CertFile          string `yaml:"tls_cert_file"`
	KeyFile           string `yaml:"tls_key_file"`
}

// TLSEnabled сообщает, заданы ли сертификат и ключ.
func (c *config) TLSEnabled() bool {
	return c.CertFile != "" && c.KeyFile != ""
}

// AdminAuthEnabled сообщает, требует ли админка учетные данные.
func (c *config) AdminAuthEnabled() bool {
	return c.AdminUser != ""
}

// setting связывает ключ конфигурации с флагом и переменной окружения.
type setting struct {
	flag  string
	env   string
	usage string
	apply func(cfg *config, value string) error
}

func stringSetting(flagName, env, usage string, field func(*config) *string) setting {
	return setting{flag: flagName, env: env, usage: usage, apply: func(cfg *config, v string) error {
		*field(cfg) = v
		return nil
	}}
}

//nolint:gochecknoglobals // Статическая таблица ключей конфигурации.
var settings = []setting{
	stringSetting("port", "SERVER_PORT", "Порт HTTP-сервера", func(c *config) *string { return &c.Port }),
	stringSetting("upload-dir", "UPLOAD_DIR", "Директория для загруженных скриншотов",
		func(c *config) *string { return &c.UploadDir }),
	stringSetting("database-dsn", "DATABASE_DSN", "Путь к файлу SQLite или URL postgres://",
		func(c *config) *string { return &c.DatabaseDSN }),
	{
		flag:  "max-upload-bytes",
		env:   "MAX_UPLOAD_BYTES",
		usage: "Максимальный размер тела запроса при загрузке",
		apply: func(c *config, v string) error {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return fmt.Errorf("max upload bytes %q is not a number", v)
			}
			c.MaxUploadBytes = n
			return nil
		},
	},
	stringSetting("log-level", "LOG_LEVEL", "Уровень логирования (debug, info, warn, error)",
		func(c *config) *string { return &c.LogLevel }),
	stringSetting("log-file", "LOG_FILE", "Ротируемый лог-файл, пусто - только stdout",
		func(c *config) *string { return &c.LogFile }),
	stringSetting("admin-user", "ADMIN_USER", "Пользователь админки, пусто - без аутентификации",
		func(c *config) *string { return &c.AdminUser }),
	stringSetting("admin-password-hash", "ADMIN_PASSWORD_HASH", "bcrypt-хеш пароля админки",
		func(c *config) *string { return &c.AdminPasswordHash }),
	stringSetting("cert-file", "TLS_CERT_FILE", "Файл TLS-сертификата",
		func(c *config) *string { return &c.CertFile }),
	stringSetting("key-file", "TLS_KEY_FILE", "Файл TLS-ключа",
		func(c *config) *string { return &c.KeyFile }),
}

func defaultConfig() *config {
	return &config{
		Port:           defaultServerPort,
		UploadDir:      defaultUploadDir,
		DatabaseDSN:    defaultDatabaseDSN,
		MaxUploadBytes: defaultMaxUploadBytes,
	}
}

// parseFlags собирает конфигурацию из args (без имени программы) и окружения.
func parseFlags(args []string, lookupEnv func(string) (string, bool)) (*config, error) {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	configPath := fs.String("config", "", fmt.Sprintf("YAML-файл конфигурации (env: %s)", envConfigFile))
	values := make(map[string]*string, len(settings))
	for _, s := range settings {
		values[s.flag] = fs.String(s.flag, "", fmt.Sprintf("%s (env: %s)", s.usage, s.env))
	}
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	cfg := defaultConfig()

	path := *configPath
	if path == "" {
		path, _ = lookupEnv(envConfigFile)
	}
	if path != "" {
		if err := loadConfigFile(path, cfg); err != nil {
			return nil, err
		}
	}

	for _, s := range settings {
		if v, ok := lookupEnv(s.env); ok {
			if err := s.apply(cfg, v); err != nil {
				return nil, fmt.Errorf("%s: %w", s.env, err)
			}
		}
	}

	var flagErr error
	fs.Visit(func(f *flag.Flag) {
		if flagErr != nil || f.Name == "config" {
			return
		}
		for _, s := range settings {
			if s.flag == f.Name {
				if err := s.apply(cfg, *values[s.flag]); err != nil {
					flagErr = fmt.Errorf("-%s: %w", s.flag, err)
				}
				return
			}
		}
	})
	if flagErr != nil {
		return nil, flagErr
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadConfigFile(path string, cfg *config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err = dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *config) validate() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("%w: %q", ErrInvalidPort, c.Port)
	}
	if c.UploadDir == "" {
		return ErrUploadDirRequired
	}
	if c.DatabaseDSN == "" {
		return ErrDatabaseDSNRequired
	}
	if c.MaxUploadBytes < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxUpload, c.MaxUploadBytes)
	}
	if (c.CertFile == "") != (c.KeyFile == "") {
		return ErrTLSIncomplete
	}
	if (c.AdminUser == "") != (c.AdminPasswordHash == "") {
		return ErrAdminAuthIncomplete
	}
	if c.AdminPasswordHash != "" {
		if _, err = bcrypt.Cost([]byte(c.AdminPasswordHash)); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidPasswordHash, err)
		}
	}
	return nil
}

// Ошибки конфигурации.
var (
	ErrInvalidPort         = errors.New("port must be a number between 1 and 65535")
	ErrUploadDirRequired   = errors.New("upload directory is required")
	ErrDatabaseDSNRequired = errors.New("database DSN is required")
	ErrInvalidMaxUpload    = errors.New("max upload bytes must be positive")
	ErrTLSIncomplete       = errors.New("TLS needs both certificate and key file")
	ErrAdminAuthIncomplete = errors.New("admin user and admin password hash must be set together")
	ErrInvalidPasswordHash = errors.New("admin password hash is not a bcrypt hash")
)
