package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/maynagashev/shotbox/internal/client"
	"github.com/maynagashev/shotbox/internal/tui"
	"github.com/maynagashev/shotbox/models"
)

const (
	defaultBrowsePerPage = 8
	timeLayout           = "2006-01-02 15:04:05"
)

var errEmptyPassword = errors.New("password must not be empty")

//nolint:gochecknoglobals // Стили таблицы.
var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

// runUpload загружает каждый файл из args по очереди.
func runUpload(ctx context.Context, args []string, e env, api client.Client) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: upload needs at least one file", errUsage)
	}
	for _, path := range args {
		resp, err := uploadFile(ctx, api, path)
		if err != nil {
			return err
		}
		fmt.Fprintf(e.stdout, "%s: %s\n", resp.Message, api.MediaURL(resp.URL))
	}
	return nil
}

func uploadFile(ctx context.Context, api client.Client, path string) (*models.UploadResponse, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	resp, err := api.Upload(ctx, filepath.Base(path), f)
	if err != nil {
		log.WithError(err).WithField("path", path).Error("[shotctl:upload] Ошибка загрузки")
		return nil, fmt.Errorf("upload %s: %w", path, err)
	}
	log.WithField("url", resp.URL).Info("[shotctl:upload] Файл загружен")
	return resp, nil
}

// runList выводит одну страницу листинга таблицей.
func runList(ctx context.Context, args []string, e env, api client.Client) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	search := fs.String("search", "", "Подстрока имени без учета регистра")
	page := fs.Int("page", 1, "Номер страницы")
	perPage := fs.Int("per-page", 0, "Элементов на странице (0 - значение сервера)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *page < 1 || *perPage < 0 {
		return fmt.Errorf("%w: page must be positive and per-page not negative", errUsage)
	}

	items, err := api.List(ctx, client.ListParams{Search: *search, Page: *page, PerPage: *perPage})
	if err != nil {
		return fmt.Errorf("list screenshots: %w", err)
	}
	if len(items) == 0 {
		fmt.Fprintln(e.stdout, "No screenshots found.")
		return nil
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers("FILENAME", "MODIFIED", "URL")
	for _, item := range items {
		t.Row(item.Filename, item.ModTime().Format(timeLayout), api.MediaURL(item.URL))
	}
	fmt.Fprintln(e.stdout, t.String())
	return nil
}

// runBrowse проверяет доступность сервера и запускает TUI.
func runBrowse(ctx context.Context, args []string, e env, api client.Client) error {
	fs := flag.NewFlagSet("browse", flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	perPage := fs.Int("per-page", defaultBrowsePerPage, "Элементов на странице")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *perPage < 1 {
		return fmt.Errorf("%w: per-page must be positive", errUsage)
	}
	if err := api.Ping(ctx); err != nil {
		return fmt.Errorf("server not reachable: %w", err)
	}
	return tui.Run(api, *perPage)
}

// runHashPassword читает пароль из первой строки stdin.
func runHashPassword(args []string, e env) error {
	fs := flag.NewFlagSet("hash-password", flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	cost := fs.Int("cost", bcrypt.DefaultCost, "Стоимость bcrypt")
	if err := fs.Parse(args); err != nil {
		return err
	}

	line, err := bufio.NewReader(e.stdin).ReadString('\n')
	if err != nil && line == "" {
		return fmt.Errorf("read password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return errEmptyPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), *cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	fmt.Fprintln(e.stdout, string(hash))
	return nil
}
