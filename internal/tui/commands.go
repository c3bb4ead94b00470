package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	log "github.com/sirupsen/logrus"

	"github.com/maynagashev/shotbox/internal/client"
)

const requestTimeout = 10 * time.Second

// fetchPageCmd загружает одну страницу листинга в фоне.
func fetchPageCmd(api client.Client, search string, page, perPage int) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		items, err := api.List(ctx, client.ListParams{Search: search, Page: page, PerPage: perPage})
		if err != nil {
			log.Printf("[TUI:fetchPage] Ошибка загрузки страницы %d (поиск %q): %v", page, search, err)
			return errMsg{err: err}
		}
		log.Debugf("[TUI:fetchPage] Страница %d (поиск %q): %d элементов", page, search, len(items))
		return pageLoadedMsg{page: page, search: search, items: items}
	}
}
