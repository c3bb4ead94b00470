package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
)

// Init загружает первую страницу.
func (m *model) Init() tea.Cmd {
	return fetchPageCmd(m.api, m.search, m.page, m.perPage)
}

// Update обрабатывает входящие сообщения.
func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width, max(msg.Height-headerHeight, 1))
		m.searchInput.Width = max(msg.Width-10, 10)
		return m, nil

	case pageLoadedMsg:
		return m.handlePageLoaded(msg)

	case errMsg:
		m.loading = false
		m.err = msg.err
		return m, nil

	case tea.KeyMsg:
		if msg.String() == keyForce {
			return m, tea.Quit
		}
		switch m.state {
		case searchScreen:
			return m.updateSearchScreen(msg)
		case detailScreen:
			return m.updateDetailScreen(msg)
		default:
			return m.updateListScreen(msg)
		}
	}

	var cmd tea.Cmd
	if m.state == searchScreen {
		m.searchInput, cmd = m.searchInput.Update(msg)
		return m, cmd
	}
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *model) handlePageLoaded(msg pageLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.search != m.search {
		// Ответ на поиск, который уже заменен новым.
		return m, nil
	}
	m.loading = false
	m.err = nil

	if len(msg.items) == 0 && msg.page > 1 {
		m.status = "No more screenshots"
		return m, nil
	}

	m.page = msg.page
	items := make([]list.Item, len(msg.items))
	for i, shot := range msg.items {
		items[i] = screenshotItem{shot: shot}
	}
	cmd := m.list.SetItems(items)
	m.list.ResetSelected()
	m.status = fmt.Sprintf("%d on this page", len(items))
	return m, cmd
}

func (m *model) updateListScreen(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case keyQuit:
		return m, tea.Quit
	case keyNext:
		if m.loading {
			return m, nil
		}
		// Неполная страница - последняя
		if len(m.list.Items()) < m.perPage {
			m.status = "No more screenshots"
			return m, nil
		}
		return m.load(m.page + 1)
	case keyPrev:
		if m.loading {
			return m, nil
		}
		if m.page <= 1 {
			m.status = "Already on the first page"
			return m, nil
		}
		return m.load(m.page - 1)
	case keyRefresh:
		return m.load(m.page)
	case keySearch:
		m.state = searchScreen
		m.searchInput.SetValue(m.search)
		m.searchInput.CursorEnd()
		return m, m.searchInput.Focus()
	case keyClear:
		if m.search == "" {
			return m, nil
		}
		m.search = ""
		return m.load(1)
	case keyEnter:
		if item, ok := m.list.SelectedItem().(screenshotItem); ok {
			m.selected = &item
			m.state = detailScreen
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *model) updateSearchScreen(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case keyEnter:
		m.search = strings.TrimSpace(m.searchInput.Value())
		m.searchInput.Blur()
		m.state = listScreen
		return m.load(1)
	case keyEsc:
		m.searchInput.Blur()
		m.state = listScreen
		return m, nil
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

func (m *model) updateDetailScreen(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case keyQuit:
		return m, tea.Quit
	case keyEsc, keyBack, keyEnter:
		m.state = listScreen
		m.selected = nil
	}
	return m, nil
}

func (m *model) load(page int) (tea.Model, tea.Cmd) {
	m.loading = true
	m.status = ""
	return m, fetchPageCmd(m.api, m.search, page, m.perPage)
}
