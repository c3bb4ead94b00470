package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"

	"github.com/maynagashev/shotbox/internal/client"
	"github.com/maynagashev/shotbox/models"
)

// Экраны браузера.
type screenState int

const (
	listScreen   screenState = iota // Страница скриншотов
	searchScreen                    // Ввод поискового запроса
	detailScreen                    // Один скриншот
)

const (
	defaultListWidth  = 80
	defaultListHeight = 20
	headerHeight      = 4
	timeLayout        = "2006-01-02 15:04:05"

	keyQuit     = "q"
	keyForce    = "ctrl+c"
	keyNext     = "n"
	keyPrev     = "p"
	keySearch   = "/"
	keyRefresh  = "r"
	keyEnter    = "enter"
	keyEsc      = "esc"
	keyBack     = "b"
	keyClear    = "c"
	searchLimit = 128
)

//nolint:gochecknoglobals // Общие стили.
var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	labelStyle  = lipgloss.NewStyle().Bold(true).Width(10)
)

// screenshotItem адаптирует элемент листинга к list.Item.
type screenshotItem struct {
	shot models.ListedScreenshot
}

func (i screenshotItem) Title() string { return i.shot.Filename }

func (i screenshotItem) Description() string {
	return fmt.Sprintf("modified %s", i.shot.ModTime().Format(timeLayout))
}

func (i screenshotItem) FilterValue() string { return i.shot.Filename }

// pageLoadedMsg содержит загруженную страницу.
type pageLoadedMsg struct {
	page   int
	search string
	items  []models.ListedScreenshot
}

// errMsg сообщает об ошибке загрузки.
type errMsg struct {
	err error
}

// model хранит состояние браузера.
type model struct {
	state       screenState
	api         client.Client
	list        list.Model
	searchInput textinput.Model
	search      string // Примененный поисковый запрос
	page        int
	perPage     int
	loading     bool
	status      string
	err         error
	selected    *screenshotItem
}

// newModel создает браузер на первой странице без поиска.
func newModel(api client.Client, perPage int) *model {
	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(lipgloss.Color("212")).
		BorderLeftForeground(lipgloss.Color("212"))
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		BorderLeftForeground(lipgloss.Color("212"))

	l := list.New([]list.Item{}, delegate, defaultListWidth, defaultListHeight)
	l.SetShowTitle(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.SetShowStatusBar(false)
	l.DisableQuitKeybindings() // Выход обрабатываем сами

	ti := textinput.New()
	ti.Placeholder = "part of a filename"
	ti.CharLimit = searchLimit
	ti.Width = defaultListWidth - 10

	return &model{
		state:       listScreen,
		api:         api,
		list:        l,
		searchInput: ti,
		page:        1,
		perPage:     perPage,
		loading:     true,
	}
}
