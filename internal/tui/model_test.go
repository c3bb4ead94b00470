package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maynagashev/shotbox/internal/client"
	"github.com/maynagashev/shotbox/models"
)

// fakeClient отдает фиксированный набор скриншотов с пагинацией и поиском как на сервере.
type fakeClient struct {
	shots []models.ListedScreenshot
	err   error
	calls []client.ListParams
}

func (f *fakeClient) Upload(context.Context, string, io.Reader) (*models.UploadResponse, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeClient) List(_ context.Context, p client.ListParams) ([]models.ListedScreenshot, error) {
	f.calls = append(f.calls, p)
	if f.err != nil {
		return nil, f.err
	}
	var matched []models.ListedScreenshot
	for _, s := range f.shots {
		if p.Search == "" || strings.Contains(strings.ToLower(s.Filename), strings.ToLower(p.Search)) {
			matched = append(matched, s)
		}
	}
	start := (p.Page - 1) * p.PerPage
	if start >= len(matched) {
		return []models.ListedScreenshot{}, nil
	}
	end := min(start+p.PerPage, len(matched))
	return matched[start:end], nil
}

func (f *fakeClient) Ping(context.Context) error { return nil }

func (f *fakeClient) MediaURL(path string) string { return "http://shots.test" + path }

func shots(n int) []models.ListedScreenshot {
	out := make([]models.ListedScreenshot, n)
	for i := range n {
		name := fmt.Sprintf("shot-%02d.png", i+1)
		out[i] = models.ListedScreenshot{
			Filename:     name,
			URL:          models.MediaURL(name),
			LastModified: float64(1700000000 - i*60),
		}
	}
	return out
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// step передает msg в m, выполняет полученную команду и передает ее результат обратно.
func step(t *testing.T, m *model, msg tea.Msg) *model {
	t.Helper()
	next, cmd := m.Update(msg)
	updated, ok := next.(*model)
	require.True(t, ok)
	if cmd == nil {
		return updated
	}
	if res := cmd(); res != nil {
		if _, isPage := res.(pageLoadedMsg); isPage {
			return step(t, updated, res)
		}
		if _, isErr := res.(errMsg); isErr {
			return step(t, updated, res)
		}
	}
	return updated
}

func loaded(t *testing.T, api *fakeClient, perPage int) *model {
	t.Helper()
	m := newModel(api, perPage)
	msg := m.Init()()
	return step(t, m, msg)
}

func TestModel_InitLoadsFirstPage(t *testing.T) {
	api := &fakeClient{shots: shots(5)}
	m := loaded(t, api, 2)

	assert.False(t, m.loading)
	assert.Equal(t, 1, m.page)
	require.Len(t, m.list.Items(), 2)
	assert.Equal(t, "shot-01.png", m.list.Items()[0].(screenshotItem).Title())
	assert.Equal(t, client.ListParams{Page: 1, PerPage: 2}, api.calls[0])
	assert.Contains(t, m.View(), "shot-01.png")
}

func TestModel_Paging(t *testing.T) {
	api := &fakeClient{shots: shots(5)}
	m := loaded(t, api, 2)

	m = step(t, m, keyRunes(keyNext))
	assert.Equal(t, 2, m.page)
	assert.Equal(t, "shot-03.png", m.list.Items()[0].(screenshotItem).Title())

	m = step(t, m, keyRunes(keyNext))
	assert.Equal(t, 3, m.page)
	require.Len(t, m.list.Items(), 1)

	// Неполная страница означает, что дальше ничего нет.
	calls := len(api.calls)
	m = step(t, m, keyRunes(keyNext))
	assert.Equal(t, 3, m.page)
	assert.Equal(t, "No more screenshots", m.status)
	assert.Len(t, api.calls, calls)

	m = step(t, m, keyRunes(keyPrev))
	assert.Equal(t, 2, m.page)

	m = step(t, m, keyRunes(keyPrev))
	m = step(t, m, keyRunes(keyPrev))
	assert.Equal(t, 1, m.page)
	assert.Equal(t, "Already on the first page", m.status)
}

func TestModel_EmptyPageKeepsCurrent(t *testing.T) {
	api := &fakeClient{shots: shots(4)}
	m := loaded(t, api, 2)
	m = step(t, m, keyRunes(keyNext))
	require.Equal(t, 2, m.page)

	m = step(t, m, keyRunes(keyNext))
	assert.Equal(t, 2, m.page)
	assert.Equal(t, "No more screenshots", m.status)
	assert.Len(t, m.list.Items(), 2)
}

func TestModel_Search(t *testing.T) {
	api := &fakeClient{shots: append(shots(3), models.ListedScreenshot{Filename: "Beach.jpg", URL: "/media/screenshots/Beach.jpg"})}
	m := loaded(t, api, 8)

	m = step(t, m, keyRunes(keySearch))
	require.Equal(t, searchScreen, m.state)
	assert.Contains(t, m.View(), "Search:")

	m = step(t, m, keyRunes("bea"))
	m = step(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, listScreen, m.state)
	assert.Equal(t, "bea", m.search)
	require.Len(t, m.list.Items(), 1)
	assert.Equal(t, "Beach.jpg", m.list.Items()[0].(screenshotItem).Title())
	assert.Equal(t, client.ListParams{Search: "bea", Page: 1, PerPage: 8}, api.calls[len(api.calls)-1])
	assert.Contains(t, m.View(), `search "bea"`)

	m = step(t, m, keyRunes(keyClear))
	assert.Empty(t, m.search)
	assert.Len(t, m.list.Items(), 4)
}

func TestModel_SearchCancel(t *testing.T) {
	api := &fakeClient{shots: shots(2)}
	m := loaded(t, api, 8)

	m = step(t, m, keyRunes(keySearch))
	m = step(t, m, keyRunes("zzz"))
	m = step(t, m, tea.KeyMsg{Type: tea.KeyEsc})

	assert.Equal(t, listScreen, m.state)
	assert.Empty(t, m.search)
	assert.Len(t, api.calls, 1)
}

func TestModel_StaleSearchResultIgnored(t *testing.T) {
	api := &fakeClient{shots: shots(3)}
	m := loaded(t, api, 8)
	m.search = "new"

	next, _ := m.Update(pageLoadedMsg{page: 1, search: "old", items: shots(1)})
	m = next.(*model)
	assert.Len(t, m.list.Items(), 3)
}

func TestModel_Detail(t *testing.T) {
	api := &fakeClient{shots: shots(2)}
	m := loaded(t, api, 8)

	m = step(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, detailScreen, m.state)
	view := m.View()
	assert.Contains(t, view, "shot-01.png")
	assert.Contains(t, view, "http://shots.test/media/screenshots/shot-01.png")

	m = step(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, listScreen, m.state)
	assert.Nil(t, m.selected)
}

func TestModel_Error(t *testing.T) {
	api := &fakeClient{err: errors.New("connection refused")}
	m := loaded(t, api, 8)

	assert.False(t, m.loading)
	require.Error(t, m.err)
	assert.Contains(t, m.View(), "connection refused")
}

func TestModel_Quit(t *testing.T) {
	m := loaded(t, &fakeClient{}, 8)

	for _, key := range []tea.KeyMsg{keyRunes(keyQuit), {Type: tea.KeyCtrlC}} {
		_, cmd := m.Update(key)
		require.NotNil(t, cmd)
		assert.IsType(t, tea.QuitMsg{}, cmd())
	}
	assert.Contains(t, m.View(), "No screenshots found.")
}

func TestModel_WindowResize(t *testing.T) {
	m := loaded(t, &fakeClient{shots: shots(1)}, 8)

	m = step(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	assert.Equal(t, 120, m.list.Width())
	assert.Equal(t, 40-headerHeight, m.list.Height())
}
