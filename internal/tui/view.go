package tui

import (
	"fmt"
	"strings"
)

// View отрисовывает текущий экран.
func (m *model) View() string {
	var b strings.Builder

	header := fmt.Sprintf("shotbox · page %d", m.page)
	if m.search != "" {
		header += fmt.Sprintf(" · search %q", m.search)
	}
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n\n")

	switch m.state {
	case searchScreen:
		b.WriteString("Search: ")
		b.WriteString(m.searchInput.View())
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter apply · esc cancel"))
	case detailScreen:
		b.WriteString(m.viewDetailScreen())
	default:
		if len(m.list.Items()) == 0 && !m.loading {
			b.WriteString(statusStyle.Render("No screenshots found."))
			b.WriteString("\n")
		} else {
			b.WriteString(m.list.View())
			b.WriteString("\n")
		}
		b.WriteString(m.footer())
	}
	return b.String()
}

func (m *model) viewDetailScreen() string {
	if m.selected == nil {
		return ""
	}
	shot := m.selected.shot
	rows := []string{
		labelStyle.Render("Filename") + shot.Filename,
		labelStyle.Render("URL") + m.api.MediaURL(shot.URL),
		labelStyle.Render("Modified") + shot.ModTime().Format(timeLayout),
	}
	return strings.Join(rows, "\n") + "\n\n" + helpStyle.Render("esc back · q quit")
}

func (m *model) footer() string {
	var lines []string
	switch {
	case m.loading:
		lines = append(lines, statusStyle.Render("Loading..."))
	case m.err != nil:
		lines = append(lines, errorStyle.Render("Error: "+m.err.Error()))
	case m.status != "":
		lines = append(lines, statusStyle.Render(m.status))
	}
	lines = append(lines, helpStyle.Render("n next · p prev · / search · c clear · r refresh · enter details · q quit"))
	return strings.Join(lines, "\n")
}
