// Package tui реализует интерактивный браузер скриншотов shotctl.
package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/maynagashev/shotbox/internal/client"
)

// Run запускает браузер и блокируется до выхода пользователя.
func Run(api client.Client, perPage int) error {
	p := tea.NewProgram(newModel(api, perPage), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("browser failed: %w", err)
	}
	return nil
}
