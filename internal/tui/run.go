package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// Run starts the UI and blocks until the user quits.
// It reports whether the user logged out from inside the UI.
func Run(ctx context.Context, m Model) (bool, error) {
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil {
		return false, fmt.Errorf("terminal UI failed: %w", err)
	}
	if fm, ok := final.(Model); ok {
		return fm.LoggedOut(), nil
	}
	return false, nil
}
