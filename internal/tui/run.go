// Package tui implements the interactive photo review browser.
package tui

import (
	"context"
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
)

// Run starts the photo browser and blocks until the user quits or the
// context is canceled.
func Run(ctx context.Context, cfg Config) error {
	if cfg.Storage == nil {
		return fmt.Errorf("storage is required")
	}

	// Restore terminal to normal state on any exit.
	// Ignore errors as this is best-effort cleanup.
	cleanupTerminal := func() {
		_, _ = os.Stdout.Write([]byte("\033[?1049l")) // Exit alternate screen
		_, _ = os.Stdout.Write([]byte("\033[?25h"))   // Show cursor
		_, _ = os.Stdout.Write([]byte("\033[m"))      // Reset colors
	}
	defer cleanupTerminal()

	program := tea.NewProgram(
		newModel(ctx, cfg),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	if _, err := program.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("photo browser failed: %w", err)
	}
	return nil
}
