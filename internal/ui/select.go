package ui

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/ktr0731/go-fuzzyfinder"

	"github.com/stackpr/stackpr/internal/model"
)

func init() {
	// Force lipgloss to initialize and detect terminal before fuzzy finder starts
	// This prevents ANSI escape sequences from leaking into the finder input
	_ = lipgloss.NewStyle().Render("")
	_ = lipgloss.HasDarkBackground()
}

// SelectEntry presents a fuzzy finder to select a tracked entry.
// Returns nil if the user cancelled the selection.
func SelectEntry(entries []*model.StackEntry) (*model.StackEntry, error) {
	os.Stdout.Sync()
	os.Stderr.Sync()

	idx, err := fuzzyfinder.Find(
		entries,
		func(i int) string {
			return fmt.Sprintf("#%d %s", entries[i].PRNumber, entries[i].Title)
		},
		fuzzyfinder.WithPreviewWindow(func(i, w, h int) string {
			if i == -1 {
				return ""
			}
			e := entries[i]
			return fmt.Sprintf(
				"PR #%d (%s)\n%s\n\nhead: %s\nbase: %s\nlast synced: %s",
				e.PRNumber, e.State, e.URL, e.HeadBranch, e.BaseBranch, e.LastSyncedHash,
			)
		}),
	)
	if err != nil {
		// User cancelled (Ctrl+C or ESC)
		return nil, nil
	}

	return entries[idx], nil
}
