package abandon

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/stackpr/stackpr/internal/common"
	"github.com/stackpr/stackpr/internal/model"
	"github.com/stackpr/stackpr/internal/ui"
)

// Command closes tracked PRs and retires them from the stack
type Command struct {
	// Flags
	Pick   bool // Select a single entry instead of abandoning the whole stack
	Yes    bool // Skip the confirmation prompt
	Remote string
	Base   string
}

// Register registers the command with cobra
func (c *Command) Register(parent *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "abandon",
		Short: "Close tracked PRs and stop tracking the stack",
		Long: `Close every tracked PR of the current stack, delete its remote head
branch, and remove it from tracking. Local commits are left untouched,
including their Stack-Id trailers, so a later submit would recreate PRs
under the same identities.

Use --pick to abandon a single PR chosen interactively.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Run(cmd.Context())
		},
	}

	cmd.Flags().BoolVar(&c.Pick, "pick", false, "Interactively pick a single PR to abandon")
	cmd.Flags().BoolVarP(&c.Yes, "yes", "y", false, "Skip the confirmation prompt")
	cmd.Flags().StringVar(&c.Remote, "remote", "", "Remote to push to (default: stackpr.remote or origin)")
	cmd.Flags().StringVar(&c.Base, "base", "", "Mainline branch (default: stackpr.base or main)")

	parent.AddCommand(cmd)
}

// Run executes the command
func (c *Command) Run(ctx context.Context) error {
	engine, err := common.NewEngine(c.Remote, c.Base)
	if err != nil {
		return err
	}

	if err := engine.Store.Lock(); err != nil {
		return err
	}
	defer engine.Store.Unlock()

	entries, err := engine.Store.Load()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		ui.Info("No tracked PRs for this stack.")
		return nil
	}

	targets := orderedEntries(entries)
	if c.Pick {
		selected, err := ui.SelectEntry(targets)
		if err != nil {
			return err
		}
		if selected == nil {
			ui.Info("Cancelled.")
			return nil
		}
		targets = []*model.StackEntry{selected}
	}

	if !c.Yes {
		prompt := fmt.Sprintf("About to close %d PR(s). Type 'abandon' to confirm: ", len(targets))
		if !ui.Confirm(prompt, "abandon") {
			ui.Info("Cancelled.")
			return nil
		}
	}

	for _, entry := range targets {
		if entry.IsOpen() {
			if err := engine.GH.ClosePR(entry.PRNumber); err != nil {
				return fmt.Errorf("failed to close PR #%d: %w", entry.PRNumber, err)
			}
			_ = engine.Git.DeleteRemoteBranch(engine.Remote, entry.HeadBranch)
		}

		delete(entries, entry.Identity)
		if err := engine.Store.Save(entries); err != nil {
			return err
		}
		ui.Successf("Closed PR #%d: %s", entry.PRNumber, entry.Title)
	}

	return nil
}

// orderedEntries returns the entries sorted by PR number for stable output.
func orderedEntries(entries map[string]*model.StackEntry) []*model.StackEntry {
	out := make([]*model.StackEntry, 0, len(entries))
	for _, entry := range entries {
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].PRNumber < out[j].PRNumber
	})
	return out
}
