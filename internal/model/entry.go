package model

import "time"

// EntryState is the last-known state of a tracked PR on GitHub.
type EntryState string

const (
	StateOpen   EntryState = "open"
	StateMerged EntryState = "merged"
	StateClosed EntryState = "closed"
)

// StackEntry is the persisted record of one tracked PR: the last-known
// synchronized state joining a commit identity to its PR.
type StackEntry struct {
	Identity   string     `json:"identity"`
	PRNumber   int        `json:"pr_number"`
	URL        string     `json:"url,omitempty"`
	HeadBranch string     `json:"head_branch"`
	BaseBranch string     `json:"base_branch"`
	State      EntryState `json:"state"`

	// LastSyncedHash is the commit hash whose content was last pushed to
	// the head branch. Advanced only after remote confirmation.
	LastSyncedHash string `json:"last_synced_hash,omitempty"`

	// Cached PR metadata as last pushed, used for diff-based updates so
	// unchanged PRs cost no API calls.
	Title string `json:"title,omitempty"`
	Body  string `json:"body,omitempty"`

	CreatedAt  time.Time `json:"created_at"`
	LastPushed time.Time `json:"last_pushed,omitempty"`
}

// IsOpen reports whether the entry's PR was open at the last sync.
func (e *StackEntry) IsOpen() bool {
	return e.State == StateOpen
}

// Clone returns a copy of the entry. Executor steps mutate copies so the
// store only ever sees confirmed state.
func (e *StackEntry) Clone() *StackEntry {
	clone := *e
	return &clone
}
