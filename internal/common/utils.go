package common

import (
	"fmt"
	"os/user"

	"github.com/stackpr/stackpr/internal/gh"
	"github.com/stackpr/stackpr/internal/git"
	"github.com/stackpr/stackpr/internal/ui"
)

// InitClients initializes the git and GitHub clients.
// Returns an error suitable for use in PreRunE hooks.
func InitClients() (*git.Client, *gh.Client, error) {
	gitClient, err := git.NewClient()
	if err != nil {
		ui.Error("Not in a git repository")
		return nil, nil, fmt.Errorf("git client initialization failed: %w", err)
	}
	return gitClient, gh.NewClient(), nil
}

// GetUsername returns the GitHub login of the authenticated user, falling
// back to the OS user when gh is unavailable. Used for head branch naming.
func GetUsername(ghClient *gh.Client) (string, error) {
	if username, err := ghClient.GetUsername(); err == nil {
		return username, nil
	}
	u, err := user.Current()
	if err != nil {
		return "", fmt.Errorf("failed to determine username: %w", err)
	}
	return u.Username, nil
}
