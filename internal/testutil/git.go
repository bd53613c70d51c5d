package testutil

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stackpr/stackpr/internal/git"
)

// NewTestGitClient creates a git client in a temporary repository with an
// initial commit on main.
func NewTestGitClient(t *testing.T) *git.Client {
	t.Helper()
	tempDir := t.TempDir()

	runGit(t, tempDir, "init", "--initial-branch=main")
	runGit(t, tempDir, "config", "user.email", "test@example.com")
	runGit(t, tempDir, "config", "user.name", "Test User")

	gitClient, err := git.NewClientAt(tempDir)
	require.NoError(t, err)

	CreateCommit(t, gitClient, "Initial commit", "", nil)

	return gitClient
}

// CreateCommit creates a commit with the given title, body, and trailers,
// writing a uniquely named file so every commit has a distinct tree.
func CreateCommit(t *testing.T, gitClient *git.Client, title, body string, trailers map[string]string) string {
	t.Helper()

	msg := git.CommitMessage{
		Title:    title,
		Body:     body,
		Trailers: trailers,
	}

	name := strings.Map(func(r rune) rune {
		if r == '/' || r == ' ' {
			return '-'
		}
		return r
	}, title)
	testFile := filepath.Join(gitClient.GitRoot(), fmt.Sprintf("file-%s.txt", name))
	err := os.WriteFile(testFile, fmt.Appendf(nil, "%s\n%s", title, body), 0644)
	require.NoError(t, err)

	runGit(t, gitClient.GitRoot(), "add", ".")
	runGit(t, gitClient.GitRoot(), "commit", "-m", msg.String())

	hash, err := gitClient.GetCommitHash("HEAD")
	require.NoError(t, err)
	return hash
}

// CheckoutNewBranch creates and checks out a branch.
func CheckoutNewBranch(t *testing.T, gitClient *git.Client, name string) {
	t.Helper()
	runGit(t, gitClient.GitRoot(), "checkout", "-b", name)
}

func runGit(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_DATE=2024-01-01T00:00:00Z",
		"GIT_COMMITTER_DATE=2024-01-01T00:00:00Z",
	)
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %s failed: %s", strings.Join(args, " "), string(output))
}
