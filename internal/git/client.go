package git

import (
	"fmt"
	"os/exec"
	"strings"
)

// Client provides git operations for a repository. All operations shell
// out to the git CLI; the engine never links a git implementation.
type Client struct {
	gitRoot string
}

// NewClient creates a new git client for the current directory
func NewClient() (*Client, error) {
	return NewClientAt("")
}

// NewClientAt creates a git client rooted at the repository containing dir.
// An empty dir uses the process working directory.
func NewClientAt(dir string) (*Client, error) {
	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	if dir != "" {
		cmd.Dir = dir
	}
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("not in a git repository: %w", err)
	}
	return &Client{gitRoot: strings.TrimSpace(string(output))}, nil
}

// GitRoot returns the root directory of the git repository
func (c *Client) GitRoot() string {
	return c.gitRoot
}

func (c *Client) run(args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = c.gitRoot
	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("git %s: %w\n%s", args[0], err, strings.TrimSpace(string(output)))
	}
	return strings.TrimSpace(string(output)), nil
}

// GetCurrentBranch returns the name of the current git branch
func (c *Client) GetCurrentBranch() (string, error) {
	out, err := c.run("rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", fmt.Errorf("failed to get current branch: %w", err)
	}
	return out, nil
}

// GetCommitHash returns the commit hash for a given ref
func (c *Client) GetCommitHash(ref string) (string, error) {
	out, err := c.run("rev-parse", ref)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", ref, err)
	}
	return out, nil
}

// IsAncestor reports whether ancestor is reachable from descendant.
func (c *Client) IsAncestor(ancestor string, descendant string) (bool, error) {
	cmd := exec.Command("git", "merge-base", "--is-ancestor", ancestor, descendant)
	cmd.Dir = c.gitRoot
	err := cmd.Run()
	if err == nil {
		return true, nil
	}
	if exitErr, ok := err.(*exec.ExitError); ok && exitErr.ExitCode() == 1 {
		return false, nil
	}
	return false, fmt.Errorf("failed to check ancestry of %s..%s: %w", ancestor, descendant, err)
}

// GetCommits returns all commits reachable from head but not from base,
// oldest first, with messages parsed into title, body, and trailers.
func (c *Client) GetCommits(base string, head string) ([]Commit, error) {
	out, err := c.run("rev-list", "--reverse", fmt.Sprintf("%s..%s", base, head))
	if err != nil {
		return nil, fmt.Errorf("failed to list commits: %w", err)
	}
	if out == "" {
		return []Commit{}, nil
	}

	hashes := strings.Split(out, "\n")
	commits := make([]Commit, 0, len(hashes))
	for _, hash := range hashes {
		commit, err := c.GetCommit(hash)
		if err != nil {
			return nil, err
		}
		commits = append(commits, commit)
	}
	return commits, nil
}

// GetCommit returns a single commit with its parent, tree, and parsed message.
func (c *Client) GetCommit(ref string) (Commit, error) {
	hash, err := c.GetCommitHash(ref)
	if err != nil {
		return Commit{}, err
	}

	// %P is empty for root commits; stacks never contain one because the
	// range base is always an existing commit.
	header, err := c.run("show", "-s", "--format=%P%n%T", hash)
	if err != nil {
		return Commit{}, fmt.Errorf("failed to read commit %s: %w", hash, err)
	}
	parts := strings.SplitN(header, "\n", 2)
	parent := strings.Fields(parts[0])
	tree := ""
	if len(parts) == 2 {
		tree = strings.TrimSpace(parts[1])
	}

	cmd := exec.Command("git", "log", "--format=%B", "-n", "1", hash)
	cmd.Dir = c.gitRoot
	msg, err := cmd.Output()
	if err != nil {
		return Commit{}, fmt.Errorf("failed to read message of %s: %w", hash, err)
	}

	commit := ParseCommitMessage(hash, string(msg))
	if len(parent) > 0 {
		commit.ParentHash = parent[0]
	}
	commit.TreeHash = tree
	return commit, nil
}

// CommitTree creates a commit object from a tree with the given parent and
// message, without touching the index or working tree. Returns the new hash.
func (c *Client) CommitTree(treeHash string, parentHash string, message string) (string, error) {
	cmd := exec.Command("git", "commit-tree", treeHash, "-p", parentHash, "-F", "-")
	cmd.Dir = c.gitRoot
	cmd.Stdin = strings.NewReader(message)
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("failed to commit tree %s: %w", treeHash, err)
	}
	return strings.TrimSpace(string(output)), nil
}

// UpdateRef updates a branch reference to point to a specific commit
// without checking it out.
func (c *Client) UpdateRef(branchName string, commitHash string) error {
	if _, err := c.run("update-ref", "refs/heads/"+branchName, commitHash); err != nil {
		return fmt.Errorf("failed to update ref %s to %s: %w", branchName, commitHash, err)
	}
	return nil
}

// ResetHard resets the current branch to a specific ref
func (c *Client) ResetHard(ref string) error {
	if _, err := c.run("reset", "--hard", ref); err != nil {
		return fmt.Errorf("failed to reset to %s: %w", ref, err)
	}
	return nil
}

// BranchExists checks if a local branch exists
func (c *Client) BranchExists(name string) bool {
	cmd := exec.Command("git", "rev-parse", "--verify", "refs/heads/"+name)
	cmd.Dir = c.gitRoot
	return cmd.Run() == nil
}

// HasUncommittedChanges checks if there are any uncommitted changes in the
// working directory.
func (c *Client) HasUncommittedChanges() (bool, error) {
	out, err := c.run("status", "--porcelain")
	if err != nil {
		return false, fmt.Errorf("failed to check git status: %w", err)
	}
	return out != "", nil
}

// Push pushes a local branch to the remote, forcing when requested.
func (c *Client) Push(remote string, branch string, force bool) error {
	args := []string{"push", remote, fmt.Sprintf("%s:%s", branch, branch)}
	if force {
		args = append(args, "--force")
	}
	if _, err := c.run(args...); err != nil {
		return fmt.Errorf("failed to push branch %s: %w", branch, err)
	}
	return nil
}

// DeleteRemoteBranch deletes a branch on the remote.
func (c *Client) DeleteRemoteBranch(remote string, branch string) error {
	if _, err := c.run("push", remote, "--delete", branch); err != nil {
		return fmt.Errorf("failed to delete remote branch %s: %w", branch, err)
	}
	return nil
}

// GetConfig reads a git config value, returning fallback when unset.
func (c *Client) GetConfig(key string, fallback string) string {
	cmd := exec.Command("git", "config", "--get", key)
	cmd.Dir = c.gitRoot
	output, err := cmd.Output()
	if err != nil {
		return fallback
	}
	value := strings.TrimSpace(string(output))
	if value == "" {
		return fallback
	}
	return value
}

// Fetch fetches and prunes the given remote.
func (c *Client) Fetch(remote string) error {
	if _, err := c.run("fetch", "--prune", remote); err != nil {
		return fmt.Errorf("failed to fetch %s: %w", remote, err)
	}
	return nil
}
