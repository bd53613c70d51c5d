package stack

import (
	"github.com/stackpr/stackpr/internal/gh"
	"github.com/stackpr/stackpr/internal/git"
)

// GitClient defines the local repository operations the engine needs.
// *git.Client implements it; tests substitute mocks.
type GitClient interface {
	GitRoot() string
	GetCurrentBranch() (string, error)
	GetCommitHash(ref string) (string, error)
	IsAncestor(ancestor, descendant string) (bool, error)
	GetCommits(base, head string) ([]git.Commit, error)
	CommitTree(treeHash, parentHash, message string) (string, error)
	UpdateRef(branchName, commitHash string) error
	ResetHard(ref string) error
	Push(remote, branch string, force bool) error
	DeleteRemoteBranch(remote, branch string) error
}

// GithubClient defines the remote host operations the engine needs.
// *gh.Client implements it; tests substitute mocks.
type GithubClient interface {
	FindPRByMarker(marker string) (*gh.PR, error)
	CreatePR(spec gh.PRSpec) (*gh.PR, error)
	UpdatePRBase(number int, base string) error
	UpdatePRMetadata(number int, title, body string) error
	ClosePR(number int) error
	MergePR(number int, subject, body string) error
}
