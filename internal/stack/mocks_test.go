package stack

import (
	"github.com/stretchr/testify/mock"

	"github.com/stackpr/stackpr/internal/gh"
	"github.com/stackpr/stackpr/internal/git"
)

// MockGitClient is a mock implementation of GitClient.
type MockGitClient struct {
	mock.Mock
}

func (m *MockGitClient) GitRoot() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockGitClient) GetCurrentBranch() (string, error) {
	args := m.Called()
	return args.String(0), args.Error(1)
}

func (m *MockGitClient) GetCommitHash(ref string) (string, error) {
	args := m.Called(ref)
	return args.String(0), args.Error(1)
}

func (m *MockGitClient) IsAncestor(ancestor, descendant string) (bool, error) {
	args := m.Called(ancestor, descendant)
	return args.Bool(0), args.Error(1)
}

func (m *MockGitClient) GetCommits(base, head string) ([]git.Commit, error) {
	args := m.Called(base, head)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]git.Commit), args.Error(1)
}

func (m *MockGitClient) CommitTree(treeHash, parentHash, message string) (string, error) {
	args := m.Called(treeHash, parentHash, message)
	return args.String(0), args.Error(1)
}

func (m *MockGitClient) UpdateRef(branchName, commitHash string) error {
	args := m.Called(branchName, commitHash)
	return args.Error(0)
}

func (m *MockGitClient) ResetHard(ref string) error {
	args := m.Called(ref)
	return args.Error(0)
}

func (m *MockGitClient) Push(remote, branch string, force bool) error {
	args := m.Called(remote, branch, force)
	return args.Error(0)
}

func (m *MockGitClient) DeleteRemoteBranch(remote, branch string) error {
	args := m.Called(remote, branch)
	return args.Error(0)
}

// MockGithubClient is a mock implementation of GithubClient.
type MockGithubClient struct {
	mock.Mock
}

func (m *MockGithubClient) FindPRByMarker(marker string) (*gh.PR, error) {
	args := m.Called(marker)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gh.PR), args.Error(1)
}

func (m *MockGithubClient) CreatePR(spec gh.PRSpec) (*gh.PR, error) {
	args := m.Called(spec)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gh.PR), args.Error(1)
}

func (m *MockGithubClient) UpdatePRBase(number int, base string) error {
	args := m.Called(number, base)
	return args.Error(0)
}

func (m *MockGithubClient) UpdatePRMetadata(number int, title, body string) error {
	args := m.Called(number, title, body)
	return args.Error(0)
}

func (m *MockGithubClient) ClosePR(number int) error {
	args := m.Called(number)
	return args.Error(0)
}

func (m *MockGithubClient) MergePR(number int, subject, body string) error {
	args := m.Called(number, subject, body)
	return args.Error(0)
}
