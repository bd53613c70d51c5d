package common

import (
	"fmt"

	"github.com/stackpr/stackpr/internal/gh"
	"github.com/stackpr/stackpr/internal/git"
	"github.com/stackpr/stackpr/internal/stack"
)

// Engine bundles the assembled synchronization components for the stack
// owned by the current branch.
type Engine struct {
	Git      *git.Client
	GH       *gh.Client
	Store    *stack.Store
	Executor *stack.Executor
	Sync     *stack.Synchronizer

	Remote   string
	Base     string
	Branch   string
	Username string
}

// NewEngine wires up the engine for the current repository and branch.
// Flag values take precedence over git config (stackpr.remote,
// stackpr.base), which falls back to origin/main.
func NewEngine(remoteFlag string, baseFlag string) (*Engine, error) {
	gitClient, ghClient, err := InitClients()
	if err != nil {
		return nil, err
	}

	remote := remoteFlag
	if remote == "" {
		remote = gitClient.GetConfig("stackpr.remote", "origin")
	}
	base := baseFlag
	if base == "" {
		base = gitClient.GetConfig("stackpr.base", "main")
	}

	if !gitClient.BranchExists(base) {
		return nil, fmt.Errorf("base branch %s does not exist locally; fetch it or set stackpr.base", base)
	}

	branch, err := gitClient.GetCurrentBranch()
	if err != nil {
		return nil, err
	}
	if branch == "HEAD" {
		return nil, fmt.Errorf("detached HEAD; check out the branch owning the stack first")
	}
	if branch == base {
		return nil, fmt.Errorf("currently on %s; check out the branch owning the stack first", base)
	}

	username, err := GetUsername(ghClient)
	if err != nil {
		return nil, err
	}

	store := stack.NewStore(gitClient.GitRoot(), stack.Namespace(base, branch))
	executor := stack.NewExecutor(gitClient, ghClient, remote)
	differ := &stack.Differ{
		Mainline: base,
		HeadBranch: func(identity string) string {
			return stack.HeadBranch(username, identity)
		},
	}
	sync := stack.NewSynchronizer(
		stack.NewReader(gitClient), store, differ, executor, ghClient, base, branch,
	)

	return &Engine{
		Git:      gitClient,
		GH:       ghClient,
		Store:    store,
		Executor: executor,
		Sync:     sync,
		Remote:   remote,
		Base:     base,
		Branch:   branch,
		Username: username,
	}, nil
}
