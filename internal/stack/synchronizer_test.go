package stack

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/stackpr/stackpr/internal/gh"
	"github.com/stackpr/stackpr/internal/git"
	"github.com/stackpr/stackpr/internal/model"
)

// taggedCommit builds a commit whose message already carries an identity
// trailer, so a sync run never needs to rewrite history.
func taggedCommit(identity, parentHash, title, body string) git.Commit {
	msg := git.CommitMessage{
		Title:    title,
		Body:     body,
		Trailers: map[string]string{IdentityTrailer: identity},
	}
	return git.Commit{
		Hash:       "hash-" + identity,
		ParentHash: parentHash,
		TreeHash:   "tree-" + identity,
		Title:      title,
		Body:       body,
		Message:    msg.String(),
		Trailers:   msg.Trailers,
	}
}

type syncFixture struct {
	git   *MockGitClient
	gh    *MockGithubClient
	store *Store
	sync  *Synchronizer
}

func newSyncFixture(t *testing.T) *syncFixture {
	t.Helper()
	gitClient := new(MockGitClient)
	ghClient := new(MockGithubClient)
	store := NewStore(t.TempDir(), "main--feature")

	executor := NewExecutor(gitClient, ghClient, "origin")
	executor.backoff = time.Millisecond

	differ := &Differ{
		Mainline: "main",
		HeadBranch: func(identity string) string {
			return "user/stackpr/" + identity
		},
	}

	return &syncFixture{
		git:   gitClient,
		gh:    ghClient,
		store: store,
		sync:  NewSynchronizer(NewReader(gitClient), store, differ, executor, ghClient, "main", "feature"),
	}
}

func TestSync_FirstRunCreatesChainedPRs(t *testing.T) {
	f := newSyncFixture(t)

	c1 := taggedCommit("aaaaaaaaaaaaaaaa", "base-hash", "First change", "Body one.")
	c2 := taggedCommit("bbbbbbbbbbbbbbbb", c1.Hash, "Second change", "Body two.")
	c3 := taggedCommit("cccccccccccccccc", c2.Hash, "Third change", "")

	f.git.On("IsAncestor", "main", "feature").Return(true, nil)
	f.git.On("GetCommits", "main", "feature").Return([]git.Commit{c1, c2, c3}, nil)
	f.git.On("UpdateRef", mock.Anything, mock.Anything).Return(nil)
	f.git.On("Push", "origin", mock.Anything, true).Return(nil)

	f.gh.On("FindPRByMarker", mock.Anything).Return(nil, nil)
	for i, c := range []git.Commit{c1, c2, c3} {
		c := c
		number := i + 1
		f.gh.On("CreatePR", mock.MatchedBy(func(spec gh.PRSpec) bool {
			return spec.Title == c.Title
		})).Return(&gh.PR{Number: number, URL: fmt.Sprintf("https://example.com/pull/%d", number), State: "OPEN"}, nil)
	}
	// Shape changed, so every PR gets the cross-link table.
	f.gh.On("UpdatePRMetadata", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	result, err := f.sync.Sync(context.Background(), SyncOptions{})
	require.NoError(t, err)
	require.Nil(t, result.FailedStep)
	require.Len(t, result.Applied, 3)

	entries, err := f.store.Load()
	require.NoError(t, err)
	require.Len(t, entries, 3)

	a := entries["aaaaaaaaaaaaaaaa"]
	b := entries["bbbbbbbbbbbbbbbb"]
	c := entries["cccccccccccccccc"]
	require.NotNil(t, a)
	require.NotNil(t, b)
	require.NotNil(t, c)

	assert.Equal(t, "main", a.BaseBranch)
	assert.Equal(t, a.HeadBranch, b.BaseBranch)
	assert.Equal(t, b.HeadBranch, c.BaseBranch)
	for _, entry := range entries {
		assert.Equal(t, model.StateOpen, entry.State)
		assert.Equal(t, "hash-"+entry.Identity, entry.LastSyncedHash)
	}

	// Every open PR got its cross-link table.
	f.gh.AssertNumberOfCalls(t, "UpdatePRMetadata", 3)
}

func TestSync_PartialFailureKeepsAppliedResults(t *testing.T) {
	f := newSyncFixture(t)

	c1 := taggedCommit("aaaaaaaaaaaaaaaa", "base-hash", "First change", "")
	c2 := taggedCommit("bbbbbbbbbbbbbbbb", c1.Hash, "Second change", "")

	f.git.On("IsAncestor", "main", "feature").Return(true, nil)
	f.git.On("GetCommits", "main", "feature").Return([]git.Commit{c1, c2}, nil)
	f.git.On("UpdateRef", mock.Anything, mock.Anything).Return(nil)
	f.git.On("Push", "origin", mock.Anything, true).Return(nil)

	f.gh.On("FindPRByMarker", mock.Anything).Return(nil, nil)
	f.gh.On("CreatePR", mock.MatchedBy(func(spec gh.PRSpec) bool {
		return spec.Title == "First change"
	})).Return(&gh.PR{Number: 1, State: "OPEN"}, nil)
	f.gh.On("CreatePR", mock.MatchedBy(func(spec gh.PRSpec) bool {
		return spec.Title == "Second change"
	})).Return(nil, &gh.ConflictError{Reason: "a pull request for this branch already exists"})

	result, err := f.sync.Sync(context.Background(), SyncOptions{})
	require.Error(t, err)
	assert.True(t, IsConflict(err))
	require.NotNil(t, result.FailedStep)
	assert.Equal(t, "bbbbbbbbbbbbbbbb", result.FailedStep.Identity)
	assert.Len(t, result.Applied, 1)

	// The store reflects exactly what the remote confirmed.
	entries, err := f.store.Load()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries, "aaaaaaaaaaaaaaaa")
}

func TestSync_ResumeAfterPartialFailure(t *testing.T) {
	f := newSyncFixture(t)

	c1 := taggedCommit("aaaaaaaaaaaaaaaa", "base-hash", "First change", "")
	c2 := taggedCommit("bbbbbbbbbbbbbbbb", c1.Hash, "Second change", "")

	// State left behind by a run that died after creating PR #1.
	require.NoError(t, f.store.Save(map[string]*model.StackEntry{
		"aaaaaaaaaaaaaaaa": {
			Identity:       "aaaaaaaaaaaaaaaa",
			PRNumber:       1,
			HeadBranch:     "user/stackpr/aaaaaaaaaaaaaaaa",
			BaseBranch:     "main",
			State:          model.StateOpen,
			LastSyncedHash: c1.Hash,
			Title:          "First change",
			Body:           ComposeBody("", "aaaaaaaaaaaaaaaa"),
		},
	}))

	f.git.On("IsAncestor", "main", "feature").Return(true, nil)
	f.git.On("GetCommits", "main", "feature").Return([]git.Commit{c1, c2}, nil)
	f.git.On("UpdateRef", mock.Anything, mock.Anything).Return(nil)
	f.git.On("Push", "origin", mock.Anything, true).Return(nil)

	// The dead run also opened PR #2 before losing its store write; the
	// resume adopts it via the marker instead of duplicating.
	f.gh.On("FindPRByMarker", MarkerLine("bbbbbbbbbbbbbbbb")).Return(&gh.PR{
		Number: 2,
		State:  "OPEN",
		Base:   "user/stackpr/aaaaaaaaaaaaaaaa",
		Head:   "user/stackpr/bbbbbbbbbbbbbbbb",
		Title:  "Second change",
		Body:   ComposeBody("", "bbbbbbbbbbbbbbbb"),
	}, nil)
	f.gh.On("UpdatePRMetadata", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	result, err := f.sync.Sync(context.Background(), SyncOptions{})
	require.NoError(t, err)

	// First commit is a no-op; second adopts, no create.
	assert.Equal(t, 1, result.Plan.Count(StepNoOp))
	assert.Equal(t, 1, result.Plan.Count(StepCreatePR))
	f.gh.AssertNotCalled(t, "CreatePR", mock.Anything)

	entries, err := f.store.Load()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 2, entries["bbbbbbbbbbbbbbbb"].PRNumber)
}

func TestSync_DryRunIsReadOnly(t *testing.T) {
	f := newSyncFixture(t)

	c1 := taggedCommit("aaaaaaaaaaaaaaaa", "base-hash", "First change", "")
	untagged := git.Commit{
		Hash:       "hash-untagged",
		ParentHash: c1.Hash,
		TreeHash:   "tree-untagged",
		Title:      "Second change",
		Message:    "Second change\n",
		Trailers:   map[string]string{},
	}

	f.git.On("IsAncestor", "main", "feature").Return(true, nil)
	f.git.On("GetCommits", "main", "feature").Return([]git.Commit{c1, untagged}, nil)

	// A concurrent sync holds the lock; dry-run must not care.
	require.NoError(t, f.store.Lock())
	defer f.store.Unlock()

	result, err := f.sync.Sync(context.Background(), SyncOptions{DryRun: true})
	require.NoError(t, err)

	assert.False(t, result.Retagged)
	assert.Equal(t, 2, result.Plan.Count(StepCreatePR))
	assert.Equal(t, "", result.Records[1].Identity)

	// No history rewrites, no remote calls.
	f.git.AssertNotCalled(t, "CommitTree", mock.Anything, mock.Anything, mock.Anything)
	f.git.AssertNotCalled(t, "Push", mock.Anything, mock.Anything, mock.Anything)
}

func TestSync_LockHeldFailsFast(t *testing.T) {
	f := newSyncFixture(t)

	require.NoError(t, f.store.Lock())
	defer f.store.Unlock()

	_, err := f.sync.Sync(context.Background(), SyncOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "holds the lock")
}

func TestSync_MetadataUpdateKeepsCrossLinks(t *testing.T) {
	f := newSyncFixture(t)

	c1 := taggedCommit("aaaaaaaaaaaaaaaa", "base-hash", "First change", "Reworded body.")
	c2 := taggedCommit("bbbbbbbbbbbbbbbb", c1.Hash, "Second change", "Body two.")

	a := &model.StackEntry{
		Identity:       "aaaaaaaaaaaaaaaa",
		PRNumber:       1,
		HeadBranch:     "user/stackpr/aaaaaaaaaaaaaaaa",
		BaseBranch:     "main",
		State:          model.StateOpen,
		LastSyncedHash: c1.Hash,
		Title:          "First change",
	}
	b := &model.StackEntry{
		Identity:       "bbbbbbbbbbbbbbbb",
		PRNumber:       2,
		HeadBranch:     "user/stackpr/bbbbbbbbbbbbbbbb",
		BaseBranch:     "user/stackpr/aaaaaaaaaaaaaaaa",
		State:          model.StateOpen,
		LastSyncedHash: c2.Hash,
		Title:          "Second change",
	}
	ordered := []*model.StackEntry{a, b}
	a.Body = ComposeLinkedBody("Body one.", a.Identity, ComposeTOC(ordered, 1))
	b.Body = ComposeLinkedBody("Body two.", b.Identity, ComposeTOC(ordered, 2))
	require.NoError(t, f.store.Save(map[string]*model.StackEntry{a.Identity: a, b.Identity: b}))

	f.git.On("IsAncestor", "main", "feature").Return(true, nil)
	f.git.On("GetCommits", "main", "feature").Return([]git.Commit{c1, c2}, nil)

	f.gh.On("UpdatePRMetadata", 1, "First change", mock.MatchedBy(func(body string) bool {
		return strings.Contains(body, "Stacked PRs:") && strings.Contains(body, "Reworded body.")
	})).Return(nil)

	result, err := f.sync.Sync(context.Background(), SyncOptions{})
	require.NoError(t, err)

	// Only the reworded PR is touched; the shape is unchanged, so no
	// cross-link refresh pass runs on top.
	assert.Equal(t, 1, result.Plan.Count(StepUpdateMetadata))
	assert.False(t, result.Plan.ChangesShape())
	f.gh.AssertNumberOfCalls(t, "UpdatePRMetadata", 1)

	entries, err := f.store.Load()
	require.NoError(t, err)
	assert.Contains(t, entries["aaaaaaaaaaaaaaaa"].Body, "Stacked PRs:")
	assert.Contains(t, entries["aaaaaaaaaaaaaaaa"].Body, "Reworded body.")
	assert.Contains(t, entries["bbbbbbbbbbbbbbbb"].Body, "Stacked PRs:")
}

func TestSync_NoOpPlanSkipsCrossLinkRefresh(t *testing.T) {
	f := newSyncFixture(t)

	c1 := taggedCommit("aaaaaaaaaaaaaaaa", "base-hash", "First change", "Body one.")
	require.NoError(t, f.store.Save(map[string]*model.StackEntry{
		"aaaaaaaaaaaaaaaa": {
			Identity:       "aaaaaaaaaaaaaaaa",
			PRNumber:       1,
			HeadBranch:     "user/stackpr/aaaaaaaaaaaaaaaa",
			BaseBranch:     "main",
			State:          model.StateOpen,
			LastSyncedHash: c1.Hash,
			Title:          "First change",
			Body:           ComposeBody("Body one.", "aaaaaaaaaaaaaaaa"),
		},
	}))

	f.git.On("IsAncestor", "main", "feature").Return(true, nil)
	f.git.On("GetCommits", "main", "feature").Return([]git.Commit{c1}, nil)

	result, err := f.sync.Sync(context.Background(), SyncOptions{})
	require.NoError(t, err)

	assert.True(t, result.Plan.IsNoOp())
	f.gh.AssertNotCalled(t, "UpdatePRMetadata", mock.Anything, mock.Anything, mock.Anything)
}
