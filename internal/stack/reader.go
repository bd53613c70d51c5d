package stack

import (
	"fmt"

	"github.com/stackpr/stackpr/internal/git"
	"github.com/stackpr/stackpr/internal/model"
)

// Reader walks the local commit range into an ordered sequence of tagged
// CommitRecords.
type Reader struct {
	git GitClient
}

// NewReader creates a reader over the given git client.
func NewReader(gitClient GitClient) *Reader {
	return &Reader{git: gitClient}
}

// ReadOptions controls a single read pass.
type ReadOptions struct {
	// Tag adopts untagged commits by amending an identity trailer into
	// them. This is the one place the engine rewrites local history;
	// read-only commands leave it off.
	Tag bool

	// Entries is the last-known remote topology, used to compute each
	// record's Dirty flag. May be nil.
	Entries map[string]*model.StackEntry
}

// Read returns the commits in baseRef..headRef, oldest first. When tagging
// is enabled, untagged commits get an identity trailer and the chain is
// rebuilt with commit-tree so earlier identities are settled before later
// commits are rewritten. Returns the records and whether local history was
// rewritten.
func (r *Reader) Read(baseRef string, headRef string, opts ReadOptions) ([]model.CommitRecord, bool, error) {
	ok, err := r.git.IsAncestor(baseRef, headRef)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, &git.RangeError{
			Base:   baseRef,
			Head:   headRef,
			Reason: "head is not a descendant of base; rebase onto the base branch first",
		}
	}

	commits, err := r.git.GetCommits(baseRef, headRef)
	if err != nil {
		return nil, false, err
	}
	if len(commits) == 0 {
		return nil, false, &git.RangeError{Base: baseRef, Head: headRef, Reason: "no commits in range"}
	}

	records := make([]model.CommitRecord, 0, len(commits))
	parent := commits[0].ParentHash
	rewritten := false
	seen := make(map[string]int, len(commits))

	for i, commit := range commits {
		message := commit.Message
		identity, tagged := ExtractIdentity(message)

		if !tagged && opts.Tag {
			message, identity, _ = EnsureIdentity(message)
		}

		hash := commit.Hash
		if opts.Tag && (message != commit.Message || parent != commit.ParentHash) {
			// Message or parent changed; rebuild the commit on the
			// rewritten chain without touching the working tree.
			hash, err = r.git.CommitTree(commit.TreeHash, parent, message)
			if err != nil {
				return nil, rewritten, fmt.Errorf("failed to rewrite commit %s: %w", commit.Hash, err)
			}
			rewritten = true
		}

		if identity != "" {
			if prev, dup := seen[identity]; dup {
				return nil, rewritten, &git.RangeError{
					Base:   baseRef,
					Head:   headRef,
					Reason: fmt.Sprintf("commits %d and %d share identity %s; squash or re-tag one of them", prev, i, identity),
				}
			}
			seen[identity] = i
		}

		records = append(records, model.CommitRecord{
			Identity:   identity,
			Hash:       hash,
			ParentHash: parent,
			Title:      commit.Title,
			Body:       commit.Body,
			Position:   i,
			Dirty:      isDirty(identity, hash, opts.Entries),
		})
		parent = hash
	}

	if rewritten {
		if err := r.moveHead(headRef, records[len(records)-1].Hash); err != nil {
			return nil, true, err
		}
	}

	return records, rewritten, nil
}

// isDirty reports whether a commit's content differs from the last synced
// state of its entry. A record with no prior entry is always dirty.
func isDirty(identity string, hash string, entries map[string]*model.StackEntry) bool {
	if identity == "" {
		return true
	}
	entry, ok := entries[identity]
	if !ok {
		return true
	}
	return entry.LastSyncedHash != hash
}

// moveHead points the stack's owning branch at the rewritten tip. The tree
// is unchanged by tagging, so resetting the checked-out branch is safe.
func (r *Reader) moveHead(headRef string, newTip string) error {
	branch := headRef
	current, err := r.git.GetCurrentBranch()
	if err != nil {
		return err
	}
	if branch == "HEAD" {
		branch = current
	}
	if branch == current {
		return r.git.ResetHard(newTip)
	}
	return r.git.UpdateRef(branch, newTip)
}
