package stack

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/stackpr/stackpr/internal/gh"
	"github.com/stackpr/stackpr/internal/model"
)

const (
	defaultMaxAttempts = 3
	defaultBackoff     = 500 * time.Millisecond
)

// StepResult is the confirmed outcome of one executed plan step.
type StepResult struct {
	Step Step

	// Entry is the entry state after the step, confirmed by the remote.
	// Nil only for a no-op on an untracked record (never produced by the
	// differ).
	Entry *model.StackEntry

	// Created reports that the step created a new PR rather than
	// adopting or updating one.
	Created bool

	// Closed reports that the entry's PR was closed and the entry should
	// be retired from the store.
	Closed bool
}

// Executor applies plan steps against the remote host. Each step is
// individually retryable: transient remote failures are retried with
// jittered backoff within a bounded budget, semantic conflicts surface
// immediately.
type Executor struct {
	git    GitClient
	gh     GithubClient
	remote string

	// Draft creates new PRs as drafts.
	Draft bool

	maxAttempts int
	backoff     time.Duration
}

// NewExecutor creates an executor pushing to the given remote.
func NewExecutor(gitClient GitClient, ghClient GithubClient, remote string) *Executor {
	return &Executor{
		git:         gitClient,
		gh:          ghClient,
		remote:      remote,
		maxAttempts: defaultMaxAttempts,
		backoff:     defaultBackoff,
	}
}

// Execute applies a single plan step and returns its confirmed result.
// Entry mutations happen on a copy and only after the remote acknowledged
// the operation, so a cancelled run never persists unconfirmed state.
func (e *Executor) Execute(ctx context.Context, step Step) (*StepResult, error) {
	switch step.Kind {
	case StepCreatePR:
		return e.createPR(ctx, step)
	case StepUpdateHead:
		return e.updateHead(ctx, step)
	case StepRetargetBase:
		return e.retargetBase(ctx, step)
	case StepUpdateMetadata:
		return e.updateMetadata(ctx, step)
	case StepCloseOrphan:
		return e.closeOrphan(ctx, step)
	case StepNoOp:
		return &StepResult{Step: step, Entry: step.Entry}, nil
	default:
		return nil, fmt.Errorf("unknown plan step kind %q", step.Kind)
	}
}

// createPR pushes the commit to a fresh head branch and opens a PR for it.
// Check-before-act: an open PR already carrying the identity marker (left
// by a previous partial run) is adopted instead of duplicated.
func (e *Executor) createPR(ctx context.Context, step Step) (*StepResult, error) {
	var existing *gh.PR
	err := e.withRetry(ctx, func() error {
		var findErr error
		existing, findErr = e.gh.FindPRByMarker(MarkerLine(step.Identity))
		return findErr
	})
	if err != nil {
		return nil, err
	}

	if err := e.pushHead(ctx, step.Head, step.Record.Hash); err != nil {
		return nil, err
	}

	now := time.Now()
	if existing != nil {
		// Adopt: converge the recovered PR on the planned topology.
		entry := &model.StackEntry{
			Identity:   step.Identity,
			PRNumber:   existing.Number,
			URL:        existing.URL,
			HeadBranch: step.Head,
			BaseBranch: existing.Base,
			State:      model.StateOpen,
			CreatedAt:  existing.CreatedAt,
		}
		if existing.Base != step.Base {
			if err := e.withRetry(ctx, func() error {
				return e.gh.UpdatePRBase(existing.Number, step.Base)
			}); err != nil {
				return nil, err
			}
			entry.BaseBranch = step.Base
		}
		entry.LastSyncedHash = step.Record.Hash
		entry.Title = existing.Title
		entry.Body = existing.Body
		entry.LastPushed = now
		return &StepResult{Step: step, Entry: entry}, nil
	}

	spec := gh.PRSpec{
		Title: step.Title,
		Body:  ComposeBody(step.Body, step.Identity),
		Base:  step.Base,
		Head:  step.Head,
		Draft: e.Draft,
	}
	var pr *gh.PR
	if err := e.withRetry(ctx, func() error {
		var createErr error
		pr, createErr = e.gh.CreatePR(spec)
		return createErr
	}); err != nil {
		return nil, err
	}

	entry := &model.StackEntry{
		Identity:       step.Identity,
		PRNumber:       pr.Number,
		URL:            pr.URL,
		HeadBranch:     step.Head,
		BaseBranch:     step.Base,
		State:          model.StateOpen,
		LastSyncedHash: step.Record.Hash,
		Title:          spec.Title,
		Body:           spec.Body,
		CreatedAt:      pr.CreatedAt,
		LastPushed:     now,
	}
	return &StepResult{Step: step, Entry: entry, Created: true}, nil
}

// updateHead force-pushes the current commit content to the entry's head
// branch. LastSyncedHash advances only after the push is acknowledged.
func (e *Executor) updateHead(ctx context.Context, step Step) (*StepResult, error) {
	if err := e.pushHead(ctx, step.Head, step.Record.Hash); err != nil {
		return nil, err
	}

	entry := step.Entry.Clone()
	entry.LastSyncedHash = step.Record.Hash
	entry.LastPushed = time.Now()
	return &StepResult{Step: step, Entry: entry}, nil
}

func (e *Executor) retargetBase(ctx context.Context, step Step) (*StepResult, error) {
	if err := e.withRetry(ctx, func() error {
		return e.gh.UpdatePRBase(step.Entry.PRNumber, step.Base)
	}); err != nil {
		return nil, e.withIdentity(step, err)
	}

	entry := step.Entry.Clone()
	entry.BaseBranch = step.Base
	return &StepResult{Step: step, Entry: entry}, nil
}

func (e *Executor) updateMetadata(ctx context.Context, step Step) (*StepResult, error) {
	// The step body carries only description and marker; keep the PR's
	// existing cross-link table, which is still correct because a
	// metadata-only change never alters stack shape.
	body := ExtractTOC(step.Entry.Body) + step.Body
	if err := e.withRetry(ctx, func() error {
		return e.gh.UpdatePRMetadata(step.Entry.PRNumber, step.Title, body)
	}); err != nil {
		return nil, e.withIdentity(step, err)
	}

	entry := step.Entry.Clone()
	entry.Title = step.Title
	entry.Body = body
	return &StepResult{Step: step, Entry: entry}, nil
}

// closeOrphan closes the PR of a dropped commit and deletes its remote
// head branch. Branch deletion is best-effort: the PR being closed is what
// matters for topology.
func (e *Executor) closeOrphan(ctx context.Context, step Step) (*StepResult, error) {
	if err := e.withRetry(ctx, func() error {
		return e.gh.ClosePR(step.Entry.PRNumber)
	}); err != nil {
		return nil, e.withIdentity(step, err)
	}

	_ = e.git.DeleteRemoteBranch(e.remote, step.Entry.HeadBranch)

	entry := step.Entry.Clone()
	entry.State = model.StateClosed
	return &StepResult{Step: step, Entry: entry, Closed: true}, nil
}

// pushHead points the remote head branch at the commit. Push failures are
// remote failures and retried like any other remote call.
func (e *Executor) pushHead(ctx context.Context, branch string, hash string) error {
	if err := e.git.UpdateRef(branch, hash); err != nil {
		return fmt.Errorf("failed to update branch %s: %w", branch, err)
	}
	return e.withRetry(ctx, func() error {
		if err := e.git.Push(e.remote, branch, true); err != nil {
			return &gh.RemoteError{Op: "push " + branch, Cause: err}
		}
		return nil
	})
}

// withRetry runs fn, retrying transient remote failures with exponential
// jittered backoff within the attempt budget. Conflicts and local errors
// pass through untouched.
func (e *Executor) withRetry(ctx context.Context, fn func() error) error {
	var lastErr error
	delay := e.backoff

	for attempt := 0; attempt < e.maxAttempts; attempt++ {
		if attempt > 0 {
			var jitter time.Duration
			if half := int64(delay / 2); half > 0 {
				jitter = time.Duration(rand.Int63n(half))
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay + jitter):
			}
			delay *= 2
		}

		err := fn()
		if err == nil {
			return nil
		}
		var remoteErr *gh.RemoteError
		if !errors.As(err, &remoteErr) {
			return err
		}
		lastErr = err
	}
	return lastErr
}

// withIdentity stamps a conflict with the entry it concerns so failures are
// reported against a specific change.
func (e *Executor) withIdentity(step Step, err error) error {
	var conflict *gh.ConflictError
	if errors.As(err, &conflict) && conflict.Identity == "" {
		conflict.Identity = step.Identity
	}
	return err
}
