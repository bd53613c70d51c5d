package stack

import (
	"context"
	"errors"
	"fmt"

	"github.com/stackpr/stackpr/internal/gh"
	"github.com/stackpr/stackpr/internal/model"
)

// Synchronizer orchestrates one synchronization run: read the local stack,
// load the tracked entries, diff, execute the plan in order, and persist
// confirmed results. The store always reflects exactly the remote mutations
// that actually succeeded, so a re-run resumes from true state.
type Synchronizer struct {
	reader   *Reader
	store    *Store
	differ   *Differ
	executor *Executor
	gh       GithubClient

	baseRef string
	headRef string
}

// SyncOptions controls a synchronization run.
type SyncOptions struct {
	// DryRun computes and returns the plan without tagging commits,
	// taking the lock, or executing any remote mutation.
	DryRun bool
}

// SyncResult reports the outcome of a run. On failure it still carries the
// plan and the results applied before the failing step.
type SyncResult struct {
	Records  []model.CommitRecord
	Entries  map[string]*model.StackEntry
	Plan     Plan
	Applied  []StepResult
	Retagged bool

	// FailedStep is set when execution aborted partway through the plan.
	FailedStep *Step
}

// NewSynchronizer assembles the engine for one stack: commits in
// baseRef..headRef, entries persisted in store, mutations pushed via
// executor.
func NewSynchronizer(reader *Reader, store *Store, differ *Differ, executor *Executor, ghClient GithubClient, baseRef, headRef string) *Synchronizer {
	return &Synchronizer{
		reader:   reader,
		store:    store,
		differ:   differ,
		executor: executor,
		gh:       ghClient,
		baseRef:  baseRef,
		headRef:  headRef,
	}
}

// Sync runs one synchronization. Steps execute strictly in plan order; the
// first conflict aborts the remaining steps while already-applied results
// stay persisted. Partial success is a valid terminal state.
func (s *Synchronizer) Sync(ctx context.Context, opts SyncOptions) (*SyncResult, error) {
	if !opts.DryRun {
		if err := s.store.Lock(); err != nil {
			return nil, err
		}
		defer s.store.Unlock()
	}

	entries, err := s.store.Load()
	if err != nil {
		return nil, err
	}

	records, retagged, err := s.reader.Read(s.baseRef, s.headRef, ReadOptions{
		Tag:     !opts.DryRun,
		Entries: entries,
	})
	if err != nil {
		return nil, err
	}

	result := &SyncResult{
		Records:  records,
		Entries:  entries,
		Plan:     s.differ.Diff(records, entries),
		Retagged: retagged,
	}
	if opts.DryRun {
		return result, nil
	}

	for i := range result.Plan.Steps {
		step := result.Plan.Steps[i]

		stepResult, err := s.executor.Execute(ctx, step)
		if err != nil {
			result.FailedStep = &result.Plan.Steps[i]
			return result, fmt.Errorf("step %s for %s failed: %w", step.Kind, describeStep(step), err)
		}

		result.Applied = append(result.Applied, *stepResult)
		s.commit(entries, stepResult)

		// Persist after every confirmed step so an interrupt leaves the
		// store consistent with what the remote actually saw.
		if err := s.store.Save(entries); err != nil {
			return result, err
		}
	}

	if result.Plan.ChangesShape() {
		if err := s.refreshCrossLinks(ctx, records, entries); err != nil {
			return result, err
		}
		if err := s.store.Save(entries); err != nil {
			return result, err
		}
	}

	return result, nil
}

// commit folds a confirmed step result into the in-memory entry set.
func (s *Synchronizer) commit(entries map[string]*model.StackEntry, res *StepResult) {
	if res.Entry == nil {
		return
	}
	if res.Closed {
		delete(entries, res.Entry.Identity)
		return
	}
	entries[res.Entry.Identity] = res.Entry
}

// refreshCrossLinks rewrites the "Stacked PRs" table in every open PR of
// the stack after its shape changed. Bodies that already match are skipped.
func (s *Synchronizer) refreshCrossLinks(ctx context.Context, records []model.CommitRecord, entries map[string]*model.StackEntry) error {
	ordered := make([]*model.StackEntry, 0, len(records))
	for i := range records {
		if entry, ok := entries[records[i].Identity]; ok && entry.IsOpen() {
			ordered = append(ordered, entry)
		}
	}

	for i := range records {
		record := &records[i]
		entry, ok := entries[record.Identity]
		if !ok || !entry.IsOpen() {
			continue
		}

		toc := ComposeTOC(ordered, entry.PRNumber)
		full := ComposeLinkedBody(record.Body, record.Identity, toc)
		if full == entry.Body && record.Title == entry.Title {
			continue
		}

		err := s.executor.withRetry(ctx, func() error {
			return s.gh.UpdatePRMetadata(entry.PRNumber, record.Title, full)
		})
		if err != nil {
			return fmt.Errorf("failed to refresh cross-links on PR #%d: %w", entry.PRNumber, err)
		}
		entry.Title = record.Title
		entry.Body = full
	}
	return nil
}

func describeStep(step Step) string {
	if step.Entry != nil && step.Entry.PRNumber > 0 {
		return fmt.Sprintf("PR #%d (identity %s)", step.Entry.PRNumber, step.Identity)
	}
	return fmt.Sprintf("identity %s", step.Identity)
}

// IsConflict reports whether err is a semantic remote conflict requiring
// user action.
func IsConflict(err error) bool {
	var conflict *gh.ConflictError
	return errors.As(err, &conflict)
}
