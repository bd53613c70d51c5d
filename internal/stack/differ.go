package stack

import (
	"sort"

	"github.com/stackpr/stackpr/internal/model"
)

// StepKind identifies one type of remote mutation.
type StepKind string

const (
	// StepCreatePR creates a PR for a commit with no tracked entry.
	StepCreatePR StepKind = "create-pr"
	// StepUpdateHead force-pushes changed commit content to the entry's
	// head branch.
	StepUpdateHead StepKind = "update-head"
	// StepRetargetBase points an existing PR at a new base branch.
	StepRetargetBase StepKind = "retarget-base"
	// StepUpdateMetadata updates a PR's title/description only.
	StepUpdateMetadata StepKind = "update-metadata"
	// StepCloseOrphan closes the PR of an entry whose commit left the
	// stack.
	StepCloseOrphan StepKind = "close-orphan"
	// StepNoOp records that an entry is already in sync.
	StepNoOp StepKind = "noop"
)

// Step is one planned remote mutation.
type Step struct {
	Kind     StepKind
	Identity string

	// Record is the local commit driving the step. Nil for close-orphan.
	Record *model.CommitRecord

	// Entry is the tracked entry the step applies to. Nil for create-pr
	// of a brand-new change.
	Entry *model.StackEntry

	// Head is the head branch the step operates on.
	Head string

	// Base is the required base branch (create-pr, retarget-base).
	Base string

	// Title and Body are the desired PR metadata (create-pr,
	// update-metadata).
	Title string
	Body  string

	Reason string
}

// Plan is the ordered transition from the last-known remote topology to the
// current local stack. Steps are ordered produces-before-consumes: a head
// branch is created or updated before any step retargets onto it, and
// orphans close last.
type Plan struct {
	Steps []Step
}

// IsNoOp reports whether the plan contains no remote mutations.
func (p *Plan) IsNoOp() bool {
	for _, step := range p.Steps {
		if step.Kind != StepNoOp {
			return false
		}
	}
	return true
}

// Count returns the number of steps of the given kind.
func (p *Plan) Count(kind StepKind) int {
	n := 0
	for _, step := range p.Steps {
		if step.Kind == kind {
			n++
		}
	}
	return n
}

// ChangesShape reports whether the plan alters stack topology (membership
// or base chain), which requires refreshing cross-links afterwards.
func (p *Plan) ChangesShape() bool {
	for _, step := range p.Steps {
		switch step.Kind {
		case StepCreatePR, StepRetargetBase, StepCloseOrphan:
			return true
		}
	}
	return false
}

// Differ computes the ordered transition plan between the previous remote
// topology and the current local stack. It only reads the entry set; the
// synchronizer commits mutations back after executor confirmation.
type Differ struct {
	// Mainline is the configured base branch of the bottom entry.
	Mainline string

	// HeadBranch names the head branch for a not-yet-tracked identity.
	HeadBranch func(identity string) string
}

// Diff matches records to entries by identity (a keyed join, not positional
// diffing, so reorders surface as retargets rather than create/close churn),
// then walks the local order assigning each entry its required base: the
// head branch of the previous record in the new order, or the mainline for
// the first.
func (d *Differ) Diff(records []model.CommitRecord, entries map[string]*model.StackEntry) Plan {
	var plan Plan
	matched := make(map[string]bool, len(records))
	requiredBase := d.Mainline

	for i := range records {
		record := &records[i]

		entry, tracked := entries[record.Identity]
		if record.Identity == "" || !tracked {
			// An untagged record (read-only pass) has no identity yet, so
			// its head branch name is unknown until the tagging submit.
			var head string
			if record.Tagged() {
				head = d.HeadBranch(record.Identity)
			}
			plan.Steps = append(plan.Steps, Step{
				Kind:     StepCreatePR,
				Identity: record.Identity,
				Record:   record,
				Head:     head,
				Base:     requiredBase,
				Title:    record.Title,
				Body:     record.Body,
				Reason:   "new change",
			})
			requiredBase = head
			continue
		}
		matched[record.Identity] = true

		emitted := false
		if record.Dirty {
			plan.Steps = append(plan.Steps, Step{
				Kind:     StepUpdateHead,
				Identity: record.Identity,
				Record:   record,
				Entry:    entry,
				Head:     entry.HeadBranch,
				Reason:   "commit changed",
			})
			emitted = true
		}
		if entry.BaseBranch != requiredBase {
			plan.Steps = append(plan.Steps, Step{
				Kind:     StepRetargetBase,
				Identity: record.Identity,
				Record:   record,
				Entry:    entry,
				Head:     entry.HeadBranch,
				Base:     requiredBase,
				Reason:   "base chain changed",
			})
			emitted = true
		}
		if desired := ComposeBody(record.Body, record.Identity); entry.Title != record.Title || !sameDescription(entry.Body, desired) {
			plan.Steps = append(plan.Steps, Step{
				Kind:     StepUpdateMetadata,
				Identity: record.Identity,
				Record:   record,
				Entry:    entry,
				Head:     entry.HeadBranch,
				Title:    record.Title,
				Body:     desired,
				Reason:   "metadata changed",
			})
			emitted = true
		}
		if !emitted {
			plan.Steps = append(plan.Steps, Step{
				Kind:     StepNoOp,
				Identity: record.Identity,
				Record:   record,
				Entry:    entry,
				Head:     entry.HeadBranch,
			})
		}

		requiredBase = entry.HeadBranch
	}

	// Entries whose identity left the local stack. Closed after all
	// retargets so no surviving PR still bases onto an orphan when its
	// branch goes away. Sorted for deterministic plans.
	var orphans []string
	for identity, entry := range entries {
		if !matched[identity] && entry.IsOpen() {
			orphans = append(orphans, identity)
		}
	}
	sort.Strings(orphans)
	for _, identity := range orphans {
		entry := entries[identity]
		plan.Steps = append(plan.Steps, Step{
			Kind:     StepCloseOrphan,
			Identity: identity,
			Entry:    entry,
			Head:     entry.HeadBranch,
			Reason:   "commit no longer in stack",
		})
	}

	return plan
}
