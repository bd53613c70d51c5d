package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/stackpr/stackpr/internal/model"
	"github.com/stackpr/stackpr/internal/stack"
)

// Truncate truncates text to maxLen with an ellipsis if needed.
// Uses lipgloss for ANSI-aware width handling.
func Truncate(text string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if lipgloss.Width(text) <= maxLen {
		return text
	}
	if maxLen <= 3 {
		return lipgloss.NewStyle().MaxWidth(maxLen).Render(text)
	}
	return lipgloss.NewStyle().MaxWidth(maxLen-3).Render(text) + "..."
}

// RenderStack renders the current local stack with each change's tracked
// PR state, newest change first.
func RenderStack(records []model.CommitRecord, entries map[string]*model.StackEntry) string {
	var b strings.Builder
	maxTitle := GetTerminalWidth() - 40

	for i := len(records) - 1; i >= 0; i-- {
		record := records[i]
		title := Truncate(record.Title, maxTitle)

		entry := entries[record.Identity]
		switch {
		case !record.Tagged():
			fmt.Fprintf(&b, "  %d. %s %s %s\n",
				record.Position+1, StatusLocalStyle.Render("untagged"), title, Dim("(will be tagged on submit)"))
		case entry == nil:
			fmt.Fprintf(&b, "  %d. %s %s\n",
				record.Position+1, StatusLocalStyle.Render("local"), title)
		default:
			badge := GetStatusStyle(string(entry.State)).Render(fmt.Sprintf("#%d", entry.PRNumber))
			detail := Dim(fmt.Sprintf("%s ← %s", entry.BaseBranch, entry.HeadBranch))
			marker := ""
			if record.Dirty {
				marker = WarningStyle.Render(" *")
			}
			fmt.Fprintf(&b, "  %d. %s %s%s %s\n", record.Position+1, badge, title, marker, detail)
		}
	}
	return b.String()
}

// RenderPlan renders a plan as a list of pending remote mutations.
func RenderPlan(plan stack.Plan) string {
	var b strings.Builder
	for _, step := range plan.Steps {
		if step.Kind == stack.StepNoOp {
			continue
		}
		fmt.Fprintf(&b, "  %s %s\n", renderStepKind(step.Kind), describePlanStep(step))
	}
	if b.Len() == 0 {
		return Dim("  nothing to do - stack is in sync\n")
	}
	return b.String()
}

func renderStepKind(kind stack.StepKind) string {
	switch kind {
	case stack.StepCreatePR:
		return SuccessStyle.Render("create  ")
	case stack.StepUpdateHead:
		return InfoStyle.Render("push    ")
	case stack.StepRetargetBase:
		return WarningStyle.Render("retarget")
	case stack.StepUpdateMetadata:
		return InfoStyle.Render("edit    ")
	case stack.StepCloseOrphan:
		return ErrorStyle.Render("close   ")
	default:
		return string(kind)
	}
}

func describePlanStep(step stack.Step) string {
	switch step.Kind {
	case stack.StepCreatePR:
		return fmt.Sprintf("%s %s", Bold(step.Record.Title), Dim("base: "+orPending(step.Base)))
	case stack.StepUpdateHead:
		return fmt.Sprintf("PR #%d %s", step.Entry.PRNumber, Dim(step.Reason))
	case stack.StepRetargetBase:
		return fmt.Sprintf("PR #%d %s", step.Entry.PRNumber, Dim("onto "+orPending(step.Base)))
	case stack.StepUpdateMetadata:
		return fmt.Sprintf("PR #%d %s", step.Entry.PRNumber, Dim(step.Reason))
	case stack.StepCloseOrphan:
		return fmt.Sprintf("PR #%d %s", step.Entry.PRNumber, Dim(step.Reason))
	default:
		return step.Identity
	}
}

// orPending substitutes a placeholder for a base branch that only gets its
// name once the preceding commit is tagged on submit.
func orPending(base string) string {
	if base == "" {
		return "(pending)"
	}
	return base
}

// StepProgress describes one applied step for progress output.
type StepProgress struct {
	Position int
	Total    int
	Title    string
	PRNumber int
	URL      string
	Action   string
	Reason   string
}

// RenderStepProgress renders a single line of sync progress.
func RenderStepProgress(p StepProgress) string {
	prefix := Dim(fmt.Sprintf("[%d/%d]", p.Position, p.Total))
	pr := ""
	if p.PRNumber > 0 {
		pr = StatusOpenStyle.Render(fmt.Sprintf(" #%d", p.PRNumber))
	}
	line := fmt.Sprintf("%s %s%s %s", prefix, p.Action, pr, p.Title)
	if p.Reason != "" {
		line += " " + Dim("("+p.Reason+")")
	}
	if p.URL != "" {
		line += "\n      " + Dim(p.URL)
	}
	return line
}

// RenderSyncSummary renders the per-kind counts of an applied plan.
func RenderSyncSummary(created, pushed, retargeted, edited, closed int) string {
	parts := []string{}
	add := func(n int, noun string) {
		if n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, noun))
		}
	}
	add(created, "created")
	add(pushed, "pushed")
	add(retargeted, "retargeted")
	add(edited, "edited")
	add(closed, "closed")
	if len(parts) == 0 {
		return Dim("Nothing to sync - all PRs up to date")
	}
	return "Synced: " + strings.Join(parts, ", ")
}
