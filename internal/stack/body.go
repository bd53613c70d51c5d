package stack

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/stackpr/stackpr/internal/model"
)

// tocRe matches the "Stacked PRs:" table at the top of a PR description.
var tocRe = regexp.MustCompile(`(?m)^Stacked PRs:\r?\n(?: \* (?:__->__)?#\d+\r?\n)*\r?\n?`)

// markerRe matches the identity marker line inside a PR description.
var markerRe = regexp.MustCompile(`(?m)^` + IdentityTrailer + `: [0-9a-f]{16}\s*$`)

// MarkerLine formats the identity marker embedded in every PR description.
// FindPRByMarker searches for exactly this line.
func MarkerLine(identity string) string {
	return fmt.Sprintf("%s: %s", IdentityTrailer, identity)
}

// ComposeBody builds a PR description from a commit body and identity,
// without the cross-link table.
func ComposeBody(description string, identity string) string {
	description = strings.TrimSpace(description)
	if description == "" {
		return MarkerLine(identity) + "\n"
	}
	return fmt.Sprintf("%s\n\n%s\n", description, MarkerLine(identity))
}

// ComposeTOC builds the "Stacked PRs" table listing the whole stack, newest
// first, with an arrow at the current PR.
func ComposeTOC(entries []*model.StackEntry, currentPR int) string {
	var b strings.Builder
	b.WriteString("Stacked PRs:\n")
	for i := len(entries) - 1; i >= 0; i-- {
		arrow := ""
		if entries[i].PRNumber == currentPR {
			arrow = "__->__"
		}
		fmt.Fprintf(&b, " * %s#%d\n", arrow, entries[i].PRNumber)
	}
	b.WriteString("\n")
	return b.String()
}

// ComposeLinkedBody builds the full PR description: cross-link table,
// commit body, identity marker.
func ComposeLinkedBody(description string, identity string, toc string) string {
	return toc + ComposeBody(description, identity)
}

// StripTOC removes the cross-link table from a PR description so bodies can
// be compared independently of stack shape.
func StripTOC(body string) string {
	return tocRe.ReplaceAllString(body, "")
}

// ExtractTOC returns the cross-link table of a PR description, or the empty
// string when it carries none.
func ExtractTOC(body string) string {
	return tocRe.FindString(body)
}

// sameDescription reports whether a stored PR body matches the desired one,
// ignoring the cross-link table and surrounding whitespace.
func sameDescription(storedBody string, desiredBody string) bool {
	return strings.TrimSpace(StripTOC(storedBody)) == strings.TrimSpace(desiredBody)
}
