package stack

import (
	"fmt"
	"regexp"
	"strings"
)

var namespaceUnsafe = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// HeadBranch formats the remote head branch name for a change.
// The identity, not the commit hash, names the branch: the branch follows
// the change across rewrites.
func HeadBranch(username string, identity string) string {
	return fmt.Sprintf("%s/stackpr/%s", username, identity)
}

// Namespace derives the store namespace for a stack from its base ref and
// owning branch, sanitized for use as a directory name.
func Namespace(base string, branch string) string {
	ns := fmt.Sprintf("%s--%s", base, branch)
	ns = namespaceUnsafe.ReplaceAllString(ns, "-")
	return strings.Trim(ns, "-")
}
