package gh

import (
	"fmt"
	"strings"
)

// RemoteError reports a transient failure talking to the remote host
// (network, auth, rate limiting). Callers may retry with backoff.
type RemoteError struct {
	Op    string
	Cause error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote error during %s: %v", e.Op, e.Cause)
}

func (e *RemoteError) Unwrap() error {
	return e.Cause
}

// ConflictError reports a semantic conflict on the remote host: the PR was
// merged or closed out-of-band, or its base branch no longer exists. These
// require user action and are never retried automatically.
type ConflictError struct {
	PRNumber int
	Identity string
	Reason   string
}

func (e *ConflictError) Error() string {
	if e.PRNumber > 0 {
		return fmt.Sprintf("conflict on PR #%d: %s", e.PRNumber, e.Reason)
	}
	return fmt.Sprintf("conflict: %s", e.Reason)
}

// Phrases gh prints for conflicts that need human judgment rather than a
// retry. Matched case-insensitively against stderr.
var conflictMarkers = []string{
	"already merged",
	"has been merged",
	"is not open",
	"already closed",
	"not mergeable",
	"base branch",
	"no commits between",
	"already exists",
	"must be a branch",
}

// classifyError turns a raw gh CLI failure into the engine's error taxonomy.
// Anything not recognizably a semantic conflict is treated as transient.
func classifyError(op string, prNumber int, stderr string, err error) error {
	lower := strings.ToLower(stderr)
	for _, marker := range conflictMarkers {
		if strings.Contains(lower, marker) {
			return &ConflictError{
				PRNumber: prNumber,
				Reason:   strings.TrimSpace(stderr),
			}
		}
	}
	if stderr != "" {
		err = fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr))
	}
	return &RemoteError{Op: op, Cause: err}
}
