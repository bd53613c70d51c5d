package git

import "fmt"

// RangeError reports a malformed local commit range: the head is not a
// descendant of the base, or the range contains no commits. The local
// history must be fixed by the user before a sync can proceed.
type RangeError struct {
	Base   string
	Head   string
	Reason string
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("invalid commit range %s..%s: %s", e.Base, e.Head, e.Reason)
}
