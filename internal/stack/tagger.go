package stack

import (
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/stackpr/stackpr/internal/git"
)

// IdentityTrailer is the reserved commit-message trailer key carrying a
// change's stable identity. The identity survives amendments, rebases, and
// reorders, and is the join key between local commits and tracked PRs.
const IdentityTrailer = "Stack-Id"

// identityPattern is deliberately strict so user-authored text that happens
// to mention the trailer key never produces a false match.
var identityPattern = regexp.MustCompile(`^[0-9a-f]{16}$`)

// NewIdentity generates a fresh identity token: 16 hex characters of a
// random UUID, unique for any practical number of stacks.
func NewIdentity() string {
	hexStr := strings.ReplaceAll(uuid.New().String(), "-", "")
	return hexStr[:16]
}

// ExtractIdentity returns the identity embedded in a commit message, or
// false if the message carries no recognized marker.
func ExtractIdentity(message string) (string, bool) {
	value := git.GetTrailer(message, IdentityTrailer)
	if !identityPattern.MatchString(value) {
		return "", false
	}
	return value, true
}

// EnsureIdentity adopts a commit message into the stack. If the message
// already carries a recognized marker the message is returned unchanged;
// otherwise a new identity is generated and appended as a trailer.
// Idempotent once tagged.
func EnsureIdentity(message string) (tagged string, identity string, added bool) {
	if id, ok := ExtractIdentity(message); ok {
		return message, id, false
	}
	identity = NewIdentity()
	return git.AddTrailer(message, IdentityTrailer, identity), identity, true
}
