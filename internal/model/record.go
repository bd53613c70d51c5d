package model

// CommitRecord represents one commit of the local stack for a single
// synchronization run. Records are rebuilt from the commit range on every
// invocation and never persisted.
type CommitRecord struct {
	// Identity is the stable token from the commit's identity trailer.
	// Empty for a commit that has not been adopted into the stack yet.
	Identity string

	// Hash is the current commit hash, after any tagging rewrite.
	Hash string

	// ParentHash is the hash of the commit's parent in the current chain.
	ParentHash string

	// Title is the first line of the commit message.
	Title string

	// Body is the commit message body, excluding trailers.
	Body string

	// Position is the 0-indexed position of the commit in the stack,
	// oldest first.
	Position int

	// Dirty reports whether the commit content differs from the state
	// recorded at the last successful sync.
	Dirty bool
}

// Tagged reports whether the commit carries a stable identity.
func (r *CommitRecord) Tagged() bool {
	return r.Identity != ""
}
