package gh

import "time"

// PRSpec defines all parameters for creating a PR
type PRSpec struct {
	Title string // PR title
	Body  string // PR description
	Base  string // base branch name
	Head  string // head branch name
	Draft bool   // whether PR should be created as a draft
}

// PR contains GitHub PR information returned from the gh CLI
type PR struct {
	Number    int       // PR number
	URL       string    // PR URL
	State     string    // "open", "closed", "merged"
	IsDraft   bool      // draft status
	Base      string    // base branch name
	Head      string    // head branch name
	Title     string    // PR title
	Body      string    // PR description
	CreatedAt time.Time // when PR was created
	UpdatedAt time.Time // when PR was last updated
}

// IsOpen reports whether the PR can still be updated on GitHub.
func (p *PR) IsOpen() bool {
	return p.State == "open"
}
