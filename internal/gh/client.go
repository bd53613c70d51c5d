package gh

import (
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const prFields = "number,url,state,isDraft,baseRefName,headRefName,title,body,createdAt,updatedAt"

// Client provides GitHub operations via the gh CLI
type Client struct{}

// NewClient creates a new GitHub client
func NewClient() *Client {
	return &Client{}
}

// prJSON is the common structure for PR data from gh CLI
type prJSON struct {
	Number      int       `json:"number"`
	URL         string    `json:"url"`
	State       string    `json:"state"`
	IsDraft     bool      `json:"isDraft"`
	BaseRefName string    `json:"baseRefName"`
	HeadRefName string    `json:"headRefName"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (p *prJSON) toPR() *PR {
	return &PR{
		Number:    p.Number,
		URL:       p.URL,
		State:     strings.ToLower(p.State),
		IsDraft:   p.IsDraft,
		Base:      p.BaseRefName,
		Head:      p.HeadRefName,
		Title:     p.Title,
		Body:      p.Body,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

// execGH executes a gh CLI command. Failures are classified into the
// RemoteError/ConflictError taxonomy using gh's stderr output.
func (c *Client) execGH(op string, prNumber int, stdin string, args ...string) ([]byte, error) {
	cmd := exec.Command("gh", args...)
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}
	output, err := cmd.Output()
	if err != nil {
		stderr := ""
		if exitErr, ok := err.(*exec.ExitError); ok {
			stderr = string(exitErr.Stderr)
		}
		return nil, classifyError(op, prNumber, stderr, err)
	}
	return output, nil
}

// FindPRByMarker returns the open PR whose description carries the given
// identity marker line, or nil if none exists. Used as a check-before-act
// guard so a re-run after a partial failure adopts the PR a previous run
// already created.
func (c *Client) FindPRByMarker(marker string) (*PR, error) {
	output, err := c.execGH("find PR", 0, "",
		"pr", "list",
		"--search", fmt.Sprintf(`"%s" in:body`, marker),
		"--state", "open",
		"--json", prFields,
		"--limit", "1",
	)
	if err != nil {
		return nil, err
	}

	var prs []prJSON
	if err := json.Unmarshal(output, &prs); err != nil {
		return nil, fmt.Errorf("failed to parse PR list: %w", err)
	}
	if len(prs) == 0 {
		return nil, nil
	}
	return prs[0].toPR(), nil
}

// CreatePR creates a new PR on GitHub and returns its details.
func (c *Client) CreatePR(spec PRSpec) (*PR, error) {
	args := []string{
		"pr", "create",
		"--title", spec.Title,
		"--body-file", "-",
		"--base", spec.Base,
		"--head", spec.Head,
	}
	if spec.Draft {
		args = append(args, "--draft")
	}

	if _, err := c.execGH("create PR", 0, spec.Body, args...); err != nil {
		return nil, err
	}

	// gh prints only the URL on create; query back the full record.
	pr, err := c.getPRByHead(spec.Head)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch created PR details: %w", err)
	}
	if pr == nil {
		return nil, fmt.Errorf("PR for %s was created but not found", spec.Head)
	}
	return pr, nil
}

// GetPR fetches PR details by number.
func (c *Client) GetPR(number int) (*PR, error) {
	output, err := c.execGH("view PR", number, "",
		"pr", "view", fmt.Sprintf("%d", number),
		"--json", prFields,
	)
	if err != nil {
		return nil, err
	}

	var pr prJSON
	if err := json.Unmarshal(output, &pr); err != nil {
		return nil, fmt.Errorf("failed to parse PR #%d: %w", number, err)
	}
	return pr.toPR(), nil
}

// UpdatePRBase changes the base branch of an open PR.
func (c *Client) UpdatePRBase(number int, base string) error {
	_, err := c.execGH("retarget PR", number, "",
		"pr", "edit", fmt.Sprintf("%d", number),
		"--base", base,
	)
	return err
}

// UpdatePRMetadata updates the title and description of a PR.
func (c *Client) UpdatePRMetadata(number int, title string, body string) error {
	_, err := c.execGH("update PR metadata", number, body,
		"pr", "edit", fmt.Sprintf("%d", number),
		"--title", title,
		"--body-file", "-",
	)
	return err
}

// ClosePR closes a PR without deleting its head branch.
func (c *Client) ClosePR(number int) error {
	_, err := c.execGH("close PR", number, "",
		"pr", "close", fmt.Sprintf("%d", number),
	)
	return err
}

// MergePR squash-merges a PR with the given commit subject and body.
func (c *Client) MergePR(number int, subject string, body string) error {
	if body == "" {
		body = " "
	}
	_, err := c.execGH("merge PR", number, "",
		"pr", "merge", fmt.Sprintf("%d", number),
		"--squash",
		"--subject", subject,
		"--body", body,
	)
	return err
}

// GetUsername returns the login of the authenticated GitHub user.
func (c *Client) GetUsername() (string, error) {
	output, err := c.execGH("get username", 0, "", "api", "user", "--jq", ".login")
	if err != nil {
		return "", err
	}
	username := strings.TrimSpace(string(output))
	if username == "" {
		return "", fmt.Errorf("gh returned an empty username")
	}
	return username, nil
}

// getPRByHead finds a PR by head branch name
func (c *Client) getPRByHead(head string) (*PR, error) {
	output, err := c.execGH("find PR by head", 0, "",
		"pr", "list",
		"--head", head,
		"--json", prFields,
		"--limit", "1",
	)
	if err != nil {
		return nil, err
	}

	var prs []prJSON
	if err := json.Unmarshal(output, &prs); err != nil {
		return nil, fmt.Errorf("failed to parse PR list: %w", err)
	}
	if len(prs) == 0 {
		return nil, nil
	}
	return prs[0].toPR(), nil
}
