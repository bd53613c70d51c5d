package git

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCommitMessage(t *testing.T) {
	tests := []struct {
		name     string
		message  string
		title    string
		body     string
		trailers map[string]string
	}{
		{
			name:     "title only",
			message:  "Add feature\n",
			title:    "Add feature",
			body:     "",
			trailers: map[string]string{},
		},
		{
			name:     "title with body",
			message:  "Add feature\n\nThis adds the feature.\nIt is great.\n",
			title:    "Add feature",
			body:     "This adds the feature.\nIt is great.",
			trailers: map[string]string{},
		},
		{
			name:     "title, body, and trailer",
			message:  "Add feature\n\nSome body text.\n\nStack-Id: 0123456789abcdef\n",
			title:    "Add feature",
			body:     "Some body text.",
			trailers: map[string]string{"Stack-Id": "0123456789abcdef"},
		},
		{
			name:    "multiple trailers",
			message: "Fix bug\n\nBody here.\n\nStack-Id: 0123456789abcdef\nSigned-off-by: Someone <someone@example.com>\n",
			title:   "Fix bug",
			body:    "Body here.",
			trailers: map[string]string{
				"Stack-Id":      "0123456789abcdef",
				"Signed-off-by": "Someone <someone@example.com>",
			},
		},
		{
			name:     "trailer without body",
			message:  "Add feature\n\nStack-Id: 0123456789abcdef\n",
			title:    "Add feature",
			body:     "",
			trailers: map[string]string{"Stack-Id": "0123456789abcdef"},
		},
		{
			name:     "colon in title is not a trailer",
			message:  "fix: handle empty input\n",
			title:    "fix: handle empty input",
			body:     "",
			trailers: map[string]string{},
		},
		{
			name:     "colon title with trailer and no body",
			message:  "fix: handle empty input\n\nStack-Id: 0123456789abcdef\n",
			title:    "fix: handle empty input",
			body:     "",
			trailers: map[string]string{"Stack-Id": "0123456789abcdef"},
		},
		{
			name:     "body line with colon and spaces stays in body",
			message:  "Add feature\n\nNote: this line has a colon but a spaced key.\nwait no it does not\n",
			title:    "Add feature",
			body:     "Note: this line has a colon but a spaced key.\nwait no it does not",
			trailers: map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			commit := ParseCommitMessage("abc123", tt.message)
			assert.Equal(t, "abc123", commit.Hash)
			assert.Equal(t, tt.title, commit.Title)
			assert.Equal(t, tt.body, commit.Body)
			assert.Equal(t, tt.trailers, commit.Trailers)
		})
	}
}

func TestGetTrailer(t *testing.T) {
	msg := "Add feature\n\nBody.\n\nStack-Id: 0123456789abcdef\n"
	assert.Equal(t, "0123456789abcdef", GetTrailer(msg, "Stack-Id"))
	assert.Equal(t, "", GetTrailer(msg, "Reviewed-by"))
}

func TestAddTrailer(t *testing.T) {
	t.Run("inserts blank separator when no trailers exist", func(t *testing.T) {
		got := AddTrailer("Add feature\n\nBody.\n", "Stack-Id", "0123456789abcdef")
		assert.Equal(t, "Add feature\n\nBody.\n\nStack-Id: 0123456789abcdef\n", got)

		commit := ParseCommitMessage("", got)
		assert.Equal(t, "Add feature", commit.Title)
		assert.Equal(t, "Body.", commit.Body)
		assert.Equal(t, "0123456789abcdef", commit.Trailers["Stack-Id"])
	})

	t.Run("appends to existing trailer block", func(t *testing.T) {
		msg := "Add feature\n\nBody.\n\nSigned-off-by: Someone <s@example.com>\n"
		got := AddTrailer(msg, "Stack-Id", "0123456789abcdef")

		commit := ParseCommitMessage("", got)
		assert.Equal(t, "Body.", commit.Body)
		assert.Equal(t, "0123456789abcdef", commit.Trailers["Stack-Id"])
		assert.Equal(t, "Someone <s@example.com>", commit.Trailers["Signed-off-by"])
	})

	t.Run("title-only message", func(t *testing.T) {
		got := AddTrailer("Add feature\n", "Stack-Id", "0123456789abcdef")
		commit := ParseCommitMessage("", got)
		assert.Equal(t, "Add feature", commit.Title)
		assert.Equal(t, "", commit.Body)
		assert.Equal(t, "0123456789abcdef", commit.Trailers["Stack-Id"])
	})
}

func TestCommitMessageString(t *testing.T) {
	msg := CommitMessage{
		Title:    "Add feature",
		Body:     "Body text.",
		Trailers: map[string]string{"Stack-Id": "0123456789abcdef"},
	}
	rendered := msg.String()
	assert.Equal(t, "Add feature\n\nBody text.\n\nStack-Id: 0123456789abcdef\n", rendered)

	parsed := ParseCommitMessage("", rendered)
	assert.Equal(t, msg.Title, parsed.Title)
	assert.Equal(t, msg.Body, parsed.Body)
	assert.Equal(t, msg.Trailers, parsed.Trailers)
}
