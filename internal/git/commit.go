package git

import (
	"fmt"
	"strings"
)

// Commit represents a git commit as read from the local repository.
type Commit struct {
	Hash       string
	ParentHash string
	TreeHash   string
	Title      string
	Body       string
	Message    string
	Trailers   map[string]string
}

// CommitMessage is a commit message split into its components.
// String() reassembles it in the canonical form: title, blank line,
// body, blank line, trailer block.
type CommitMessage struct {
	Title    string
	Body     string
	Trailers map[string]string
}

func (m CommitMessage) String() string {
	var b strings.Builder
	b.WriteString(m.Title)
	b.WriteString("\n")
	if m.Body != "" {
		b.WriteString("\n")
		b.WriteString(m.Body)
		b.WriteString("\n")
	}
	if len(m.Trailers) > 0 {
		b.WriteString("\n")
		for _, key := range sortedKeys(m.Trailers) {
			fmt.Fprintf(&b, "%s: %s\n", key, m.Trailers[key])
		}
	}
	return b.String()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// Insertion sort: trailer maps are tiny.
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j] < keys[j-1]; j-- {
			keys[j], keys[j-1] = keys[j-1], keys[j]
		}
	}
	return keys
}

// ParseCommitMessage parses a commit message into title, body, and trailers.
// The trailer block is the last paragraph consisting entirely of
// "Key: value" lines where the key contains no spaces.
func ParseCommitMessage(hash string, message string) Commit {
	lines := strings.Split(message, "\n")

	commit := Commit{
		Hash:     hash,
		Message:  message,
		Trailers: make(map[string]string),
	}

	if len(lines) == 0 {
		return commit
	}

	commit.Title = strings.TrimSpace(lines[0])

	// Scan from the bottom for the last block of trailer-shaped lines.
	trailerStart := len(lines)
	inTrailers := false
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			if inTrailers {
				trailerStart = i + 1
				break
			}
			continue
		}

		if isTrailerLine(line) {
			inTrailers = true
			continue
		}

		if inTrailers {
			trailerStart = i + 1
		}
		break
	}

	// A title-only message can look like a trailer block; the title is
	// never part of the trailers.
	if trailerStart == 0 {
		trailerStart = 1
	}
	// The scan can terminate at the top of the message while still inside
	// a trailer block (message with no body). Guard against swallowing
	// the title in that case.
	if inTrailers && trailerStart >= len(lines) {
		trailerStart = firstTrailerLine(lines)
	}

	for i := trailerStart; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if ok {
			commit.Trailers[strings.TrimSpace(key)] = strings.TrimSpace(value)
		}
	}

	body := strings.Join(lines[1:trailerStart], "\n")
	commit.Body = strings.TrimSpace(body)

	return commit
}

func isTrailerLine(line string) bool {
	key, _, ok := strings.Cut(line, ":")
	return ok && key != "" && !strings.Contains(key, " ")
}

// firstTrailerLine finds the start of the trailing run of trailer-shaped
// lines, never including the title line.
func firstTrailerLine(lines []string) int {
	start := len(lines)
	for i := len(lines) - 1; i >= 1; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		if !isTrailerLine(line) {
			break
		}
		start = i
	}
	return start
}

// GetTrailer extracts a specific trailer value from a commit message.
// Returns the empty string if the trailer is not present.
func GetTrailer(message string, key string) string {
	commit := ParseCommitMessage("", message)
	return commit.Trailers[key]
}

// AddTrailer appends a trailer to a commit message, inserting a blank
// separator line when the message has no trailer block yet.
func AddTrailer(message string, key string, value string) string {
	trimmed := strings.TrimRight(message, "\n")
	parsed := ParseCommitMessage("", trimmed)
	if len(parsed.Trailers) == 0 {
		return fmt.Sprintf("%s\n\n%s: %s\n", trimmed, key, value)
	}
	return fmt.Sprintf("%s\n%s: %s\n", trimmed, key, value)
}
