package ui

import (
	"bufio"
	"os"
	"strings"
)

// Confirm prompts the user to type the expected value to confirm an action.
// Returns true if the user input matches expectedValue (case-sensitive).
func Confirm(prompt string, expectedValue string) bool {
	reader := bufio.NewReader(os.Stdin)
	os.Stdout.WriteString(prompt)
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input) == expectedValue
}

// ConfirmYes prompts for a y/N answer and returns true on "y" or "yes".
func ConfirmYes(prompt string) bool {
	reader := bufio.NewReader(os.Stdin)
	os.Stdout.WriteString(prompt)
	input, _ := reader.ReadString('\n')
	answer := strings.ToLower(strings.TrimSpace(input))
	return answer == "y" || answer == "yes"
}
