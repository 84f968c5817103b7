package shared

import (
	"bufio"
	"io"
	"strings"
)

// IOConfirmationPrompter reads confirmation responses from an io.Reader.
type IOConfirmationPrompter struct {
	reader *bufio.Reader
	writer io.Writer
}

// NewIOConfirmationPrompter constructs a prompter from the provided reader and writer.
func NewIOConfirmationPrompter(input io.Reader, output io.Writer) *IOConfirmationPrompter {
	return &IOConfirmationPrompter{reader: bufio.NewReader(input), writer: output}
}

// Confirm writes the prompt and interprets affirmative responses (y/yes). Responses
// of a/all confirm the current prompt and every prompt that follows it.
func (prompter *IOConfirmationPrompter) Confirm(prompt string) (ConfirmationResult, error) {
	if prompter.writer != nil {
		if _, writeError := io.WriteString(prompter.writer, prompt); writeError != nil {
			return ConfirmationResult{}, writeError
		}
	}

	response, readError := prompter.reader.ReadString('\n')
	if readError != nil && readError != io.EOF {
		return ConfirmationResult{}, readError
	}

	trimmedResponse := strings.TrimSpace(strings.ToLower(response))
	switch trimmedResponse {
	case "y", "yes":
		return ConfirmationResult{Confirmed: true}, nil
	case "a", "all":
		return ConfirmationResult{Confirmed: true, ApplyToAll: true}, nil
	default:
		return ConfirmationResult{}, nil
	}
}
