// file: internal/cli/prompt.go
package cli

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
)

// Prompter asks the operator for input. Tests substitute a scripted reader.
type Prompter interface {
	Ask(question string) (string, error)
	Confirm(question string) (bool, error)
	Select(question string, options []string) (int, error)
}

// StreamPrompter reads answers line by line from in and writes questions to out
type StreamPrompter struct {
	reader *bufio.Reader
	out    io.Writer
}

func NewPrompter(in io.Reader, out io.Writer) *StreamPrompter {
	return &StreamPrompter{reader: bufio.NewReader(in), out: out}
}

// Ask writes the question and returns the trimmed answer
func (p *StreamPrompter) Ask(question string) (string, error) {
	color.New(color.FgYellow).Fprintf(p.out, "%s ", question)
	input, err := p.reader.ReadString('\n')
	if err != nil && (err != io.EOF || input == "") {
		return "", err
	}
	return strings.TrimSpace(input), nil
}

// Confirm asks a yes/no question; anything but y or yes is no
func (p *StreamPrompter) Confirm(question string) (bool, error) {
	input, err := p.Ask(fmt.Sprintf("%s (y/N):", question))
	if err != nil {
		return false, err
	}
	switch strings.ToLower(input) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// Select lists the options and returns the 0-based index of the choice
func (p *StreamPrompter) Select(question string, options []string) (int, error) {
	color.New(color.FgBlue).Fprintln(p.out, question)
	for i, opt := range options {
		fmt.Fprintf(p.out, "  %d) %s\n", i+1, opt)
	}

	for {
		input, err := p.Ask("Your choice:")
		if err != nil {
			return -1, err
		}
		if choice, err := strconv.Atoi(input); err == nil && choice > 0 && choice <= len(options) {
			return choice - 1, nil
		}
		for i, opt := range options {
			if input == opt {
				return i, nil
			}
		}
		fmt.Fprintln(p.out, "Invalid option. Please try again.")
	}
}
