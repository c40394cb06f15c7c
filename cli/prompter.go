package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Prompter asks the operator questions on a line-oriented terminal
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewPrompter creates a Prompter reading answers from in and writing prompts to out
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{
		in:  bufio.NewReader(in),
		out: out,
	}
}

// AskSeason asks for a season number between 1 and maxSeason. ok is false
// when the answer is not an integer in range or input ended.
func (p *Prompter) AskSeason(maxSeason int) (season int, ok bool, err error) {
	fmt.Fprintf(p.out, "Which season to download (1-%d)? ", maxSeason)

	line, err := p.readLine()
	if errors.Is(err, io.EOF) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read season: %w", err)
	}

	season, convErr := strconv.Atoi(line)
	if convErr != nil || season < 1 || season > maxSeason {
		return 0, false, nil
	}
	return season, true, nil
}

// Confirm asks "Proceed? (y/n): ". Only "y" (any case) confirms.
func (p *Prompter) Confirm() (bool, error) {
	fmt.Fprint(p.out, "Proceed? (y/n): ")

	line, err := p.readLine()
	if errors.Is(err, io.EOF) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read confirmation: %w", err)
	}
	return strings.ToLower(line) == "y", nil
}

// readLine returns the next trimmed line. A final line without newline is
// returned normally; io.EOF only when nothing was read.
func (p *Prompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
