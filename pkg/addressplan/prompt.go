/*
Copyright 2019 Alexander Eldeib.
*/

package addressplan

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/peterh/liner"
	"github.com/pkg/errors"
)

// ErrAborted is returned when the operator cancels a prompt, e.g. with Ctrl-C.
var ErrAborted = errors.New("prompt aborted")

// Prompter reads one answer from the operator. Implementations return io.EOF once input is exhausted.
type Prompter interface {
	Prompt(text string) (string, error)
}

// LinePrompter prompts on the controlling terminal with line editing and history.
type LinePrompter struct {
	state *liner.State
}

// NewLinePrompter takes over the terminal until Close is called.
func NewLinePrompter() *LinePrompter {
	state := liner.NewLiner()
	state.SetCtrlCAborts(true)
	return &LinePrompter{state: state}
}

func (p *LinePrompter) Prompt(text string) (string, error) {
	answer, err := p.state.Prompt(text)
	if err == liner.ErrPromptAborted {
		return "", ErrAborted
	}
	if err != nil {
		return "", err
	}
	if answer = strings.TrimSpace(answer); answer != "" {
		p.state.AppendHistory(answer)
	}
	return answer, nil
}

// Close restores the terminal.
func (p *LinePrompter) Close() error {
	return p.state.Close()
}

// ReaderPrompter prompts on plain streams, for pipes and redirected input.
type ReaderPrompter struct {
	in  *bufio.Reader
	out io.Writer
}

func NewReaderPrompter(in io.Reader, out io.Writer) *ReaderPrompter {
	return &ReaderPrompter{in: bufio.NewReader(in), out: out}
}

func (p *ReaderPrompter) Prompt(text string) (string, error) {
	if _, err := fmt.Fprint(p.out, text); err != nil {
		return "", err
	}
	line, err := p.in.ReadString('\n')
	if err == io.EOF && line != "" {
		// last line without a trailing newline
		return strings.TrimSpace(line), nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

const maxConfirmAttempts = 3

// Confirm asks a yes/no question. Anything but an explicit yes is a no.
func Confirm(p Prompter, question string) (bool, error) {
	for i := 0; i < maxConfirmAttempts; i++ {
		answer, err := p.Prompt(question + " [y/N]: ")
		if err != nil {
			return false, err
		}
		switch strings.ToLower(answer) {
		case "y", "yes":
			return true, nil
		case "", "n", "no":
			return false, nil
		}
	}
	return false, nil
}
