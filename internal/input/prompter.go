// Package input asks the user for search criteria on the terminal.
package input

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
)

// ErrNoInput means the input stream ended before an answer was given.
var ErrNoInput = errors.New("no input")

type Prompter interface {
	Select(question string, choices []string, def string) (string, error)
	Text(question, def string) (string, error)
	Confirm(question string, def bool) (bool, error)
}

// Terminal prompts line by line on a reader/writer pair.
type Terminal struct {
	in  *bufio.Reader
	out io.Writer
}

func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{in: bufio.NewReader(in), out: out}
}

func (t *Terminal) readLine() (string, error) {
	line, err := t.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		if err == io.EOF {
			return "", ErrNoInput
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Select accepts either the number of a choice or its text. An empty answer
// picks def.
func (t *Terminal) Select(question string, choices []string, def string) (string, error) {
	fmt.Fprintf(t.out, "? %s\n", question)
	for i, c := range choices {
		marker := " "
		if c == def {
			marker = "*"
		}
		fmt.Fprintf(t.out, "  %s %d) %s\n", marker, i+1, c)
	}
	for {
		fmt.Fprint(t.out, "> ")
		answer, err := t.readLine()
		if err != nil {
			return "", err
		}
		if answer == "" && def != "" {
			return def, nil
		}
		if n, err := strconv.Atoi(answer); err == nil && n >= 1 && n <= len(choices) {
			return choices[n-1], nil
		}
		if slices.Contains(choices, answer) {
			return answer, nil
		}
		fmt.Fprintf(t.out, "  please enter 1-%d\n", len(choices))
	}
}

func (t *Terminal) Text(question, def string) (string, error) {
	if def != "" {
		fmt.Fprintf(t.out, "? %s (%s) ", question, def)
	} else {
		fmt.Fprintf(t.out, "? %s ", question)
	}
	answer, err := t.readLine()
	if err != nil {
		return "", err
	}
	if answer == "" {
		return def, nil
	}
	return answer, nil
}

func (t *Terminal) Confirm(question string, def bool) (bool, error) {
	hint := "y/N"
	if def {
		hint = "Y/n"
	}
	for {
		fmt.Fprintf(t.out, "? %s (%s) ", question, hint)
		answer, err := t.readLine()
		if err != nil {
			return false, err
		}
		switch strings.ToLower(answer) {
		case "":
			return def, nil
		case "y", "yes", "是":
			return true, nil
		case "n", "no", "否":
			return false, nil
		}
	}
}
