// Package replio supplies the line-input abstraction vhdshell reads typed-in
// VHDL fragments from: a readline-backed interactive reader when attached
// to a terminal, a plain buffered reader otherwise. A line of nothing but
// whitespace is skipped, never delivered.
package replio

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
)

// LineReader reads one line of shell input at a time.
type LineReader interface {
	// ReadLine blocks until a non-blank line is available. At end of input
	// it returns "" and io.EOF.
	ReadLine() (string, error)
	Close() error
}

// DirectLineReader reads from any io.Reader with no editing support, used
// when stdin isn't an interactive terminal or --direct was passed.
type DirectLineReader struct {
	r *bufio.Reader
}

// NewDirectReader wraps r for line-at-a-time reading.
func NewDirectReader(r io.Reader) *DirectLineReader {
	return &DirectLineReader{r: bufio.NewReader(r)}
}

func (d *DirectLineReader) ReadLine() (string, error) {
	var line string
	var err error
	for line == "" {
		line, err = d.r.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			return "", err
		}
		line = strings.TrimSpace(line)
		if line == "" && err == io.EOF {
			return "", io.EOF
		}
	}
	return line, nil
}

func (d *DirectLineReader) Close() error {
	return nil
}

// InteractiveLineReader reads from stdin via GNU-readline-style editing and
// history, used when attached to a real terminal.
type InteractiveLineReader struct {
	rl     *readline.Instance
	prompt string
}

// NewInteractiveReader starts a readline session with the given prompt.
func NewInteractiveReader(prompt string) (*InteractiveLineReader, error) {
	rl, err := readline.NewEx(&readline.Config{Prompt: prompt})
	if err != nil {
		return nil, fmt.Errorf("create readline config: %w", err)
	}
	return &InteractiveLineReader{rl: rl, prompt: prompt}, nil
}

func (i *InteractiveLineReader) ReadLine() (string, error) {
	var line string
	var err error
	for line == "" {
		line, err = i.rl.Readline()
		if err != nil && (err != io.EOF || line == "") {
			return "", err
		}
		line = strings.TrimSpace(line)
		if line == "" && err == io.EOF {
			return "", io.EOF
		}
	}
	return line, nil
}

func (i *InteractiveLineReader) Close() error {
	return i.rl.Close()
}

// SetPrompt updates the prompt shown before the next line.
func (i *InteractiveLineReader) SetPrompt(p string) {
	i.prompt = p
	i.rl.SetPrompt(p)
}

// New picks an InteractiveLineReader when attached to a terminal and
// forceDirect is false, falling back to a DirectLineReader otherwise.
func New(in io.Reader, out io.Writer, forceDirect bool, isStdTTY bool, prompt string) (LineReader, error) {
	if !forceDirect && isStdTTY {
		return NewInteractiveReader(prompt)
	}
	return NewDirectReader(in), nil
}
