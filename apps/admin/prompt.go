package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/trezcool/lessondesk/core"
)

var isTerminalFunc = term.IsTerminal // mockable

// terminalPrompter asks for confirmations on the terminal.
// Without a terminal every confirmation is declined: use -yes in scripts.
type terminalPrompter struct {
	in  *bufio.Reader
	out io.Writer
	fd  int
}

var _ core.Prompter = (*terminalPrompter)(nil) // interface compliance check

func newTerminalPrompter(in *os.File, out io.Writer) *terminalPrompter {
	return &terminalPrompter{in: bufio.NewReader(in), out: out, fd: int(in.Fd())}
}

func (p *terminalPrompter) Confirm(title, message string) (bool, error) {
	if !isTerminalFunc(p.fd) {
		fmt.Fprintf(p.out, "%s: %s\nnot a terminal, cancelled\n", title, message)
		return false, nil
	}
	fmt.Fprintf(p.out, "%s: %s [y/N] ", title, message)
	answer, err := p.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

func (p *terminalPrompter) Alert(title, message string) {
	fmt.Fprintf(p.out, "%s\n%s\n", title, message)
}
