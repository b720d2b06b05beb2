package ui

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"golang.org/x/term"
)

// ErrPassphraseMismatch is returned when the confirmation differs.
var ErrPassphraseMismatch = errors.New("passphrases do not match")

// Prompter reads answers from the user.
type Prompter struct {
	in      *bufio.Reader
	out     io.Writer
	fd      int
	console *Console
}

// NewPrompter reads from in and prompts on console. Passphrases are read
// without echo when fd is a terminal.
func NewPrompter(in io.Reader, fd int, console *Console) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: console.w, fd: fd, console: console}
}

// StdinPrompter prompts on the process terminal.
func StdinPrompter(console *Console) *Prompter {
	return NewPrompter(os.Stdin, int(os.Stdin.Fd()), console)
}

// Confirm asks a yes/no question; only y and yes accept.
func (p *Prompter) Confirm(question string) bool {
	c := p.console
	fmt.Fprintf(p.out, "\n    %s%s%s %s[y/N]%s\n", c.c(ColorBold), question, c.c(ColorReset), c.c(ColorDim), c.c(ColorReset))
	fmt.Fprintf(p.out, "    %s→%s ", c.c(ColorCyan), c.c(ColorReset))
	input, _ := p.in.ReadString('\n')
	input = strings.TrimSpace(strings.ToLower(input))
	return input == "y" || input == "yes"
}

// Passphrase reads a passphrase, asking twice when confirm is set.
func (p *Prompter) Passphrase(prompt string, confirm bool) ([]byte, error) {
	first, err := p.readSecret(prompt)
	if err != nil {
		return nil, err
	}
	if !confirm {
		return first, nil
	}
	second, err := p.readSecret("Repeat " + strings.ToLower(prompt[:1]) + prompt[1:])
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(first, second) {
		return nil, ErrPassphraseMismatch
	}
	return first, nil
}

func (p *Prompter) readSecret(prompt string) ([]byte, error) {
	c := p.console
	fmt.Fprintf(p.out, "    %s🔑 %s%s: ", c.c(ColorPurple+ColorBold), prompt, c.c(ColorReset))

	if term.IsTerminal(p.fd) {
		secret, err := term.ReadPassword(p.fd)
		fmt.Fprintln(p.out)
		if err != nil {
			return nil, errors.Wrap(err, "read passphrase")
		}
		return secret, nil
	}

	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return nil, errors.Wrap(err, "read passphrase")
	}
	return []byte(strings.TrimRight(line, "\r\n")), nil
}
