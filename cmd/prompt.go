package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// prompter reads answers from the command's input. Passwords are read
// without echo when the input is a terminal.
type prompter struct {
	in  *bufio.Reader
	tty *os.File
	out io.Writer
}

func newPrompter(cmd *cobra.Command) *prompter {
	in := cmd.InOrStdin()
	p := &prompter{in: bufio.NewReader(in), out: cmd.OutOrStdout()}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.tty = f
	}
	return p
}

// promptForInput prints prompt and returns the trimmed line typed in reply.
func (p *prompter) promptForInput(prompt string) (string, error) {
	line, err := p.readLine(prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// readLine prints prompt and returns the reply without its line terminator.
func (p *prompter) readLine(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// promptForPassword prompts for a secret without echoing it. The reply is
// used verbatim, surrounding spaces included.
func (p *prompter) promptForPassword(prompt string) (string, error) {
	if p.tty == nil {
		return p.readLine(prompt)
	}
	fmt.Fprint(p.out, prompt)
	password, err := term.ReadPassword(int(p.tty.Fd()))
	fmt.Fprintln(p.out)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(password), nil
}

// valueOrPrompt returns value unless it is empty, in which case it asks.
func (p *prompter) valueOrPrompt(value, prompt string) (string, error) {
	if value != "" {
		return value, nil
	}
	return p.promptForInput(prompt)
}
