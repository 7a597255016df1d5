package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// promptPassword reads a secret without echo from a terminal, or one line
// from a piped stdin.
func (a *App) promptPassword(prompt string) (string, error) {
	fmt.Fprint(a.Err, prompt)

	if f, ok := a.In.(*os.File); ok && isTerminal(f) {
		secret, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(a.Err)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(secret), nil
	}

	return a.readLine()
}

// prompt reads one line of visible input.
func (a *App) prompt(prompt string) (string, error) {
	fmt.Fprint(a.Err, prompt)
	return a.readLine()
}

func (a *App) readLine() (string, error) {
	if a.stdin == nil {
		a.stdin = bufio.NewReader(a.In)
	}
	line, err := a.stdin.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
