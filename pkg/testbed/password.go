package testbed

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

// PasswordPrompter asks the operator for a secret.
type PasswordPrompter interface {
	Prompt(label string) (string, error)
}

// TerminalPrompter reads a password from the controlling terminal without echo.
type TerminalPrompter struct{}

// Prompt implements PasswordPrompter.
func (TerminalPrompter) Prompt(label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("%s: stdin is not a terminal", label)
	}
	fmt.Fprintf(os.Stderr, "%s: ", label)
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(pw), nil
}

// ResolvePassword replaces a %ASK{} password on the default credential
// with the prompter's answer. The answer is kept for later connects.
func (d *Device) ResolvePassword(p PasswordPrompter) error {
	cred, ok := d.Credentials["default"]
	if !ok || cred.Password != askMarker {
		return nil
	}
	pw, err := p.Prompt(fmt.Sprintf("Password for %s@%s", cred.Username, d.Name))
	if err != nil {
		return err
	}
	cred.Password = pw
	d.Credentials["default"] = cred
	return nil
}
