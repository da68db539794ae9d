package utils

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

type SecretPrompter interface {
	Run() (string, error)
}

// defaultSecretPrompter hides the input when stdin is a terminal and reads a single line otherwise, so the secret
// can also be piped in. Nothing past that line is consumed.
type defaultSecretPrompter struct {
	inputLabelText string
	stdin          *os.File
	stdout         io.Writer
}

var _ SecretPrompter = (*defaultSecretPrompter)(nil)

func (sp *defaultSecretPrompter) Run() (string, error) {
	_, err := fmt.Fprint(sp.stdout, sp.inputLabelText, " ")
	if err != nil {
		return "", fmt.Errorf("writing input label text: %w", err)
	}

	fd := int(sp.stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := readLine(sp.stdin)
		if err != nil {
			return "", fmt.Errorf("reading secret: %w", err)
		}
		return strings.TrimSpace(line), nil
	}

	secret, err := term.ReadPassword(fd)
	if err != nil {
		return "", fmt.Errorf("reading secret: %w", err)
	}
	_, err = fmt.Fprintln(sp.stdout)
	if err != nil {
		return "", fmt.Errorf("writing newline: %w", err)
	}

	return strings.TrimSpace(string(secret)), nil
}

func NewDefaultSecretPrompter(inputLabelText string, stdin *os.File, stdout io.Writer) (*defaultSecretPrompter, error) {
	if stdin == nil {
		return nil, fmt.Errorf("stdin cannot be nil")
	}

	if stdout == nil {
		return nil, fmt.Errorf("stdout cannot be nil")
	}

	inputLabelText = strings.TrimSpace(inputLabelText)
	if inputLabelText == "" {
		return nil, fmt.Errorf("input label text cannot be empty")
	}

	return &defaultSecretPrompter{
		inputLabelText: inputLabelText,
		stdin:          stdin,
		stdout:         stdout,
	}, nil
}

func readLine(r io.Reader) (string, error) {
	var line []byte
	b := make([]byte, 1)
	for {
		n, err := r.Read(b)
		if n == 1 {
			if b[0] == '\n' {
				return string(line), nil
			}
			line = append(line, b[0])
		}
		if errors.Is(err, io.EOF) {
			return string(line), nil
		}
		if err != nil {
			return "", err //nolint:wrapcheck
		}
	}
}
