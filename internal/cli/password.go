package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dmitrijs2005/kosync/internal/common"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// Seams for tests.
var (
	readPassword = term.ReadPassword
	isTerminal   = term.IsTerminal
	stdinFd      = func() int { return int(os.Stdin.Fd()) }
)

// resolvePassword returns the password for a command. flag "-" reads one
// line from stdin; an empty flag prompts on the terminal, twice for
// confirmation, or reads a line when stdin is not a terminal.
func resolvePassword(cmd *cobra.Command, flag string) (string, error) {
	switch {
	case flag == "-":
		return readLine(cmd.InOrStdin())
	case flag != "":
		return flag, nil
	}

	if !isTerminal(stdinFd()) {
		return readLine(cmd.InOrStdin())
	}

	first, err := prompt(cmd, "Password: ")
	if err != nil {
		return "", err
	}
	second, err := prompt(cmd, "Confirm password: ")
	if err != nil {
		return "", err
	}
	if first != second {
		return "", fmt.Errorf("%w: passwords do not match", common.ErrValidation)
	}
	return first, nil
}

func prompt(cmd *cobra.Command, label string) (string, error) {
	fmt.Fprint(cmd.ErrOrStderr(), label)
	b, err := readPassword(stdinFd())
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	defer common.WipeByteArray(b)
	return string(b), nil
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", fmt.Errorf("%w: empty password", common.ErrValidation)
	}
	return line, nil
}
