package main

import (
	"bufio"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"golang.org/x/term"
)

var stdin = bufio.NewReader(os.Stdin)

// terminalPrompt reads passwords from the controlling terminal without
// echo. When stdin is not a terminal a line is read from it instead. An
// empty answer is no input.
type terminalPrompt struct{}

func (terminalPrompt) Password(prompt string) (string, bool) {
	fmt.Fprint(os.Stderr, prompt+" ")
	fd := int(os.Stdin.Fd())

	var line string
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", false
		}
		line = string(b)
	} else {
		s, err := stdin.ReadString('\n')
		if err != nil && s == "" {
			return "", false
		}
		line = strings.TrimRight(s, "\r\n")
	}
	if line == "" {
		return "", false
	}
	return line, true
}

// openFile opens path in the desktop's default application.
func openFile(path string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", path)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", path)
	default:
		cmd = exec.Command("xdg-open", path)
	}
	return cmd.Start()
}
