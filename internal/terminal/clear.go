// Package terminal provides small terminal helpers: clearing echoed input and
// reading secrets without echo.
package terminal

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Width returns the width of stdout, or 80 when it is not a terminal.
func Width() int {
	if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width > 0 {
		return width
	}
	return 80
}

// LinesUsed returns how many terminal rows text of the given length occupied after
// the user pressed Enter: the wrapped rows plus the empty row the cursor moved to.
func LinesUsed(textLength, width int) int {
	if width <= 0 {
		width = 80
	}
	rows := (textLength + width - 1) / width
	if rows < 1 {
		rows = 1
	}
	return rows + 1
}

// ClearPreviousLines erases a prompt and the input echoed after it.
func ClearPreviousLines(w io.Writer, textLength int) {
	n := LinesUsed(textLength, Width())
	for i := 0; i < n; i++ {
		fmt.Fprint(w, "\r\x1b[2K")
		if i < n-1 {
			fmt.Fprint(w, "\x1b[1A")
		}
	}
}

// IsInteractive reports whether stdin is a terminal.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// ReadSecret prints prompt and reads a line without echo when stdin is a terminal,
// falling back to a plain line read otherwise.
func ReadSecret(w io.Writer, in *bufio.Reader, prompt string) (string, error) {
	fmt.Fprint(w, prompt)
	if IsInteractive() {
		b, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(w)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	line, err := in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
