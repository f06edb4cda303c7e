package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/pterm/pterm"

	"askdb/cli/internal/terminal"
)

var (
	stdinOnce   sync.Once
	stdinReader *bufio.Reader
)

// stdin returns one shared buffered reader so prompts in sequence do not lose input.
func stdin() *bufio.Reader {
	stdinOnce.Do(func() { stdinReader = bufio.NewReader(os.Stdin) })
	return stdinReader
}

// promptLine asks for one line of input. When erase is set the prompt and the echoed
// input are erased afterwards, for values that should not stay on screen.
func promptLine(prompt string, erase bool) string {
	fmt.Print(prompt)
	line, _ := stdin().ReadString('\n')
	line = strings.TrimSpace(line)
	if erase && terminal.IsInteractive() {
		terminal.ClearPreviousLines(os.Stdout, len(prompt)+len(line))
	}
	return line
}

// promptSecret asks for a value without echo.
func promptSecret(prompt string) (string, error) {
	return terminal.ReadSecret(os.Stdout, stdin(), prompt)
}

// printTable renders rows with a header row.
func printTable(header []string, rows [][]string) error {
	data := pterm.TableData{header}
	data = append(data, rows...)
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}
