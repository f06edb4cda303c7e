// Copyright (c) 2025 AskDB
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package render prints session activity, query results and the query log to the
// terminal with pterm.
package render

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/pterm/pterm"

	"askdb/cli/internal/logging"
	"askdb/cli/internal/session"
	"askdb/cli/internal/sqlexec"
)

// DefaultMaxRows bounds the rows printed for one result.
const DefaultMaxRows = 200

var progressPrefixes = []string{"Running:", "Analyzing:", "Thinking", "Planning"}

// Console renders session notifications as terminal output.
type Console struct {
	mu       sync.Mutex
	out      io.Writer
	maxRows  int
	activity *Activity
}

var _ session.Presenter = (*Console)(nil)

// NewConsole creates a console writing to out (stdout when nil).
func NewConsole(out io.Writer, maxRows int) *Console {
	if out == nil {
		out = os.Stdout
	}
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}
	return &Console{out: out, maxRows: maxRows, activity: NewActivity()}
}

// SetMaxRows changes the row limit for later results.
func (c *Console) SetMaxRows(n int) {
	if n <= 0 {
		return
	}
	c.mu.Lock()
	c.maxRows = n
	c.mu.Unlock()
}

func (c *Console) println(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, s)
}

// TranscriptChanged prints the newest line of an AI message or an error message.
func (c *Console) TranscriptChanged(idx int, msg session.Message) {
	switch msg.Role {
	case session.RoleError:
		if c.activity.Observe(idx, msg.Text) {
			c.println(pterm.Error.Sprint(logging.Mask(msg.Text)))
		}
	case session.RoleAI:
		if msg.Pending {
			if msg.Queued && c.activity.MarkWaiting(idx) {
				c.println(pterm.NewStyle(pterm.FgGray).Sprint("  … waiting for the model to initialize"))
			}
			return
		}
		if isProgress(lastLine(msg.Text)) {
			line := lastLine(msg.Text)
			if c.activity.Observe(idx, line) {
				c.println(pterm.NewStyle(pterm.FgGray).Sprint("  › " + line))
			}
			return
		}
		if c.activity.Observe(idx, msg.Text) {
			c.println(pterm.DefaultBox.
				WithTitle(pterm.NewStyle(pterm.FgCyan, pterm.Bold).Sprintf("AI #%d", idx)).
				WithPadding(1).
				Sprint(msg.Text))
		}
	}
}

// QueryListChanged prints the entries added since the last call.
func (c *Console) QueryListChanged(entries []session.QueryEntry) {
	fresh := c.activity.NewQueries(len(entries))
	for i := len(entries) - fresh; i < len(entries); i++ {
		c.println(pterm.NewStyle(pterm.FgLightCyan).Sprintf("  ⧉ #%d %s", i+1, SourceLabel(entries[i].Source)) +
			"\n" + pterm.NewStyle(pterm.FgLightBlue).Sprint(indent(entries[i].SQL, "    ")))
	}
}

// SQLResultReady prints a result table.
func (c *Console) SQLResultReady(res *sqlexec.Result) {
	c.mu.Lock()
	limit := c.maxRows
	c.mu.Unlock()
	c.println(FormatResult(res, limit))
}

// SQLFailed prints an execution error.
func (c *Console) SQLFailed(message string) {
	c.println(pterm.Error.Sprint(logging.Mask(message)))
}

// AgentInitFailed prints a classified error with a hint and the retry command.
func (c *Console) AgentInitFailed(message string) {
	c.println(logging.FormatAgentError("Agent initialization failed", errors.New(message)) +
		"\n" + pterm.NewStyle(pterm.FgGray).Sprint("Queued prompts are kept. Type /retry to try again."))
}

// SourceLabel describes where a logged query came from.
func SourceLabel(source int) string {
	if source == session.NoSource {
		return "Source: Custom"
	}
	return fmt.Sprintf("Source: AI #%d", source)
}

// FormatResult renders a result as a table, or as an affected-rows line for
// statements without columns.
func FormatResult(res *sqlexec.Result, maxRows int) string {
	if res == nil {
		return ""
	}
	if res.Error != "" {
		return pterm.Error.Sprint(logging.Mask(res.Error))
	}
	if len(res.Columns) == 0 {
		return pterm.Success.Sprintf("%d row(s) affected", res.RowsAffected)
	}

	shown, truncated := res.Truncated(maxRows)
	data := make(pterm.TableData, 0, len(shown.Rows)+1)
	data = append(data, shown.Columns)
	for _, row := range shown.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = cellText(v)
		}
		data = append(data, cells)
	}
	table, err := pterm.DefaultTable.WithHasHeader().WithBoxed().WithData(data).Srender()
	if err != nil {
		return pterm.Error.Sprint(err.Error())
	}
	footer := fmt.Sprintf("%d row(s)", len(res.Rows))
	if truncated {
		footer = fmt.Sprintf("showing %d of %d rows", len(shown.Rows), len(res.Rows))
	}
	return table + "\n" + pterm.NewStyle(pterm.FgGray).Sprint(footer)
}

// FormatQueryLog renders the discovered-query log with 1-based positions.
func FormatQueryLog(entries []session.QueryEntry) string {
	if len(entries) == 0 {
		return pterm.NewStyle(pterm.FgGray).Sprint("No queries yet.")
	}
	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s %s\n%s",
			pterm.NewStyle(pterm.FgCyan, pterm.Bold).Sprintf("#%d", i+1),
			pterm.NewStyle(pterm.FgGray).Sprint(SourceLabel(e.Source)),
			indent(e.SQL, "    "))
	}
	return b.String()
}

func cellText(v any) string {
	switch x := sqlexec.DisplayValue(v).(type) {
	case nil:
		return "NULL"
	case string:
		return strings.ReplaceAll(x, "\n", " ")
	default:
		return fmt.Sprint(x)
	}
}

func isProgress(line string) bool {
	for _, p := range progressPrefixes {
		if strings.HasPrefix(line, p) {
			return true
		}
	}
	return false
}

func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}

func indent(s, prefix string) string {
	return prefix + strings.ReplaceAll(s, "\n", "\n"+prefix)
}
