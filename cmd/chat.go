// Copyright (c) 2025 AskDB
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"askdb/cli/internal/config"
	"askdb/cli/internal/dsn"
	"askdb/cli/internal/logging"
	"askdb/cli/internal/render"
	"askdb/cli/internal/session"
	"askdb/cli/internal/sqlexec"
)

const chatHelp = `Type a question to ask the agent. Commands:
  /sql <statement>  run your own SQL
  /queries          list the queries run so far
  /run <n>          run query #n again
  /retry            retry starting the agent
  /help             show this help
  /quit             leave the session`

// chatCmd starts an interactive session against one database.
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive question-and-answer session",
	Long: `The chat command opens a session against a database. Questions are answered by an
AI agent that looks at the schema, runs SQL and explains the result. The last query the
agent ran is executed again when it finishes so you can see the full result.

` + chatHelp,
	RunE: runChat,
}

func init() {
	addTargetFlags(chatCmd)
	rootCmd.AddCommand(chatCmd)
}

type chatCommand int

const (
	cmdPrompt chatCommand = iota
	cmdSQL
	cmdQueries
	cmdRun
	cmdRetry
	cmdHelp
	cmdQuit
	cmdEmpty
	cmdUnknown
)

// parseChatLine classifies one line of input and returns its argument.
func parseChatLine(line string) (chatCommand, string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return cmdEmpty, ""
	}
	if !strings.HasPrefix(line, "/") {
		return cmdPrompt, line
	}
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch strings.ToLower(name) {
	case "/sql":
		return cmdSQL, arg
	case "/queries":
		return cmdQueries, ""
	case "/run":
		return cmdRun, arg
	case "/retry":
		return cmdRetry, ""
	case "/help", "/?":
		return cmdHelp, ""
	case "/quit", "/exit", "/q":
		return cmdQuit, ""
	}
	return cmdUnknown, name
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	p, d, source, err := openTarget(ctx)
	if err != nil {
		return err
	}
	printTarget(d, source)

	console := render.NewConsole(os.Stdout, app.settings.Values().MaxResultRows)
	app.settings.Watch(func(v config.Values) { console.SetMaxRows(v.MaxResultRows) })

	exec := sqlexec.New(p, app.log)
	factory := &agentFactory{pool: p}
	defer factory.close()

	s := session.New(session.Config{
		Init:      factory.init,
		Exec:      exec.Run,
		Presenter: console,
		Logger:    app.log,
	})
	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		if err := s.Run(ctx); err != nil {
			app.log.Debug("session loop stopped", zap.Error(err))
		}
	}()
	defer func() {
		s.Close()
		<-runDone
	}()

	app.log.Info("chat session started", zap.String("session_id", s.ID()))
	s.RetryInit()

	lines := readLines(os.Stdin)
	for {
		fmt.Print(pterm.NewStyle(pterm.FgCyan, pterm.Bold).Sprint("askdb› "))
		var line string
		select {
		case <-ctx.Done():
			fmt.Println()
			return nil
		case l, ok := <-lines:
			if !ok {
				fmt.Println()
				return nil
			}
			line = l
		}

		kind, arg := parseChatLine(line)
		switch kind {
		case cmdEmpty:
		case cmdPrompt:
			s.Submit(arg)
		case cmdSQL:
			if arg == "" {
				pterm.Warning.Println("usage: /sql <statement>")
				continue
			}
			s.RunSQL(arg)
		case cmdQueries:
			fmt.Println(render.FormatQueryLog(s.Queries()))
		case cmdRun:
			n, err := strconv.Atoi(arg)
			if err != nil || n < 1 {
				pterm.Warning.Println("usage: /run <n>, where n is a number from /queries")
				continue
			}
			s.Replay(n - 1)
		case cmdRetry:
			s.RetryInit()
		case cmdHelp:
			fmt.Println(chatHelp)
		case cmdQuit:
			return nil
		case cmdUnknown:
			pterm.Warning.Printf("unknown command %s; type /help\n", arg)
		}
	}
}

// readLines delivers stdin lines on a channel so the loop can also watch for interrupts.
func readLines(r io.Reader) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for sc.Scan() {
			out <- sc.Text()
		}
	}()
	return out
}

func printTarget(d dsn.Descriptor, source string) {
	url, err := dsn.Resolve(d)
	if err != nil {
		url = string(d.Kind)
	}
	pterm.Println(pterm.NewStyle(pterm.FgLightCyan).Sprint("→ Database:   ") +
		pterm.NewStyle(pterm.FgCyan, pterm.Bold).Sprint(string(d.Kind)))
	pterm.Println(pterm.NewStyle(pterm.FgLightCyan).Sprint("→ Connection: ") +
		pterm.NewStyle(pterm.FgLightBlue).Sprint(logging.Mask(url)) +
		pterm.NewStyle(pterm.FgGray).Sprint(" ("+source+")"))
	pterm.Println()
}
