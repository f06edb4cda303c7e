// Package main is the entry point for the askdb CLI application.
// askdb answers natural-language questions about a database by streaming an AI agent's
// reasoning and running the SQL it discovers.
package main

import (
	"askdb/cli/cmd"
)

func main() {
	cmd.Execute()
}
