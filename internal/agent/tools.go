// Copyright (c) 2025 AskDB
// Licensed under the MIT License. See LICENSE file in the project root for details.

package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"askdb/cli/internal/dsn"
	apperrors "askdb/cli/internal/errors"
	"askdb/cli/internal/sqlexec"
)

// Tool names offered to the model. Inputs to ToolQuery are what a stream reports
// as discovered queries.
const (
	ToolListTables   = "sql_db_list_tables"
	ToolSchema       = "sql_db_schema"
	ToolQueryChecker = "sql_db_query_checker"
	ToolQuery        = "sql_db_query"
)

const maxCellChars = 100

func toolDefs() []toolDef {
	str := func(desc string) map[string]any {
		return map[string]any{"type": "string", "description": desc}
	}
	object := func(name, desc string) map[string]any {
		return map[string]any{
			"type":       "object",
			"properties": map[string]any{name: str(desc)},
			"required":   []string{name},
		}
	}
	return []toolDef{
		{Type: "function", Function: functionDef{
			Name:        ToolQuery,
			Description: "Input to this tool is a detailed and correct SQL query, output is a result from the database. If the query is not correct, an error message will be returned. If an error is returned, rewrite the query, check the query, and try again. If you encounter an issue with an unknown column, use " + ToolSchema + " to query the correct table fields.",
			Parameters:  object("query", "A detailed and correct SQL query."),
		}},
		{Type: "function", Function: functionDef{
			Name:        ToolSchema,
			Description: "Input to this tool is a comma-separated list of tables, output is the schema and sample rows for those tables. Be sure that the tables actually exist by calling " + ToolListTables + " first! Example Input: table1, table2, table3",
			Parameters:  object("table_names", "A comma-separated list of the table names for which to return the schema."),
		}},
		{Type: "function", Function: functionDef{
			Name:        ToolListTables,
			Description: "Input is an empty string, output is a comma-separated list of tables in the database.",
			Parameters:  object("tool_input", "An empty string"),
		}},
		{Type: "function", Function: functionDef{
			Name:        ToolQueryChecker,
			Description: "Use this tool to double check if your query is correct before executing it. Always use this tool before executing a query with " + ToolQuery + "!",
			Parameters:  object("query", "A detailed and SQL query to be checked."),
		}},
	}
}

// toolbox executes tool calls against one database.
type toolbox struct {
	kind      dsn.Kind
	inspector *sqlexec.Inspector
	executor  *sqlexec.Executor
	checker   func(ctx context.Context, prompt string) (string, error)
}

// decodeInput turns tool call arguments into the action's tool input. Arguments that
// are not a JSON object are kept as a bare string.
func decodeInput(arguments string) any {
	var m map[string]any
	if err := json.Unmarshal([]byte(arguments), &m); err == nil {
		return m
	}
	return arguments
}

// inputString picks the named argument, falling back to a bare string input.
func inputString(input any, key string) string {
	switch v := input.(type) {
	case string:
		return v
	case map[string]any:
		if s, ok := v[key].(string); ok {
			return s
		}
		for _, alt := range []string{"query", "sql", "input", "tool_input"} {
			if s, ok := v[alt].(string); ok {
				return s
			}
		}
	}
	return ""
}

// run executes one action and returns its observation. Tool failures are returned as
// observations so the model can correct itself.
func (tb *toolbox) run(ctx context.Context, a Action) string {
	switch a.Tool {
	case ToolListTables:
		tables, err := tb.inspector.ListTables(ctx)
		if err != nil {
			return "Error: " + err.Error()
		}
		return strings.Join(tables, ", ")

	case ToolSchema:
		var parts []string
		for _, name := range strings.Split(inputString(a.ToolInput, "table_names"), ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			info, err := tb.inspector.DescribeTable(ctx, name)
			if err != nil {
				return "Error: " + err.Error()
			}
			parts = append(parts, info.String())
		}
		return strings.Join(parts, "\n\n")

	case ToolQueryChecker:
		if tb.checker == nil {
			return inputString(a.ToolInput, "query")
		}
		out, err := tb.checker(ctx, checkerPrompt(tb.kind, inputString(a.ToolInput, "query")))
		if err != nil {
			return "Error: " + err.Error()
		}
		return out

	case ToolQuery:
		res, err := tb.executor.Run(ctx, inputString(a.ToolInput, "query"))
		if err != nil {
			return "Error: " + apperrors.Message(err)
		}
		return formatRows(res)

	default:
		return fmt.Sprintf("%s is not a valid tool, try one of [%s, %s, %s, %s].",
			a.Tool, ToolQuery, ToolSchema, ToolListTables, ToolQueryChecker)
	}
}

// formatRows renders rows as a list of tuples with long cells cut short.
func formatRows(res *sqlexec.Result) string {
	if len(res.Rows) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("[")
	for i, row := range res.Rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for j, v := range row {
			if j > 0 {
				b.WriteString(", ")
			}
			b.WriteString(formatCell(sqlexec.DisplayValue(v)))
		}
		if len(row) == 1 {
			b.WriteString(",")
		}
		b.WriteString(")")
	}
	b.WriteString("]")
	return b.String()
}

func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return "None"
	case string:
		if r := []rune(x); len(r) > maxCellChars {
			x = string(r[:maxCellChars]) + "..."
		}
		return "'" + x + "'"
	default:
		return fmt.Sprint(x)
	}
}

func dialect(k dsn.Kind) string {
	switch k {
	case dsn.KindPostgres:
		return "PostgreSQL"
	case dsn.KindMySQL:
		return "MySQL"
	default:
		return "SQLite"
	}
}

func checkerPrompt(k dsn.Kind, query string) string {
	return query + `
Double check the ` + dialect(k) + ` query above for common mistakes, including:
- Using NOT IN with NULL values
- Using UNION when UNION ALL should have been used
- Using BETWEEN for exclusive ranges
- Data type mismatch in predicates
- Properly quoting identifiers
- Using the correct number of arguments for functions
- Casting to the correct data type
- Using the proper columns for joins

If there are any of the above mistakes, rewrite the query. If there are no mistakes, just reproduce the original query.

Output the final SQL query only.`
}

func systemPrompt(k dsn.Kind, topK int) string {
	return fmt.Sprintf(`You are an agent designed to interact with a SQL database.
Given an input question, create a syntactically correct %[1]s query to run, then look at the results of the query and return the answer.
Unless the user specifies a specific number of examples they wish to obtain, always limit your query to at most %[2]d results.
You can order the results by a relevant column to return the most interesting examples in the database.
Never query for all the columns from a specific table, only ask for the relevant columns given the question.
You have access to tools for interacting with the database.
Only use the given tools. Only use the information returned by the tools to construct your final answer.
You MUST double check your query before executing it. If you get an error while executing a query, rewrite the query and try again.

DO NOT make any DML statements (INSERT, UPDATE, DELETE, DROP etc.) to the database.

If the question does not seem related to the database, just return "I don't know" as the answer.

Always start by listing the tables in the database to see what you can query. Then query the schema of the most relevant tables.`, dialect(k), topK)
}
