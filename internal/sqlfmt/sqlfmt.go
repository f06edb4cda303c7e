// Package sqlfmt holds lightweight text transforms for SQL shown to users.
// It does not parse SQL.
package sqlfmt

import (
	"regexp"
	"strings"
)

var (
	reQuoted = regexp.MustCompile(`'[^']*'`)
	reWord   = regexp.MustCompile(`\b[a-zA-Z]+\b`)
)

var keywords = map[string]bool{
	"select": true, "from": true, "where": true, "and": true, "or": true, "group": true,
	"by": true, "order": true, "limit": true, "join": true, "left": true, "right": true,
	"inner": true, "outer": true, "on": true, "having": true, "as": true, "distinct": true,
	"union": true, "all": true, "insert": true, "into": true, "values": true, "update": true,
	"set": true, "delete": true, "create": true, "table": true, "view": true, "drop": true,
	"case": true, "when": true, "then": true, "end": true,
}

// Normalize collapses every run of whitespace to one space and trims the ends.
func Normalize(sql string) string {
	return strings.Join(strings.Fields(sql), " ")
}

// Format normalizes sql and uppercases common keywords outside single-quoted strings.
func Format(sql string) string {
	text := Normalize(sql)

	var b strings.Builder
	last := 0
	for _, loc := range reQuoted.FindAllStringIndex(text, -1) {
		b.WriteString(upperKeywords(text[last:loc[0]]))
		b.WriteString(text[loc[0]:loc[1]])
		last = loc[1]
	}
	b.WriteString(upperKeywords(text[last:]))
	return b.String()
}

func upperKeywords(s string) string {
	return reWord.ReplaceAllStringFunc(s, func(w string) string {
		if keywords[strings.ToLower(w)] {
			return strings.ToUpper(w)
		}
		return w
	})
}
