package sqlfmt

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"  SELECT\n\t1  ", "SELECT 1"},
		{"select *\r\nfrom   users", "select * from users"},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "keywords uppercased",
			in:   "select name from users where id = 1 order by name limit 5",
			want: "SELECT name FROM users WHERE id = 1 ORDER BY name LIMIT 5",
		},
		{
			name: "strings untouched",
			in:   "select * from t where note = 'select from where'",
			want: "SELECT * FROM t WHERE note = 'select from where'",
		},
		{
			name: "identifiers containing keywords untouched",
			in:   "select order_id, fromage from orders",
			want: "SELECT order_id, fromage FROM orders",
		},
		{
			name: "whitespace collapsed",
			in:   "select\n  count(*)\nas n\nfrom users",
			want: "SELECT count(*) AS n FROM users",
		},
		{
			name: "several strings",
			in:   "insert into t values ('a', 'b and c')",
			want: "INSERT INTO t VALUES ('a', 'b and c')",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Format(tt.in); got != tt.want {
				t.Errorf("Format() = %q, want %q", got, tt.want)
			}
		})
	}
}
