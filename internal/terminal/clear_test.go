package terminal

import (
	"bufio"
	"bytes"
	"strings"
	"testing"
)

func TestLinesUsed(t *testing.T) {
	tests := []struct {
		length, width, want int
	}{
		{0, 80, 2},
		{10, 80, 2},
		{80, 80, 2},
		{81, 80, 3},
		{200, 80, 4},
		{5, 0, 2},
	}
	for _, tt := range tests {
		if got := LinesUsed(tt.length, tt.width); got != tt.want {
			t.Errorf("LinesUsed(%d, %d) = %d, want %d", tt.length, tt.width, got, tt.want)
		}
	}
}

func TestClearPreviousLines(t *testing.T) {
	var buf bytes.Buffer
	ClearPreviousLines(&buf, 10)
	out := buf.String()
	if got := strings.Count(out, "\x1b[2K"); got < 2 {
		t.Errorf("cleared %d lines, want at least 2", got)
	}
	if strings.HasSuffix(out, "\x1b[1A") {
		t.Errorf("output ends by moving up: %q", out)
	}
}

func TestReadSecretFromPipe(t *testing.T) {
	if IsInteractive() {
		t.Skip("stdin is a terminal")
	}
	var out bytes.Buffer
	in := bufio.NewReader(strings.NewReader("s3cret\r\nnext\n"))
	got, err := ReadSecret(&out, in, "Password: ")
	if err != nil {
		t.Fatalf("ReadSecret() error = %v", err)
	}
	if got != "s3cret" {
		t.Errorf("ReadSecret() = %q, want %q", got, "s3cret")
	}
	if out.String() != "Password: " {
		t.Errorf("prompt = %q", out.String())
	}
}
