package cmd

import (
	"strings"
	"testing"

	"askdb/cli/internal/config"
	"askdb/cli/internal/dsn"
)

func TestFormatPoolOptions(t *testing.T) {
	o := dsn.DefaultPoolOptions()
	got := formatPoolOptions(o)
	for _, want := range []string{"pool size:      5 (+10 overflow)", "idle timeout:   30s", "recycle:        off", "pre-ping:       true"} {
		if !strings.Contains(got, want) {
			t.Errorf("formatPoolOptions() = %q, missing %q", got, want)
		}
	}
	if strings.Contains(got, "driver args") {
		t.Errorf("formatPoolOptions() = %q, want no driver args line", got)
	}

	o.RecycleSeconds = 300
	o.ExtraDriverArgs = map[string]string{"sslmode": "disable", "password": "supersecretvalue"}
	got = formatPoolOptions(o)
	if !strings.Contains(got, "recycle:        300s") {
		t.Errorf("formatPoolOptions() = %q, want recycle 300s", got)
	}
	if strings.Contains(got, "supersecretvalue") {
		t.Errorf("formatPoolOptions() leaked a secret driver arg: %q", got)
	}
	if !strings.Contains(got, "sslmode=disable") {
		t.Errorf("formatPoolOptions() = %q, want sslmode=disable", got)
	}
}

func TestConnectionRows(t *testing.T) {
	conns := []config.Connection{
		{SavedName: "prod", Type: "postgres", URLOverride: "postgresql://app:secret@db:5432/shop"},
		{SavedName: "local", Type: "sqlite", Name: "/tmp/app.db"},
	}

	named := connectionRows(conns, true)
	if named[0][0] != "prod" || named[1][0] != "local" {
		t.Errorf("connectionRows(named) first column = %q, %q", named[0][0], named[1][0])
	}
	if strings.Contains(named[0][2], "secret") {
		t.Errorf("connectionRows() leaked a password: %q", named[0][2])
	}
	if named[1][2] != "sqlite:/tmp/app.db" {
		t.Errorf("connectionRows() target = %q, want %q", named[1][2], "sqlite:/tmp/app.db")
	}

	numbered := connectionRows(conns, false)
	if numbered[0][0] != "1" || numbered[1][0] != "2" {
		t.Errorf("connectionRows(numbered) first column = %q, %q", numbered[0][0], numbered[1][0])
	}
}
