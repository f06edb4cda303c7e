package keychain

import (
	"errors"
	"testing"

	"github.com/99designs/keyring"
)

func newTestManager() *Manager {
	return NewWithRing(keyring.NewArrayKeyring(nil))
}

func TestSetGetDelete(t *testing.T) {
	m := newTestManager()

	if err := m.Set(KeyOpenAIAPIKey, "sk-test-1234"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, err := m.Get(KeyOpenAIAPIKey)
	if err != nil || got != "sk-test-1234" {
		t.Errorf("Get() = %q, %v, want %q, nil", got, err, "sk-test-1234")
	}

	if err := m.Delete(KeyOpenAIAPIKey); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := m.Get(KeyOpenAIAPIKey); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after Delete error = %v, want ErrNotFound", err)
	}
	if err := m.Delete(KeyOpenAIAPIKey); err != nil {
		t.Errorf("Delete() of a missing key error = %v, want nil", err)
	}
}

func TestSetEmptyRemoves(t *testing.T) {
	m := newTestManager()
	_ = m.Set(KeyLangSmithAPIKey, "ls-key")
	if err := m.Set(KeyLangSmithAPIKey, ""); err != nil {
		t.Fatalf("Set(\"\") error = %v", err)
	}
	if _, err := m.Get(KeyLangSmithAPIKey); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestDBPasswords(t *testing.T) {
	m := newTestManager()
	if err := m.SaveDBPassword("prod", "p@ss"); err != nil {
		t.Fatalf("SaveDBPassword() error = %v", err)
	}
	if got, _ := m.LoadDBPassword("prod"); got != "p@ss" {
		t.Errorf("LoadDBPassword() = %q, want %q", got, "p@ss")
	}
	if _, err := m.LoadDBPassword("staging"); !errors.Is(err, ErrNotFound) {
		t.Errorf("LoadDBPassword(missing) error = %v, want ErrNotFound", err)
	}
}

func TestClearAll(t *testing.T) {
	ring := keyring.NewArrayKeyring(nil)
	m := NewWithRing(ring)
	_ = m.Set(KeyOpenAIAPIKey, "a")
	_ = m.SaveDBPassword("prod", "b")
	_ = ring.Set(keyring.Item{Key: "unrelated", Data: []byte("c")})

	if err := m.ClearAll(); err != nil {
		t.Fatalf("ClearAll() error = %v", err)
	}
	keys, _ := ring.Keys()
	if len(keys) != 1 || keys[0] != "unrelated" {
		t.Errorf("keys after ClearAll = %v, want [unrelated]", keys)
	}
}

func TestLookup(t *testing.T) {
	m := newTestManager()
	t.Setenv("LANGSMITH_API_KEY", "")
	t.Setenv("LANGCHAIN_API_KEY", "from-env")

	if got := Lookup(m, KeyLangSmithAPIKey, "LANGSMITH_API_KEY", "LANGCHAIN_API_KEY"); got != "from-env" {
		t.Errorf("Lookup() = %q, want env fallback %q", got, "from-env")
	}

	_ = m.Set(KeyLangSmithAPIKey, "from-keychain")
	if got := Lookup(m, KeyLangSmithAPIKey, "LANGCHAIN_API_KEY"); got != "from-keychain" {
		t.Errorf("Lookup() = %q, want %q", got, "from-keychain")
	}

	if got := Lookup(nil, KeyOpenAIAPIKey, "ASKDB_UNSET_FOR_TEST"); got != "" {
		t.Errorf("Lookup(nil) = %q, want empty", got)
	}
}
