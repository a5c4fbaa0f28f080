package solana

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWalletFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys", "id.json")
	w := NewWallet()

	if err := w.SaveToFile(path); err != nil {
		t.Fatalf("SaveToFile failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read keypair: %v", err)
	}
	if !strings.HasPrefix(string(data), "[") {
		t.Errorf("expected a number array, got %.20s", data)
	}

	loaded, err := WalletFromFile(path)
	if err != nil {
		t.Fatalf("WalletFromFile failed: %v", err)
	}
	if !loaded.PublicKey().Equals(w.PublicKey()) {
		t.Errorf("expected %s, got %s", w.PublicKey(), loaded.PublicKey())
	}

	if err := w.SaveToFile(path); err == nil {
		t.Error("expected refusal to overwrite an existing keypair")
	}
}

func TestWalletFromFileErrors(t *testing.T) {
	dir := t.TempDir()

	short := filepath.Join(dir, "short.json")
	if err := os.WriteFile(short, []byte("[1,2,3]"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := WalletFromFile(short); err == nil {
		t.Error("expected error for short keypair")
	}

	if _, err := WalletFromFile(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	if got := ExpandHome("~/.config/solana/id.json"); got != filepath.Join(home, ".config/solana/id.json") {
		t.Errorf("unexpected expansion %s", got)
	}
	if got := ExpandHome("/tmp/id.json"); got != "/tmp/id.json" {
		t.Errorf("expected absolute path unchanged, got %s", got)
	}
}
