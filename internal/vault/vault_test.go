package vault

import (
	"errors"
	"testing"
)

func TestSaveGetRoundTrip(t *testing.T) {
	v := NewFileVault(t.TempDir(), []byte("master-key"))

	if err := v.Save("dev", "s3cret!"); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := v.Get("dev")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "s3cret!" {
		t.Errorf("Get = %q, want %q", got, "s3cret!")
	}
}

func TestGetMissing(t *testing.T) {
	v := NewFileVault(t.TempDir(), []byte("master-key"))

	_, err := v.Get("nope")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveOverwrites(t *testing.T) {
	v := NewFileVault(t.TempDir(), []byte("master-key"))

	if err := v.Save("dev", "old"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := v.Save("dev", "new"); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := v.Get("dev")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "new" {
		t.Errorf("Get = %q, want %q", got, "new")
	}
}

func TestWrongMasterKeyFails(t *testing.T) {
	dir := t.TempDir()

	if err := NewFileVault(dir, []byte("right")).Save("dev", "secret"); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if _, err := NewFileVault(dir, []byte("wrong")).Get("dev"); err == nil {
		t.Fatal("expected decryption failure with the wrong master key")
	}
}

func TestDeleteIdempotent(t *testing.T) {
	v := NewFileVault(t.TempDir(), []byte("master-key"))

	if err := v.Save("dev", "secret"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := v.Delete("dev"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := v.Delete("dev"); err != nil {
		t.Fatalf("Delete of missing entry: %v", err)
	}
	if _, err := v.Get("dev"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}
