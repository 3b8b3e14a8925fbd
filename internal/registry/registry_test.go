package registry

import (
	"path/filepath"
	"testing"
)

func TestRegisterPersistsAndReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "registry.json")

	r := New(path, nil)
	if err := r.Register(Entry{Prefix: "spk", Name: "SPK Network", Tokens: []string{"SPK", "LARYNX", "BROCA"}}); err != nil {
		t.Fatalf("register: %v", err)
	}

	r2 := New(path, nil)
	if err := r2.Reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	e, ok := r2.Get("spk")
	if !ok {
		t.Fatalf("expected spk entry to survive reload")
	}
	if e.Name != "SPK Network" {
		t.Fatalf("unexpected name %q", e.Name)
	}
}

func TestRemoveUnknownIsNoOp(t *testing.T) {
	dir := t.TempDir()
	r := New(filepath.Join(dir, "registry.json"), nil)
	if err := r.Remove("nope"); err != nil {
		t.Fatalf("expected no-op remove to succeed, got %v", err)
	}
}

func TestListSortedByPrefix(t *testing.T) {
	dir := t.TempDir()
	r := New(filepath.Join(dir, "registry.json"), nil)
	_ = r.Register(Entry{Prefix: "spk"})
	_ = r.Register(Entry{Prefix: "dex"})
	list := r.List()
	if len(list) != 2 || list[0].Prefix != "dex" || list[1].Prefix != "spk" {
		t.Fatalf("expected sorted [dex, spk], got %+v", list)
	}
}
