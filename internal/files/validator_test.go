package files

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	dir := t.TempDir()

	empty := filepath.Join(dir, "empty.json")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	info, err := Validate(empty)
	if err != nil {
		t.Fatalf("empty file rejected: %v", err)
	}
	if info.Name != "empty.json" || info.Size != 0 || !filepath.IsAbs(info.Path) {
		t.Fatalf("unexpected info %+v", info)
	}
	if info.Type != "application/json" {
		t.Fatalf("type = %q", info.Type)
	}

	blob := filepath.Join(dir, "blob")
	if err := os.WriteFile(blob, []byte("abc"), 0o644); err != nil {
		t.Fatal(err)
	}
	info, err = Validate(blob)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size != 3 || info.Type != "application/octet-stream" {
		t.Fatalf("unexpected info %+v", info)
	}
}

func TestValidate_Rejects(t *testing.T) {
	dir := t.TempDir()
	cases := []struct {
		path string
		want string
	}{
		{"", "no file"},
		{filepath.Join(dir, "missing"), "does not exist"},
		{dir, "is a directory"},
	}
	for _, c := range cases {
		_, err := Validate(c.path)
		if err == nil || !strings.Contains(err.Error(), c.want) {
			t.Fatalf("Validate(%q) = %v, want error containing %q", c.path, err, c.want)
		}
	}
}
