package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SanitizeFilename reduces a name announced by a remote peer to a single
// path element that is safe to create.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f || strings.ContainsRune(`<>:"|?*`, r) {
			return '_'
		}
		return r
	}, name)
	name = strings.TrimSpace(name)

	if name == "" || name == "." || name == ".." || name == "/" {
		return "received.bin"
	}
	return name
}

// UniqueFilename returns a path in dir for name that does not exist yet,
// appending (1), (2), etc. before the extension if needed.
func UniqueFilename(dir, name string) string {
	name = SanitizeFilename(name)
	candidate := filepath.Join(dir, name)
	if _, err := os.Stat(candidate); os.IsNotExist(err) {
		return candidate
	}

	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for counter := 1; ; counter++ {
		candidate = filepath.Join(dir, fmt.Sprintf("%s (%d)%s", base, counter, ext))
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}
