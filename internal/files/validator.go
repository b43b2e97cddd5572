package files

import (
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
)

// FileInfo describes a local file that is about to be sent.
type FileInfo struct {
	// Path is the absolute path to the file
	Path string

	// Name is announced to the receiver
	Name string

	Size int64

	// Type is the MIME type guessed from the extension
	Type string
}

// Validate checks that path is a readable regular file. Empty files are
// allowed.
func Validate(path string) (FileInfo, error) {
	if path == "" {
		return FileInfo{}, errors.New("no file specified")
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return FileInfo{}, fmt.Errorf("%s: failed to get absolute path: %w", path, err)
	}

	stat, err := os.Stat(absPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return FileInfo{}, fmt.Errorf("%s: file does not exist", path)
		}
		return FileInfo{}, fmt.Errorf("%s: failed to stat file: %w", path, err)
	}
	if stat.IsDir() {
		return FileInfo{}, fmt.Errorf("%s: is a directory", path)
	}
	if !stat.Mode().IsRegular() {
		return FileInfo{}, fmt.Errorf("%s: not a regular file", path)
	}

	f, err := os.Open(absPath)
	if err != nil {
		return FileInfo{}, fmt.Errorf("%s: cannot open file (check permissions): %w", path, err)
	}
	f.Close()

	mimeType := mime.TypeByExtension(filepath.Ext(absPath))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	return FileInfo{
		Path: absPath,
		Name: filepath.Base(absPath),
		Size: stat.Size(),
		Type: mimeType,
	}, nil
}
