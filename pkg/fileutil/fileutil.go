// Package fileutil provides file system helpers for reading inputs and writing outputs.
package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// MIDIExt is the extension given to generated files.
const MIDIExt = ".mid"

// IsDir reports whether path is an existing directory.
func IsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// OutputPath returns input with its extension replaced by ".mid".
//
// Example:
//
//	OutputPath("songs/japonesa.json") // "songs/japonesa.mid"
//	OutputPath("songs/notes")         // "songs/notes.mid"
func OutputPath(input string) string {
	ext := filepath.Ext(input)
	// A leading dot is a hidden file name, not an extension.
	if ext == filepath.Base(input) {
		ext = ""
	}
	return strings.TrimSuffix(input, ext) + MIDIExt
}

// WriteFile writes data to path through a temporary file in the same directory that is
// renamed over path only once it has been fully written and closed. Missing parent
// directories are created. On failure the temporary file is removed and path is left untouched.
func WriteFile(path string, data []byte, perm os.FileMode) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()

	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmpName, err)
	}
	if err = tmp.Chmod(perm); err != nil {
		return fmt.Errorf("failed to set permissions on %s: %w", tmpName, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmpName, err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to move output into place: %w", err)
	}
	return nil
}
