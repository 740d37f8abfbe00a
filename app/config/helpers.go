package config

import (
	"path/filepath"
	"strings"
)

// ExpandTilde replaces a leading ~ path component with the given home directory.
func ExpandTilde(path, home string) string {
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~"+string(filepath.Separator)) {
		return filepath.Join(home, path[2:])
	}
	return path
}
