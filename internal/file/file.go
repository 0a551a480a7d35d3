package file

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// ExpandPath expands a path to avoid `~`.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "getting user home dir")
	}
	return filepath.Join(home, path[2:]), nil
}

// EnsureParentDirectory creates the directories leading up to the given path.
func EnsureParentDirectory(path string) error {
	dir, _ := filepath.Split(path)
	if dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(err, "creating folders")
	}
	return nil
}
