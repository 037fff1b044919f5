// Package filex prepares the client's local data directory, which holds the
// session database and therefore a bearer token.
package filex

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	dirPerm  os.FileMode = 0o700
	filePerm os.FileMode = 0o600
)

var userHomeDir = os.UserHomeDir

// EnsureDir creates dir and its parents readable only by the owner and
// returns its absolute path. A leading "~/" is expanded to the home
// directory; other relative paths resolve against the working directory.
func EnsureDir(dir string) (string, error) {
	if rest, ok := strings.CutPrefix(dir, "~/"); ok {
		home, err := userHomeDir()
		if err != nil {
			return "", fmt.Errorf("home dir: %w", err)
		}
		dir = filepath.Join(home, rest)
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", dir, err)
	}
	if err := os.MkdirAll(abs, dirPerm); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", abs, err)
	}
	return abs, nil
}

// RestrictFile creates path if it does not exist and limits it to owner
// read/write.
func RestrictFile(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDONLY, filePerm)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Chmod(path, filePerm)
}
