// Package config provides configuration file parsing and validation.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ParseFilePath validates a user supplied file path and returns it cleaned and absolute.
// A leading "~/" is expanded to the home directory and relative paths are
// resolved against the working directory. It returns an error if:
//   - The path is empty
//   - The file does not exist
//   - The path points to a directory instead of a file
//   - exts is non-empty and the file extension is not one of them
func ParseFilePath(path string, exts ...string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", errors.New("path cannot be empty")
	}

	abs, err := filepath.Abs(expandHome(path))
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("file does not exist: %s", abs)
		}
		return "", err
	}

	if info.IsDir() {
		return "", fmt.Errorf("path is a directory, not a file: %s", abs)
	}

	if len(exts) > 0 {
		ext := strings.ToLower(filepath.Ext(abs))
		for _, want := range exts {
			if ext == want {
				return abs, nil
			}
		}
		return "", fmt.Errorf("file must have one of these extensions: %s", strings.Join(exts, ", "))
	}

	return abs, nil
}

// ParseConfigPath validates an explicit --config-file value.
func ParseConfigPath(path string) (string, error) {
	return ParseFilePath(path, ".yaml", ".yml")
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
