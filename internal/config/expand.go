package config

import (
	"os"
	"path/filepath"
	"strings"
)

// ExpandTilde replaces ~ or ~/path with the user's home directory.
// Does not support ~username syntax - just ~ for the current user.
func ExpandTilde(path string) string {
	if path == "" {
		return path
	}

	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}

	if path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return home
	}

	return path
}

// ExpandPath expands ~ and the ${HOME} and ${USER} variables in a local path.
// Relative paths are resolved against base when base is non-empty, so paths in
// a config file are relative to that file rather than the working directory.
func ExpandPath(path, base string) string {
	if path == "" {
		return path
	}

	result := path
	if strings.Contains(result, "${HOME}") {
		home, _ := os.UserHomeDir()
		result = strings.ReplaceAll(result, "${HOME}", home)
	}
	if strings.Contains(result, "${USER}") {
		result = strings.ReplaceAll(result, "${USER}", getUser())
	}

	result = ExpandTilde(result)
	if base != "" && !filepath.IsAbs(result) {
		result = filepath.Join(base, result)
	}
	return result
}

// getUser returns the current username for ${USER} expansion.
func getUser() string {
	for _, key := range []string{"USER", "LOGNAME", "USERNAME"} {
		if user := os.Getenv(key); user != "" {
			return user
		}
	}
	return "user"
}
