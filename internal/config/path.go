package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// MemoryDatabase selects an in-memory SQLite database.
const MemoryDatabase = ":memory:"

// DatabasePath returns the database location from database.path, falling
// back to DefaultDatabasePath when unset.
func DatabasePath(v *viper.Viper) string {
	path := strings.TrimSpace(v.GetString("database.path"))
	if path == "" {
		return DefaultDatabasePath()
	}
	return ExpandPath(path)
}

// DefaultDatabasePath is spice/spice.db under $XDG_DATA_HOME, or under
// ~/.local/share when that is unset.
func DefaultDatabasePath() string {
	if dataHome := os.Getenv("XDG_DATA_HOME"); dataHome != "" {
		return filepath.Join(dataHome, "spice", "spice.db")
	}
	return ExpandPath("~/.local/share/spice/spice.db")
}

// ExpandPath resolves a leading ~ and $VAR or ${VAR} references, then cleans
// the result. The SQLite in-memory name is returned unchanged.
func ExpandPath(path string) string {
	if path == "" || path == MemoryDatabase {
		return path
	}

	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = home + path[1:]
		}
	}

	return filepath.Clean(os.ExpandEnv(path))
}
