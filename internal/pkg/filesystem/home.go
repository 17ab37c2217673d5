package filesystem

import (
	"os"
	"path/filepath"
)

// AppName names the per-user state directory.
const AppName = "nlsh"

// UserHomeDir returns the current user's home directory.
// If the home directory cannot be determined, it returns "." as a fallback.
func UserHomeDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return "."
}

// StateDir returns $XDG_CONFIG_HOME/nlsh, falling back to ~/.config/nlsh.
func StateDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	return filepath.Join(UserHomeDir(), ".config", AppName)
}

// StatePath joins name onto StateDir.
func StatePath(name string) string {
	return filepath.Join(StateDir(), name)
}
