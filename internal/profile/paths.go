// Package profile defines the on-disk layout of a console profile under
// ~/.atende. A profile holds logs, the media cache, and staged-attachment
// previews; nothing else is persisted locally.
package profile

import (
	"os"
	"path/filepath"
)

// BaseDir returns ~/.atende.
func BaseDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".atende")
}

// Dir returns the profile-specific directory.
func Dir(name string) string {
	return filepath.Join(BaseDir(), "profiles", name)
}

// MediaCacheDir returns the directory holding resolved media resources.
func MediaCacheDir(name string) string {
	return filepath.Join(Dir(name), "mediacache")
}

// PreviewDir returns the directory holding staged-attachment previews.
func PreviewDir(name string) string {
	return filepath.Join(Dir(name), "previews")
}

// LogDir returns the log directory for a profile.
func LogDir(name string) string {
	return filepath.Join(Dir(name), "logs")
}

// LogPath returns the console log file path.
func LogPath(name string) string {
	return filepath.Join(LogDir(name), "atende.log")
}

// ConfigPath returns the global config file path.
func ConfigPath() string {
	return filepath.Join(BaseDir(), "config.toml")
}

// EnsureDir creates the profile directory tree with owner-only permissions.
func EnsureDir(name string) error {
	dirs := []string{
		Dir(name),
		LogDir(name),
		MediaCacheDir(name),
		PreviewDir(name),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0700); err != nil {
			return err
		}
	}
	return nil
}
