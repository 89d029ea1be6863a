package pkg

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Prefix is the executable's base name without extension or leading dots.
// Binaries built by the dlv debugger (__debug_bin*) use [Name].
//
//nolint:gochecknoglobals
var Prefix = sync.OnceValue(func() string {
	exe, err := os.Executable()
	if err != nil {
		exe = os.Args[0]
	}

	base := filepath.Base(exe)
	base = strings.TrimLeft(strings.TrimSuffix(base, filepath.Ext(base)), ".")

	if base == "" || strings.HasPrefix(base, "__debug_bin") {
		return Name
	}

	return base
})

// ConfigDir is the directory of the configuration file.
//
//nolint:gochecknoglobals
var ConfigDir = sync.OnceValue(func() string {
	return userDir(os.UserConfigDir, ".config")
})

// CacheDir is the directory of transient files such as REPL history and
// profiles.
//
//nolint:gochecknoglobals
var CacheDir = sync.OnceValue(func() string {
	return userDir(os.UserCacheDir, ".cache")
})

// userDir joins [Prefix] onto the directory returned by base, falling back
// to hidden under the home directory, then to the working directory.
func userDir(base func() (string, error), hidden string) string {
	dir, err := base()
	if err != nil {
		if home, herr := os.UserHomeDir(); herr == nil {
			dir = filepath.Join(home, hidden)
		} else if dir, err = os.Getwd(); err != nil {
			dir = "."
		}
	}

	return filepath.Join(dir, Prefix())
}
