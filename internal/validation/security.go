// Package validation keeps devkit's subprocess calls and file writes inside
// the project. It holds the command allowlist and the checks for
// configured paths, plugin ids and reload-client origins.
package validation

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
)

// AllowedCommands lists the executables devkit may start.
var AllowedCommands = map[string]bool{
	"git":               true,
	"gh":                true,
	"npm":               true,
	"npx":               true,
	"node":              true,
	"eslint":            true,
	"markdownlint-cli2": true,
	"dprint":            true,
	"prettier":          true,
	"cspell":            true,
	"tsc":               true,
	"svelte-check":      true,
}

var (
	ErrEmpty      = errors.New("value is empty")
	ErrShellMeta  = errors.New("contains a shell metacharacter")
	ErrTraversal  = errors.New("escapes the project directory")
	ErrRestricted = errors.New("points into a system directory")
	ErrNotAllowed = errors.New("is not on the command allowlist")
	ErrOrigin     = errors.New("origin rejected")
)

const (
	// shellMeta may never appear in a command name or argument.
	shellMeta = ";&|$`<>\\\"'"
	// pathMeta may never appear in a configured path.
	pathMeta = ";&|$`<>"
)

var systemDirs = []string{"/etc/", "/proc/", "/sys/", "/dev/", "/boot/"}

// ValidateArgument checks a configured value that ends up on a command
// line, such as a glob or a directory.
func ValidateArgument(arg string) error {
	if i := strings.IndexAny(arg, shellMeta); i >= 0 {
		return fmt.Errorf("argument %q %w (%q)", arg, ErrShellMeta, arg[i])
	}
	if strings.Contains(arg, "..") {
		return fmt.Errorf("argument %q %w", arg, ErrTraversal)
	}
	return nil
}

// ValidateCommand checks an executable name against allowed.
func ValidateCommand(command string, allowed map[string]bool) error {
	switch {
	case command == "":
		return fmt.Errorf("command: %w", ErrEmpty)
	case !allowed[command]:
		return fmt.Errorf("command %q %w", command, ErrNotAllowed)
	}
	if err := ValidateArgument(command); err != nil {
		return fmt.Errorf("command: %w", err)
	}
	return nil
}

// ValidatePath rejects paths that climb out of the project, reach into
// system directories or carry shell metacharacters.
func ValidatePath(path string) error {
	if path == "" {
		return fmt.Errorf("path: %w", ErrEmpty)
	}

	clean := filepath.ToSlash(filepath.Clean(path))
	if clean == ".." || strings.HasPrefix(clean, "../") || strings.Contains(clean, "/../") {
		return fmt.Errorf("path %q %w", path, ErrTraversal)
	}

	lower := strings.ToLower(clean)
	if slices.ContainsFunc(systemDirs, func(dir string) bool { return strings.HasPrefix(lower, dir) }) {
		return fmt.Errorf("path %q %w", path, ErrRestricted)
	}

	if i := strings.IndexAny(path, pathMeta); i >= 0 {
		return fmt.Errorf("path %q %w (%q)", path, ErrShellMeta, path[i])
	}
	return nil
}

var pluginIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// ValidatePluginID checks that id is usable as a plugin folder name.
func ValidatePluginID(id string) error {
	if !pluginIDPattern.MatchString(id) {
		return fmt.Errorf("plugin id %q must contain only lowercase letters, digits and hyphens", id)
	}
	return nil
}

// ValidateOrigin accepts an Origin header that equals an allowed entry or
// whose host, with or without port, does. The desktop app reports itself
// with the app scheme.
func ValidateOrigin(origin string, allowed []string) error {
	if origin == "" {
		return fmt.Errorf("%w: missing Origin header", ErrOrigin)
	}

	u, err := url.Parse(origin)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOrigin, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" && u.Scheme != "app" {
		return fmt.Errorf("%w: scheme %q", ErrOrigin, u.Scheme)
	}

	// Entries may name a full origin, host:port or a bare host, which
	// then accepts any port.
	if slices.Contains(allowed, origin) || slices.Contains(allowed, u.Host) ||
		slices.Contains(allowed, u.Hostname()) {
		return nil
	}
	return fmt.Errorf("%w: %s is not allowed", ErrOrigin, origin)
}
