// Package apps builds the alias -> launch command index of installed
// desktop applications.
package apps

import (
	"bufio"
	"bytes"
	log "log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Index maps a lowercase alias to a launch command. It is built once and
// never modified afterwards.
type Index map[string]string

// Defaults are the built-in aliases. They take precedence over anything
// found while scanning.
var Defaults = map[string]string{
	"navigateur":         "firefox",
	"firefox":            "firefox",
	"chrome":             "google-chrome",
	"calculatrice":       "gnome-calculator",
	"éditeur":            "gedit",
	"terminal":           "gnome-terminal",
	"visual studio code": "code",
	"vs code":            "code",
	"code":               "code",
}

// DefaultDirs returns the standard application registry directories.
func DefaultDirs() []string {
	dirs := []string{"/usr/share/applications"}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".local", "share", "applications"))
	}
	return dirs
}

type Options struct {
	Dirs      []string          // scanned in order
	Locale    string            // suffix of the localized Name key, e.g. "fr"
	Overrides map[string]string // applied after scanning
}

// Build scans opts.Dirs for *.desktop files and returns the resulting index.
// Unreadable or incomplete descriptors are skipped.
func Build(opts Options) Index {
	idx := make(Index)

	for _, dir := range opts.Dirs {
		files, err := filepath.Glob(filepath.Join(dir, "*.desktop"))
		if err != nil {
			continue
		}

		for _, path := range files {
			entry, err := readDescriptor(path, opts.Locale)
			if err != nil {
				log.Debug("Skipping descriptor", "path", path, "err", err)
				continue
			}
			if entry.hidden || entry.exec == "" {
				continue
			}

			stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			idx.add(stem, entry.exec)
			idx.add(entry.name, entry.exec)
			idx.add(entry.localName, entry.exec)
		}
	}

	for alias, cmd := range opts.Overrides {
		idx.add(alias, cmd)
	}

	log.Info("Applications loaded", "count", len(idx))

	return idx
}

func (idx Index) add(alias, cmd string) {
	alias = strings.ToLower(strings.TrimSpace(alias))
	if alias == "" {
		return
	}
	idx[alias] = cmd
}

// Aliases returns every alias in lexical order.
func (idx Index) Aliases() []string {
	out := make([]string, 0, len(idx))
	for a := range idx {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

type descriptor struct {
	name      string
	localName string
	exec      string
	hidden    bool
}

func readDescriptor(path, locale string) (descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return descriptor{}, err
	}
	return parseDescriptor(data, locale), nil
}

// parseDescriptor reads the keys of the [Desktop Entry] group. Action groups
// carry their own Name and Exec and are ignored.
func parseDescriptor(data []byte, locale string) descriptor {
	var (
		d       descriptor
		inEntry = true
	)

	localKey := "Name[" + locale + "]="

	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())

		if strings.HasPrefix(line, "[") {
			inEntry = line == "[Desktop Entry]"
			continue
		}
		if !inEntry {
			continue
		}

		switch {
		case strings.HasPrefix(line, "Name="):
			d.name = strings.TrimSpace(strings.TrimPrefix(line, "Name="))
		case locale != "" && strings.HasPrefix(line, localKey):
			d.localName = strings.TrimSpace(strings.TrimPrefix(line, localKey))
		case strings.HasPrefix(line, "Exec="):
			if f := strings.Fields(strings.TrimPrefix(line, "Exec=")); len(f) > 0 {
				d.exec = f[0]
			}
		case strings.HasPrefix(line, "NoDisplay=true"):
			d.hidden = true
		}
	}

	return d
}
