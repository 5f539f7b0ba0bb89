// Package clisocket is the transport half of the CLI text protocol: Unix
// domain socket discovery and line framing (spec §4.5 "Socket discovery",
// "Framing"). Parsing and formatting of the lines themselves lives in
// cliproto; this package only moves bytes.
package clisocket

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// SocketGlob is where the server places its per-process socket (spec §4.5
// "/tmp/attic-<pid>.sock").
const SocketGlob = "/tmp/attic-*.sock"

// ErrNoSocketFound is returned by Discover when no matching socket exists,
// a distinct error kind per spec §4.5 "Absence is reported as a distinct
// error kind."
var ErrNoSocketFound = errors.New("clisocket: no attic socket found")

// SocketPath builds the per-process socket path for a given pid.
func SocketPath(pid int) string {
	return fmt.Sprintf("/tmp/attic-%d.sock", pid)
}

// Discover globs for attic sockets and returns the most recently modified
// one, for clients that don't know a server's pid (spec §4.5).
func Discover() (string, error) {
	matches, err := filepath.Glob(SocketGlob)
	if err != nil {
		return "", fmt.Errorf("clisocket: glob: %w", err)
	}

	if len(matches) == 0 {
		return "", ErrNoSocketFound
	}

	type entry struct {
		path  string
		mtime int64
	}

	entries := make([]entry, 0, len(matches))

	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil {
			continue
		}

		entries = append(entries, entry{path: m, mtime: info.ModTime().UnixNano()})
	}

	if len(entries) == 0 {
		return "", ErrNoSocketFound
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].mtime > entries[j].mtime })

	return entries[0].path, nil
}
