// Package registry maps spoken commands to clip paths. Entries are
// partitioned into the protected "system" namespace, built once at startup
// from the manifest, and the "removable" namespace, rebuilt wholesale as
// external media comes and goes.
package registry

import (
	"log/slog"
	"os"
	"sort"
	"sync"
)

type Namespace string

const (
	System    Namespace = "system"
	Removable Namespace = "removable"
)

type Entry struct {
	Command   string
	Path      string
	Namespace Namespace
}

type Registry struct {
	mu      sync.RWMutex
	entries []Entry // insertion order, system entries first
	index   map[string]int
}

func New() *Registry {
	return &Registry{index: make(map[string]int)}
}

// AddSystemEntries installs the fixed manifest. Paths missing on disk are
// skipped with a log line, never an error: a kiosk with a half-populated
// media directory still runs with what it has. Manifest order is made
// deterministic by sorting the commands.
func (r *Registry) AddSystemEntries(manifest map[string]string) {
	commands := make([]string, 0, len(manifest))
	for cmd := range manifest {
		commands = append(commands, cmd)
	}
	sort.Strings(commands)

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, cmd := range commands {
		path := manifest[cmd]
		if _, err := os.Stat(path); err != nil {
			slog.Warn("system clip missing, skipping", "command", cmd, "path", path)
			continue
		}
		if _, ok := r.index[cmd]; ok {
			continue
		}
		r.index[cmd] = len(r.entries)
		r.entries = append(r.entries, Entry{Command: cmd, Path: path, Namespace: System})
	}
}

// ReplaceNamespace atomically evicts every entry in ns and installs the
// given ones. An incoming entry colliding with a system command is dropped
// and logged; system entries are never overwritten.
func (r *Registry) ReplaceNamespace(ns Namespace, entries []Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.entries[:0:0]
	for _, e := range r.entries {
		if e.Namespace != ns {
			kept = append(kept, e)
		}
	}

	index := make(map[string]int, len(kept)+len(entries))
	for i, e := range kept {
		index[e.Command] = i
	}

	for _, e := range entries {
		prev, exists := index[e.Command]
		if exists {
			if kept[prev].Namespace == System {
				slog.Warn("command shadows system entry, dropped",
					"command", e.Command, "path", e.Path)
			} else {
				slog.Debug("duplicate command, keeping first", "command", e.Command)
			}
			continue
		}
		e.Namespace = ns
		index[e.Command] = len(kept)
		kept = append(kept, e)
	}

	r.entries = kept
	r.index = index
}

func (r *Registry) Lookup(command string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.index[command]
	if !ok {
		return "", false
	}
	return r.entries[i].Path, true
}

// Commands returns a snapshot of all commands in insertion order. The
// order across removable rebuilds is unspecified; matching must not
// depend on it for tie-breaks.
func (r *Registry) Commands() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.Command
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
