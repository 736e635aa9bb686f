// Package media discovers playable clips: a pure filename scanner and a
// poller that tracks removable volumes.
package media

import (
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"voicebox/internal/registry"
)

var videoExts = map[string]bool{
	".mp4": true,
	".avi": true,
	".mkv": true,
	".mov": true,
	".wmv": true,
	".m4v": true,
}

// Reserved names belong to system clips and never become spoken commands.
var reservedNames = map[string]bool{
	"listening": true,
	"welcome":   true,
	"help":      true,
}

// MaxCommandWords caps how long a derived command may be. Anything longer
// cannot be reliably spoken in one breath.
const MaxCommandWords = 4

// Scan walks dir recursively and derives one command per video file.
// Duplicate commands within a scan keep the first occurrence. The returned
// entries carry no namespace; the caller decides where they live.
func Scan(dir string) ([]registry.Entry, error) {
	var entries []registry.Entry
	seen := make(map[string]bool)

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			slog.Warn("scan skipping", "path", path, "err", err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || !videoExts[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		command := DeriveCommand(d.Name())
		if command == "" || reservedNames[command] {
			return nil
		}
		if seen[command] {
			slog.Warn("duplicate command in scan, keeping first", "command", command, "path", path)
			return nil
		}
		seen[command] = true
		entries = append(entries, registry.Entry{Command: command, Path: path})
		return nil
	})
	if err != nil {
		return entries, err
	}
	return entries, nil
}

// DeriveCommand turns a clip filename into its spoken command: extension
// stripped, separators become spaces, non-alphanumerics removed,
// whitespace collapsed, lowercased. Empty or over-long results are
// rejected with "".
func DeriveCommand(filename string) string {
	name := strings.TrimSuffix(filename, filepath.Ext(filename))
	name = strings.ToLower(name)

	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r == '_' || r == '-' || r == '.':
			b.WriteByte(' ')
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == ' ':
			b.WriteRune(r)
		}
	}

	words := strings.Fields(b.String())
	if len(words) == 0 || len(words) > MaxCommandWords {
		return ""
	}
	return strings.Join(words, " ")
}
