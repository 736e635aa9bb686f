package listen

import "strings"

// MatchOptions tunes the matcher. The strict variant (the daemon default)
// rejects recognized text longer than MaxWords before looking at any
// command; the fuzzy variant skips the ceiling so a command buried in a
// long utterance still fires.
type MatchOptions struct {
	MaxWords int
	Fuzzy    bool
	Aliases  map[string][]string
}

// DefaultAliases are alternate pronunciations the recognizer commonly
// produces for the built-in system commands.
var DefaultAliases = map[string][]string{
	"coffee":      {"cafe", "caffeine", "coff"},
	"insect":      {"bug", "beetle", "insec"},
	"grasshopper": {"grass", "hopper"},
}

// MatchCommand finds the first command matching the recognized text, in
// the commands slice's order. Tie-break order across registry rebuilds is
// deliberately unspecified.
func MatchCommand(text string, commands []string, o MatchOptions) (string, bool) {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return "", false
	}

	words := strings.Fields(text)
	if !o.Fuzzy && o.MaxWords > 0 && len(words) > o.MaxWords {
		return "", false
	}

	for _, cmd := range commands {
		if matchesOne(text, words, cmd, o.Aliases[cmd]) {
			return cmd, true
		}
	}
	return "", false
}

func matchesOne(text string, words []string, cmd string, aliases []string) bool {
	// Containment either direction covers the common case of a command
	// spoken inside a longer utterance, or only partially recognized.
	if strings.Contains(text, cmd) || strings.Contains(cmd, text) {
		return true
	}

	// A multi-word command counts as heard when at least half its words
	// show up inside some recognized word.
	cmdWords := strings.Fields(cmd)
	if len(cmdWords) > 1 {
		hits := 0
		for _, cw := range cmdWords {
			for _, w := range words {
				if strings.Contains(w, cw) {
					hits++
					break
				}
			}
		}
		if hits*2 >= len(cmdWords) {
			return true
		}
	}

	for _, alias := range aliases {
		if strings.Contains(text, alias) {
			return true
		}
	}
	return false
}
