package listen

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func strictOpts() MatchOptions {
	return MatchOptions{MaxWords: 4, Aliases: DefaultAliases}
}

func fuzzyOpts() MatchOptions {
	return MatchOptions{MaxWords: 4, Fuzzy: true, Aliases: DefaultAliases}
}

func TestMatchCommand(t *testing.T) {
	commands := []string{"coffee", "insect", "grand opening clip"}

	tests := []struct {
		name  string
		text  string
		opts  MatchOptions
		want  string
		found bool
	}{
		{"exact", "coffee", strictOpts(), "coffee", true},
		{"command inside text", "some coffee please", strictOpts(), "coffee", true},
		{"text inside command", "grand opening", strictOpts(), "grand opening clip", true},
		{"alias", "there is a bug", strictOpts(), "insect", true},
		{"alias caffeine", "caffeine", strictOpts(), "coffee", true},
		{"half of multiword command", "opening clip now", strictOpts(), "grand opening clip", true},
		{"below half of multiword", "clip", strictOpts(), "grand opening clip", true}, // containment
		{"no match", "what time is it", strictOpts(), "", false},
		{"empty text", "", strictOpts(), "", false},
		{"empty text fuzzy", "", fuzzyOpts(), "", false},
		{"over ceiling strict", "i would like some coffee please", strictOpts(), "", false},
		{"over ceiling fuzzy", "i would like some coffee please", fuzzyOpts(), "coffee", true},
		{"case folded", "COFFEE", strictOpts(), "coffee", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := MatchCommand(tt.text, commands, tt.opts)
			assert.Equal(t, tt.found, found)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatchHalfWordsRule(t *testing.T) {
	commands := []string{"big summer sale"}
	opts := MatchOptions{MaxWords: 4}

	// Two of three command words appear inside recognized words, and
	// neither string contains the other.
	got, found := MatchCommand("summer big", commands, opts)
	assert.True(t, found)
	assert.Equal(t, "big summer sale", got)

	// One of three is below half and there is no containment.
	_, found = MatchCommand("sale something", commands, opts)
	assert.False(t, found)
}

func TestMatchFirstWins(t *testing.T) {
	// Both commands match; registry order decides.
	got, found := MatchCommand("coffee bug", []string{"insect", "coffee"}, strictOpts())
	assert.True(t, found)
	assert.Equal(t, "insect", got, "first matching command in registry order wins")
}
