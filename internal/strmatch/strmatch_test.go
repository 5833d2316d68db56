package strmatch

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMatch(t *testing.T) {
	tests := []struct {
		s, mask       string
		caseSensitive bool
		want          bool
	}{
		{"buffer_opened", "buffer_opened", true, true},
		{"buffer_opened", "buffer_*", true, true},
		{"buffer_opened", "*_opened", true, true},
		{"buffer_opened", "*", true, true},
		{"buffer_opened", "*fer*ened", true, true},
		{"buffer_opened", "window_*", true, false},
		{"Buffer_Opened", "buffer_*", true, false},
		{"Buffer_Opened", "buffer_*", false, true},
		{"", "*", true, true},
		{"", "", true, true},
		{"a", "", true, false},
		{"abcabc", "*abc", true, true},
		{"abcab", "*abc", true, false},
	}
	for _, tc := range tests {
		t.Run(tc.s+"~"+tc.mask, func(t *testing.T) {
			require.Equal(t, tc.want, Match(tc.s, tc.mask, tc.caseSensitive))
		})
	}
}

func TestMatchList(t *testing.T) {
	masks := SplitMasks("irc.*, !irc.server.*,,weechat.look.*")
	require.Equal(t, []string{"irc.*", "!irc.server.*", "weechat.look.*"}, masks)

	require.True(t, MatchList("irc.look.color", masks, true))
	require.False(t, MatchList("irc.server.libera", masks, true))
	require.True(t, MatchList("weechat.look.prefix", masks, true))
	require.False(t, MatchList("relay.network.port", masks, true))
	require.False(t, MatchList("anything", nil, true))
}

func TestFoldHelpers(t *testing.T) {
	require.True(t, EqualFold("Buffer", "bUFFER"))
	require.True(t, EqualFold("STRASSE", "strasse"))
	require.False(t, EqualFold("buffer", "buffers"))
	require.True(t, HasPrefixFold("Window", "win"))
	require.Equal(t, 0, CompareFold("Help", "help"))
	require.Equal(t, -1, CompareFold("alias", "Buffer"))
}
