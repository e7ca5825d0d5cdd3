package signaling

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "Aysel", normalizeName("  Aysel  "))
	assert.Equal(t, DefaultName, normalizeName(""))
	assert.Equal(t, DefaultName, normalizeName("   \t"))

	long := strings.Repeat("x", MaxNameLen+5)
	assert.Equal(t, strings.Repeat("x", MaxNameLen), normalizeName(long))
}

func TestNormalizeChatText(t *testing.T) {
	assert.Equal(t, "salam", normalizeChatText("  salam \n"))
	assert.Equal(t, "", normalizeChatText("   "))

	long := strings.Repeat("y", MaxTextLen*2)
	assert.Equal(t, MaxTextLen, len([]rune(normalizeChatText(long))))
}

func TestTruncateRunesKeepsCharactersWhole(t *testing.T) {
	// Multi-byte characters must never be split mid-rune.
	s := strings.Repeat("é", 10)
	got := truncateRunes(s, 4)
	assert.Equal(t, "éééé", got)

	assert.Equal(t, "abc", truncateRunes("abc", 10))
	assert.Equal(t, "", truncateRunes("abc", 0))
}

func TestNormalizeRoomID(t *testing.T) {
	assert.Equal(t, "abc", normalizeRoomID("  abc "))
	// Case matters; ids are otherwise opaque.
	assert.Equal(t, "ABC", normalizeRoomID("ABC"))
}
