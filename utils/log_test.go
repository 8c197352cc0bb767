package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeLogMessage(t *testing.T) {
	assert.Equal(t, "Rolex Submariner", SanitizeLogMessage("Rolex Submariner"))
	assert.Equal(t, "line1 line2", SanitizeLogMessage("line1\nline2"))
	assert.Equal(t, "ab", SanitizeLogMessage("a\x00b"))
	assert.Equal(t, "a\tb", SanitizeLogMessage("a\tb"))
}

func TestSanitizeLogUsername(t *testing.T) {
	long := strings.Repeat("x", 80)
	got := SanitizeLogUsername(long)
	assert.Equal(t, 53, len(got))
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.Equal(t, "alice", SanitizeLogUsername("alice"))
}
