package common

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgramVersion(t *testing.T) {
	v := ProgramVersion{Version: "1.2.0", CommitHash: "abc123", BuildTime: "2024-01-01"}
	assert.Equal(t, "v1.2.0-abc123", v.Short())
	assert.Equal(t, "blocklist-merger/v1.2.0-abc123", v.UserAgent())
	assert.True(t, strings.Contains(v.String(), "Commit: abc123"))

	bare := ProgramVersion{Version: "dev"}
	assert.Equal(t, "vdev", bare.Short())
}

func TestTerminalWidthFallback(t *testing.T) {
	width, _ := TerminalWidth()
	assert.Greater(t, width, 0)
}
