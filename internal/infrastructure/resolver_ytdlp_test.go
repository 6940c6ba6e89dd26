package infrastructure

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractErrorMessage(t *testing.T) {
	stderr := `WARNING: unable to download video thumbnail
ERROR: [youtube] abc: Video unavailable
ERROR: Premieres in 81 minutes
`
	assert.Equal(t, "Premieres in 81 minutes", extractErrorMessage(stderr))
}

func TestExtractErrorMessage_NoErrorLine(t *testing.T) {
	assert.Empty(t, extractErrorMessage("WARNING: just a warning\n"))
	assert.Empty(t, extractErrorMessage(""))
}
