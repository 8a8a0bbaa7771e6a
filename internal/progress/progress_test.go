package progress

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFallsBackToNopOffTerminal(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "out"))
	require.NoError(t, err)
	defer f.Close()

	assert.IsType(t, Nop{}, New(3, true, f))
	assert.IsType(t, Nop{}, New(3, false, os.Stderr))
	assert.IsType(t, Nop{}, New(3, true, nil))
}

func TestBarRendersDescriptionAndCount(t *testing.T) {
	var buf bytes.Buffer
	bar := NewBar(2, &buf)

	bar.Describe("app_db")
	bar.Add(1)
	bar.Describe("legacy_db")
	bar.Add(1)
	bar.Finish()

	out := buf.String()
	assert.Contains(t, out, "legacy_db")
	assert.Contains(t, out, "2/2")
}
