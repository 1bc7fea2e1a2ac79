package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandVersion(t *testing.T) {
	cmd := GetRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"--version"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "captura version")
}

func TestScanCommandRequiresArgument(t *testing.T) {
	cmd := GetRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"scan"})

	assert.Error(t, cmd.Execute())
}

func TestMimeTypeForFile(t *testing.T) {
	assert.Equal(t, "image/jpeg", mimeTypeForFile("a/b/receipt.jpg", nil))
	assert.Equal(t, "image/jpeg", mimeTypeForFile("receipt.jpeg", nil))
	assert.Equal(t, "image/png", mimeTypeForFile("receipt.png", nil))
	assert.Equal(t, "image/bmp", mimeTypeForFile("receipt.bmp", nil))

	pngMagic := []byte("\x89PNG\r\n\x1a\n")
	assert.Equal(t, "image/png", mimeTypeForFile("receipt.unknown", pngMagic))
}
