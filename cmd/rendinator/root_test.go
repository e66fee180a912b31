package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmdWiresSubcommands(t *testing.T) {
	cmd := newRootCmd()
	names := map[string]bool{}
	for _, c := range cmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["gltf"])
	assert.True(t, names["font"])
}

func TestGLTFCmdRejectsMissingFile(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"gltf", filepath.Join(t.TempDir(), "missing.glb")})
	assert.Error(t, cmd.Execute())
}

func TestFontCmdRejectsNonFontFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "not-a-font.ttf")
	require.NoError(t, os.WriteFile(path, []byte("definitely not a font"), 0o644))

	cmd := newRootCmd()
	cmd.SetArgs([]string{"font", path, "--output", filepath.Join(dir, "out.atlas")})
	assert.Error(t, cmd.Execute())
}

func TestFontCmdRequiresExactlyOneArg(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"font"})
	assert.Error(t, cmd.Execute())
}
