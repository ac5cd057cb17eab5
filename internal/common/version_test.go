package common

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadVersionFrom(t *testing.T) {
	original := Version
	t.Cleanup(func() { Version = original })

	dir := t.TempDir()
	Version = "dev"
	assert.Equal(t, "dev", LoadVersionFrom(dir))

	require.NoError(t, os.WriteFile(filepath.Join(dir, VersionFile), []byte("  \n"), 0o644))
	assert.Equal(t, "dev", LoadVersionFrom(dir))

	require.NoError(t, os.WriteFile(filepath.Join(dir, VersionFile), []byte("1.4.2\nrelease notes\n"), 0o644))
	assert.Equal(t, "1.4.2", LoadVersionFrom(dir))
	assert.Equal(t, "1.4.2", CurrentBuild().Version)
}

func TestBuildInfoString(t *testing.T) {
	info := BuildInfo{Version: "1.0.0", Build: "2024-08-15", GitCommit: "abc123"}
	assert.Equal(t, "1.0.0 (build: 2024-08-15, commit: abc123)", info.String())
}
