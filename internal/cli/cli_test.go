package cli

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docubot/internal/config"
	"docubot/internal/searchindex/memory"
)

func TestVersionCmd_Executes(t *testing.T) {
	originalVersion := version
	version = "test-version-1.0.0"
	defer func() { version = originalVersion }()

	// Point at a nonexistent config so defaults are used without
	// touching the user's config directory.
	originalCfgPath := cfgPath
	cfgPath = filepath.Join(t.TempDir(), "config.yaml")
	defer func() { cfgPath = originalCfgPath }()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"version"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "docubot version test-version-1.0.0")
}

func TestRootCmd_RegistersCommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "ingest", "ask", "clear", "chat", "version"} {
		assert.True(t, names[want], "command %q not registered", want)
	}
}

func TestBuildIndex_Memory(t *testing.T) {
	originalCfg := cfg
	defer func() { cfg = originalCfg }()

	var err error
	cfg, err = config.Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	cfg.Search.Kind = "memory"

	idx, err := buildIndex()
	require.NoError(t, err)
	assert.IsType(t, &memory.Index{}, idx)
}

func TestBuildIndex_UnknownKind(t *testing.T) {
	originalCfg := cfg
	defer func() { cfg = originalCfg }()

	var err error
	cfg, err = config.Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	cfg.Search.Kind = "sqlite"

	_, err = buildIndex()
	assert.ErrorContains(t, err, "unknown search index kind")
}
