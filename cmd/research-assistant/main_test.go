// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitConfig_HomeConfigMatchesHelp(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	chdir(t, t.TempDir())

	dir := filepath.Join(home, ".config", "research-assistant")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, configName+".yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: debug\n"), 0o644))

	initConfig()

	assert.Equal(t, path, viper.ConfigFileUsed())
	assert.Equal(t, "debug", viper.GetString("log_level"))

	usage := rootCmd.PersistentFlags().Lookup("config").Usage
	assert.Contains(t, usage, "~/.config/research-assistant/"+configName+".yaml")
	assert.NotContains(t, usage, "config.yaml")
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir from Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
