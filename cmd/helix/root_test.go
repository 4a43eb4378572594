package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/helix/pkg/domain"
)

func run(t *testing.T, args ...string) string {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetOut(nil); rootCmd.SetArgs(nil) })

	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestVersionCommand(t *testing.T) {
	assert.Contains(t, run(t, "version"), "helix version ")
}

func TestToolsCommand_JSON(t *testing.T) {
	out := run(t, "tools", "--format", "json", "--core-url", "http://127.0.0.1:1")

	var tools []domain.Tool
	require.NoError(t, json.Unmarshal([]byte(out), &tools))
	require.Len(t, tools, 10)
	assert.Equal(t, "calendar_free_slots", tools[0].Name)
}

func TestLoadEnv_FlagsOverrideConfig(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("HELIX_CORE_URL", "http://from-env:8000")

	require.NoError(t, rootCmd.ParseFlags([]string{"--core-url", "http://from-flag:9000"}))
	t.Cleanup(func() {
		f := rootCmd.Flags().Lookup("core-url")
		_ = f.Value.Set("")
		f.Changed = false
	})

	e, err := loadEnv(rootCmd)
	require.NoError(t, err)
	assert.Equal(t, "http://from-flag:9000", e.cfg.CoreURL)
}
