package main

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/ussdflow"
	"github.com/aretw0/ussdflow/internal/config"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().AddFlagSet(rootCmd.PersistentFlags())
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func TestLoadConfig(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("USSDFLOW_STORE=sqlite\nUSSDFLOW_PORT=9090\n"), 0o644))
	t.Setenv("USSDFLOW_STORE", "")
	t.Setenv("USSDFLOW_PORT", "")
	os.Unsetenv("USSDFLOW_STORE")
	os.Unsetenv("USSDFLOW_PORT")

	cfg, err := loadConfig(newTestCommand(t, "--env", envFile, "--log-level", "debug", "--strict"))
	require.NoError(t, err)
	assert.Equal(t, config.StoreSQLite, cfg.Store)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.True(t, cfg.Strict)

	_, err = loadConfig(newTestCommand(t, "--env", envFile, "--log-level", "loud"))
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	versionCmd.SetOut(&out)
	versionCmd.Run(versionCmd, nil)
	assert.Equal(t, "ussdflow version "+ussdflow.Version+"\n", out.String())
}
