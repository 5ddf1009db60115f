package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetConfigValue_Precedence(t *testing.T) {
	t.Setenv("SHELFMARK_TEST_KEY", "from-env")

	assert.Equal(t, "from-flag", getConfigValue("from-flag", "SHELFMARK_TEST_KEY", "default"))
	assert.Equal(t, "from-env", getConfigValue("", "SHELFMARK_TEST_KEY", "default"))
	assert.Equal(t, "default", getConfigValue("", "SHELFMARK_TEST_MISSING", "default"))
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	content := "# comment line\n\nSHELFMARK_ENVFILE_A=hello\nSHELFMARK_ENVFILE_B=\"quoted\"\n"
	require.NoError(t, os.WriteFile(envPath, []byte(content), 0o600))

	t.Setenv("SHELFMARK_ENVFILE_A", "")
	t.Setenv("SHELFMARK_ENVFILE_B", "")
	require.NoError(t, loadEnvFile(envPath))

	assert.Equal(t, "hello", os.Getenv("SHELFMARK_ENVFILE_A"))
	assert.Equal(t, "quoted", os.Getenv("SHELFMARK_ENVFILE_B"))
}

func TestLoadEnvFile_DoesNotOverrideEnv(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("SHELFMARK_ENVFILE_C=file\n"), 0o600))

	t.Setenv("SHELFMARK_ENVFILE_C", "already-set")
	require.NoError(t, loadEnvFile(envPath))
	assert.Equal(t, "already-set", os.Getenv("SHELFMARK_ENVFILE_C"))
}

func TestLoadEnvFile_InvalidLine(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("not a key value pair\n"), 0o600))

	assert.Error(t, loadEnvFile(envPath))
}

func TestValidate(t *testing.T) {
	valid := &Config{
		App:    AppConfig{Environment: "development"},
		Logger: LoggerConfig{Level: "info"},
		Data:   DataConfig{BasePath: "/tmp/shelfmark"},
	}
	assert.NoError(t, valid.Validate())

	badEnv := *valid
	badEnv.App.Environment = "testing"
	assert.Error(t, badEnv.Validate())

	badLevel := *valid
	badLevel.Logger.Level = "verbose"
	assert.Error(t, badLevel.Validate())

	noData := *valid
	noData.Data.BasePath = ""
	assert.Error(t, noData.Validate())
}

func TestExpandPath(t *testing.T) {
	abs, err := expandPath("/already/absolute", "")
	require.NoError(t, err)
	assert.Equal(t, "/already/absolute", abs)

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	tilde, err := expandPath("~/shelfmark", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "shelfmark"), tilde)

	def, err := expandPath("", "/the/default")
	require.NoError(t, err)
	assert.Equal(t, "/the/default", def)
}

func TestDatabasePath(t *testing.T) {
	cfg := &Config{Data: DataConfig{BasePath: "/srv/shelfmark"}}
	assert.Equal(t, "/srv/shelfmark/db", cfg.DatabasePath())
}

func TestConfigDurations(t *testing.T) {
	cfg := &Config{
		Auth: AuthConfig{
			AccessTokenDuration:  15 * time.Minute,
			RefreshTokenDuration: 720 * time.Hour,
		},
	}
	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTokenDuration)
	assert.Equal(t, 30*24*time.Hour, cfg.Auth.RefreshTokenDuration)
}
