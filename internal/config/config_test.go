package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			App:    AppConfig{Environment: "development"},
			Logger: LoggerConfig{Level: "info"},
			Data:   DataConfig{BasePath: "/tmp/sproutling"},
			Invite: InviteConfig{
				Expiry:        168 * time.Hour,
				EnforceExpiry: true,
				AppScheme:     "sproutling",
				LinkHost:      "sproutling.app",
			},
		}
	}

	t.Run("valid config passes", func(t *testing.T) {
		require.NoError(t, valid().Validate())
	})

	t.Run("rejects unknown environment", func(t *testing.T) {
		cfg := valid()
		cfg.App.Environment = "qa"
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects unknown log level", func(t *testing.T) {
		cfg := valid()
		cfg.Logger.Level = "verbose"
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects empty data path", func(t *testing.T) {
		cfg := valid()
		cfg.Data.BasePath = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects non-positive invite expiry", func(t *testing.T) {
		cfg := valid()
		cfg.Invite.Expiry = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("allows disabled expiry outside production", func(t *testing.T) {
		cfg := valid()
		cfg.Invite.EnforceExpiry = false
		assert.NoError(t, cfg.Validate())
	})

	t.Run("rejects disabled expiry in production", func(t *testing.T) {
		cfg := valid()
		cfg.App.Environment = "production"
		cfg.Invite.EnforceExpiry = false
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects missing link host", func(t *testing.T) {
		cfg := valid()
		cfg.Invite.LinkHost = ""
		assert.Error(t, cfg.Validate())
	})
}

func TestGetConfigValue(t *testing.T) {
	t.Run("flag wins over env", func(t *testing.T) {
		t.Setenv("SPROUTLING_TEST_KEY", "from-env")
		got := getConfigValue("from-flag", "SPROUTLING_TEST_KEY", "fallback")
		assert.Equal(t, "from-flag", got)
	})

	t.Run("env wins over default", func(t *testing.T) {
		t.Setenv("SPROUTLING_TEST_KEY", "from-env")
		got := getConfigValue("", "SPROUTLING_TEST_KEY", "fallback")
		assert.Equal(t, "from-env", got)
	})

	t.Run("default when nothing set", func(t *testing.T) {
		got := getConfigValue("", "SPROUTLING_UNSET_KEY", "fallback")
		assert.Equal(t, "fallback", got)
	})
}

func TestGetBoolConfigValue(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"true", true},
		{"TRUE", true},
		{"1", true},
		{"yes", true},
		{"false", false},
		{"0", false},
		{"anything", false},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			assert.Equal(t, tt.want, getBoolConfigValue(tt.value, "SPROUTLING_UNSET_KEY", true))
		})
	}

	t.Run("default when unset", func(t *testing.T) {
		assert.True(t, getBoolConfigValue("", "SPROUTLING_UNSET_KEY", true))
		assert.False(t, getBoolConfigValue("", "SPROUTLING_UNSET_KEY", false))
	})
}

func TestParseDurationValue(t *testing.T) {
	t.Run("parses default", func(t *testing.T) {
		d, err := parseDurationValue("", "SPROUTLING_UNSET_KEY", "168h")
		require.NoError(t, err)
		assert.Equal(t, 7*24*time.Hour, d)
	})

	t.Run("flag overrides default", func(t *testing.T) {
		d, err := parseDurationValue("30m", "SPROUTLING_UNSET_KEY", "168h")
		require.NoError(t, err)
		assert.Equal(t, 30*time.Minute, d)
	})

	t.Run("rejects garbage", func(t *testing.T) {
		_, err := parseDurationValue("seven days", "SPROUTLING_UNSET_KEY", "168h")
		assert.Error(t, err)
	})
}

func TestExpandPath(t *testing.T) {
	t.Run("empty uses default", func(t *testing.T) {
		got, err := expandPath("", "/default/path")
		require.NoError(t, err)
		assert.Equal(t, "/default/path", got)
	})

	t.Run("tilde expands to home", func(t *testing.T) {
		home, err := os.UserHomeDir()
		require.NoError(t, err)

		got, err := expandPath("~/sproutling-data", "")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(home, "sproutling-data"), got)
	})

	t.Run("absolute path is cleaned", func(t *testing.T) {
		got, err := expandPath("/var//lib/../lib/sproutling", "")
		require.NoError(t, err)
		assert.Equal(t, "/var/lib/sproutling", got)
	})
}

func TestLoadEnvFile(t *testing.T) {
	t.Run("loads values and respects existing env", func(t *testing.T) {
		dir := t.TempDir()
		envPath := filepath.Join(dir, ".env")
		content := "# comment\nSPROUTLING_ENV_A=alpha\nSPROUTLING_ENV_B=\"quoted\"\n\nSPROUTLING_ENV_C=fromfile\n"
		require.NoError(t, os.WriteFile(envPath, []byte(content), 0o600))

		t.Setenv("SPROUTLING_ENV_C", "preset")
		t.Setenv("SPROUTLING_ENV_A", "")
		t.Setenv("SPROUTLING_ENV_B", "")
		os.Unsetenv("SPROUTLING_ENV_A")
		os.Unsetenv("SPROUTLING_ENV_B")

		require.NoError(t, loadEnvFile(envPath))
		assert.Equal(t, "alpha", os.Getenv("SPROUTLING_ENV_A"))
		assert.Equal(t, "quoted", os.Getenv("SPROUTLING_ENV_B"))
		assert.Equal(t, "preset", os.Getenv("SPROUTLING_ENV_C"))
	})

	t.Run("rejects malformed lines", func(t *testing.T) {
		dir := t.TempDir()
		envPath := filepath.Join(dir, ".env")
		require.NoError(t, os.WriteFile(envPath, []byte("NOT A PAIR\n"), 0o600))
		assert.Error(t, loadEnvFile(envPath))
	})

	t.Run("missing file is an error for the caller to ignore", func(t *testing.T) {
		assert.Error(t, loadEnvFile(filepath.Join(t.TempDir(), "nope.env")))
	})
}
