package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `{
		"port": 8080,
		"jwt_secret": "s",
		"oauth": {"google": {"client_id": "id", "client_secret": "secret"}}
	}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 72, cfg.JWTTTLHours)
	require.Equal(t, BackendDrive, cfg.Backend.Type)
	require.Equal(t, "NotesData", cfg.Backend.Drive.RootFolderName)
	require.Equal(t, ".app_metadata.json", cfg.Backend.Drive.MetadataFileName)
	require.Equal(t, 2, cfg.Backend.Drive.MaxMembers)
	require.Equal(t, "sqlite", cfg.Cache.Type)
	require.Equal(t, "local", cfg.FileStore.Type)
	require.Equal(t, 72*60, cfg.Session.TTLMinutes)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("JUSTNOTES_JWT_SECRET", "from-env")
	t.Setenv("DATABASE_DSN", "postgres://x")
	path := writeConfig(t, `{
		"port": 8080,
		"jwt_secret": "s",
		"backend": {"type": "postgres"},
		"oauth": {"github": {"client_id": "id", "client_secret": "secret"}}
	}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "from-env", cfg.JWTSecret)
	require.Equal(t, "postgres://x", cfg.Backend.Database.DSN)
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"no secret":   `{"port": 1, "oauth": {"google": {"client_id": "a", "client_secret": "b"}}}`,
		"bad backend": `{"port": 1, "jwt_secret": "s", "backend": {"type": "ftp"}, "oauth": {"google": {"client_id": "a", "client_secret": "b"}}}`,
		"no db":       `{"port": 1, "jwt_secret": "s", "backend": {"type": "postgres"}, "oauth": {"google": {"client_id": "a", "client_secret": "b"}}}`,
		"no oauth":    `{"port": 1, "jwt_secret": "s"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			require.Error(t, err)
		})
	}
}
