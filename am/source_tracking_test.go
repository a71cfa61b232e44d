package am

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupCascade points HOME at a temp dir holding ~/.yesah/am.toml and moves
// into a project dir holding ./am.toml. Empty contents skip the file.
func setupCascade(t *testing.T, userToml, projectToml string) (userPath, projectPath string) {
	t.Helper()
	Reset()
	t.Cleanup(Reset)

	home := t.TempDir()
	t.Setenv("HOME", home)
	userDir := filepath.Join(home, ".yesah")
	require.NoError(t, os.MkdirAll(userDir, 0755))

	project := t.TempDir()
	t.Chdir(project)

	if userToml != "" {
		userPath = filepath.Join(userDir, "am.toml")
		require.NoError(t, os.WriteFile(userPath, []byte(userToml), 0644))
	}
	if projectToml != "" {
		projectPath = filepath.Join(project, "am.toml")
		require.NoError(t, os.WriteFile(projectPath, []byte(projectToml), 0644))
	}
	return userPath, projectPath
}

func TestSourceTrackingIntegration(t *testing.T) {
	t.Run("project am.toml wins over user am.toml", func(t *testing.T) {
		setupCascade(t, `
[expansion]
max_depth = 5
max_keep = 8

[server]
frame_rate = 20
`, `
[expansion]
max_keep = 15
`)

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 15, cfg.Expansion.MaxKeep, "project file should win")
		assert.Equal(t, 5, cfg.Expansion.MaxDepth, "user-only key should survive")
		assert.Equal(t, 20, cfg.Server.FrameRate, "user-only section should survive")
		assert.Equal(t, 60, cfg.Server.CommandRate, "unset keys keep defaults")
	})

	t.Run("environment variables override files", func(t *testing.T) {
		setupCascade(t, "", `
[expansion]
max_keep = 15

[server]
addr = "127.0.0.1:9000"
`)
		t.Setenv("YESAH_EXPANSION_MAX_KEEP", "4")
		t.Setenv("YESAH_ADDR", "0.0.0.0:8000")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 4, cfg.Expansion.MaxKeep)
		assert.Equal(t, "0.0.0.0:8000", cfg.Server.Addr)
	})

	t.Run("sections merge key by key", func(t *testing.T) {
		setupCascade(t, `
[provider]
kind = "http"
base_url = "http://research.local:5000"
`, `
[provider]
cache_path = "payloads.db"
`)

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, ProviderHTTP, cfg.Provider.Kind)
		assert.Equal(t, "http://research.local:5000", cfg.Provider.BaseURL)
		assert.Equal(t, "payloads.db", cfg.Provider.CachePath)
		assert.NoError(t, cfg.Validate())
	})
}

func TestActiveConfigPaths(t *testing.T) {
	userPath, projectPath := setupCascade(t, "[layout]\nwidth = 800.0\n", "[layout]\nheight = 600.0\n")

	active := ActiveConfigPaths()
	require.GreaterOrEqual(t, len(active), 2)

	// lowest precedence first, so the project file is last
	resolved := make([]string, len(active))
	for i, p := range active {
		r, err := filepath.EvalSymlinks(p)
		require.NoError(t, err)
		resolved[i] = r
	}
	wantUser, err := filepath.EvalSymlinks(userPath)
	require.NoError(t, err)
	wantProject, err := filepath.EvalSymlinks(projectPath)
	require.NoError(t, err)
	assert.Contains(t, resolved, wantUser)
	assert.Equal(t, wantProject, resolved[len(resolved)-1])

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 800.0, cfg.Layout.Width)
	assert.Equal(t, 600.0, cfg.Layout.Height)
}

func TestSourceTrackingDefaults(t *testing.T) {
	setupCascade(t, "", "")

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ProviderDir, cfg.Provider.Kind)
	assert.Equal(t, 3, cfg.Expansion.MaxDepth)
	assert.Equal(t, 12, cfg.Expansion.MaxKeep)
	assert.Equal(t, 30, cfg.Server.FrameRate)
	assert.Equal(t, []string{"http://localhost", "http://127.0.0.1"}, cfg.Server.AllowedOrigins)

	// GetViper shares the cached instance
	assert.Equal(t, 12, GetViper().GetInt("expansion.max_keep"))
	assert.Equal(t, 12, Get("expansion.max_keep"))
}
