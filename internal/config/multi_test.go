package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigRoot(t *testing.T) {
	dir := isolate(t)
	assert.Equal(t, filepath.Join(dir, "siteci"), ConfigRoot())
	assert.Equal(t, filepath.Join(dir, "siteci", "configs", "ci.yaml"), ConfigPath("ci"))
}

func TestProfiles(t *testing.T) {
	isolate(t)

	_, err := CurrentLabel()
	assert.ErrorIs(t, err, ErrNoConfig)

	_, err = CreateEmptyConfig(DefaultLabel)
	require.NoError(t, err)
	stagingPath, err := CreateEmptyConfig("staging")
	require.NoError(t, err)

	_, err = CreateEmptyConfig("staging")
	assert.Error(t, err)

	writeFile(t, stagingPath, "workers: 2\n")
	require.NoError(t, SwitchConfig("staging"))

	cfg, used, err := LoadMerged(Options{})
	require.NoError(t, err)
	assert.Equal(t, stagingPath, used)
	assert.Equal(t, 2, cfg.Workers)

	list, err := ListConfigs()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, DefaultLabel, list[0].Label)
	assert.False(t, list[0].Active)
	assert.Equal(t, "staging", list[1].Label)
	assert.True(t, list[1].Active)

	require.NoError(t, RenameConfig("staging", "preview"))
	label, err := CurrentLabel()
	require.NoError(t, err)
	assert.Equal(t, "preview", label)

	_, err = ConfigPathByLabel("staging")
	assert.Error(t, err)

	switched, err := RemoveConfig("preview")
	require.NoError(t, err)
	assert.True(t, switched)

	label, err = CurrentLabel()
	require.NoError(t, err)
	assert.Equal(t, DefaultLabel, label)

	_, err = RemoveConfig(DefaultLabel)
	assert.Error(t, err)
	assert.Error(t, SwitchConfig("missing"))
}

func TestAddConfig(t *testing.T) {
	isolate(t)

	src := filepath.Join(t.TempDir(), "src.yaml")
	writeFile(t, src, "lang: ja\n")

	require.NoError(t, AddConfig("copied", src))
	assert.Error(t, AddConfig("copied", src))
	assert.Error(t, AddConfig(" ", src))

	cfg, err := loadYAML(ConfigPath("copied"))
	require.NoError(t, err)
	assert.Equal(t, "ja", cfg.Lang)
}

func TestPrintMasksSecrets(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PSIAPIKey = "super-secret"

	var buf bytes.Buffer
	cfg.Print(&buf)

	assert.Contains(t, buf.String(), " -psi_api_key: (set)")
	assert.Contains(t, buf.String(), " -github_token: (unset)")
	assert.NotContains(t, buf.String(), "super-secret")
}

func TestCheckLabel(t *testing.T) {
	isolate(t)

	for _, label := range []string{"", " ", " ci", "a/b", `a\b`, "..", "."} {
		_, err := CreateEmptyConfig(label)
		assert.ErrorIs(t, err, ErrInvalidLabel, "label %q", label)
	}

	_, err := CreateEmptyConfig("ci-staging")
	assert.NoError(t, err)
}

func TestSwitchConfigRefusesInvalidProfile(t *testing.T) {
	isolate(t)

	writeFile(t, ConfigPath("broken"), "lang: fr\n")

	err := SwitchConfig("broken")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is invalid")

	_, err = CurrentLabel()
	assert.ErrorIs(t, err, ErrNoConfig)
}

func TestListConfigsDescribesProfiles(t *testing.T) {
	isolate(t)

	writeFile(t, ConfigPath("remote"), "base_url: https://staging.example.com/site\n")
	writeFile(t, ConfigPath("local"), "public_dir: dist\n")
	writeFile(t, ConfigPath("broken"), "workers: [\n")
	writeFile(t, filepath.Join(ConfigsDir(), "notes.txt"), "ignored")

	list, err := ListConfigs()
	require.NoError(t, err)
	require.Len(t, list, 3)

	assert.Equal(t, "broken", list[0].Label)
	assert.Error(t, list[0].Err)

	assert.Equal(t, "local", list[1].Label)
	assert.Equal(t, "dist", list[1].PublicDir)
	assert.Empty(t, list[1].BaseURL)

	assert.Equal(t, "remote", list[2].Label)
	assert.Equal(t, "https://staging.example.com/site", list[2].BaseURL)
	assert.NoError(t, list[2].Err)
}

func TestRemoveActiveConfigRecreatesDefault(t *testing.T) {
	isolate(t)

	_, err := CreateEmptyConfig("only")
	require.NoError(t, err)
	require.NoError(t, SwitchConfig("only"))

	switched, err := RemoveConfig("only")
	require.NoError(t, err)
	assert.True(t, switched)
	assert.FileExists(t, ConfigPath(DefaultLabel))
	assert.NoFileExists(t, ConfigPath("only"))

	assert.Error(t, RenameConfig(DefaultLabel, "other"))
}

func TestSaveYAMLOmitsSecrets(t *testing.T) {
	isolate(t)

	cfg := DefaultConfig()
	cfg.PSIAPIKey = "super-secret"
	cfg.GitHubToken = "ghp_secret"

	path := filepath.Join(ConfigsDir(), "s.yaml")
	require.NoError(t, SaveYAML(cfg, path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "super-secret")
	assert.NotContains(t, string(raw), "ghp_secret")
	assert.True(t, strings.HasPrefix(string(raw), "# siteci config profile."))

	loaded, err := loadYAML(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Workers, loaded.Workers)
}
