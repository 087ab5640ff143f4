package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the profile directory at a temp dir and clears every
// environment variable the config layer reads.
func isolate(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	t.Setenv("APPDATA", "")
	t.Setenv("XDG_CONFIG_HOME", dir)
	for _, names := range envBindings {
		for _, n := range names {
			t.Setenv(n, "")
		}
	}
	t.Chdir(t.TempDir())

	return dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadMergedDefaults(t *testing.T) {
	isolate(t)

	cfg, used, err := LoadMerged(Options{})
	require.NoError(t, err)

	assert.Equal(t, "(default config in memory)", used)
	assert.Equal(t, "public", cfg.PublicDir)
	assert.Equal(t, "blc-results", cfg.ResultsDir)
	assert.Equal(t, 5, cfg.Workers)
	assert.Equal(t, "GET", cfg.RequestMethod)
	assert.Equal(t, "en", cfg.Lang)
	assert.Equal(t, 5, cfg.PSI.BatchSize)
	assert.Equal(t, []string{"mobile", "desktop"}, cfg.PSI.Strategies)
	assert.Equal(t, 0.6, cfg.Audit.MinScores["performance"])
	assert.Empty(t, cfg.PSI.BaseURL)
}

func TestLoadMergedPrecedence(t *testing.T) {
	isolate(t)

	file := filepath.Join(t.TempDir(), "ci.yaml")
	writeFile(t, file, `
public_dir: dist
workers: 3
lang: ja
request_method: head
psi:
  batch_size: 2
`)

	t.Setenv("SITECI_WORKERS", "7")
	t.Setenv("SITECI_PUBLIC_DIR", "site")

	cfg, used, err := LoadMerged(Options{File: file, Workers: 9})
	require.NoError(t, err)

	assert.Equal(t, file, used)
	assert.Equal(t, 9, cfg.Workers, "flags win over env")
	assert.Equal(t, "site", cfg.PublicDir, "env wins over file")
	assert.Equal(t, "ja", cfg.Lang)
	assert.Equal(t, "HEAD", cfg.RequestMethod)
	assert.Equal(t, 2, cfg.PSI.BatchSize)
	assert.Equal(t, "blc-results", cfg.ResultsDir, "missing keys keep defaults")
}

func TestLoadMergedExpandsRepository(t *testing.T) {
	isolate(t)

	t.Setenv("BASE_URL", "https://staging.example.com/dev/{repository}/")
	t.Setenv("GITHUB_REPOSITORY", "acme/corp-site")
	t.Setenv("PSI_API_KEY", "k")

	cfg, _, err := LoadMerged(Options{})
	require.NoError(t, err)

	assert.Equal(t, "https://staging.example.com/dev/corp-site/", cfg.BaseURL)
	assert.Equal(t, "https://staging.example.com/dev/corp-site", cfg.PSI.BaseURL)
	assert.Equal(t, "k", cfg.PSIAPIKey)
}

func TestLoadMergedExpandsRepositoryInFlags(t *testing.T) {
	isolate(t)

	t.Setenv("REPOSITORY", "corp-site")

	file := filepath.Join(t.TempDir(), "ci.yaml")
	writeFile(t, file, "psi:\n  base_url: https://psi.example/{repository}\n")

	cfg, _, err := LoadMerged(Options{
		File:    file,
		BaseURL: "https://staging.example.com/{repository}",
	})
	require.NoError(t, err)

	assert.Equal(t, "https://staging.example.com/corp-site", cfg.BaseURL)
	assert.Equal(t, "https://psi.example/corp-site", cfg.PSI.BaseURL)
}

func TestLoadMergedPrefixedEnvWins(t *testing.T) {
	isolate(t)

	t.Setenv("GITHUB_TOKEN", "from-actions")
	t.Setenv("SITECI_GITHUB_TOKEN", "from-siteci")
	t.Setenv("RUNNER_DEBUG", "1")

	cfg, _, err := LoadMerged(Options{})
	require.NoError(t, err)

	assert.Equal(t, "from-siteci", cfg.GitHubToken)
	assert.True(t, cfg.Debug)
}

func TestLoadMergedLocalFile(t *testing.T) {
	isolate(t)

	writeFile(t, LocalFile, "workers: 11\n")

	cfg, used, err := LoadMerged(Options{})
	require.NoError(t, err)
	assert.Equal(t, LocalFile, used)
	assert.Equal(t, 11, cfg.Workers)

	cfg, used, err = LoadMerged(Options{IgnoreConfig: true})
	require.NoError(t, err)
	assert.Equal(t, "(ignored config)", used)
	assert.Equal(t, 5, cfg.Workers)
}

func TestLoadMergedRejectsInvalid(t *testing.T) {
	isolate(t)

	cases := map[string]string{
		"method":   "request_method: POST\n",
		"lang":     "lang: fr\n",
		"strategy": "psi:\n  strategies: [tablet]\n",
		"yaml":     "workers: [\n",
	}

	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			file := filepath.Join(t.TempDir(), "bad.yaml")
			writeFile(t, file, content)

			_, _, err := LoadMerged(Options{File: file})
			assert.Error(t, err)
		})
	}
}

func TestNormalizeDefaults(t *testing.T) {
	c := &Config{Workers: -1, Retries: -2, Lang: " JA ", RequestMethod: " head "}
	normalizeDefaults(c)

	assert.Equal(t, 5, c.Workers)
	assert.Equal(t, 0, c.Retries)
	assert.Equal(t, "ja", c.Lang)
	assert.Equal(t, "HEAD", c.RequestMethod)
	assert.Equal(t, 10*time.Second, c.Timeout)
	assert.Equal(t, []string{"http", "https"}, c.AcceptedSchemes)
	assert.Equal(t, 3*time.Second, c.Audit.LoadBudget)
}

func TestFileListFromEnv(t *testing.T) {
	isolate(t)

	_, ok := FileListFromEnv()
	assert.False(t, ok)

	t.Setenv("HTML_FILES", "public/a.html,public/b.html")
	list, ok := FileListFromEnv()
	assert.True(t, ok)
	assert.Equal(t, "public/a.html,public/b.html", list)

	t.Setenv("SITECI_HTML_FILES", "public/c.html")
	list, ok = FileListFromEnv()
	assert.True(t, ok)
	assert.Equal(t, "public/c.html", list)
}

func TestRepositoryName(t *testing.T) {
	assert.Equal(t, "site", repositoryName("acme/site"))
	assert.Equal(t, "site", repositoryName(" site "))
	assert.Equal(t, "", repositoryName(""))
	assert.Equal(t, "x/{repository}", expandRepository("x/{repository}", ""))
}
