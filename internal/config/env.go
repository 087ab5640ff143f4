package config

import (
	"path"
	"strings"

	"github.com/spf13/viper"
)

// envBindings maps config keys to the environment variables that may set
// them. The SITECI_ name is always bound first and wins; the rest are the
// names CI workflows already export.
var envBindings = map[string][]string{
	"public_dir":   {"SITECI_PUBLIC_DIR"},
	"base_url":     {"SITECI_BASE_URL", "BASE_URL"},
	"results_dir":  {"SITECI_RESULTS_DIR"},
	"workers":      {"SITECI_WORKERS"},
	"user_agent":   {"SITECI_USER_AGENT"},
	"lang":         {"SITECI_LANG"},
	"debug":        {"SITECI_DEBUG", "RUNNER_DEBUG"},
	"psi_base_url": {"SITECI_PSI_BASE_URL"},
	"psi_api_key":  {"SITECI_PSI_API_KEY", "PSI_API_KEY"},
	"github_token": {"SITECI_GITHUB_TOKEN", "GITHUB_TOKEN"},
	"basic_auth":   {"SITECI_BASIC_AUTH"},
	"repository":   {"REPOSITORY", "GITHUB_REPOSITORY"},
	"html_files":   {"SITECI_HTML_FILES", "HTML_FILES"},
}

func newEnv() *viper.Viper {
	v := viper.New()
	for key, names := range envBindings {
		_ = v.BindEnv(append([]string{key}, names...)...)
	}
	return v
}

func applyEnv(c *Config) {
	v := newEnv()

	setString := func(key string, dst *string) {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}

	setString("public_dir", &c.PublicDir)
	setString("base_url", &c.BaseURL)
	setString("results_dir", &c.ResultsDir)
	setString("user_agent", &c.UserAgent)
	setString("lang", &c.Lang)
	setString("psi_base_url", &c.PSI.BaseURL)
	setString("psi_api_key", &c.PSIAPIKey)
	setString("github_token", &c.GitHubToken)
	setString("basic_auth", &c.BasicAuth)

	if v.IsSet("workers") {
		if n := v.GetInt("workers"); n > 0 {
			c.Workers = n
		}
	}
	if v.IsSet("debug") && v.GetBool("debug") {
		c.Debug = true
	}
}

// applyRepository expands {repository} in the settings that may carry it,
// whichever layer set them.
func applyRepository(c *Config) {
	repo := repositoryName(newEnv().GetString("repository"))
	c.BaseURL = expandRepository(c.BaseURL, repo)
	c.PSI.BaseURL = expandRepository(c.PSI.BaseURL, repo)
	c.PublicDir = expandRepository(c.PublicDir, repo)
}

// repositoryName accepts "name" or "owner/name".
func repositoryName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return path.Base(s)
}

// expandRepository substitutes {repository} so one profile can point at a
// per-repository staging path such as https://staging.example/dev/{repository}.
func expandRepository(s, repo string) string {
	if repo == "" || !strings.Contains(s, "{repository}") {
		return s
	}
	return strings.ReplaceAll(s, "{repository}", repo)
}

// FileListFromEnv returns the changed-file list a workflow passes in
// HTML_FILES. ok is false when the variable is unset or empty.
func FileListFromEnv() (list string, ok bool) {
	v := newEnv()
	if !v.IsSet("html_files") {
		return "", false
	}
	list = v.GetString("html_files")
	return list, list != ""
}
