package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LocalFile is looked up in the working directory and, when present, wins
// over the active profile.
const LocalFile = ".siteci.yaml"

type Config struct {
	PublicDir  string `yaml:"public_dir"`
	BaseURL    string `yaml:"base_url"`
	ResultsDir string `yaml:"results_dir"`

	Workers       int           `yaml:"workers"`
	MaxPerHost    int           `yaml:"max_per_host"`
	Timeout       time.Duration `yaml:"timeout"`
	Retries       int           `yaml:"retries"`
	UserAgent     string        `yaml:"user_agent"`
	RequestMethod string        `yaml:"request_method"`

	ExcludedKeywords []string `yaml:"excluded_keywords"`
	AcceptedSchemes  []string `yaml:"accepted_schemes"`
	ExcludeExternal  bool     `yaml:"exclude_external"`
	ExcludeInternal  bool     `yaml:"exclude_internal"`
	SkipBlankTargets bool     `yaml:"skip_blank_targets"`
	Crawl            bool     `yaml:"crawl"`
	CloudflareBypass bool     `yaml:"cf_bypass"`

	Lang  string `yaml:"lang"`
	Debug bool   `yaml:"debug"`

	PSI   PSIConfig   `yaml:"psi"`
	Audit AuditConfig `yaml:"audit"`

	// Only ever read from the environment.
	PSIAPIKey   string `yaml:"-"`
	GitHubToken string `yaml:"-"`
	BasicAuth   string `yaml:"-"`
}

type PSIConfig struct {
	Endpoint   string   `yaml:"endpoint"`
	BaseURL    string   `yaml:"base_url"`
	BatchSize  int      `yaml:"batch_size"`
	Retries    int      `yaml:"retries"`
	Categories []string `yaml:"categories"`
	Strategies []string `yaml:"strategies"`
}

type AuditConfig struct {
	ChromeBin  string             `yaml:"chrome_bin"`
	LoadBudget time.Duration      `yaml:"load_budget"`
	MinScores  map[string]float64 `yaml:"min_scores"`
}

type Options struct {
	IgnoreConfig bool
	File         string
	Debug        bool

	PublicDir        string
	BaseURL          string
	ResultsDir       string
	Workers          int
	UserAgent        string
	Lang             string
	Crawl            bool
	CloudflareBypass bool
	PSIBaseURL       string
}

func DefaultConfig() *Config {
	return &Config{
		PublicDir:     "public",
		BaseURL:       "",
		ResultsDir:    "blc-results",
		Workers:       5,
		MaxPerHost:    5,
		Timeout:       10 * time.Second,
		Retries:       1,
		UserAgent:     "Mozilla/5.0 (compatible; GithubActionsLinkChecker/1.0)",
		RequestMethod: "GET",
		ExcludedKeywords: []string{
			"https://fonts.googleapis.com",
			"https://fonts.gstatic.com",
		},
		AcceptedSchemes:  []string{"http", "https"},
		SkipBlankTargets: true,
		Lang:             "en",
		PSI: PSIConfig{
			Endpoint:   "https://www.googleapis.com/pagespeedonline/v5/runPagespeed",
			BatchSize:  5,
			Retries:    2,
			Categories: []string{"performance", "accessibility", "best-practices", "seo"},
			Strategies: []string{"mobile", "desktop"},
		},
		Audit: AuditConfig{
			LoadBudget: 3 * time.Second,
			MinScores: map[string]float64{
				"performance":    0.6,
				"accessibility":  0.8,
				"best-practices": 0.8,
				"seo":            0.8,
			},
		},
	}
}

const profileHeader = "# siteci config profile. Secrets (PSI_API_KEY, GITHUB_TOKEN) are read from the environment only.\n"

// SaveYAML writes cfg as a profile file. Secret fields are never written.
func SaveYAML(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, append([]byte(profileHeader), data...), 0644)
}

// loadYAML decodes path on top of the defaults so keys missing from the
// file keep their default value.
func loadYAML(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	c := DefaultConfig()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, err
	}

	return c, nil
}

// LoadMerged resolves the effective config: defaults, then the config file
// (explicit, local .siteci.yaml, or active profile), then the environment,
// then opts. The returned string describes where the file layer came from.
func LoadMerged(opts Options) (*Config, string, error) {
	cfg, used, err := loadFileLayer(opts)
	if err != nil {
		return nil, "", err
	}

	applyEnv(cfg)
	mergeConfig(cfg, opts)
	applyRepository(cfg)
	normalizeDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}

	return cfg, used, nil
}

func loadFileLayer(opts Options) (*Config, string, error) {
	if opts.File != "" {
		cfg, err := loadYAML(opts.File)
		if err != nil {
			return nil, "", fmt.Errorf("failed to load config %s: %w", opts.File, err)
		}
		return cfg, opts.File, nil
	}

	if opts.IgnoreConfig {
		return DefaultConfig(), "(ignored config)", nil
	}

	if _, err := os.Stat(LocalFile); err == nil {
		cfg, err := loadYAML(LocalFile)
		if err != nil {
			return nil, "", fmt.Errorf("failed to load config %s: %w", LocalFile, err)
		}
		return cfg, LocalFile, nil
	}

	activePath, err := ActiveConfigPath()
	if errors.Is(err, ErrNoConfig) || activePath == "" {
		return DefaultConfig(), "(default config in memory)", nil
	}
	if err != nil {
		return nil, "", err
	}

	cfg, err := loadYAML(activePath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load config %s: %w", activePath, err)
	}

	return cfg, activePath, nil
}

func mergeConfig(c *Config, o Options) {
	if o.Debug {
		c.Debug = true
	}
	if o.PublicDir != "" {
		c.PublicDir = o.PublicDir
	}
	if o.BaseURL != "" {
		c.BaseURL = o.BaseURL
	}
	if o.ResultsDir != "" {
		c.ResultsDir = o.ResultsDir
	}
	if o.Workers != 0 {
		c.Workers = o.Workers
	}
	if o.UserAgent != "" {
		c.UserAgent = o.UserAgent
	}
	if o.Lang != "" {
		c.Lang = o.Lang
	}
	if o.Crawl {
		c.Crawl = true
	}
	if o.CloudflareBypass {
		c.CloudflareBypass = true
	}
	if o.PSIBaseURL != "" {
		c.PSI.BaseURL = o.PSIBaseURL
	}
}

func normalizeDefaults(c *Config) {
	def := DefaultConfig()

	if c.PublicDir == "" {
		c.PublicDir = def.PublicDir
	}
	if c.ResultsDir == "" {
		c.ResultsDir = def.ResultsDir
	}
	if c.Workers <= 0 {
		c.Workers = def.Workers
	}
	if c.MaxPerHost <= 0 {
		c.MaxPerHost = def.MaxPerHost
	}
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	if c.Retries < 0 {
		c.Retries = 0
	}
	c.RequestMethod = strings.ToUpper(strings.TrimSpace(c.RequestMethod))
	if c.RequestMethod == "" {
		c.RequestMethod = def.RequestMethod
	}
	if len(c.AcceptedSchemes) == 0 {
		c.AcceptedSchemes = def.AcceptedSchemes
	}
	c.Lang = strings.ToLower(strings.TrimSpace(c.Lang))
	if c.Lang == "" {
		c.Lang = def.Lang
	}

	if c.PSI.Endpoint == "" {
		c.PSI.Endpoint = def.PSI.Endpoint
	}
	if c.PSI.BaseURL == "" {
		c.PSI.BaseURL = c.BaseURL
	}
	c.PSI.BaseURL = strings.TrimRight(c.PSI.BaseURL, "/")
	if c.PSI.BatchSize <= 0 {
		c.PSI.BatchSize = def.PSI.BatchSize
	}
	if c.PSI.Retries < 0 {
		c.PSI.Retries = 0
	}
	if len(c.PSI.Categories) == 0 {
		c.PSI.Categories = def.PSI.Categories
	}
	if len(c.PSI.Strategies) == 0 {
		c.PSI.Strategies = def.PSI.Strategies
	}

	if c.Audit.LoadBudget <= 0 {
		c.Audit.LoadBudget = def.Audit.LoadBudget
	}
	if c.Audit.MinScores == nil {
		c.Audit.MinScores = def.Audit.MinScores
	}
}

func (c *Config) Validate() error {
	switch c.RequestMethod {
	case "GET", "HEAD":
	default:
		return fmt.Errorf("request_method must be GET or HEAD, got %q", c.RequestMethod)
	}

	switch c.Lang {
	case "en", "ja":
	default:
		return fmt.Errorf("lang must be en or ja, got %q", c.Lang)
	}

	for _, s := range c.PSI.Strategies {
		if s != "mobile" && s != "desktop" {
			return fmt.Errorf("psi strategy must be mobile or desktop, got %q", s)
		}
	}

	return nil
}

func (c *Config) Print(w io.Writer) {
	fmt.Fprintf(w, " -public_dir: %s\n", c.PublicDir)
	if c.BaseURL != "" {
		fmt.Fprintf(w, " -base_url: %s\n", c.BaseURL)
	}
	fmt.Fprintf(w, " -results_dir: %s\n", c.ResultsDir)
	fmt.Fprintf(w, " -workers: %d\n", c.Workers)
	fmt.Fprintf(w, " -max_per_host: %d\n", c.MaxPerHost)
	fmt.Fprintf(w, " -timeout: %s\n", c.Timeout)
	fmt.Fprintf(w, " -request_method: %s\n", c.RequestMethod)
	if len(c.ExcludedKeywords) > 0 {
		fmt.Fprintf(w, " -excluded_keywords: %s\n", strings.Join(c.ExcludedKeywords, ", "))
	}
	fmt.Fprintf(w, " -accepted_schemes: %s\n", strings.Join(c.AcceptedSchemes, ", "))
	if c.ExcludeExternal {
		fmt.Fprintf(w, " -exclude_external: %t\n", c.ExcludeExternal)
	}
	if c.ExcludeInternal {
		fmt.Fprintf(w, " -exclude_internal: %t\n", c.ExcludeInternal)
	}
	fmt.Fprintf(w, " -skip_blank_targets: %t\n", c.SkipBlankTargets)
	if c.Crawl {
		fmt.Fprintf(w, " -crawl: %t\n", c.Crawl)
	}
	if c.CloudflareBypass {
		fmt.Fprintf(w, " -cf_bypass: %t\n", c.CloudflareBypass)
	}
	fmt.Fprintf(w, " -lang: %s\n", c.Lang)
	if c.Debug {
		fmt.Fprintf(w, " -debug: %t\n", c.Debug)
	}
	if c.PSI.BaseURL != "" {
		fmt.Fprintf(w, " -psi.base_url: %s\n", c.PSI.BaseURL)
	}
	fmt.Fprintf(w, " -psi.batch_size: %d\n", c.PSI.BatchSize)
	fmt.Fprintf(w, " -psi.categories: %s\n", strings.Join(c.PSI.Categories, ", "))
	fmt.Fprintf(w, " -psi.strategies: %s\n", strings.Join(c.PSI.Strategies, ", "))
	fmt.Fprintf(w, " -audit.load_budget: %s\n", c.Audit.LoadBudget)
	fmt.Fprintf(w, " -psi_api_key: %s\n", mask(c.PSIAPIKey))
	fmt.Fprintf(w, " -github_token: %s\n", mask(c.GitHubToken))
}

func mask(secret string) string {
	if secret == "" {
		return "(unset)"
	}
	return "(set)"
}
