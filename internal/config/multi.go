package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var (
	ErrNoConfig     = errors.New("no config selected")
	ErrInvalidLabel = errors.New("invalid config label")
)

// DefaultLabel is the profile created by `config init`. It cannot be
// removed and takes over when the active profile is.
const DefaultLabel = "Default"

const profileExt = ".yaml"

func ConfigRoot() string {
	if appdata := os.Getenv("APPDATA"); appdata != "" {
		return filepath.Join(appdata, "siteci")
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "siteci")
	}

	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "siteci")
}

func ConfigsDir() string {
	return filepath.Join(ConfigRoot(), "configs")
}

func CurrentLabelFile() string {
	return filepath.Join(ConfigRoot(), "current_config")
}

// ConfigPath is the profile file for label, whether or not it exists.
func ConfigPath(label string) string {
	return filepath.Join(ConfigsDir(), label+profileExt)
}

// checkLabel rejects labels that would not map to a single file in
// ConfigsDir.
func checkLabel(label string) error {
	switch {
	case strings.TrimSpace(label) == "":
		return fmt.Errorf("%w: label cannot be empty", ErrInvalidLabel)
	case label != strings.TrimSpace(label):
		return fmt.Errorf("%w: %q has surrounding spaces", ErrInvalidLabel, label)
	case strings.ContainsAny(label, `/\`) || label == "." || label == "..":
		return fmt.Errorf("%w: %q", ErrInvalidLabel, label)
	}
	return nil
}

func profileExists(label string) bool {
	_, err := os.Stat(ConfigPath(label))
	return err == nil
}

// ConfigPathByLabel is ConfigPath for a profile that must exist.
func ConfigPathByLabel(label string) (string, error) {
	if err := checkLabel(label); err != nil {
		return "", err
	}
	if !profileExists(label) {
		return "", fmt.Errorf("config %q does not exist", label)
	}
	return ConfigPath(label), nil
}

func ensureDirs() error {
	return os.MkdirAll(ConfigsDir(), 0755)
}

func CurrentLabel() (string, error) {
	if err := ensureDirs(); err != nil {
		return "", err
	}

	b, err := os.ReadFile(CurrentLabelFile())
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNoConfig
	}
	if err != nil {
		return "", err
	}

	label := strings.TrimSpace(string(b))
	if label == "" {
		return "", ErrNoConfig
	}
	return label, nil
}

func ActiveConfigPath() (string, error) {
	label, err := CurrentLabel()
	if err != nil {
		return "", err
	}
	return ConfigPath(label), nil
}

func setActive(label string) error {
	return os.WriteFile(CurrentLabelFile(), []byte(label), 0644)
}

// ConfigInfo describes one profile for listings. BaseURL and PublicDir
// come from the file; Err is set when it does not load or validate.
type ConfigInfo struct {
	Label     string
	Path      string
	Active    bool
	BaseURL   string
	PublicDir string
	Err       error
}

func ListConfigs() ([]ConfigInfo, error) {
	if err := ensureDirs(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(ConfigsDir())
	if err != nil {
		return nil, err
	}

	active, _ := CurrentLabel()

	var out []ConfigInfo
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != profileExt {
			continue
		}

		label := strings.TrimSuffix(e.Name(), profileExt)
		info := ConfigInfo{Label: label, Path: ConfigPath(label), Active: label == active}

		if cfg, err := loadProfile(info.Path); err != nil {
			info.Err = err
		} else {
			info.BaseURL, info.PublicDir = cfg.BaseURL, cfg.PublicDir
		}

		out = append(out, info)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out, nil
}

// loadProfile reads a profile file the way LoadMerged would use it,
// without the environment and flag layers.
func loadProfile(path string) (*Config, error) {
	cfg, err := loadYAML(path)
	if err != nil {
		return nil, err
	}
	normalizeDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SwitchConfig makes label the active profile. A profile that does not
// load is refused, since every later command would fail on it.
func SwitchConfig(label string) error {
	if err := checkLabel(label); err != nil {
		return err
	}
	if err := ensureDirs(); err != nil {
		return err
	}
	if !profileExists(label) {
		return fmt.Errorf("config %q does not exist", label)
	}
	if _, err := loadProfile(ConfigPath(label)); err != nil {
		return fmt.Errorf("config %q is invalid: %w", label, err)
	}

	return setActive(label)
}

// AddConfig copies an existing YAML file in as a new profile after
// checking that it loads.
func AddConfig(label, srcPath string) error {
	if err := checkLabel(label); err != nil {
		return err
	}
	if err := ensureDirs(); err != nil {
		return err
	}
	if profileExists(label) {
		return fmt.Errorf("config %q already exists", label)
	}

	if _, err := loadProfile(srcPath); err != nil {
		return fmt.Errorf("cannot use %s: %w", srcPath, err)
	}

	raw, err := os.ReadFile(srcPath)
	if err != nil {
		return err
	}
	return os.WriteFile(ConfigPath(label), raw, 0644)
}

// CreateEmptyConfig writes a profile holding the defaults and returns its
// path.
func CreateEmptyConfig(label string) (string, error) {
	if err := checkLabel(label); err != nil {
		return "", err
	}
	if err := ensureDirs(); err != nil {
		return "", err
	}
	if profileExists(label) {
		return "", fmt.Errorf("config %q already exists", label)
	}

	path := ConfigPath(label)
	if err := SaveYAML(DefaultConfig(), path); err != nil {
		return "", err
	}
	return path, nil
}

func RenameConfig(oldLabel, newLabel string) error {
	if err := checkLabel(oldLabel); err != nil {
		return err
	}
	if err := checkLabel(newLabel); err != nil {
		return err
	}
	if oldLabel == DefaultLabel {
		return fmt.Errorf("cannot rename the %s config", DefaultLabel)
	}
	if err := ensureDirs(); err != nil {
		return err
	}

	if !profileExists(oldLabel) {
		return fmt.Errorf("config %q does not exist", oldLabel)
	}
	if profileExists(newLabel) {
		return fmt.Errorf("config %q already exists", newLabel)
	}

	if err := os.Rename(ConfigPath(oldLabel), ConfigPath(newLabel)); err != nil {
		return err
	}

	if active, _ := CurrentLabel(); active == oldLabel {
		return setActive(newLabel)
	}
	return nil
}

// RemoveConfig deletes a profile. When it was the active one the Default
// profile becomes active and switched is true.
func RemoveConfig(label string) (switched bool, err error) {
	if err := checkLabel(label); err != nil {
		return false, err
	}
	if label == DefaultLabel {
		return false, fmt.Errorf("cannot remove the %s config", DefaultLabel)
	}
	if err := ensureDirs(); err != nil {
		return false, err
	}
	if !profileExists(label) {
		return false, fmt.Errorf("config %q does not exist", label)
	}

	if active, _ := CurrentLabel(); active == label {
		if !profileExists(DefaultLabel) {
			if _, err := CreateEmptyConfig(DefaultLabel); err != nil {
				return false, fmt.Errorf("failed creating %s: %w", DefaultLabel, err)
			}
		}
		if err := setActive(DefaultLabel); err != nil {
			return false, fmt.Errorf("failed switching to %s: %w", DefaultLabel, err)
		}
		switched = true
	}

	return switched, os.Remove(ConfigPath(label))
}
