package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/RowanDark/ncmsign/internal/env"
	"github.com/RowanDark/ncmsign/internal/useragent"
)

// Config captures the ncmsign configuration resolved from defaults, optional
// files and environment overrides.
type Config struct {
	ListenAddr    string          `yaml:"listen_addr"`
	StrictSchemes bool            `yaml:"strict_schemes"`
	EnableEAPI    bool            `yaml:"enable_eapi"`
	UserAgent     useragent.Class `yaml:"user_agent"`
	Timeout       time.Duration   `yaml:"timeout"`
	AuditLog      string          `yaml:"audit_log"`
	Cookie        string          `yaml:"cookie"`
	Fingerprint   bool            `yaml:"fingerprint"`
	JournalPath   string          `yaml:"journal_path"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		ListenAddr: "127.0.0.1:3300",
		UserAgent:  useragent.Any,
		Timeout:    30 * time.Second,
	}
}

// Load resolves the configuration. Files are read in this order, later ones
// overriding earlier ones:
//  1. ~/.ncmsign/config.yml
//  2. ./ncmsign.yml
//
// NCMSIGN_* environment variables (or their legacy NCM_* names) have the
// highest precedence.
func Load() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("determine home directory: %w", err)
	}
	wd, err := os.Getwd()
	if err != nil {
		return Config{}, fmt.Errorf("determine working directory: %w", err)
	}
	var paths []string
	if home != "" {
		paths = append(paths, filepath.Join(home, ".ncmsign", "config.yml"))
	}
	paths = append(paths, filepath.Join(wd, "ncmsign.yml"))
	return LoadFiles(paths...)
}

// LoadFiles applies each existing file in order over the defaults, then the
// environment. Missing files are skipped.
func LoadFiles(paths ...string) (Config, error) {
	cfg := Default()
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := applyFileConfig(&cfg, data); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := applyEnvOverrides(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type fileConfig struct {
	ListenAddr    *string `yaml:"listen_addr"`
	StrictSchemes *bool   `yaml:"strict_schemes"`
	EnableEAPI    *bool   `yaml:"enable_eapi"`
	UserAgent     *string `yaml:"user_agent"`
	Timeout       *string `yaml:"timeout"`
	AuditLog      *string `yaml:"audit_log"`
	Cookie        *string `yaml:"cookie"`
	Fingerprint   *bool   `yaml:"fingerprint"`
	JournalPath   *string `yaml:"journal_path"`
}

func applyFileConfig(cfg *Config, data []byte) error {
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return err
	}
	if fc.ListenAddr != nil {
		cfg.ListenAddr = strings.TrimSpace(*fc.ListenAddr)
	}
	if fc.StrictSchemes != nil {
		cfg.StrictSchemes = *fc.StrictSchemes
	}
	if fc.EnableEAPI != nil {
		cfg.EnableEAPI = *fc.EnableEAPI
	}
	if fc.UserAgent != nil {
		cfg.UserAgent = useragent.Class(strings.TrimSpace(*fc.UserAgent))
	}
	if fc.Timeout != nil {
		d, err := parseTimeout(*fc.Timeout)
		if err != nil {
			return err
		}
		cfg.Timeout = d
	}
	if fc.AuditLog != nil {
		cfg.AuditLog = strings.TrimSpace(*fc.AuditLog)
	}
	if fc.Cookie != nil {
		cfg.Cookie = strings.TrimSpace(*fc.Cookie)
	}
	if fc.Fingerprint != nil {
		cfg.Fingerprint = *fc.Fingerprint
	}
	if fc.JournalPath != nil {
		cfg.JournalPath = strings.TrimSpace(*fc.JournalPath)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) error {
	if val, ok := env.Lookup("LISTEN_ADDR"); ok && strings.TrimSpace(val) != "" {
		cfg.ListenAddr = strings.TrimSpace(val)
	}
	if val, ok := env.Lookup("USER_AGENT"); ok && strings.TrimSpace(val) != "" {
		cfg.UserAgent = useragent.Class(strings.TrimSpace(val))
	}
	if val, ok := env.Lookup("AUDIT_LOG"); ok && strings.TrimSpace(val) != "" {
		cfg.AuditLog = strings.TrimSpace(val)
	}
	if val, ok := env.Lookup("COOKIE"); ok && strings.TrimSpace(val) != "" {
		cfg.Cookie = strings.TrimSpace(val)
	}
	if val, ok := env.Lookup("JOURNAL_PATH"); ok && strings.TrimSpace(val) != "" {
		cfg.JournalPath = strings.TrimSpace(val)
	}
	for name, dst := range map[string]*bool{
		"STRICT_SCHEMES": &cfg.StrictSchemes,
		"ENABLE_EAPI":    &cfg.EnableEAPI,
		"FINGERPRINT":    &cfg.Fingerprint,
	} {
		v, ok, err := env.Bool(name)
		if err != nil {
			return err
		}
		if ok {
			*dst = v
		}
	}
	d, ok, err := env.Duration("TIMEOUT")
	if err != nil {
		return err
	}
	if ok {
		if d <= 0 {
			return fmt.Errorf("%sTIMEOUT must be positive", env.Prefix)
		}
		cfg.Timeout = d
	}
	return nil
}

func parseTimeout(raw string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("timeout: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("timeout must be positive, got %s", raw)
	}
	return d, nil
}
