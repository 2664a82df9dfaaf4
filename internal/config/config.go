// Package config loads cukerail settings from a YAML or JSON file and the
// environment.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables that override file values when set.
const (
	EnvURL      = "CUKERAIL_URL"
	EnvUser     = "CUKERAIL_USER"
	EnvPassword = "CUKERAIL_PASSWORD"
	EnvProject  = "CUKERAIL_PROJECT"
)

// DefaultPath is the config file read when --config is not given and the
// file exists.
const DefaultPath = "cukerail.yaml"

// ErrInvalid is returned by Validate for incomplete settings.
var ErrInvalid = errors.New("invalid config")

// CaseTypes holds the case type IDs of the TestRail instance.
type CaseTypes struct {
	Automated int `yaml:"automated" json:"automated"`
	Manual    int `yaml:"manual" json:"manual"`
}

// Config is the cukerail configuration.
type Config struct {
	URL          string `yaml:"url" json:"url"`
	User         string `yaml:"user" json:"user"`
	Password     string `yaml:"password" json:"password"`
	PasswordFile string `yaml:"password_file" json:"password_file"`
	Project      string `yaml:"project" json:"project"`
	// Plan is the default plan name; the milestone name is appended.
	Plan            string `yaml:"plan" json:"plan"`
	PlanDescription string `yaml:"plan_description" json:"plan_description"`

	// Statuses maps cucumber status names to TestRail status IDs. Entries
	// are merged over the defaults.
	Statuses            map[string]int `yaml:"statuses" json:"statuses"`
	CaseTypes           CaseTypes      `yaml:"case_types" json:"case_types"`
	ManualMinPriority   int            `yaml:"manual_min_priority" json:"manual_min_priority"`
	ConfigurationsField string         `yaml:"configurations_field" json:"configurations_field"`

	Timeout Duration `yaml:"timeout" json:"timeout"`
	// DB is the path of the submission ledger. "-" disables it.
	DB string `yaml:"db" json:"db"`
}

// Duration is a time.Duration read from strings such as "30s".
type Duration time.Duration

func (d *Duration) set(s string) error {
	if s == "" {
		*d = 0
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	var s string
	if err := n.Decode(&s); err != nil {
		return err
	}
	return d.set(s)
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	return d.set(s)
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Statuses: map[string]int{
			"passed":   1,
			"untested": 3,
			"failed":   5,
			"skipped":  6,
		},
		CaseTypes:           CaseTypes{Automated: 1, Manual: 7},
		ManualMinPriority:   4,
		ConfigurationsField: "custom_configurations",
		PlanDescription:     "Created by cukerail",
		Timeout:             Duration(30 * time.Second),
		DB:                  ".cukerail/cukerail.db",
	}
}

// LoadFromPath reads a config file (YAML or JSON) over the defaults.
// Format is detected by extension (.yaml/.yml → YAML, .json → JSON) or by content.
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Load(data, filepath.Ext(path))
}

// Load parses config bytes over the defaults. ext is the file extension used
// as a format hint; empty means detect from content.
func Load(data []byte, ext string) (*Config, error) {
	cfg := Defaults()
	defaults := cfg.Statuses
	cfg.Statuses = nil
	ext = strings.ToLower(ext)
	if ext == ".yml" {
		ext = ".yaml"
	}
	if ext == "" {
		// JSON documents start with an object; everything else is YAML.
		if strings.HasPrefix(strings.TrimSpace(string(data)), "{") {
			ext = ".json"
		} else {
			ext = ".yaml"
		}
	}

	switch ext {
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config json: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config yaml: %w", err)
		}
	}
	cfg.Statuses = mergeStatuses(defaults, cfg.Statuses)
	return &cfg, nil
}

// mergeStatuses lays user over base with lower-case names, so "PASSED: 7"
// replaces the default "passed". Names are applied in sorted order when the
// user repeats a status with different case.
func mergeStatuses(base, user map[string]int) map[string]int {
	out := make(map[string]int, len(base)+len(user))
	for name, id := range base {
		out[strings.ToLower(strings.TrimSpace(name))] = id
	}
	names := make([]string, 0, len(user))
	for name := range user {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		out[strings.ToLower(strings.TrimSpace(name))] = user[name]
	}
	return out
}

// Resolve loads path, or the defaults when path is empty and DefaultPath
// does not exist, then applies the environment and reads the password file.
func Resolve(path string) (*Config, error) {
	var cfg *Config
	switch {
	case path != "":
		c, err := LoadFromPath(path)
		if err != nil {
			return nil, err
		}
		cfg = c
	case fileExists(DefaultPath):
		c, err := LoadFromPath(DefaultPath)
		if err != nil {
			return nil, err
		}
		cfg = c
	default:
		d := Defaults()
		cfg = &d
	}

	cfg.ApplyEnv(os.Getenv)
	if cfg.Password == "" && cfg.PasswordFile != "" {
		secret, err := ReadSecret(cfg.PasswordFile)
		if err != nil {
			return nil, fmt.Errorf("read password file: %w", err)
		}
		cfg.Password = secret
	}
	return cfg, nil
}

// ApplyEnv overrides connection settings from the environment. getenv is
// os.Getenv outside tests.
func (c *Config) ApplyEnv(getenv func(string) string) {
	for env, field := range map[string]*string{
		EnvURL:      &c.URL,
		EnvUser:     &c.User,
		EnvPassword: &c.Password,
		EnvProject:  &c.Project,
	} {
		if v := getenv(env); v != "" {
			*field = v
		}
	}
}

// Validate reports the first missing connection setting.
func (c *Config) Validate() error {
	var missing []string
	if c.URL == "" {
		missing = append(missing, "url ($"+EnvURL+")")
	}
	if c.User == "" {
		missing = append(missing, "user ($"+EnvUser+")")
	}
	if c.Password == "" {
		missing = append(missing, "password ($"+EnvPassword+" or password_file)")
	}
	if c.Project == "" {
		missing = append(missing, "project ($"+EnvProject+")")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalid, strings.Join(missing, ", "))
	}
	if c.Timeout < 0 {
		return fmt.Errorf("%w: negative timeout", ErrInvalid)
	}
	return nil
}

// ReadSecret reads the first line of a file (e.g. .testrail-key) and returns
// it trimmed.
func ReadSecret(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(strings.Split(string(data), "\n")[0]), nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
