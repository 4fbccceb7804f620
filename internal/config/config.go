package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up by FindAndLoad.
const FileName = ".modsplit.yaml"

var ErrNotFound = errors.New("config file not found")

type Config struct {
	Split  SplitConfig  `yaml:"split" validate:"required"`
	Naming NamingConfig `yaml:"naming" validate:"required"`
	Output OutputConfig `yaml:"output"`
}

type SplitConfig struct {
	MaxLines        int  `yaml:"max_lines" validate:"gt=0"`
	MaxImplLines    int  `yaml:"max_impl_lines" validate:"gt=0,ltefield=MaxLines"`
	SplitImplBlocks bool `yaml:"split_impl_blocks"`
}

type NamingConfig struct {
	TypeModuleSuffix    string `yaml:"type_module_suffix" validate:"required"`
	ImplModuleSuffix    string `yaml:"impl_module_suffix" validate:"required"`
	WrapperModuleSuffix string `yaml:"wrapper_module_suffix" validate:"required"`
	StandaloneModule    string `yaml:"standalone_module" validate:"required"`
	Aggregator          string `yaml:"aggregator" validate:"required"`
	FileExtension       string `yaml:"file_extension" validate:"required,startswith=."`
}

type OutputConfig struct {
	// Placeholders: {type_name}, {module_name}, {role}.
	ModuleDocTemplate string `yaml:"module_doc_template"`
	PreserveComments  bool   `yaml:"preserve_comments"`
	EmitDOT           bool   `yaml:"emit_dot"`
}

func Default() *Config {
	return &Config{
		Split: SplitConfig{
			MaxLines:        1000,
			MaxImplLines:    500,
			SplitImplBlocks: true,
		},
		Naming: NamingConfig{
			TypeModuleSuffix:    "_type",
			ImplModuleSuffix:    "_impl",
			WrapperModuleSuffix: "_module",
			StandaloneModule:    "functions",
			Aggregator:          "mod",
			FileExtension:       ".rs",
		},
		Output: OutputConfig{
			ModuleDocTemplate: "//! {type_name}: {role}\n//!\n//! Generated from the original module; edit with care.\n",
			PreserveComments:  true,
		},
	}
}

// LoadConfig reads a YAML file on top of the defaults, then applies
// environment overrides (a .env file is loaded first when present).
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(file, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("MODSPLIT_MAX_LINES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MODSPLIT_MAX_LINES: %w", err)
		}
		cfg.Split.MaxLines = n
	}
	if v := os.Getenv("MODSPLIT_MAX_IMPL_LINES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MODSPLIT_MAX_IMPL_LINES: %w", err)
		}
		cfg.Split.MaxImplLines = n
	}
	if v := os.Getenv("MODSPLIT_SPLIT_IMPL_BLOCKS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("MODSPLIT_SPLIT_IMPL_BLOCKS: %w", err)
		}
		cfg.Split.SplitImplBlocks = b
	}
	return nil
}

// FindAndLoad walks from dir up to the filesystem root looking for
// FileName. It returns the loaded config and the file it came from.
func FindAndLoad(dir string) (*Config, string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, "", err
	}
	for {
		candidate := filepath.Join(abs, FileName)
		if _, err := os.Stat(candidate); err == nil {
			cfg, err := LoadConfig(candidate)
			return cfg, candidate, err
		}
		parent := filepath.Dir(abs)
		if parent == abs {
			return nil, "", ErrNotFound
		}
		abs = parent
	}
}

// Save writes the config as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

var validate = validator.New()

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Overrides carries command-line values; nil fields keep the loaded value.
type Overrides struct {
	MaxLines        *int
	MaxImplLines    *int
	SplitImplBlocks *bool
}

// WithOverrides returns a copy of c with the overrides applied. c is not
// modified.
func (c *Config) WithOverrides(o Overrides) *Config {
	out := *c
	if o.MaxLines != nil {
		out.Split.MaxLines = *o.MaxLines
	}
	if o.MaxImplLines != nil {
		out.Split.MaxImplLines = *o.MaxImplLines
	}
	if o.SplitImplBlocks != nil {
		out.Split.SplitImplBlocks = *o.SplitImplBlocks
	}
	return &out
}
