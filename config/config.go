// Package config loads and validates the typed configuration tree: backend
// definitions, sandbox policy, confirmation policy, and compression policy,
// layered from a global file, an optional workspace override, and a handful
// of environment variables for credentials.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/agentichat/agentichat/errors"
)

// BackendConfig describes one named LLM backend entry.
type BackendConfig struct {
	Type              string  `yaml:"type"` // "local", "anthropic", "openai", "gemini", "bedrock"
	URL               string  `yaml:"url"`
	Model             string  `yaml:"model"`
	Timeout           int     `yaml:"timeout"`
	MaxTokens         int     `yaml:"max_tokens"`
	Temperature       float64 `yaml:"temperature"`
	APIKey            string  `yaml:"api_key"`
	ContextMaxTokens  int     `yaml:"context_max_tokens"`
	MaxParallelTools  *int    `yaml:"max_parallel_tools"` // nil = unlimited, 1 = strictly serial
}

// SandboxConfig mirrors the security sandbox's construction parameters.
type SandboxConfig struct {
	MaxFileSize     int64    `yaml:"max_file_size"`
	BlockedPaths    []string `yaml:"blocked_paths"`
	AllowedCommands []string `yaml:"allowed_commands"` // parsed only; shell_exec does not consult it
}

// ConfirmationConfig holds the text_operations and shell_commands keys
// (distinct from the ConfirmationMode state machine). The keys are parsed
// and defaulted, but no component reads them: every tool whose descriptor
// declares on_destructive or always consults the confirmation manager
// regardless of these values.
type ConfirmationConfig struct {
	TextOperations bool `yaml:"text_operations"`
	ShellCommands  bool `yaml:"shell_commands"`
}

// CompressionConfig controls the Memory Manager's warning and
// auto-compression behavior.
type CompressionConfig struct {
	AutoEnabled      bool    `yaml:"auto_enabled"`
	AutoThreshold    int     `yaml:"auto_threshold"`
	AutoKeep         int     `yaml:"auto_keep"`
	WarningThreshold float64 `yaml:"warning_threshold"`
	MaxMessages      int     `yaml:"max_messages"`
}

// Config is the root of the configuration tree.
type Config struct {
	DefaultBackend string                   `yaml:"default_backend"`
	Backends       map[string]*BackendConfig `yaml:"backends"`

	Sandbox       SandboxConfig       `yaml:"sandbox"`
	Confirmations ConfirmationConfig  `yaml:"confirmations"`
	Compression   CompressionConfig   `yaml:"compression"`

	DataDir       string `yaml:"data_dir"`
	MaxIterations int    `yaml:"max_iterations"`
}

const appDirName = ".agentichat"
const legacyDirName = ".llm-context"

func defaults() *Config {
	return &Config{
		DefaultBackend: "local",
		Backends:       map[string]*BackendConfig{},
		Sandbox: SandboxConfig{
			MaxFileSize: 1_000_000,
			BlockedPaths: []string{
				"**/.env", "**/*.key", "**/*.pem", "**/id_rsa", "**/credentials.json",
			},
		},
		Confirmations: ConfirmationConfig{
			TextOperations: true,
			ShellCommands:  true,
		},
		Compression: CompressionConfig{
			AutoEnabled:      false,
			AutoThreshold:    40,
			AutoKeep:         8,
			WarningThreshold: 0.75,
			MaxMessages:      60,
		},
		MaxIterations: 10,
	}
}

// Load reads configuration over the defaults: the explicit path alone when
// one is given; otherwise the global file, then the workspace override
// found walking up from cwd, whose keys take precedence over the global
// ones. It then applies environment overrides and validates the result. A
// missing global or workspace file is not an error: with neither present,
// Load returns the defaults.
func Load(explicitPath string) (*Config, error) {
	cfg := defaults()
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.Wrapf(err, "resolving home directory")
	}
	cfg.DataDir = filepath.Join(home, appDirName)

	var candidate string
	switch {
	case explicitPath != "":
		candidate = explicitPath
	default:
		global := filepath.Join(home, appDirName, "config.yaml")
		if data, readErr := os.ReadFile(global); readErr == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, errors.Wrap(errors.KindUnknown, "invalid configuration file "+global, err)
			}
		}
		candidate = findWorkspaceConfig()
	}

	if candidate != "" {
		if data, readErr := os.ReadFile(candidate); readErr == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, errors.Wrap(errors.KindUnknown, "invalid configuration file "+candidate, err)
			}
		} else if explicitPath != "" {
			return nil, errors.Wrapf(readErr, "reading explicit config path %q", explicitPath)
		}
	}

	applyEnvOverrides(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// findWorkspaceConfig walks upward from the current directory looking for
// .agentichat/config.yaml, falling back to the legacy .llm-context
// directory name, stopping at the filesystem root.
func findWorkspaceConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		for _, name := range []string{appDirName, legacyDirName} {
			candidate := filepath.Join(dir, name, "config.yaml")
			if _, statErr := os.Stat(candidate); statErr == nil {
				return candidate
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("AGENTICHAT_DATA"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("OLLAMA_HOST"); v != "" {
		ensureBackend(cfg, "local").URL = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		if b, ok := cfg.Backends["openai"]; ok {
			b.APIKey = v
		}
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		if b, ok := cfg.Backends["anthropic"]; ok {
			b.APIKey = v
		}
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		if b, ok := cfg.Backends["gemini"]; ok {
			b.APIKey = v
		}
	}
	for name, b := range cfg.Backends {
		b.APIKey = expandEnvRef(b.APIKey)
		_ = name
	}
}

// expandEnvRef resolves a "${ENV_VAR}" credential reference to the
// environment's value, leaving plain strings untouched.
func expandEnvRef(v string) string {
	if strings.HasPrefix(v, "${") && strings.HasSuffix(v, "}") {
		name := v[2 : len(v)-1]
		if resolved, ok := os.LookupEnv(name); ok {
			return resolved
		}
	}
	return v
}

func ensureBackend(cfg *Config, name string) *BackendConfig {
	if cfg.Backends == nil {
		cfg.Backends = map[string]*BackendConfig{}
	}
	b, ok := cfg.Backends[name]
	if !ok {
		b = &BackendConfig{Type: name}
		cfg.Backends[name] = b
	}
	return b
}

func validate(cfg *Config) error {
	if len(cfg.Backends) > 0 {
		if _, ok := cfg.Backends[cfg.DefaultBackend]; !ok {
			return errors.Newf(errors.KindUnknown, "default_backend %q does not name a configured backend", cfg.DefaultBackend)
		}
	}
	for name, b := range cfg.Backends {
		if b.Timeout <= 0 {
			b.Timeout = 30
		}
		if b.MaxTokens <= 0 {
			b.MaxTokens = 4096
		}
		if b.Temperature == 0 {
			b.Temperature = 0.7
		}
		if b.URL == "" && b.Type != "bedrock" {
			return errors.Newf(errors.KindUnknown, "backend %q missing required field url", name)
		}
		if b.Model == "" {
			return errors.Newf(errors.KindUnknown, "backend %q missing required field model", name)
		}
	}
	if cfg.Sandbox.MaxFileSize <= 0 {
		cfg.Sandbox.MaxFileSize = 1_000_000
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = 10
	}
	return nil
}
