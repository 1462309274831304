// Package config loads keri-controllerd's configuration from a YAML file,
// with ${VAR_NAME} environment substitution and sensible defaults applied
// on top of whatever the file leaves unset.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the keri-controllerd daemon.
type Config struct {
	Environment string           `yaml:"environment"`
	Identity    IdentitySettings `yaml:"identity"`
	Storage     StorageSettings  `yaml:"storage"`
	Escrow      EscrowSettings   `yaml:"escrow"`
	Transport   TransportSettings `yaml:"transport"`
	OOBI        OOBISettings     `yaml:"oobi"`
	Monitoring  MonitoringSettings `yaml:"monitoring"`
}

// IdentitySettings describes the controller's own pre-rotation posture and
// its default witness pool.
type IdentitySettings struct {
	KeysPath         string   `yaml:"keys_path"`
	Witnesses        []string `yaml:"witnesses"`
	WitnessThreshold uint64   `yaml:"witness_threshold"`
}

// StorageSettings selects and configures the eventdb.Store backing both
// KELs and TELs.
type StorageSettings struct {
	// Backend is one of "inmem", "kvlog", or "postgres".
	Backend string `yaml:"backend"`
	DataDir string `yaml:"data_dir"`
	DSN     string `yaml:"dsn"`
}

// EscrowSettings controls how long an escrowed entry is kept before it
// expires, and how often the sweep that expires them runs.
type EscrowSettings struct {
	TTL           Duration `yaml:"ttl"`
	SweepInterval Duration `yaml:"sweep_interval"`
}

// TransportSettings selects the transport.Transport a Controller suspends
// through to reach witnesses, watchers, and other controllers' mailboxes.
type TransportSettings struct {
	// Backend is "inmem" for a single-process deployment (tests, local
	// multi-identifier demos); a networked backend is not yet implemented.
	Backend    string `yaml:"backend"`
	ListenAddr string `yaml:"listen_addr"`
}

// OOBISettings selects and configures the oobi.Store persisting resolved
// location-scheme and end-role replies.
type OOBISettings struct {
	// Backend is one of "inmem" or "firestore".
	Backend                 string `yaml:"backend"`
	FirestoreProjectID      string `yaml:"firestore_project_id"`
	FirestoreCredentialsFile string `yaml:"firestore_credentials_file"`
}

// MonitoringSettings contains logging and metrics configuration.
type MonitoringSettings struct {
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
}

// Duration wraps time.Duration for YAML unmarshaling as a Go duration
// string ("30s", "5m") rather than a bare integer of ambiguous unit.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// envVarPattern matches ${VAR_NAME} or ${VAR_NAME:-default}.
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

func substituteEnvVars(content string) string {
	return envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultValue := ""
		if len(groups) >= 4 {
			defaultValue = groups[3]
		}
		if value := os.Getenv(varName); value != "" {
			return value
		}
		return defaultValue
	})
}

// Load reads path, substitutes ${VAR_NAME} references against the process
// environment, parses the result as YAML, and applies defaults to any
// field the file left unset.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	expanded := substituteEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = "inmem"
	}
	if c.Storage.DataDir == "" {
		c.Storage.DataDir = "./data"
	}
	if c.Escrow.TTL == 0 {
		c.Escrow.TTL = Duration(time.Hour)
	}
	if c.Escrow.SweepInterval == 0 {
		c.Escrow.SweepInterval = Duration(time.Minute)
	}
	if c.Transport.Backend == "" {
		c.Transport.Backend = "inmem"
	}
	if c.OOBI.Backend == "" {
		c.OOBI.Backend = "inmem"
	}
	if c.Monitoring.MetricsAddr == "" {
		c.Monitoring.MetricsAddr = ":9090"
	}
	if c.Monitoring.LogLevel == "" {
		c.Monitoring.LogLevel = "info"
	}
	if c.Monitoring.LogFormat == "" {
		c.Monitoring.LogFormat = "json"
	}
	if c.Identity.WitnessThreshold == 0 && len(c.Identity.Witnesses) > 0 {
		c.Identity.WitnessThreshold = uint64(len(c.Identity.Witnesses))
	}
}

// Validate checks that the configuration is internally consistent before
// the daemon starts acting on it.
func (c *Config) Validate() error {
	var errs []string

	switch c.Storage.Backend {
	case "inmem", "kvlog":
	case "postgres":
		if c.Storage.DSN == "" {
			errs = append(errs, fmt.Sprintf("storage.dsn is required for backend %q", c.Storage.Backend))
		}
	default:
		errs = append(errs, fmt.Sprintf("storage.backend %q is not recognized", c.Storage.Backend))
	}

	switch c.Transport.Backend {
	case "inmem":
	default:
		errs = append(errs, fmt.Sprintf("transport.backend %q is not recognized", c.Transport.Backend))
	}

	switch c.OOBI.Backend {
	case "inmem":
	case "firestore":
		if c.OOBI.FirestoreProjectID == "" {
			errs = append(errs, "oobi.firestore_project_id is required for backend \"firestore\"")
		}
	default:
		errs = append(errs, fmt.Sprintf("oobi.backend %q is not recognized", c.OOBI.Backend))
	}

	if c.Identity.WitnessThreshold > uint64(len(c.Identity.Witnesses)) {
		errs = append(errs, "identity.witness_threshold cannot exceed the number of configured witnesses")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
