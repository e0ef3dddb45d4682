package internal

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the optional YAML tool configuration: default passwords to try
// before prompting, and where the scan catalog lives.
type Config struct {
	// Passwords are default candidates for encrypted content.
	Passwords []string `yaml:"passwords,omitempty"`
	// CatalogPath is the SQLite file used by the scan command. Empty
	// means in-memory only.
	CatalogPath string `yaml:"catalogPath,omitempty"`
	// Prompt enables interactive passphrase prompting when the password
	// list is exhausted.
	Prompt bool `yaml:"prompt,omitempty"`
}

// LoadConfig reads the YAML config at path. A missing file is not an error:
// the zero Config is returned so the tool runs with defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
