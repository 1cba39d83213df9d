// Package config loads the YAML configuration shared by the naming-server
// and storage-server binaries, grounded on the MCPConfig/LoadConfig pattern
// in the teacher repo's cmd/mcp/main.go: read the file if present, write a
// default one alongside it if not.
package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/meridianfs/namefs/internal/log_service"
)

// NamingConfig configures cmd/naming-server.
type NamingConfig struct {
	ServiceAddr      string  `yaml:"service_addr"`
	RegistrationAddr string  `yaml:"registration_addr"`
	ReplicationAlpha float64 `yaml:"replication_alpha"`
	LogDir           string  `yaml:"log_dir"`
	LogLevel         string  `yaml:"log_level"`
}

func defaultNamingConfig() NamingConfig {
	return NamingConfig{
		ServiceAddr:      ":7050",
		RegistrationAddr: ":7051",
		ReplicationAlpha: 0.3,
		LogDir:           "./logs",
		LogLevel:         log_service.InfoLevel,
	}
}

// LoadNamingConfig reads path, or writes out defaultNamingConfig() to path
// and returns it if the file does not yet exist.
func LoadNamingConfig(path string) (NamingConfig, error) {
	cfg := defaultNamingConfig()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		out, marshalErr := yaml.Marshal(cfg)
		if marshalErr != nil {
			return cfg, marshalErr
		}
		if writeErr := os.WriteFile(path, out, 0644); writeErr != nil {
			return cfg, writeErr
		}
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// StorageConfig configures cmd/storage-server.
type StorageConfig struct {
	Root          string `yaml:"root"`
	Hostname      string `yaml:"hostname"`
	ClientAddr    string `yaml:"client_addr"`
	CommandAddr   string `yaml:"command_addr"`
	NamingRegAddr string `yaml:"naming_registration_addr"`
	LogDir        string `yaml:"log_dir"`
	LogLevel      string `yaml:"log_level"`
}

func defaultStorageConfig() StorageConfig {
	return StorageConfig{
		Root:          "./data",
		ClientAddr:    ":0",
		CommandAddr:   ":0",
		NamingRegAddr: "127.0.0.1:7051",
		LogDir:        "./logs",
		LogLevel:      log_service.InfoLevel,
	}
}

// LoadStorageConfig reads path, or writes out defaultStorageConfig() to
// path and returns it if the file does not yet exist.
func LoadStorageConfig(path string) (StorageConfig, error) {
	cfg := defaultStorageConfig()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		out, marshalErr := yaml.Marshal(cfg)
		if marshalErr != nil {
			return cfg, marshalErr
		}
		if writeErr := os.WriteFile(path, out, 0644); writeErr != nil {
			return cfg, writeErr
		}
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
