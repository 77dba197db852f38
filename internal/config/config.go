// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Owner          string `yaml:"owner"          envconfig:"owner"`
	DatabasePath   string `yaml:"databasePath"                     split_words:"true"`
	BindAddr       string `yaml:"bindAddr"                         split_words:"true"`
	TokenName      string `yaml:"tokenName"                        split_words:"true"`
	TokenSymbol    string `yaml:"tokenSymbol"                      split_words:"true"`
	MaxReward      uint64 `yaml:"maxReward"                        split_words:"true"`
	MaxSubmissions uint64 `yaml:"maxSubmissions"                   split_words:"true"`
	MetricsPort    uint   `yaml:"metricsPort"                      split_words:"true"`
}

var globalConfig = &Config{
	Owner:          "",
	DatabasePath:   ".bonfire",
	BindAddr:       "0.0.0.0",
	TokenName:      "",
	TokenSymbol:    "",
	MaxReward:      0,
	MaxSubmissions: 0,
	MetricsPort:    12798,
}

func LoadConfig(configFile string) (*Config, error) {
	// Load config file as YAML if provided
	if configFile == "" {
		// Check for config file in this path: ~/.bonfire/bonfire.yaml
		if homeDir, err := os.UserHomeDir(); err == nil {
			userPath := filepath.Join(homeDir, ".bonfire", "bonfire.yaml")
			if _, err := os.Stat(userPath); err == nil {
				configFile = userPath
			}
		}

		// Try to check for /etc/bonfire/bonfire.yaml if still not found
		if configFile == "" {
			systemPath := "/etc/bonfire/bonfire.yaml"
			if _, err := os.Stat(systemPath); err == nil {
				configFile = systemPath
			}
		}
	}

	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		err = yaml.Unmarshal(buf, globalConfig)
		if err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}
	// Process environment variables
	err := envconfig.Process("bonfire", globalConfig)
	if err != nil {
		return nil, fmt.Errorf("error processing environment: %+w", err)
	}
	return globalConfig, nil
}

func GetConfig() *Config {
	return globalConfig
}
