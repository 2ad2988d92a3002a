// Copyright 2025 Arcentra Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"

	"github.com/arcentrix/lfring/pkg/env"
	"github.com/spf13/viper"
)

// RunConfig describes one demo run: buffer size magnitude, producer fan-out,
// and the volume each producer publishes.
type RunConfig struct {
	SizeMagnitude   uint   `mapstructure:"sizeMagnitude"`
	Producers       int    `mapstructure:"producers"`
	ValuesPerWriter int    `mapstructure:"valuesPerWriter"`
	LogPath         string `mapstructure:"logPath"`
}

// SetDefaults returns the run configuration used when no config file or
// environment override is present.
func SetDefaults() *RunConfig {
	return &RunConfig{
		SizeMagnitude:   3,
		Producers:       4,
		ValuesPerWriter: 25,
		LogPath:         "./logs",
	}
}

// Validate normalizes and rejects nonsensical run configuration.
func (c *RunConfig) Validate() error {
	if c.SizeMagnitude < 1 || c.SizeMagnitude > 20 {
		return fmt.Errorf("sizeMagnitude must be in [1, 20], got %d", c.SizeMagnitude)
	}
	if c.Producers < 1 {
		return fmt.Errorf("producers must be >= 1, got %d", c.Producers)
	}
	if c.ValuesPerWriter < 1 {
		return fmt.Errorf("valuesPerWriter must be >= 1, got %d", c.ValuesPerWriter)
	}
	if c.LogPath == "" {
		c.LogPath = "./logs"
	}
	return nil
}

// LoadConfig reads an optional YAML config file at path, then applies
// environment variable overrides via pkg/env, then validates the result.
// An empty path skips the file read and starts from defaults.
func LoadConfig(path string) (*RunConfig, error) {
	conf := SetDefaults()

	if path != "" {
		v := viper.New()
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read configuration file: %w", err)
		}
		if err := v.Unmarshal(conf); err != nil {
			return nil, fmt.Errorf("failed to unmarshal configuration file: %w", err)
		}
	}

	conf.SizeMagnitude = uint(env.GetEnvInt("RINGBUFFERDEMO_SIZE_MAGNITUDE", int(conf.SizeMagnitude)))
	conf.Producers = env.GetEnvInt("RINGBUFFERDEMO_PRODUCERS", conf.Producers)
	conf.ValuesPerWriter = env.GetEnvInt("RINGBUFFERDEMO_VALUES_PER_WRITER", conf.ValuesPerWriter)
	conf.LogPath = env.GetEnvString("RINGBUFFERDEMO_LOG_PATH", conf.LogPath)

	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}
