// Copyright 2024 The Cockroach Authors
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


package linkhash

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tailscale/hujson"
)

// DefaultCapacity is the initial capacity used when a Config does not name
// one.
const DefaultCapacity = 16

// Config holds settings chosen once at process start and passed explicitly to
// the constructors that need them. A Config is a plain value: tables copy what
// they need at construction, so later changes never affect existing tables.
type Config struct {
	// TextHash selects the hash function of tables created by NewText.
	TextHash TextHashAlgorithm `json:"text_hash"`
	// InitialCapacity is the suggested capacity for new tables.
	InitialCapacity int `json:"initial_capacity,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		TextHash:        TextHashDefault,
		InitialCapacity: DefaultCapacity,
	}
}

// TextHasher returns the Hasher for string keys selected by the config.
func (c Config) TextHasher() TextHasher {
	return TextHasher{Algorithm: c.TextHash}
}

// ParseConfig parses a JSON config, which may contain comments and trailing
// commas, on top of DefaultConfig:
//
//	{
//	  // "default" or "perllike"
//	  "text_hash": "perllike",
//	  "initial_capacity": 64,
//	}
func ParseConfig(data []byte) (Config, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("%w: invalid JSONC: %w", ErrInvalidArgument, err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(standardized, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: invalid config: %w", ErrInvalidArgument, err)
	}
	if cfg.InitialCapacity <= 0 || cfg.InitialCapacity > maxCapacity {
		return Config{}, fmt.Errorf("%w: initial_capacity %d", ErrInvalidArgument, cfg.InitialCapacity)
	}
	return cfg, nil
}

// LoadConfig reads and parses the config file at path.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}
