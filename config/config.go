// Package config implements YAML configuration loading for the five
// recognized raft.Config options: election-timeout.min/max, heartbeat-
// interval, default-append-entries-batch-size, and publish-testing-events.
// Grounded on the pack's YAML-backed config loaders (gopkg.in/yaml.v3) and
// on the fatal-error wrapping style of github.com/pkg/errors used
// throughout the teacher's domain.
package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/raftlab/raftcore/raft"
)

// File is the on-disk shape of a raft configuration file. Durations are
// parsed from Go duration strings ("150ms", "2s") via yaml.Duration-style
// unmarshalling through time.ParseDuration below.
type File struct {
	ElectionTimeoutMin string `yaml:"election-timeout.min"`
	ElectionTimeoutMax string `yaml:"election-timeout.max"`
	HeartbeatInterval  string `yaml:"heartbeat-interval"`
	AppendEntriesBatch int    `yaml:"default-append-entries-batch-size"`
	PublishTestEvents  bool   `yaml:"publish-testing-events"`
}

// Load reads and parses the YAML file at path, falling back to
// raft.DefaultConfig for any field left unset, then validates the result
// with raft.Config.Validate (surfacing TimerMisconfigured if it fails).
func Load(path string) (raft.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return raft.Config{}, errors.Wrapf(err, "config: reading %s", path)
	}
	return Parse(data)
}

// Parse decodes YAML bytes into a raft.Config, applying defaults for any
// field the document leaves unset and validating the merged result.
func Parse(data []byte) (raft.Config, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return raft.Config{}, errors.Wrap(err, "config: parsing yaml")
	}

	cfg := raft.DefaultConfig()

	if f.ElectionTimeoutMin != "" {
		d, err := time.ParseDuration(f.ElectionTimeoutMin)
		if err != nil {
			return raft.Config{}, errors.Wrap(err, "config: election-timeout.min")
		}
		cfg.ElectionTimeoutMin = d
	}
	if f.ElectionTimeoutMax != "" {
		d, err := time.ParseDuration(f.ElectionTimeoutMax)
		if err != nil {
			return raft.Config{}, errors.Wrap(err, "config: election-timeout.max")
		}
		cfg.ElectionTimeoutMax = d
	}
	if f.HeartbeatInterval != "" {
		d, err := time.ParseDuration(f.HeartbeatInterval)
		if err != nil {
			return raft.Config{}, errors.Wrap(err, "config: heartbeat-interval")
		}
		cfg.HeartbeatInterval = d
	}
	if f.AppendEntriesBatch != 0 {
		cfg.AppendEntriesBatch = f.AppendEntriesBatch
	}
	cfg.PublishTestEvents = f.PublishTestEvents

	if err := cfg.Validate(); err != nil {
		return raft.Config{}, err
	}
	return cfg, nil
}
