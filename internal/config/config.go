// Package config loads run settings from readcns.yml. Command-line flags
// override whatever the file sets.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/dusk-indust/readcns/internal/engine"
	"github.com/dusk-indust/readcns/internal/logging"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("config: invalid")

// Profiles holds the aligner parameters for both span classes.
type Profiles struct {
	Small engine.Params `yaml:"small"`
	Large engine.Params `yaml:"large"`
}

// Config holds the correction settings loaded from readcns.yml.
type Config struct {
	// Threads is the number of workers; 0 means one per CPU.
	Threads            int      `yaml:"threads"`
	PoolCapacity       int      `yaml:"poolCapacity"`
	MaxSeqSize         int      `yaml:"maxSeqSize"`
	IdentityWindow     int      `yaml:"identityWindow"`
	IdentityThreshold  float64  `yaml:"identityThreshold"`
	ConsensusWindow    int      `yaml:"consensusWindow"`
	MinCoverage        int      `yaml:"minCoverage"`
	MinAlignSize       int      `yaml:"minAlignSize"`
	MinIdentity        float64  `yaml:"minIdentity"`
	LargeSpanThreshold int      `yaml:"largeSpanThreshold"`
	PushGaps           bool     `yaml:"pushGaps"`
	Profiles           Profiles `yaml:"profiles"`
	LogLevel           string   `yaml:"logLevel"`
	LogFormat          string   `yaml:"logFormat"`
}

// Default returns the stock settings.
func Default() *Config {
	return &Config{
		PoolCapacity:       100,
		MaxSeqSize:         100000,
		IdentityWindow:     10,
		IdentityThreshold:  0.7,
		ConsensusWindow:    500,
		MinCoverage:        4,
		MinAlignSize:       500,
		MinIdentity:        0.6,
		LargeSpanThreshold: 2000,
		PushGaps:           true,
		Profiles: Profiles{
			Small: engine.DefaultParams(engine.Small),
			Large: engine.DefaultParams(engine.Large),
		},
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// Load attempts to read readcns.yml or readcns.yaml from the given
// directory. Returns the defaults (not an error) if no config file exists.
func Load(dir string) (*Config, error) {
	for _, name := range []string{"readcns.yml", "readcns.yaml"} {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		return parse(path, data)
	}
	return Default(), nil
}

// LoadFile reads settings from an explicit path; a missing file is an error.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return parse(path, data)
}

func parse(path string, data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports every setting that is out of range.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
		}
	}
	check(c.Threads >= 0, "threads %d < 0", c.Threads)
	check(c.PoolCapacity >= 1, "poolCapacity %d < 1", c.PoolCapacity)
	check(c.MaxSeqSize >= 1, "maxSeqSize %d < 1", c.MaxSeqSize)
	check(c.IdentityWindow >= 1, "identityWindow %d < 1", c.IdentityWindow)
	check(c.IdentityThreshold > 0 && c.IdentityThreshold <= 1, "identityThreshold %g not in (0, 1]", c.IdentityThreshold)
	check(c.ConsensusWindow >= 1, "consensusWindow %d < 1", c.ConsensusWindow)
	check(c.MinCoverage >= 1, "minCoverage %d < 1", c.MinCoverage)
	check(c.MinAlignSize >= 0, "minAlignSize %d < 0", c.MinAlignSize)
	check(c.MinIdentity >= 0 && c.MinIdentity <= 1, "minIdentity %g not in [0, 1]", c.MinIdentity)
	check(c.LargeSpanThreshold >= 0, "largeSpanThreshold %d < 0", c.LargeSpanThreshold)
	for name, p := range map[string]engine.Params{"small": c.Profiles.Small, "large": c.Profiles.Large} {
		check(p.Band >= 1, "profiles.%s.band %d < 1", name, p.Band)
		check(p.MaxDiffRate >= 0 && p.MaxDiffRate <= 1, "profiles.%s.maxDiffRate %g not in [0, 1]", name, p.MaxDiffRate)
	}
	_, err := logging.ParseLevel(c.LogLevel)
	check(err == nil, "logLevel %q", c.LogLevel)
	check(c.LogFormat == "text" || c.LogFormat == "json", "logFormat %q", c.LogFormat)
	return errors.Join(errs...)
}
