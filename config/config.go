// Package config loads named option profiles from YAML files.
//
//	profiles:
//	  lowlatency:
//	    sndbuf: 65536
//	    tcp.nodelay: true
//	    socket_name: feed
//
// Keys are registered option names, see the options package.
package config

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/multisocket/spcore/errs"
	"github.com/multisocket/spcore/options"
)

// Profile maps option names to values.
type Profile map[string]interface{}

// Config holds the profiles of a file.
type Config struct {
	Profiles map[string]Profile `yaml:"profiles"`
}

// OptionSetter is implemented by sockets.
type OptionSetter interface {
	SetOption(level, id int, val []byte) error
}

// Load reads a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes a configuration and checks every profile.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	for name, p := range cfg.Profiles {
		if _, err := p.encode(); err != nil {
			return nil, fmt.Errorf("config: profile %s: %w", name, err)
		}
	}
	return cfg, nil
}

// Profile returns a profile by name.
func (cfg *Config) Profile(name string) (Profile, error) {
	p, ok := cfg.Profiles[name]
	if !ok {
		return nil, fmt.Errorf("config: no profile %q", name)
	}
	return p, nil
}

type setting struct {
	opt options.Option
	val []byte
}

// encode validates the profile, settings are ordered by option name.
func (p Profile) encode() ([]setting, error) {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)

	settings := make([]setting, 0, len(names))
	for _, name := range names {
		opt, ok := options.LookupName(name)
		if !ok {
			return nil, fmt.Errorf("%s: %w", name, errs.ErrInvalidOption)
		}
		val, err := options.Encode(opt, p[name])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if err = opt.Validate(val); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		settings = append(settings, setting{opt, val})
	}
	return settings, nil
}

// Apply sets every option of the profile on s.
func (p Profile) Apply(s OptionSetter) error {
	settings, err := p.encode()
	if err != nil {
		return err
	}
	for _, st := range settings {
		if err = s.SetOption(st.opt.Level(), st.opt.ID(), st.val); err != nil {
			return fmt.Errorf("%s: %w", st.opt.Name(), err)
		}
	}
	return nil
}
