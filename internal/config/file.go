package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"repoclone/internal/flags"

	"gopkg.in/yaml.v3"
)

// File is the YAML config file schema. Pointer fields distinguish "unset"
// from zero values.
//
//	owner: my-org
//	dir: /srv/mirrors/my-org
//	limit: 200
//	concurrency: 8
//	depth: 1
//	protocol: ssh
//	exclude: ["*-archive"]
//	forks: exclude
type File struct {
	Owner       *string  `yaml:"owner"`
	Dir         *string  `yaml:"dir"`
	Limit       *int     `yaml:"limit"`
	Include     []string `yaml:"include"`
	Exclude     []string `yaml:"exclude"`
	Archived    *string  `yaml:"archived"`
	Forks       *string  `yaml:"forks"`
	Depth       *int     `yaml:"depth"`
	Protocol    *string  `yaml:"protocol"`
	Concurrency *int     `yaml:"concurrency"`
	MetricsFile *string  `yaml:"metrics_file"`

	App *struct {
		ID             string `yaml:"id"`
		InstallationID string `yaml:"installation_id"`
		PrivateKey     string `yaml:"private_key"`
	} `yaml:"github_app"`
}

func LoadFile(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	f := &File{}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(f); err != nil {
		// An empty file is a valid, empty config.
		if errors.Is(err, io.EOF) {
			return f, nil
		}
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return f, nil
}

// Apply copies file values into c for every flag that was not set on the
// command line. changed reports whether a flag (by name) was set explicitly.
func (f *File) Apply(c *Config, changed func(name string) bool) {
	if f == nil || c == nil {
		return
	}
	if changed == nil {
		changed = func(string) bool { return false }
	}
	setString := func(flag string, dst *string, v *string) {
		if v != nil && !changed(flag) {
			*dst = *v
		}
	}
	setInt := func(flag string, dst *int, v *int) {
		if v != nil && !changed(flag) {
			*dst = *v
		}
	}

	// The owner may also arrive as a positional argument; the caller fills
	// Targeting.Owner before Apply in that case.
	if c.Targeting.Owner == "" {
		setString(flags.FlagOwner, &c.Targeting.Owner, f.Owner)
	}
	setString(flags.FlagDir, &c.Targeting.Dir, f.Dir)
	setInt(flags.FlagLimit, &c.Targeting.Limit, f.Limit)
	if len(f.Include) > 0 && !changed(flags.FlagInclude) {
		c.Targeting.Include = append([]string(nil), f.Include...)
	}
	if len(f.Exclude) > 0 && !changed(flags.FlagExclude) {
		c.Targeting.Exclude = append([]string(nil), f.Exclude...)
	}
	setString(flags.FlagArchived, &c.Targeting.Archived, f.Archived)
	setString(flags.FlagForks, &c.Targeting.Forks, f.Forks)
	setInt(flags.FlagDepth, &c.Clone.Depth, f.Depth)
	setString(flags.FlagProtocol, &c.Clone.Protocol, f.Protocol)
	setInt(flags.FlagConcurrency, &c.Runtime.Concurrency, f.Concurrency)
	setString(flags.FlagMetricsFile, &c.Output.MetricsFile, f.MetricsFile)

	if f.App != nil {
		if !changed(flags.FlagAppID) {
			c.Auth.AppID = f.App.ID
		}
		if !changed(flags.FlagAppInstallationID) {
			c.Auth.AppInstallationID = f.App.InstallationID
		}
		if !changed(flags.FlagAppPrivateKey) {
			c.Auth.AppPrivateKey = f.App.PrivateKey
		}
	}
}
