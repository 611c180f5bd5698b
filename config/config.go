// Package config — .lingokit.yaml project configuration support.
//
// When a .lingokit.yaml file exists in the project root, its values
// provide defaults for the CLI flags. Flags always win over the file;
// the file wins over built-in defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileName is the project config file name.
const FileName = ".lingokit.yaml"

// Project is the top-level .lingokit.yaml structure.
type Project struct {
	// Path is the translations directory holding one subdirectory per
	// locale (default "i18n").
	Path string `yaml:"path,omitempty"`
	// Source is the base locale code (default "en").
	Source string `yaml:"source,omitempty"`
	// State is the state document path (default "lingokit.state.json").
	State string `yaml:"state,omitempty"`
	// Context is free-text project context passed to the translation
	// service.
	Context string `yaml:"context,omitempty"`
	// Tone is the translation tone directive.
	Tone string `yaml:"tone,omitempty"`
	// Locales pins the target locale list. Empty means every locale
	// directory found under Path.
	Locales []string `yaml:"locales,omitempty"`
	// Out is the generated TypeScript file path (default
	// "<path>/keys.ts").
	Out string `yaml:"out,omitempty"`
}

// Defaults returns a project config with built-in defaults applied.
func Defaults() *Project {
	return &Project{
		Path:   "i18n",
		Source: "en",
		State:  "lingokit.state.json",
	}
}

// Load reads .lingokit.yaml from rootDir and overlays it onto the
// defaults. A missing file is not an error; the defaults are returned.
func Load(rootDir string) (*Project, error) {
	proj := Defaults()

	path := filepath.Join(rootDir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return proj, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var file Project
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	proj.overlay(&file)
	return proj, nil
}

func (p *Project) overlay(other *Project) {
	if other.Path != "" {
		p.Path = other.Path
	}
	if other.Source != "" {
		p.Source = other.Source
	}
	if other.State != "" {
		p.State = other.State
	}
	if other.Context != "" {
		p.Context = other.Context
	}
	if other.Tone != "" {
		p.Tone = other.Tone
	}
	if len(other.Locales) > 0 {
		p.Locales = append([]string(nil), other.Locales...)
	}
	if other.Out != "" {
		p.Out = other.Out
	}
}

// OutPath resolves the generated TypeScript file path.
func (p *Project) OutPath() string {
	if p.Out != "" {
		return p.Out
	}
	return filepath.Join(p.Path, "keys.ts")
}
