// manifest.go: plugin manifests, descriptions and the name grammar
//
// Copyright (c) 2025 The Basalt Authors
// SPDX-License-Identifier: MPL-2.0

package basalt

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// CurrentAPIVersion is the plugin API version this runtime speaks. Plugins
// declaring a different major version are refused at load.
const CurrentAPIVersion = "1.0"

// pluginNamePattern is the grammar a plugin name must satisfy before it may
// enter the manager's registry.
var pluginNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// IsValidPluginName reports whether the name satisfies the plugin name
// grammar: letters, digits, underscores and hyphens only.
func IsValidPluginName(name string) bool {
	return pluginNamePattern.MatchString(name)
}

// manifestFileNames are the canonical manifest spellings probed inside a
// plugin directory, in preference order.
var manifestFileNames = []string{"plugin.toml", "plugin.yaml", "plugin.yml", "plugin.json"}

// findManifest probes a directory for a canonical plugin manifest. The
// boolean is false when the directory holds none, which callers treat as
// "not a plugin directory", not an error.
func findManifest(dir string) (string, bool) {
	for _, name := range manifestFileNames {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			return path, true
		}
	}
	return "", false
}

// PluginLoadOrder places a plugin in one of the host's two enable phases.
type PluginLoadOrder int

const (
	// LoadOrderPostWorld enables the plugin after the host finishes loading.
	// This is the default.
	LoadOrderPostWorld PluginLoadOrder = iota
	// LoadOrderStartup enables the plugin during host startup, before the
	// load event fires.
	LoadOrderStartup
)

// String returns the load order name in manifest spelling.
func (o PluginLoadOrder) String() string {
	if o == LoadOrderStartup {
		return "STARTUP"
	}
	return "POSTWORLD"
}

// CommandSpec is a command declared by a plugin manifest. The manager turns
// specs into PluginCommands at enable time.
type CommandSpec struct {
	Name        string
	Description string
	Usages      []string
	Aliases     []string
	Permissions []string
}

// PermissionSpec is a permission declared by a plugin manifest, registered
// with the permission registry at enable time.
type PermissionSpec struct {
	Name        string
	Description string
	Default     PermissionDefault
}

// PluginDescription is the parsed identity and metadata of a plugin. It is
// built once per load and treated as read-only afterwards.
type PluginDescription struct {
	Name        string
	Version     string
	APIVersion  string
	Description string
	Authors     []string
	Website     string
	Load        PluginLoadOrder
	Depend      []string
	Commands    []CommandSpec
	Permissions []PermissionSpec
}

// FullName returns "name vVersion", the spelling lifecycle logs use.
func (d *PluginDescription) FullName() string {
	return d.Name + " v" + d.Version
}

// Manifest wire format. Commands and permissions are keyed by name the way
// plugin authors write them; Describe flattens them into sorted specs.

type manifestCommand struct {
	Description string   `toml:"description" yaml:"description" json:"description"`
	Usages      []string `toml:"usages" yaml:"usages" json:"usages"`
	Aliases     []string `toml:"aliases" yaml:"aliases" json:"aliases"`
	Permissions []string `toml:"permissions" yaml:"permissions" json:"permissions"`
}

type manifestPermission struct {
	Description string `toml:"description" yaml:"description" json:"description"`
	Default     string `toml:"default" yaml:"default" json:"default"`
}

// PluginManifest is the on-disk manifest a plugin ships. TOML is the
// canonical form; YAML and JSON spellings are accepted as well.
type PluginManifest struct {
	Name              string                        `toml:"name" yaml:"name" json:"name"`
	Version           string                        `toml:"version" yaml:"version" json:"version"`
	APIVersion        string                        `toml:"api_version" yaml:"api_version" json:"api_version"`
	Description       string                        `toml:"description" yaml:"description" json:"description"`
	Authors           []string                      `toml:"authors" yaml:"authors" json:"authors"`
	Website           string                        `toml:"website" yaml:"website" json:"website"`
	Load              string                        `toml:"load" yaml:"load" json:"load"`
	Depend            []string                      `toml:"depend" yaml:"depend" json:"depend"`
	Entry             string                        `toml:"entry" yaml:"entry" json:"entry"`
	DefaultPermission string                        `toml:"default_permission" yaml:"default_permission" json:"default_permission"`
	Commands          map[string]manifestCommand    `toml:"commands" yaml:"commands" json:"commands"`
	Permissions       map[string]manifestPermission `toml:"permissions" yaml:"permissions" json:"permissions"`
}

// ParseManifest reads and decodes a manifest file, chosen by extension.
func ParseManifest(path string) (*PluginManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, NewFileNotFoundError(path)
		}
		return nil, NewInvalidManifestError(path, err)
	}
	return parseManifestData(path, data)
}

func parseManifestData(path string, data []byte) (*PluginManifest, error) {
	manifest := &PluginManifest{}
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, manifest)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, manifest)
	case ".json":
		err = json.Unmarshal(data, manifest)
	default:
		// Unknown extension: accept JSON first, then YAML, matching how
		// sidecar manifests are probed elsewhere.
		if jsonErr := json.Unmarshal(data, manifest); jsonErr != nil {
			err = yaml.Unmarshal(data, manifest)
		}
	}
	if err != nil {
		return nil, NewInvalidManifestError(path, err)
	}
	manifest.applyDefaults()
	return manifest, nil
}

func (m *PluginManifest) applyDefaults() {
	if m.Version == "" {
		m.Version = "1.0.0"
	}
	if m.Load == "" {
		m.Load = LoadOrderPostWorld.String()
	}
}

// Describe validates the manifest and flattens it into a runtime
// description. Command and permission maps come out as specs sorted by name
// so downstream registration is deterministic.
func (m *PluginManifest) Describe() (*PluginDescription, error) {
	if !IsValidPluginName(m.Name) {
		return nil, NewInvalidPluginNameError(m.Name)
	}

	load := LoadOrderPostWorld
	switch strings.ToUpper(strings.TrimSpace(m.Load)) {
	case "", "POSTWORLD":
		load = LoadOrderPostWorld
	case "STARTUP":
		load = LoadOrderStartup
	default:
		return nil, NewInvalidManifestError(m.Name, nil).
			WithContext("load", m.Load)
	}

	fallbackDefault, err := ParsePermissionDefault(m.DefaultPermission)
	if err != nil {
		return nil, NewInvalidManifestError(m.Name, err)
	}

	desc := &PluginDescription{
		Name:        m.Name,
		Version:     m.Version,
		APIVersion:  m.APIVersion,
		Description: m.Description,
		Authors:     append([]string(nil), m.Authors...),
		Website:     m.Website,
		Load:        load,
		Depend:      append([]string(nil), m.Depend...),
	}

	for _, name := range sortedKeys(m.Commands) {
		body := m.Commands[name]
		desc.Commands = append(desc.Commands, CommandSpec{
			Name:        strings.ToLower(name),
			Description: body.Description,
			Usages:      append([]string(nil), body.Usages...),
			Aliases:     append([]string(nil), body.Aliases...),
			Permissions: append([]string(nil), body.Permissions...),
		})
	}

	for _, name := range sortedKeys(m.Permissions) {
		body := m.Permissions[name]
		def := fallbackDefault
		if body.Default != "" {
			def, err = ParsePermissionDefault(body.Default)
			if err != nil {
				return nil, NewInvalidManifestError(m.Name, err).
					WithContext("permission", name)
			}
		}
		desc.Permissions = append(desc.Permissions, PermissionSpec{
			Name:        strings.ToLower(name),
			Description: body.Description,
			Default:     def,
		})
	}

	return desc, nil
}

// apiVersionCompatible reports whether a declared plugin API version can run
// on this runtime. The major component must match; an empty declaration is
// accepted for host-bundled plugins.
func apiVersionCompatible(version string) bool {
	if version == "" {
		return true
	}
	declared, _, _ := strings.Cut(version, ".")
	current, _, _ := strings.Cut(CurrentAPIVersion, ".")
	return declared == current
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
