package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/target/mmk-alert-router/internal/domain/model"
)

// PluginsConfig locates the plugin declaration file.
type PluginsConfig struct {
	// Path is the YAML file listing plugin declarations.
	Path string `env:"PLUGINS_CONFIG" envDefault:"plugins.yaml"`

	// RequireAll makes any plugin initialization failure fatal at startup.
	RequireAll bool `env:"PLUGINS_REQUIRE_ALL" envDefault:"false"`
}

// Sanitize applies guardrails to plugin configuration values.
func (p *PluginsConfig) Sanitize() {
	p.Path = strings.TrimSpace(p.Path)
	if p.Path == "" {
		p.Path = "plugins.yaml"
	}
}

// PluginDecl is one entry of the plugin declaration file. Options holds the
// type-specific block and is decoded by the plugin factory.
type PluginDecl struct {
	Name    string    `yaml:"name"`
	Group   string    `yaml:"group"`
	Type    string    `yaml:"type"`
	Options yaml.Node `yaml:"options"`

	line int
}

// Identity returns the (name, group, type) triple the plugin will report.
func (d PluginDecl) Identity() model.PluginIdentity {
	return model.PluginIdentity{Name: d.Name, Group: d.Group, Type: d.Type}
}

// Line is the 1-based line of the declaration in its source file, or 0.
func (d PluginDecl) Line() int {
	return d.line
}

// DecodeOptions decodes the options block into out. A missing block leaves out untouched.
func (d PluginDecl) DecodeOptions(out any) error {
	if d.Options.Kind == 0 {
		return nil
	}
	if d.Options.Kind != yaml.MappingNode {
		return fmt.Errorf("plugin %q: options must be a mapping", d.Name)
	}
	if err := d.Options.Decode(out); err != nil {
		return fmt.Errorf("plugin %q: decode options: %w", d.Name, err)
	}
	return nil
}

type pluginFile struct {
	Plugins []PluginDecl `yaml:"plugins"`
}

// LookupFunc resolves an environment variable.
type LookupFunc func(key string) (string, bool)

// LoadPluginDecls reads and parses the declaration file at path, expanding
// ${VAR} references from the process environment.
func LoadPluginDecls(path string) ([]PluginDecl, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from operator config
	if err != nil {
		return nil, fmt.Errorf("read plugin config: %w", err)
	}
	decls, err := ParsePluginDecls(data, os.LookupEnv)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return decls, nil
}

// ParsePluginDecls parses a declaration document. String scalars may reference
// ${VAR} or ${VAR:-default}; referencing an unset variable without a default
// is an error.
func ParsePluginDecls(data []byte, lookup LookupFunc) ([]PluginDecl, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse plugin config: %w", err)
	}
	if root.Kind == 0 {
		return nil, nil
	}
	if err := expandNode(&root, lookup); err != nil {
		return nil, err
	}

	var file pluginFile
	if err := root.Decode(&file); err != nil {
		return nil, fmt.Errorf("parse plugin config: %w", err)
	}
	lines := declLines(&root)
	for i := range file.Plugins {
		if i < len(lines) {
			file.Plugins[i].line = lines[i]
		}
	}
	return file.Plugins, nil
}

func declLines(root *yaml.Node) []int {
	doc := root
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		doc = doc.Content[0]
	}
	if doc.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(doc.Content); i += 2 {
		if doc.Content[i].Value != "plugins" || doc.Content[i+1].Kind != yaml.SequenceNode {
			continue
		}
		items := doc.Content[i+1].Content
		lines := make([]int, len(items))
		for j, item := range items {
			lines[j] = item.Line
		}
		return lines
	}
	return nil
}

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

func expandNode(n *yaml.Node, lookup LookupFunc) error {
	if n.Kind == yaml.ScalarNode {
		return expandScalar(n, lookup)
	}
	for _, c := range n.Content {
		if err := expandNode(c, lookup); err != nil {
			return err
		}
	}
	return nil
}

func expandScalar(n *yaml.Node, lookup LookupFunc) error {
	if !strings.Contains(n.Value, "${") {
		return nil
	}
	var missing []string
	n.Value = envRef.ReplaceAllStringFunc(n.Value, func(ref string) string {
		m := envRef.FindStringSubmatch(ref)
		if v, ok := lookup(m[1]); ok {
			return v
		}
		if strings.Contains(ref, ":-") {
			return m[2]
		}
		missing = append(missing, m[1])
		return ""
	})
	if len(missing) > 0 {
		return fmt.Errorf("line %d: undefined environment variable %s", n.Line, strings.Join(missing, ", "))
	}
	// Let plain scalars re-resolve so ${PORT} can still decode into an int.
	if n.Style == 0 {
		n.Tag = ""
	}
	return nil
}

// ValidatePluginDecls checks every declaration and returns one error per
// offending entry, joined. knownTypes lists the plugin types the factory can build.
func ValidatePluginDecls(decls []PluginDecl, knownTypes []string) error {
	var errs []error
	seen := make(map[string]int, len(decls))
	for i, d := range decls {
		ref := declRef(i, d)
		name := strings.TrimSpace(d.Name)
		switch {
		case name == "":
			errs = append(errs, fmt.Errorf("%s: name is required", ref))
		case name != d.Name:
			errs = append(errs, fmt.Errorf("%s: name must not have surrounding whitespace", ref))
		}
		if first, dup := seen[d.Name]; dup && name != "" {
			errs = append(errs, fmt.Errorf("%s: duplicate name %q (first declared at plugins[%d])", ref, d.Name, first))
		} else {
			seen[d.Name] = i
		}
		if strings.TrimSpace(d.Type) == "" {
			errs = append(errs, fmt.Errorf("%s: type is required", ref))
		} else if len(knownTypes) > 0 && !slices.Contains(knownTypes, d.Type) {
			errs = append(errs, fmt.Errorf("%s: unknown type %q (known: %s)", ref, d.Type, strings.Join(knownTypes, ", ")))
		}
	}
	return errors.Join(errs...)
}

func declRef(i int, d PluginDecl) string {
	ref := fmt.Sprintf("plugins[%d]", i)
	if d.Name != "" {
		ref += fmt.Sprintf(" (%s)", d.Name)
	}
	if d.line > 0 {
		ref += fmt.Sprintf(" line %d", d.line)
	}
	return ref
}
