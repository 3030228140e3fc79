// Package catalog holds the static topic registry and the per-mode option
// groups offered by the prompt builder.
package catalog

import (
	"embed"
	"fmt"
	"strings"

	"promptdoumi/internal/featureflags"

	"gopkg.in/yaml.v3"
)

// DefaultMode is the builder mode used when none is requested.
const DefaultMode = "custom"

const defaultOptionsKey = "default"

//go:embed data/*.yaml
var dataFS embed.FS

// Topic is one entry on the home screen.
type Topic struct {
	ID          string `yaml:"id" json:"id"`
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description" json:"description"`
	Icon        string `yaml:"icon" json:"icon"`
	Color       string `yaml:"color" json:"color"`
	ActiveColor string `yaml:"active_color" json:"active_color"`
	Path        string `yaml:"-" json:"path"`
	Disabled    bool   `yaml:"disabled" json:"disabled"`
}

// Option is one choice within a group. Label is what the user sees, Value
// is what goes into the prompt.
type Option struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// UnmarshalYAML accepts either a bare string or a {name, value} mapping.
func (o *Option) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		o.Label = node.Value
		o.Value = node.Value
		return nil
	case yaml.MappingNode:
		var raw struct {
			Name  string `yaml:"name"`
			Value string `yaml:"value"`
		}
		if err := node.Decode(&raw); err != nil {
			return err
		}
		o.Label = raw.Name
		o.Value = raw.Value
		if o.Label == "" {
			o.Label = o.Value
		}
		if o.Value == "" {
			return fmt.Errorf("line %d: option %q has no value", node.Line, raw.Name)
		}
		return nil
	default:
		return fmt.Errorf("line %d: option must be a string or a mapping", node.Line)
	}
}

// OptionGroup is one labelled dropdown.
type OptionGroup struct {
	Label   string   `yaml:"label" json:"label"`
	Options []Option `yaml:"items" json:"options"`
}

// Resolve returns the option whose value equals value.
func (g OptionGroup) Resolve(value string) (Option, bool) {
	for _, o := range g.Options {
		if o.Value == value {
			return o, true
		}
	}
	return Option{}, false
}

// Registry is the immutable topic and option catalog. Feature flags named
// topic_<id> may switch a disabled topic on or an enabled one off.
type Registry struct {
	topics  []Topic
	byID    map[string]int
	options map[string][]OptionGroup
}

// Load parses the embedded catalog and applies flags (which may be nil).
func Load(flags *featureflags.Manager) (*Registry, error) {
	topicsRaw, err := dataFS.ReadFile("data/topics.yaml")
	if err != nil {
		return nil, err
	}
	optionsRaw, err := dataFS.ReadFile("data/options.yaml")
	if err != nil {
		return nil, err
	}
	return Parse(topicsRaw, optionsRaw, flags)
}

// MustLoad is Load for process start, where a broken embedded catalog is fatal.
func MustLoad(flags *featureflags.Manager) *Registry {
	r, err := Load(flags)
	if err != nil {
		panic(fmt.Sprintf("catalog: %v", err))
	}
	return r
}

// Parse builds a registry from raw YAML documents.
func Parse(topicsRaw, optionsRaw []byte, flags *featureflags.Manager) (*Registry, error) {
	var topics []Topic
	if err := yaml.Unmarshal(topicsRaw, &topics); err != nil {
		return nil, fmt.Errorf("parse topics: %w", err)
	}
	if len(topics) == 0 {
		return nil, fmt.Errorf("parse topics: no topics defined")
	}

	options := map[string][]OptionGroup{}
	if err := yaml.Unmarshal(optionsRaw, &options); err != nil {
		return nil, fmt.Errorf("parse options: %w", err)
	}
	if _, ok := options[defaultOptionsKey]; !ok {
		return nil, fmt.Errorf("parse options: missing %q group set", defaultOptionsKey)
	}

	r := &Registry{
		topics:  topics,
		byID:    make(map[string]int, len(topics)),
		options: options,
	}
	for i := range r.topics {
		t := &r.topics[i]
		t.ID = strings.TrimSpace(t.ID)
		if t.ID == "" {
			return nil, fmt.Errorf("parse topics: entry %d has no id", i)
		}
		if _, dup := r.byID[t.ID]; dup {
			return nil, fmt.Errorf("parse topics: duplicate id %q", t.ID)
		}
		t.Path = "/builder?mode=" + t.ID
		flag := "topic_" + t.ID
		if flags.Defined(flag) {
			t.Disabled = !flags.Enabled(flag, "")
		}
		r.byID[t.ID] = i
	}
	return r, nil
}

// Topics returns every topic in display order.
func (r *Registry) Topics() []Topic {
	out := make([]Topic, len(r.topics))
	copy(out, r.topics)
	return out
}

// Topic looks a topic up by id.
func (r *Registry) Topic(id string) (Topic, bool) {
	i, ok := r.byID[id]
	if !ok {
		return Topic{}, false
	}
	return r.topics[i], true
}

// TopicForMode resolves the topic shown by the builder. An empty mode means
// DefaultMode; an unknown mode falls back to the last topic.
func (r *Registry) TopicForMode(mode string) Topic {
	if mode == "" {
		mode = DefaultMode
	}
	if t, ok := r.Topic(mode); ok {
		return t
	}
	return r.topics[len(r.topics)-1]
}

// OptionsFor returns the option groups for mode, or the default groups when
// the mode has no table of its own. Disabled topics keep their options.
func (r *Registry) OptionsFor(mode string) []OptionGroup {
	if mode == "" {
		mode = DefaultMode
	}
	groups, ok := r.options[mode]
	if !ok {
		groups = r.options[defaultOptionsKey]
	}
	out := make([]OptionGroup, len(groups))
	copy(out, groups)
	return out
}

// Group returns the group called label within mode's option groups.
func (r *Registry) Group(mode, label string) (OptionGroup, bool) {
	for _, g := range r.OptionsFor(mode) {
		if g.Label == label {
			return g, true
		}
	}
	return OptionGroup{}, false
}
