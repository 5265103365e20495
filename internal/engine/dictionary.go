package engine

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed data/nicknames.yaml
var defaultNicknamesYAML []byte

//go:embed data/noise.yaml
var defaultNoiseYAML []byte

// NicknameDictionary maps first-name variants to the formal names they can
// stand for. It is static data; swap it by loading another YAML document.
type NicknameDictionary struct {
	// formal names per lowercase variant (the formal name is its own variant)
	formsOf map[string][]string
}

type nicknameFile struct {
	Nicknames map[string][]string `yaml:"nicknames"`
}

// ParseNicknames builds a dictionary from YAML of the form
//
//	nicknames:
//	  robert: [rob, bob, bobby]
func ParseNicknames(data []byte) (*NicknameDictionary, error) {
	var f nicknameFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("nicknames: failed to parse: %w", err)
	}

	d := &NicknameDictionary{formsOf: make(map[string][]string)}
	for formal, variants := range f.Nicknames {
		formal = strings.ToLower(strings.TrimSpace(formal))
		if formal == "" {
			continue
		}
		d.add(formal, formal)
		for _, v := range variants {
			d.add(strings.ToLower(strings.TrimSpace(v)), formal)
		}
	}
	return d, nil
}

func (d *NicknameDictionary) add(variant, formal string) {
	if variant == "" {
		return
	}
	for _, f := range d.formsOf[variant] {
		if f == formal {
			return
		}
	}
	d.formsOf[variant] = append(d.formsOf[variant], formal)
}

// DefaultNicknames returns the built-in dictionary.
func DefaultNicknames() *NicknameDictionary {
	d, err := ParseNicknames(defaultNicknamesYAML)
	if err != nil {
		panic(err) // embedded data is validated by tests
	}
	return d
}

// LoadNicknames reads a dictionary from a YAML file. An empty path returns
// the built-in dictionary.
func LoadNicknames(path string) (*NicknameDictionary, error) {
	if path == "" {
		return DefaultNicknames(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("nicknames: failed to read %s: %w", path, err)
	}
	return ParseNicknames(data)
}

// SameFormalName reports whether both first names are variants of one
// formal name ("bob" and "robert", or "bob" and "robbie").
func (d *NicknameDictionary) SameFormalName(a, b string) bool {
	if d == nil {
		return false
	}
	for _, fa := range d.formsOf[strings.ToLower(a)] {
		for _, fb := range d.formsOf[strings.ToLower(b)] {
			if fa == fb {
				return true
			}
		}
	}
	return false
}

// Len returns the number of known variants.
func (d *NicknameDictionary) Len() int {
	if d == nil {
		return 0
	}
	return len(d.formsOf)
}

// NoiseLists holds well-known names that extraction should not turn into
// personal entities.
type NoiseLists struct {
	FamousPeople []string `yaml:"famous_people"`
	Companies    []string `yaml:"companies"`
}

// ParseNoiseLists parses the noise YAML document.
func ParseNoiseLists(data []byte) (*NoiseLists, error) {
	var n NoiseLists
	if err := yaml.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("noise lists: failed to parse: %w", err)
	}
	return &n, nil
}

// LoadNoiseLists reads noise lists from a YAML file. An empty path returns
// the built-in lists.
func LoadNoiseLists(path string) (*NoiseLists, error) {
	data := defaultNoiseYAML
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("noise lists: failed to read %s: %w", path, err)
		}
	}
	return ParseNoiseLists(data)
}
