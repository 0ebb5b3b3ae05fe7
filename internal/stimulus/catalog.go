// Package stimulus holds the static catalog of color stimuli used in
// afterimage trials. The catalog is decoded once from an embedded file and
// never mutated; trial records copy the fields they need rather than
// referencing catalog entries.
package stimulus

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

// Stare duration bounds, in seconds. The configuration UI steps within
// [MinStareSeconds, MaxStareSeconds] and no other value is reachable.
const (
	DefaultStareSeconds = 45
	MinStareSeconds     = 5
	MaxStareSeconds     = 120
	StareStepSeconds    = 5
)

// Stimulus describes one color stimulus and its expected perceptual
// complement. The complement is authored metadata, not computed.
type Stimulus struct {
	ID             string `yaml:"id"`
	Name           string `yaml:"name"`
	Hex            string `yaml:"hex"`
	ComplementName string `yaml:"complement_name"`
	ComplementHex  string `yaml:"complement_hex"`
	Description    string `yaml:"description"`
}

//go:embed catalog.yaml
var catalogYAML []byte

var (
	loadOnce sync.Once
	catalog  []Stimulus
	loadErr  error
)

// Library returns the fixed, ordered stimulus collection. The result is the
// same slice for the lifetime of the process; callers must not modify it.
// An unparsable embedded catalog is a build defect, so Library panics rather
// than returning an error every caller would have to ignore.
func Library() []Stimulus {
	loadOnce.Do(func() {
		loadErr = yaml.Unmarshal(catalogYAML, &catalog)
		if loadErr == nil && len(catalog) == 0 {
			loadErr = fmt.Errorf("embedded catalog is empty")
		}
	})
	if loadErr != nil {
		panic(fmt.Sprintf("stimulus: bad embedded catalog: %v", loadErr))
	}
	return catalog
}

// ByID looks up a stimulus by its short key. Returns the zero Stimulus and
// false when the id is unknown.
func ByID(id string) (Stimulus, bool) {
	for _, s := range Library() {
		if s.ID == id {
			return s, true
		}
	}
	return Stimulus{}, false
}
