// Package modelfile loads test models from YAML.
//
// A model file names the parameters and their values, the testing
// strength, optional forbidden tuples and an initial test suite, and may
// override localization settings:
//
//	name: checkout
//	strength: 2
//	parameters:
//	  - name: browser
//	    values: [chrome, firefox, safari]
//	  - name: os
//	    values: [linux, mac]
//	constraints:
//	  - {browser: safari, os: linux}
//	suite:
//	  - {browser: chrome, os: linux}
//	config:
//	  max_iterations: 20
//	  search_timeout: 30s
package modelfile

import (
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/example/faultloc/localize/domain"
)

// File is the on-disk model description.
type File struct {
	Name        string              `yaml:"name"`
	Strength    int                 `yaml:"strength"`
	Parameters  []Parameter         `yaml:"parameters"`
	Constraints []map[string]string `yaml:"constraints,omitempty"`
	Suite       []map[string]string `yaml:"suite,omitempty"`
	Config      Config              `yaml:"config,omitempty"`
}

// Parameter is one model parameter.
type Parameter struct {
	Name   string   `yaml:"name"`
	Values []string `yaml:"values"`
}

// Config overrides domain.Config. Zero values keep the defaults.
type Config struct {
	MaxIterations             int           `yaml:"max_iterations,omitempty"`
	LargeModelThreshold       int           `yaml:"large_model_threshold,omitempty"`
	LayerCeiling              int           `yaml:"layer_ceiling,omitempty"`
	BuildTimeout              time.Duration `yaml:"build_timeout,omitempty"`
	SearchTimeout             time.Duration `yaml:"search_timeout,omitempty"`
	Workers                   int           `yaml:"workers,omitempty"`
	SynthesisAttempts         int           `yaml:"synthesis_attempts,omitempty"`
	VerificationThreshold     int           `yaml:"verification_threshold,omitempty"`
	EmptyCombinationThreshold int           `yaml:"empty_combination_threshold,omitempty"`
	ClassificationChecks      int           `yaml:"classification_checks,omitempty"`
	MaxRestarts               int           `yaml:"max_restarts,omitempty"`
	EnableClassification      *bool         `yaml:"enable_classification,omitempty"`
	RandomSeed                int64         `yaml:"random_seed,omitempty"`
}

// Load reads and parses a model file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return f, nil
}

// Parse decodes a model file.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	if f.Strength == 0 {
		f.Strength = 2
	}
	return &f, nil
}

// Marshal encodes a model file.
func Marshal(f *File) ([]byte, error) {
	return yaml.Marshal(f)
}

// Model converts the file into a validated test model.
func (f *File) Model() (*domain.TestModel, error) {
	m := &domain.TestModel{
		Name:       f.Name,
		Strength:   f.Strength,
		Parameters: make([]domain.Parameter, len(f.Parameters)),
	}
	for i, p := range f.Parameters {
		m.Parameters[i] = domain.Parameter{Name: p.Name, Values: append([]string(nil), p.Values...)}
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// ForbiddenTuples resolves the constraints section against the model.
func (f *File) ForbiddenTuples(m *domain.TestModel) ([]domain.Combination, error) {
	return resolveAll(m, f.Constraints, false)
}

// SuiteInputs resolves the suite section against the model. Every suite
// entry must assign all parameters.
func (f *File) SuiteInputs(m *domain.TestModel) ([]domain.Combination, error) {
	return resolveAll(m, f.Suite, true)
}

// Apply overlays the config section on base.
func (f *File) Apply(base domain.Config) domain.Config {
	c := f.Config
	if c.MaxIterations != 0 {
		base.MaxIterations = c.MaxIterations
	}
	if c.LargeModelThreshold != 0 {
		base.LargeModelThreshold = c.LargeModelThreshold
	}
	if c.LayerCeiling != 0 {
		base.LayerCeiling = c.LayerCeiling
	}
	if c.BuildTimeout != 0 {
		base.BuildTimeout = c.BuildTimeout
	}
	if c.SearchTimeout != 0 {
		base.SearchTimeout = c.SearchTimeout
	}
	if c.Workers != 0 {
		base.Workers = c.Workers
	}
	if c.SynthesisAttempts != 0 {
		base.SynthesisAttempts = c.SynthesisAttempts
	}
	if c.VerificationThreshold != 0 {
		base.VerificationThreshold = c.VerificationThreshold
	}
	if c.EmptyCombinationThreshold != 0 {
		base.EmptyCombinationThreshold = c.EmptyCombinationThreshold
	}
	if c.ClassificationChecks != 0 {
		base.ClassificationChecks = c.ClassificationChecks
	}
	if c.MaxRestarts != 0 {
		base.MaxRestarts = c.MaxRestarts
	}
	if c.EnableClassification != nil {
		base.EnableClassification = *c.EnableClassification
	}
	if c.RandomSeed != 0 {
		base.RandomSeed = c.RandomSeed
	}
	return base
}

func resolveAll(m *domain.TestModel, entries []map[string]string, full bool) ([]domain.Combination, error) {
	out := make([]domain.Combination, 0, len(entries))
	for i, entry := range entries {
		c, err := Resolve(m, entry)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		if full && !c.IsFull() {
			return nil, fmt.Errorf("entry %d: %w: %s does not assign every parameter",
				i, domain.ErrInvalidCombination, m.Describe(c))
		}
		out = append(out, c)
	}
	return out, nil
}

// Resolve converts a name→value assignment into a combination.
func Resolve(m *domain.TestModel, assignment map[string]string) (domain.Combination, error) {
	names := make([]string, 0, len(assignment))
	for name := range assignment {
		names = append(names, name)
	}
	sort.Strings(names)

	c := domain.NewCombination(m.NumParameters())
	for _, name := range names {
		p := m.ParameterIndex(name)
		if p < 0 {
			return nil, fmt.Errorf("%w: unknown parameter %q", domain.ErrInvalidCombination, name)
		}
		v := m.ValueIndex(p, assignment[name])
		if v < 0 {
			return nil, fmt.Errorf("%w: parameter %q has no value %q",
				domain.ErrInvalidCombination, name, assignment[name])
		}
		c[p] = v
	}
	return c, nil
}

// Assignment is the inverse of Resolve.
func Assignment(m *domain.TestModel, c domain.Combination) map[string]string {
	out := make(map[string]string, c.NumFixed())
	for p, v := range c {
		if v == domain.Unset || p >= m.NumParameters() || v >= m.Parameters[p].Size() {
			continue
		}
		out[m.Parameters[p].Name] = m.Parameters[p].Values[v]
	}
	return out
}
