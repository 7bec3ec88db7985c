package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Parameter is a single input parameter of the system under test.
type Parameter struct {
	// Name identifies the parameter (used in reports and env vars).
	Name string

	// Values are the parameter's domain, addressed by index.
	Values []string
}

// Size returns the number of values in the parameter's domain.
func (p Parameter) Size() int {
	return len(p.Values)
}

// TestModel describes the input space being tested.
type TestModel struct {
	// Name is a human-readable label for the model.
	Name string

	// Strength is the combinatorial testing strength (t).
	Strength int

	// Parameters are the model's parameters in index order.
	Parameters []Parameter
}

// NumParameters returns the number of parameters in the model.
func (m *TestModel) NumParameters() int {
	return len(m.Parameters)
}

// DomainSizes returns the domain size of every parameter.
func (m *TestModel) DomainSizes() []int {
	sizes := make([]int, len(m.Parameters))
	for i, p := range m.Parameters {
		sizes[i] = p.Size()
	}
	return sizes
}

// ParameterIndex returns the index of the named parameter, or -1.
func (m *TestModel) ParameterIndex(name string) int {
	for i, p := range m.Parameters {
		if p.Name == name {
			return i
		}
	}
	return -1
}

// ValueIndex returns the index of value within the parameter's domain, or -1.
func (m *TestModel) ValueIndex(param int, value string) int {
	if param < 0 || param >= len(m.Parameters) {
		return -1
	}
	for i, v := range m.Parameters[param].Values {
		if v == value {
			return i
		}
	}
	return -1
}

// Validate checks that the model is usable for fault localization.
func (m *TestModel) Validate() error {
	if len(m.Parameters) == 0 {
		return fmt.Errorf("%w: model has no parameters", ErrInvalidModel)
	}
	seen := make(map[string]bool, len(m.Parameters))
	for i, p := range m.Parameters {
		if p.Name == "" {
			return fmt.Errorf("%w: parameter %d has no name", ErrInvalidModel, i)
		}
		if seen[p.Name] {
			return fmt.Errorf("%w: duplicate parameter %q", ErrInvalidModel, p.Name)
		}
		seen[p.Name] = true
		if len(p.Values) == 0 {
			return fmt.Errorf("%w: parameter %q has no values", ErrInvalidModel, p.Name)
		}
	}
	if m.Strength < 1 {
		return fmt.Errorf("%w: strength must be at least 1, got %d", ErrInvalidModel, m.Strength)
	}
	return nil
}

// EffectiveStrength returns the strength clamped to the parameter count.
func (m *TestModel) EffectiveStrength() int {
	if m.Strength > len(m.Parameters) {
		return len(m.Parameters)
	}
	return m.Strength
}

// Describe renders a combination with parameter and value names.
func (m *TestModel) Describe(c Combination) string {
	var b strings.Builder
	b.WriteByte('{')
	first := true
	for p, v := range c {
		if v == Unset {
			continue
		}
		if !first {
			b.WriteString(", ")
		}
		first = false
		name := fmt.Sprintf("p%d", p)
		value := strconv.Itoa(v)
		if p < len(m.Parameters) {
			name = m.Parameters[p].Name
			if v < len(m.Parameters[p].Values) {
				value = m.Parameters[p].Values[v]
			}
		}
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(value)
	}
	b.WriteByte('}')
	return b.String()
}

// UniformModel builds a model of n parameters named p0..p(n-1), each with
// values "0".."size-1".
func UniformModel(name string, n, size int) *TestModel {
	m := &TestModel{Name: name, Strength: 2, Parameters: make([]Parameter, n)}
	for i := range m.Parameters {
		values := make([]string, size)
		for v := range values {
			values[v] = strconv.Itoa(v)
		}
		m.Parameters[i] = Parameter{Name: "p" + strconv.Itoa(i), Values: values}
	}
	return m
}
