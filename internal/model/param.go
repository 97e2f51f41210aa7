package model

import "fmt"

// ParameterSpec identifies one extraction target. The set of specs is loaded
// once per run and is immutable afterward.
type ParameterSpec struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
}

// Query returns the text used both in extraction prompts and as the
// retrieval query for this parameter.
func (p ParameterSpec) Query() string {
	if p.Description == "" {
		return p.Name
	}
	return fmt.Sprintf("%s: %s", p.Name, p.Description)
}

// ParameterNames returns the names of specs in declared order.
func ParameterNames(specs []ParameterSpec) []string {
	names := make([]string, len(specs))
	for i, s := range specs {
		names[i] = s.Name
	}
	return names
}
