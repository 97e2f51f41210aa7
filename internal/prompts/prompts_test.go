package prompts

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadLibrary(t *testing.T) {
	path := writeYAML(t, "prompts.yaml", `
sys_prompt: find the parameters
rag_sys_prompt: find them in extracts
refine_prompt: format as json
refiner_instructions: quote the source
`)

	lib, err := LoadLibrary(path)
	require.NoError(t, err)

	assert.Equal(t, "find the parameters", lib.SysPrompt)
	assert.Equal(t, "find them in extracts", lib.RAGSysPrompt)
	assert.Equal(t, "format as json", lib.RefinePrompt)
	assert.Equal(t, "quote the source", lib.RefinerInstructions)
}

func TestLoadLibraryRAGDefaultsToSysPrompt(t *testing.T) {
	path := writeYAML(t, "prompts.yaml", `
sys_prompt: find the parameters
refine_prompt: format as json
`)

	lib, err := LoadLibrary(path)
	require.NoError(t, err)
	assert.Equal(t, lib.SysPrompt, lib.RAGSysPrompt)
}

func TestLoadLibraryMissingRequired(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing sys_prompt", "refine_prompt: format as json"},
		{"missing refine_prompt", "sys_prompt: find the parameters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeYAML(t, "prompts.yaml", tt.content)
			_, err := LoadLibrary(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadLibraryMissingFile(t *testing.T) {
	_, err := LoadLibrary(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadParameters(t *testing.T) {
	path := writeYAML(t, "parameters.yaml", `
parameters:
  - name: case fatality rate
    description: proportion of cases that die
  - name: incubation period
    description: days from infection to onset
`)

	params, err := LoadParameters(path)
	require.NoError(t, err)
	require.Len(t, params, 2)

	// Declared order preserved.
	assert.Equal(t, "case fatality rate", params[0].Name)
	assert.Equal(t, "incubation period", params[1].Name)
	assert.Equal(t, "case fatality rate: proportion of cases that die", params[0].Query())
}

func TestLoadParametersRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty list", "parameters: []"},
		{"no key", "other: value"},
		{"empty name", "parameters:\n  - name: \"\"\n    description: x"},
		{"duplicate name", "parameters:\n  - name: cfr\n  - name: cfr"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeYAML(t, "parameters.yaml", tt.content)
			_, err := LoadParameters(path)
			assert.Error(t, err)
		})
	}
}
