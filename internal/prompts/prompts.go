// Package prompts loads the prompt templates and target parameter list that
// drive the extraction pipeline. Both are read once at startup and treated as
// immutable for the rest of the run.
package prompts

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/epiparam/epiextract/internal/model"
)

// Library holds the prompt templates for a pipeline invocation.
type Library struct {
	// SysPrompt is the stage-1 discovery system prompt for full-text runs.
	SysPrompt string `yaml:"sys_prompt"`
	// RAGSysPrompt is the stage-1 system prompt for retrieval-augmented runs.
	RAGSysPrompt string `yaml:"rag_sys_prompt"`
	// RefinePrompt instructs stage 2 to emit one value per parameter as JSON,
	// using "Not found" where no value is determinable.
	RefinePrompt string `yaml:"refine_prompt"`
	// RefinerInstructions is the mandatory retrieval-instructions block that
	// every refined candidate prompt must keep.
	RefinerInstructions string `yaml:"refiner_instructions"`
}

// LoadLibrary reads prompt templates from a YAML file. Missing required
// prompts are a configuration error and abort the run.
func LoadLibrary(path string) (*Library, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "prompts: read %s", path)
	}

	var lib Library
	if err := yaml.Unmarshal(data, &lib); err != nil {
		return nil, eris.Wrapf(err, "prompts: parse %s", path)
	}

	if lib.SysPrompt == "" {
		return nil, eris.Errorf("prompts: sys_prompt missing in %s", path)
	}
	if lib.RefinePrompt == "" {
		return nil, eris.Errorf("prompts: refine_prompt missing in %s", path)
	}
	if lib.RAGSysPrompt == "" {
		// Full-text prompt doubles as the RAG prompt when none is provided.
		lib.RAGSysPrompt = lib.SysPrompt
	}

	return &lib, nil
}

type parameterFile struct {
	Parameters []model.ParameterSpec `yaml:"parameters"`
}

// LoadParameters reads the ordered target parameter list from a YAML file.
// The declared order is preserved; it fixes the parameter order of every
// output row in the run.
func LoadParameters(path string) ([]model.ParameterSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "prompts: read %s", path)
	}

	var pf parameterFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, eris.Wrapf(err, "prompts: parse %s", path)
	}

	if len(pf.Parameters) == 0 {
		return nil, eris.Errorf("prompts: no parameters defined in %s", path)
	}

	seen := make(map[string]bool, len(pf.Parameters))
	for _, p := range pf.Parameters {
		if p.Name == "" {
			return nil, eris.Errorf("prompts: parameter with empty name in %s", path)
		}
		if seen[p.Name] {
			return nil, eris.Errorf("prompts: duplicate parameter %q in %s", p.Name, path)
		}
		seen[p.Name] = true
	}

	return pf.Parameters, nil
}
