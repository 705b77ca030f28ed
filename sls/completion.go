// Package sls provides the Salt-specific analysis on top of the parsed
// state trees: completion data, include resolution and document symbols.
package sls

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LanguageID is the LSP language identifier of Salt state files.
const LanguageID = "sls"

// StateParameters holds the parameters and documentation of one state
// submodule, e.g. file.managed.
type StateParameters struct {
	Parameters    []string
	Documentation string
}

// SubnameCompletion is one entry of the submodule completion of a state
// module.
type SubnameCompletion struct {
	Name          string
	Documentation string
}

// StateNameCompletion provides completion and documentation for one state
// module, e.g. the file module with all its submodules.
type StateNameCompletion struct {
	StateName   string
	StateParams map[string]StateParameters
	StateDocs   string

	// SubNames preserves the order in which the submodules were declared
	// in the data file.
	SubNames []string
}

// ProvideSubnameCompletion returns the names and docstrings of the
// submodules of this state, e.g. for the file state ("absent", "doc of
// absent"), ("managed", ...) and so on.
func (c *StateNameCompletion) ProvideSubnameCompletion() []SubnameCompletion {
	completions := make([]SubnameCompletion, 0, len(c.SubNames))
	for _, name := range c.SubNames {
		completions = append(completions, SubnameCompletion{
			Name:          name,
			Documentation: c.StateParams[name].Documentation,
		})
	}
	return completions
}

// ProvideParamCompletion returns the parameter names of the given submodule.
func (c *StateNameCompletion) ProvideParamCompletion(submodName string) []string {
	return c.StateParams[submodName].Parameters
}

// CompletionsDict maps a state module name to its completion provider.
type CompletionsDict = map[string]*StateNameCompletion

type completionSubmodule struct {
	Name          string   `yaml:"name"`
	Documentation string   `yaml:"documentation"`
	Parameters    []string `yaml:"parameters"`
}

type completionModule struct {
	Documentation string                `yaml:"documentation"`
	Submodules    []completionSubmodule `yaml:"submodules"`
}

// ParseCompletions decodes the state completion data from its YAML form:
//
//	file:
//	  documentation: doc of the file module
//	  submodules:
//	    - name: managed
//	      documentation: doc of file.managed
//	      parameters: [name, source, user]
func ParseCompletions(data []byte) (CompletionsDict, error) {
	var modules map[string]completionModule
	if err := yaml.Unmarshal(data, &modules); err != nil {
		return nil, fmt.Errorf("parsing completion data: %w", err)
	}

	completions := make(CompletionsDict, len(modules))
	for name, module := range modules {
		completion := &StateNameCompletion{
			StateName:   name,
			StateParams: make(map[string]StateParameters, len(module.Submodules)),
			StateDocs:   module.Documentation,
		}
		for _, submod := range module.Submodules {
			completion.StateParams[submod.Name] = StateParameters{
				Parameters:    submod.Parameters,
				Documentation: submod.Documentation,
			}
			completion.SubNames = append(completion.SubNames, submod.Name)
		}
		completions[name] = completion
	}
	return completions, nil
}

// LoadCompletions reads the state completion data from a YAML file.
func LoadCompletions(path string) (CompletionsDict, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading completion data: %w", err)
	}
	return ParseCompletions(data)
}
