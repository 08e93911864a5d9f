package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type macroFile struct {
	Macros map[string]string `yaml:"macros"`
}

// LoadMacroFile reads canned replies from a YAML document of the form
//
//	macros:
//	  refund: "We do not issue refunds."
//
// An empty path yields no overrides.
func LoadMacroFile(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read macros file: %w", err)
	}
	var doc macroFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse macros file %s: %w", path, err)
	}
	return doc.Macros, nil
}
