package utils

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Stages every new brokerage starts with unless PIPELINE_STAGES_FILE says
// otherwise.
var DefaultStageNames = []string{"New Lead", "Showing", "Offer", "Under Contract", "Closed"}

type stagesFile struct {
	Stages []string `yaml:"stages"`
}

// LoadStageNames reads the default pipeline stages from a YAML file of the form
//
//	stages:
//	  - New Lead
//	  - Showing
//
// A blank path yields DefaultStageNames.
func LoadStageNames(path string) ([]string, error) {
	if path == "" {
		return DefaultStageNames, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("LoadStageNames: %w", err)
	}
	var file stagesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("LoadStageNames: %w", err)
	}

	names := make([]string, 0, len(file.Stages))
	seen := make(map[string]struct{})
	for _, name := range file.Stages {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, dup := seen[strings.ToLower(name)]; dup {
			return nil, fmt.Errorf("LoadStageNames: duplicate stage %q", name)
		}
		seen[strings.ToLower(name)] = struct{}{}
		names = append(names, name)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("LoadStageNames: %s lists no stages", path)
	}
	return names, nil
}
