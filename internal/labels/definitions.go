package labels

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	readDefinitionsErrorTemplateConstant  = "unable to read label definitions %s: %w"
	parseDefinitionsErrorTemplateConstant = "unable to parse label definitions %s: %w"
	emptyDefinitionNameTemplateConstant   = "label definition %d in %s has no name"
	jsonExtensionConstant                 = ".json"
)

// LoadDefinitions reads a JSON or YAML list of {name, color, description} records.
func LoadDefinitions(definitionsPath string) ([]Label, error) {
	contents, readError := os.ReadFile(definitionsPath)
	if readError != nil {
		return nil, fmt.Errorf(readDefinitionsErrorTemplateConstant, definitionsPath, readError)
	}

	var definitions []Label
	var parseError error
	if strings.EqualFold(filepath.Ext(definitionsPath), jsonExtensionConstant) {
		parseError = json.Unmarshal(contents, &definitions)
	} else {
		parseError = yaml.Unmarshal(contents, &definitions)
	}
	if parseError != nil {
		return nil, fmt.Errorf(parseDefinitionsErrorTemplateConstant, definitionsPath, parseError)
	}

	for definitionIndex, definition := range definitions {
		if len(definition.Name) == 0 {
			return nil, fmt.Errorf(emptyDefinitionNameTemplateConstant, definitionIndex+1, definitionsPath)
		}
	}
	return definitions, nil
}
