package tools

import (
	"encoding/json"

	"github.com/psops/sentry/internal/faults"
)

// validateInput checks raw tool arguments against the subset of JSON
// Schema the tools use: an object with typed properties and a required
// list. Violations come back as ToolValidationError faults.
func validateInput(schema map[string]any, input json.RawMessage) error {
	args := map[string]any{}
	if len(input) > 0 {
		if err := json.Unmarshal(input, &args); err != nil {
			return faults.Wrap(faults.KindToolValidationError, err, "arguments are not a JSON object")
		}
	}

	properties, _ := schema["properties"].(map[string]any)

	if required, ok := schema["required"].([]string); ok {
		for _, name := range required {
			if _, present := args[name]; !present {
				return faults.New(faults.KindToolValidationError, "missing required argument %q", name)
			}
		}
	}

	for name, value := range args {
		propAny, known := properties[name]
		if !known {
			return faults.New(faults.KindToolValidationError, "unknown argument %q", name)
		}
		prop, _ := propAny.(map[string]any)
		wantType, _ := prop["type"].(string)
		if err := checkType(name, wantType, value); err != nil {
			return err
		}
	}

	return nil
}

func checkType(name, wantType string, value any) error {
	if value == nil {
		return faults.New(faults.KindToolValidationError, "argument %q is null", name)
	}

	ok := true
	switch wantType {
	case "string":
		_, ok = value.(string)
	case "integer":
		// JSON numbers decode as float64; require a whole value.
		f, isNum := value.(float64)
		ok = isNum && f == float64(int64(f))
	case "number":
		_, ok = value.(float64)
	case "boolean":
		_, ok = value.(bool)
	case "object":
		_, ok = value.(map[string]any)
	case "array":
		_, ok = value.([]any)
	case "":
		// No declared type constraint.
	}
	if !ok {
		return faults.New(faults.KindToolValidationError, "argument %q must be of type %s", name, wantType)
	}
	return nil
}
